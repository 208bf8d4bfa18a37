package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/cache"
	"github.com/matzehuels/dmfbsynth/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatsCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var redisURL string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if redisURL != "" {
				cfg.Cache.RedisURL = redisURL
			}
			n, where, err := clearCache(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", n)
			printDetail("%s", where)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisURL, "cache", "", "clear this redis cache instead of the file cache")
	return cmd
}

// clearCache empties the configured backend and reports where it was.
func clearCache(ctx context.Context, cc config.CacheConfig) (int, string, error) {
	if cc.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cc.RedisURL, redisPrefix)
		if err != nil {
			return 0, "", err
		}
		defer rc.Close()
		n, err := rc.Clear(ctx)
		return n, "Redis: " + cc.RedisURL, err
	}
	fc, err := fileCache(cc)
	if err != nil {
		return 0, "", err
	}
	n, err := fc.Clear()
	return n, "Directory: " + fc.Dir(), err
}

func fileCache(cc config.CacheConfig) (*cache.FileCache, error) {
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				if dir, err = cacheDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number and size of cached results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			fc, err := fileCache(cfg.Cache)
			if err != nil {
				return err
			}
			n, size, err := fc.Stats()
			if err != nil {
				return err
			}
			printKeyValue("entries", fmt.Sprint(n))
			printKeyValue("size", fmt.Sprintf("%.1f KiB", float64(size)/1024))
			printKeyValue("directory", fc.Dir())
			return nil
		},
	}
}
