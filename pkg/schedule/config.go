package schedule

import (
	"sort"
	"strings"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
)

// Priority selects the ordering of ready operations.
type Priority string

// Priority functions. Ties are always broken by ascending operation ID.
const (
	// PriorityASAP prefers operations with the earliest unconstrained start.
	PriorityASAP Priority = "asap"

	// PriorityALAP prefers operations with the earliest latest-start.
	PriorityALAP Priority = "alap"

	// PriorityMobility prefers operations with the least slack.
	PriorityMobility Priority = "mobility"

	// PriorityCriticalPath prefers operations with the longest remaining
	// path to a sink.
	PriorityCriticalPath Priority = "critical_path"
)

// DefaultPriority is used when Config.Priority is empty.
const DefaultPriority = PriorityASAP

// Priorities lists every supported priority function.
var Priorities = []Priority{PriorityASAP, PriorityALAP, PriorityMobility, PriorityCriticalPath}

// ParsePriority converts a user-supplied name into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range Priorities {
		if p == k {
			return p, nil
		}
	}
	names := make([]string, len(Priorities))
	for i, k := range Priorities {
		names[i] = string(k)
	}
	return "", errors.New(errors.ErrCodeInvalidConfig,
		"invalid priority %q (must be one of: %s)", s, strings.Join(names, ", "))
}

// Config controls the list scheduler. A Config is a plain value; the
// scheduler never modifies it.
type Config struct {
	// Priority orders ready operations.
	Priority Priority `toml:"priority" json:"priority,omitempty"`

	// Instances limits how many operations of a module type can run at
	// the same time. Types that are absent or mapped to 0 are unlimited.
	Instances map[string]int `toml:"instances" json:"instances,omitempty"`

	// TransportTime is the minimum gap between the end of an operation and
	// the start of any of its dependents, reserved for droplet transport.
	TransportTime int `toml:"transport_time" json:"transport_time,omitempty"`
}

// DefaultConfig returns ASAP priority with unlimited instances and no
// transport gap.
func DefaultConfig() Config {
	return Config{Priority: DefaultPriority}
}

// Normalized returns c with its priority in canonical form, so "ALAP" and
// " alap" select the same priority function. An invalid priority is left
// unchanged for Validate to report.
func (c Config) Normalized() Config {
	if c.Priority == "" {
		c.Priority = DefaultPriority
		return c
	}
	if pr, err := ParsePriority(string(c.Priority)); err == nil {
		c.Priority = pr
	}
	return c
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Priority != "" {
		if _, err := ParsePriority(string(c.Priority)); err != nil {
			return err
		}
	}
	if err := errors.ValidateNonNegative("transport_time", c.TransportTime); err != nil {
		return err
	}
	keys := make([]string, 0, len(c.Instances))
	for k := range c.Instances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := errors.ValidateNonNegative("instances."+k, c.Instances[k]); err != nil {
			return err
		}
	}
	return nil
}

// Limit returns the instance limit for a module type, 0 meaning unlimited.
func (c Config) Limit(moduleType string) int {
	return c.Instances[moduleType]
}

func (c Config) priority() Priority {
	return c.Normalized().Priority
}
