package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Batch
// =============================================================================

const (
	// TransportAuto reserves chip width + chip height time units between
	// dependent operations, enough for a droplet to cross the chip.
	TransportAuto = 0

	// TransportNone schedules dependent operations back to back. Routing
	// then relies on droplets waiting inside their source module.
	TransportNone = -1
)

// Stage names used in logs, hooks and metrics.
const (
	StageScheduling = "scheduling"
	StagePlacement  = "placement"
	StageRouting    = "routing"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run. The stage
// configurations are passed unchanged to the scheduler, the placement GA and
// the router, except that Scheduler.TransportTime is replaced by the value
// derived from TransportTime.
type Options struct {
	Scheduler schedule.Config  `json:"scheduler" toml:"scheduler"`
	Placement placement.Config `json:"placement" toml:"placement"`
	Routing   routing.Config   `json:"routing" toml:"routing"`

	// TransportTime is the gap between dependent operations: a positive
	// value is used as is, TransportAuto derives it from the chip and
	// TransportNone disables it.
	TransportTime int `json:"transport_time" toml:"transport_time"`

	// AllowDegraded continues to routing when scheduling or placement is
	// infeasible instead of aborting.
	AllowDegraded bool `json:"allow_degraded,omitempty" toml:"allow_degraded"`

	// Adapter names the synthesis backend; empty selects the built-in one.
	Adapter string `json:"adapter,omitempty" toml:"adapter"`

	// RepairRoutes runs the built-in router's repair loop over an external
	// adapter's route set when it fails validation.
	RepairRoutes bool `json:"repair_routes,omitempty" toml:"repair_routes"`

	// Runtime options (not part of the cache key)
	NoCache bool        `json:"-" toml:"-"`
	Logger  *log.Logger `json:"-" toml:"-"`
}

// DefaultOptions returns the standard configuration of every stage.
func DefaultOptions() Options {
	return Options{
		Scheduler:     schedule.DefaultConfig(),
		Placement:     placement.DefaultConfig(),
		Routing:       routing.DefaultConfig(),
		TransportTime: TransportAuto,
	}
}

// SetDefaults fills zero-valued fields. It is idempotent.
func (o *Options) SetDefaults() {
	o.Scheduler = o.Scheduler.Normalized()
	o.Placement = o.Placement.WithDefaults()
	o.Routing = o.Routing.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks every stage configuration.
func (o *Options) Validate() error {
	if o.TransportTime < TransportNone {
		return errors.New(errors.ErrCodeInvalidConfig,
			"transport_time must be positive, %d (auto) or %d (none), got %d",
			TransportAuto, TransportNone, o.TransportTime)
	}
	if err := o.Scheduler.Validate(); err != nil {
		return err
	}
	if err := o.Placement.Validate(); err != nil {
		return err
	}
	return o.Routing.Validate()
}

// ValidateAndSetDefaults applies defaults and validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// Transport resolves TransportTime for a problem.
func (o *Options) Transport(p *problem.Problem) int {
	switch {
	case o.TransportTime > 0:
		return o.TransportTime
	case o.TransportTime == TransportNone:
		return 0
	default:
		c := p.Chip()
		return c.Width + c.Height
	}
}

// schedulerConfig returns the scheduler configuration with the resolved
// transport gap.
func (o *Options) schedulerConfig(p *problem.Problem) schedule.Config {
	cfg := o.Scheduler
	cfg.TransportTime = o.Transport(p)
	return cfg
}

// keyOpts is everything that influences a result; the cache key hashes it.
type keyOpts struct {
	Scheduler     schedule.Config  `json:"scheduler"`
	Placement     placement.Config `json:"placement"`
	Routing       routing.Config   `json:"routing"`
	TransportTime int              `json:"transport_time"`
	AllowDegraded bool             `json:"allow_degraded"`
	Adapter       string           `json:"adapter"`
	RepairRoutes  bool             `json:"repair_routes"`
}

// CacheKeyOpts returns the options that identify a cached result.
func (o *Options) CacheKeyOpts() any {
	return keyOpts{
		Scheduler:     o.Scheduler,
		Placement:     o.Placement,
		Routing:       o.Routing,
		TransportTime: o.TransportTime,
		AllowDegraded: o.AllowDegraded,
		Adapter:       o.Adapter,
		RepairRoutes:  o.RepairRoutes,
	}
}
