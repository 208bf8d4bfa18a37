package placement

import (
	"github.com/matzehuels/dmfbsynth/pkg/errors"
)

// Default GA parameters.
const (
	DefaultPopulationSize  = 100
	DefaultGenerations     = 500
	DefaultCrossoverRate   = 0.8
	DefaultMutationRate    = 0.2
	DefaultElitism         = 2
	DefaultTournamentSize  = 3
	DefaultOverlapPenalty  = 1000.0
	DefaultBoundaryPenalty = 500.0
	DefaultSeed            = uint64(42)

	// sigmaFraction scales the chip's larger side into the default
	// mutation step.
	sigmaFraction = 0.1
)

// Config controls the genetic algorithm.
//
// Zero values of PopulationSize, Generations, TournamentSize, Workers,
// OverlapPenalty, BoundaryPenalty, Sigma and Seed are replaced by their
// defaults; rates and Elitism are used as given, so start from
// [DefaultConfig] rather than a zero Config.
type Config struct {
	PopulationSize int     `toml:"population_size" json:"population_size,omitempty"`
	Generations    int     `toml:"generations" json:"generations,omitempty"`
	CrossoverRate  float64 `toml:"crossover_rate" json:"crossover_rate"`
	MutationRate   float64 `toml:"mutation_rate" json:"mutation_rate"`
	Elitism        int     `toml:"elitism" json:"elitism"`
	TournamentSize int     `toml:"tournament_size" json:"tournament_size,omitempty"`

	// Sigma is the standard deviation of Gaussian mutation in cells.
	// Zero selects 0.1 x max(chip width, chip height).
	Sigma float64 `toml:"sigma" json:"sigma,omitempty"`

	// OverlapPenalty is charged per overlapping cell of every module pair.
	OverlapPenalty float64 `toml:"overlap_penalty" json:"overlap_penalty,omitempty"`

	// BoundaryPenalty is charged per module cell outside the chip.
	BoundaryPenalty float64 `toml:"boundary_penalty" json:"boundary_penalty,omitempty"`

	// PlateauGenerations stops the search early after this many
	// generations without improvement of the best fitness. Zero disables
	// early stopping.
	PlateauGenerations int `toml:"plateau_generations" json:"plateau_generations,omitempty"`

	// Workers bounds the goroutines used for fitness evaluation.
	Workers int `toml:"workers" json:"workers,omitempty"`

	// Seed makes runs reproducible. Results do not depend on Workers.
	Seed uint64 `toml:"seed" json:"seed,omitempty"`

	// NoGreedySeed disables the deterministic shelf-packed individual in
	// the initial population.
	NoGreedySeed bool `toml:"no_greedy_seed" json:"no_greedy_seed,omitempty"`
}

// DefaultConfig returns the standard GA parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize:  DefaultPopulationSize,
		Generations:     DefaultGenerations,
		CrossoverRate:   DefaultCrossoverRate,
		MutationRate:    DefaultMutationRate,
		Elitism:         DefaultElitism,
		TournamentSize:  DefaultTournamentSize,
		OverlapPenalty:  DefaultOverlapPenalty,
		BoundaryPenalty: DefaultBoundaryPenalty,
		Workers:         1,
		Seed:            DefaultSeed,
	}
}

// WithDefaults fills zero-valued fields as documented on [Config].
func (c Config) WithDefaults() Config {
	if c.PopulationSize == 0 {
		c.PopulationSize = DefaultPopulationSize
	}
	if c.Generations == 0 {
		c.Generations = DefaultGenerations
	}
	if c.TournamentSize == 0 {
		c.TournamentSize = DefaultTournamentSize
	}
	if c.OverlapPenalty == 0 {
		c.OverlapPenalty = DefaultOverlapPenalty
	}
	if c.BoundaryPenalty == 0 {
		c.BoundaryPenalty = DefaultBoundaryPenalty
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.WithDefaults()
	checks := []error{
		errors.ValidatePositive("population_size", c.PopulationSize),
		errors.ValidatePositive("generations", c.Generations),
		errors.ValidatePositive("tournament_size", c.TournamentSize),
		errors.ValidatePositive("workers", c.Workers),
		errors.ValidateNonNegative("elitism", c.Elitism),
		errors.ValidateNonNegative("plateau_generations", c.PlateauGenerations),
		errors.ValidateRate("crossover_rate", c.CrossoverRate),
		errors.ValidateRate("mutation_rate", c.MutationRate),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.Elitism > c.PopulationSize {
		return errors.New(errors.ErrCodeInvalidConfig,
			"elitism (%d) exceeds population_size (%d)", c.Elitism, c.PopulationSize)
	}
	if c.Sigma < 0 || c.OverlapPenalty < 0 || c.BoundaryPenalty < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "sigma and penalties must not be negative")
	}
	return nil
}
