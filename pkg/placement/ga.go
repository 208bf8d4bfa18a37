package placement

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// GenerationStats records the fitness spread of one generation.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	Worst      float64 `json:"worst"`
}

// Result is the best placement found by [Solve].
type Result struct {
	Placement   problem.Placement
	Fitness     float64
	Wirelength  float64
	Overlap     int
	OutOfBounds int
	Feasible    bool

	// Report is feasible when the best individual has no overlap and no
	// out-of-bounds cells. Otherwise it lists the violations with reason
	// budget_exhausted.
	Report feasibility.Report

	// History holds one entry per evaluated generation.
	History []GenerationStats

	// Generations is the number of generations evaluated; it is smaller
	// than Config.Generations when the plateau rule stopped the search.
	Generations int
	Converged   bool
}

type individual []problem.Cell

// Solve searches for a placement with a genetic algorithm.
//
// Each individual assigns one top-left cell to every operation. Fitness is
// the negated sum of wirelength and the overlap and boundary penalties.
// Every generation is evaluated (in parallel across Config.Workers), then
// the next one is bred by elitism, tournament selection, uniform crossover
// and Gaussian mutation clamped to the chip. The best individual seen in
// any generation is returned.
//
// Solve returns an error only for invalid configuration or when ctx is
// cancelled. An infeasible best individual is reported through
// Result.Report, never as an error.
func Solve(ctx context.Context, p *problem.Problem, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	l := newLayout(p)
	chip := p.Chip()
	sigma := cfg.Sigma
	if sigma == 0 {
		sigma = sigmaFraction * float64(max(chip.Width, chip.Height))
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xdeadbeef))

	pop := make([]individual, cfg.PopulationSize)
	for i := range pop {
		if i == 0 && !cfg.NoGreedySeed {
			pop[i] = shelfPack(p, l)
			continue
		}
		pop[i] = randomIndividual(l, rng)
	}

	res := &Result{Fitness: math.Inf(-1)}
	var best individual
	var bestScore score
	stale := 0

	for gen := 0; gen < cfg.Generations; gen++ {
		scores, err := evaluateAll(ctx, l, pop, cfg)
		if err != nil {
			return nil, err
		}

		stats := GenerationStats{Generation: gen, Best: math.Inf(-1), Worst: math.Inf(1)}
		improved := false
		for i, s := range scores {
			stats.Best = max(stats.Best, s.Fitness)
			stats.Worst = min(stats.Worst, s.Fitness)
			stats.Mean += s.Fitness
			if s.Fitness > res.Fitness {
				res.Fitness = s.Fitness
				best = slices.Clone(pop[i])
				bestScore = s
				improved = true
			}
		}
		stats.Mean /= float64(len(scores))
		res.History = append(res.History, stats)
		res.Generations = gen + 1

		if improved {
			stale = 0
		} else {
			stale++
		}
		if cfg.PlateauGenerations > 0 && stale >= cfg.PlateauGenerations {
			res.Converged = true
			break
		}
		if gen == cfg.Generations-1 {
			break
		}

		pop = breed(l, pop, scores, cfg, sigma, rng)
	}

	res.Placement = l.placement(best)
	res.Wirelength = bestScore.Wirelength
	res.Overlap = bestScore.Overlap
	res.OutOfBounds = bestScore.OutOfBounds
	res.Feasible = bestScore.Feasible()
	res.Report = Validate(p, res.Placement)
	if !res.Report.Feasible {
		res.Report.Reason = feasibility.ReasonBudgetExhausted
	}
	return res, nil
}

// evaluateAll scores the population. Workers evaluate disjoint index
// ranges and write into their own slots, so the result does not depend on
// scheduling.
func evaluateAll(ctx context.Context, l *layout, pop []individual, cfg Config) ([]score, error) {
	scores := make([]score, len(pop))
	if cfg.Workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, ind := range pop {
			scores[i] = l.evaluate(ind, cfg)
		}
		return scores, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	chunk := (len(pop) + cfg.Workers - 1) / cfg.Workers
	for lo := 0; lo < len(pop); lo += chunk {
		hi := min(lo+chunk, len(pop))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				scores[i] = l.evaluate(pop[i], cfg)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func breed(l *layout, pop []individual, scores []score, cfg Config, sigma float64, rng *rand.Rand) []individual {
	ranked := make([]int, len(pop))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]].Fitness > scores[ranked[b]].Fitness
	})

	next := make([]individual, 0, len(pop))
	for _, i := range ranked[:cfg.Elitism] {
		next = append(next, slices.Clone(pop[i]))
	}
	for len(next) < len(pop) {
		a := tournament(scores, cfg.TournamentSize, rng)
		b := tournament(scores, cfg.TournamentSize, rng)
		var child individual
		if rng.Float64() < cfg.CrossoverRate {
			child = crossover(pop[a], pop[b], rng)
		} else {
			child = slices.Clone(pop[a])
		}
		mutate(l, child, cfg.MutationRate, sigma, rng)
		next = append(next, child)
	}
	return next
}

// tournament samples k individuals with replacement and returns the index
// of the fittest; equal fitness keeps the earlier index.
func tournament(scores []score, k int, rng *rand.Rand) int {
	winner := rng.IntN(len(scores))
	for i := 1; i < k; i++ {
		c := rng.IntN(len(scores))
		if scores[c].Fitness > scores[winner].Fitness ||
			(scores[c].Fitness == scores[winner].Fitness && c < winner) {
			winner = c
		}
	}
	return winner
}

// crossover takes each gene from either parent with equal probability.
func crossover(a, b individual, rng *rand.Rand) individual {
	child := make(individual, len(a))
	for i := range a {
		if rng.IntN(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}

// mutate perturbs each coordinate with probability rate by a rounded
// Gaussian step and clamps it back onto the chip.
func mutate(l *layout, ind individual, rate, sigma float64, rng *rand.Rand) {
	for i := range ind {
		if rng.Float64() < rate {
			ind[i].X = clamp(ind[i].X+int(math.Round(rng.NormFloat64()*sigma)), 0, l.maxX[i])
		}
		if rng.Float64() < rate {
			ind[i].Y = clamp(ind[i].Y+int(math.Round(rng.NormFloat64()*sigma)), 0, l.maxY[i])
		}
	}
}

func randomIndividual(l *layout, rng *rand.Rand) individual {
	ind := make(individual, len(l.ids))
	for i := range ind {
		ind[i] = problem.Cell{X: rng.IntN(l.maxX[i] + 1), Y: rng.IntN(l.maxY[i] + 1)}
	}
	return ind
}

// shelfPack places modules left to right in topological order, starting a
// new row when the current one is full. Rows that run past the bottom edge
// are clamped, so the result may overlap on crowded chips.
func shelfPack(p *problem.Problem, l *layout) individual {
	ind := make(individual, len(l.ids))
	x, y, rowH := 0, 0, 0
	for _, id := range p.TopologicalOrder() {
		i := l.pos[id]
		if x > 0 && x+l.width[i] > l.chip.Width {
			x, y, rowH = 0, y+rowH, 0
		}
		ind[i] = problem.Cell{X: clamp(x, 0, l.maxX[i]), Y: clamp(y, 0, l.maxY[i])}
		x += l.width[i]
		rowH = max(rowH, l.height[i])
	}
	return ind
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
