package eval

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/sourcegraph/conc/pool"

	"dronesearch/internal/config"
	"dronesearch/internal/env"
	"dronesearch/internal/ga"
)

// rotateNormalizer scales the summed move costs: N² × 4.5
const rotateNormalizer = 4.5

// Weights multiply the three fitness components
type Weights struct {
	Area   float64
	Return float64
	Rotate float64
}

// WeightsFrom reads the weights out of the fitness config
func WeightsFrom(cfg config.FitnessConfig) Weights {
	return Weights{
		Area:   cfg.AreaWeight,
		Return: cfg.ReturnWeight,
		Rotate: cfg.RotateWeight,
	}
}

// Evaluator simulates chromosomes on the grid and scores them.
// An Evaluator owns one scratch bitset and is not safe for concurrent use;
// EvaluateAll forks per worker.
type Evaluator struct {
	grid        env.Grid
	layout      ga.Layout
	start       env.Point
	weights     Weights
	recordPaths bool
	workers     int

	scratch *bitset.BitSet
	heading *env.Heading
}

// Options configure an Evaluator
type Options struct {
	Start       env.Point
	Weights     Weights
	RecordPaths bool
	Workers     int
}

// NewEvaluator creates a new evaluator for one run layout
func NewEvaluator(layout ga.Layout, opts Options) *Evaluator {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Evaluator{
		grid:        env.NewGrid(layout.GridSize),
		layout:      layout,
		start:       opts.Start,
		weights:     opts.Weights,
		recordPaths: opts.RecordPaths,
		workers:     workers,
		scratch:     bitset.New(uint(layout.Cells())),
		heading:     env.NewHeading(),
	}
}

// Start returns the shared start cell
func (e *Evaluator) Start() env.Point {
	return e.start
}

// fork returns an evaluator with the same settings and its own scratch
func (e *Evaluator) fork() *Evaluator {
	f := *e
	f.scratch = bitset.New(uint(e.layout.Cells()))
	f.heading = env.NewHeading()
	return &f
}

// Evaluate simulates every drone of ind from the start cell and overwrites
// its fitness fields. The chromosome is never modified.
func (e *Evaluator) Evaluate(ind *ga.Individual) error {
	if err := e.layout.Validate(ind.Chromosome); err != nil {
		return err
	}
	if len(ind.Drones) != e.layout.Drones {
		ind.Drones = make([]ga.Drone, e.layout.Drones)
	}

	e.scratch.ClearAll()
	n := e.grid.Size
	var rotateSum, returnSum float64

	for d := range ind.Drones {
		drone := &ind.Drones[d]
		if drone.Explored == nil {
			drone.Explored = bitset.New(uint(e.layout.Cells()))
		}
		drone.Explored.ClearAll()
		drone.Path = drone.Path[:0]

		loc, cost := e.simulate(drone, e.layout.Segment(ind.Chromosome, d), nil)
		drone.LastLocation = loc
		rotateSum += float64(cost)

		if n == 1 {
			returnSum++
		} else {
			returnSum += 1 - float64(env.Chebyshev(e.start, loc))/float64(n-1)
		}
	}

	cells := float64(e.grid.Cells())
	explored := int(e.scratch.Count())

	ind.RotateFitness = rotateSum / (cells * rotateNormalizer)
	ind.ReturnFitness = returnSum / float64(len(ind.Drones))
	ind.AreaFitness = float64(explored) / cells
	ind.TotalExploredCellCount = explored
	ind.TotalWeightedFitness = e.weights.Area*ind.AreaFitness +
		e.weights.Return*ind.ReturnFitness +
		e.weights.Rotate*ind.RotateFitness

	if ind.Explored == nil {
		ind.Explored = bitset.New(uint(e.layout.Cells()))
	}
	e.scratch.Copy(ind.Explored)
	return nil
}

// simulate walks one segment from the start cell, marking explored cells
// in both the scratch set and the drone. Returns the final location and the
// summed move cost.
func (e *Evaluator) simulate(drone *ga.Drone, segment ga.Chromosome, trace *env.Trace) (env.Point, int) {
	e.heading.Reset()
	loc := e.start
	e.mark(drone, loc)

	cost := 0
	for _, g := range segment {
		c := e.heading.Cost(e.grid, loc, g)
		cost += c

		from := loc
		blocked := !e.grid.CanMove(loc, g)
		if !blocked {
			loc = e.grid.Move(loc, g)
			e.mark(drone, loc)
			e.heading.Rotate(g)
		}
		if trace != nil {
			trace.Record(env.TraceStep{Gene: g, From: from, To: loc, Cost: c, Blocked: blocked})
		}
	}
	return loc, cost
}

func (e *Evaluator) mark(drone *ga.Drone, p env.Point) {
	i := e.grid.Index(p)
	e.scratch.Set(i)
	drone.Explored.Set(i)
	if e.recordPaths {
		drone.Path = append(drone.Path, p)
	}
}

// EvaluateAll scores a whole population. Scoring stops at the first error.
func (e *Evaluator) EvaluateAll(ctx context.Context, pop []*ga.Individual) error {
	if e.workers <= 1 || len(pop) < 2*e.workers {
		for _, ind := range pop {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.Evaluate(ind); err != nil {
				return err
			}
		}
		return nil
	}

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(e.workers)
	chunk := (len(pop) + e.workers - 1) / e.workers
	for lo := 0; lo < len(pop); lo += chunk {
		part := pop[lo:min(lo+chunk, len(pop))]
		worker := e.fork()
		p.Go(func(ctx context.Context) error {
			for _, ind := range part {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := worker.Evaluate(ind); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return p.Wait()
}

// Trace re-simulates one drone of ind and returns the step record.
// It does not touch ind's fitness fields.
func (e *Evaluator) Trace(ind *ga.Individual, drone int) (*env.Trace, error) {
	if err := e.layout.Validate(ind.Chromosome); err != nil {
		return nil, err
	}
	if drone < 0 || drone >= e.layout.Drones {
		return nil, fmt.Errorf("drone %d out of range [0,%d)", drone, e.layout.Drones)
	}

	e.scratch.ClearAll()
	scratchDrone := &ga.Drone{Explored: bitset.New(uint(e.layout.Cells()))}
	saved := e.recordPaths
	e.recordPaths = false
	defer func() { e.recordPaths = saved }()

	trace := env.NewTrace(drone, e.start, e.layout.SegmentLength)
	e.simulate(scratchDrone, e.layout.Segment(ind.Chromosome, drone), trace)
	return trace, nil
}
