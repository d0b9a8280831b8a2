package eval

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"dronesearch/internal/config"
	"dronesearch/internal/env"
	"dronesearch/internal/ga"
)

const eps = 1e-9

func unitWeights() Weights {
	return Weights{Area: 1, Return: 1, Rotate: 1}
}

func newEval(size, drones int, start env.Point) (*Evaluator, ga.Layout) {
	layout := ga.NewLayout(size, drones)
	return NewEvaluator(layout, Options{Start: start, Weights: unitWeights(), RecordPaths: true}), layout
}

func TestLapOfThreeByThree(t *testing.T) {
	e, layout := newEval(3, 1, env.Point{Row: 1, Col: 1})
	lap := ga.Chromosome{env.DirN, env.DirE, env.DirS, env.DirS, env.DirW, env.DirW, env.DirN, env.DirN, env.DirSE}
	ind := ga.NewIndividual(layout, lap)

	if err := e.Evaluate(ind); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ind.TotalExploredCellCount != 9 {
		t.Errorf("Expected 9 explored cells, got %d", ind.TotalExploredCellCount)
	}
	if ind.ReturnFitness != 1 {
		t.Errorf("Expected return fitness 1, got %v", ind.ReturnFitness)
	}
	if ind.AreaFitness != 1 {
		t.Errorf("Expected area fitness 1, got %v", ind.AreaFitness)
	}
	// 5+3+3+1+3+1+3+1+4 with the heading rotating after every move
	wantRotate := 24 / (9 * 4.5)
	if math.Abs(ind.RotateFitness-wantRotate) > eps {
		t.Errorf("Expected rotate fitness %v, got %v", wantRotate, ind.RotateFitness)
	}
	if math.Abs(ind.TotalWeightedFitness-(2+wantRotate)) > eps {
		t.Errorf("Expected total %v, got %v", 2+wantRotate, ind.TotalWeightedFitness)
	}
	if got := ind.Drones[0].LastLocation; got != (env.Point{Row: 1, Col: 1}) {
		t.Errorf("Expected to end on the start cell, got %v", got)
	}
	if len(ind.Drones[0].Path) != 10 {
		t.Errorf("Expected 10 path cells, got %d", len(ind.Drones[0].Path))
	}
}

func TestBlockedGenesOnly(t *testing.T) {
	e, layout := newEval(3, 1, env.Point{})
	c := make(ga.Chromosome, layout.Length())
	for i := range c {
		c[i] = env.DirNW
	}
	ind := ga.NewIndividual(layout, c)
	if err := e.Evaluate(ind); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ind.TotalExploredCellCount != 1 {
		t.Errorf("Expected only the start cell, got %d", ind.TotalExploredCellCount)
	}
	want := float64(env.BlockedMoveCost*layout.Length()) / (9 * 4.5)
	if math.Abs(ind.RotateFitness-want) > eps {
		t.Errorf("Expected rotate fitness %v, got %v", want, ind.RotateFitness)
	}
	if ind.ReturnFitness != 1 {
		t.Errorf("Expected drone to stay home, got return fitness %v", ind.ReturnFitness)
	}
	if len(ind.Drones[0].Path) != 1 {
		t.Errorf("Expected path of one cell, got %d", len(ind.Drones[0].Path))
	}
}

func TestBlockedMoveKeepsHeading(t *testing.T) {
	e, layout := newEval(3, 1, env.Point{})
	// E, then N is blocked, then E again must cost 1 (still heading E)
	c := ga.Chromosome{env.DirE, env.DirN, env.DirE, env.DirNW, env.DirNW, env.DirNW, env.DirNW, env.DirNW, env.DirNW}
	ind := ga.NewIndividual(layout, c)
	trace, err := e.Trace(ind, 0)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if !trace.Steps[1].Blocked || trace.Steps[1].Cost != env.BlockedMoveCost {
		t.Errorf("Expected second step blocked, got %+v", trace.Steps[1])
	}
	if trace.Steps[2].Cost != 1 {
		t.Errorf("Expected straight-on cost after blocked gene, got %d", trace.Steps[2].Cost)
	}
	if trace.End() != (env.Point{Row: 0, Col: 2}) {
		t.Errorf("Expected to end at (0,2), got %v", trace.End())
	}
	if trace.Blocked() != 7 {
		t.Errorf("Expected 7 blocked steps, got %d", trace.Blocked())
	}
}

func TestSingleCellGrid(t *testing.T) {
	e, layout := newEval(1, 1, env.Point{})
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 8; i++ {
		ind := ga.RandomIndividual(layout, rng)
		if err := e.Evaluate(ind); err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if ind.AreaFitness != 1 || ind.ReturnFitness != 1 {
			t.Errorf("Expected area and return fitness 1, got %v and %v", ind.AreaFitness, ind.ReturnFitness)
		}
		if math.IsNaN(ind.TotalWeightedFitness) || math.IsInf(ind.TotalWeightedFitness, 0) {
			t.Errorf("Expected finite fitness, got %v", ind.TotalWeightedFitness)
		}
	}
}

func TestEmptySegment(t *testing.T) {
	layout := ga.Layout{GridSize: 4, Drones: 1, SegmentLength: 0}
	e := NewEvaluator(layout, Options{Start: env.Point{Row: 2, Col: 2}, Weights: unitWeights()})
	ind := ga.NewIndividual(layout, ga.Chromosome{})
	if err := e.Evaluate(ind); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ind.TotalExploredCellCount != 1 {
		t.Errorf("Expected only the start cell, got %d", ind.TotalExploredCellCount)
	}
}

func TestIdenticalDronesDoNotDoubleCount(t *testing.T) {
	e, layout := newEval(3, 2, env.Point{})
	seg := []env.Direction{env.DirE, env.DirE, env.DirS, env.DirS, env.DirW}
	c := append(ga.Chromosome(seg), seg...)
	ind := ga.NewIndividual(layout, c)
	if err := e.Evaluate(ind); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	a, b := ind.Drones[0].Explored, ind.Drones[1].Explored
	if !a.Equal(b) {
		t.Errorf("Expected identical drone bitmaps")
	}
	if int(a.Count()) != ind.TotalExploredCellCount || ind.TotalExploredCellCount != 6 {
		t.Errorf("Expected union of 6 cells, got %d (drone %d)", ind.TotalExploredCellCount, a.Count())
	}
	if !ind.Explored.Equal(a) {
		t.Errorf("Expected union bitmap to equal drone bitmap")
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e, layout := newEval(6, 3, env.Point{Row: 2, Col: 4})
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 20; i++ {
		ind := ga.RandomIndividual(layout, rng)
		orig := ind.Chromosome.Clone()
		if err := e.Evaluate(ind); err != nil {
			t.Fatal(err)
		}
		first := *ind
		firstExplored := ind.Explored.Clone()

		// score something else in between to dirty the scratch
		if err := e.Evaluate(ga.RandomIndividual(layout, rng)); err != nil {
			t.Fatal(err)
		}
		if err := e.Evaluate(ind); err != nil {
			t.Fatal(err)
		}
		if ind.TotalWeightedFitness != first.TotalWeightedFitness ||
			ind.TotalExploredCellCount != first.TotalExploredCellCount ||
			ind.RotateFitness != first.RotateFitness ||
			ind.ReturnFitness != first.ReturnFitness {
			t.Fatalf("Fitness changed between evaluations")
		}
		if !ind.Explored.Equal(firstExplored) {
			t.Fatalf("Explored set changed between evaluations")
		}
		for j := range orig {
			if orig[j] != ind.Chromosome[j] {
				t.Fatalf("Chromosome modified at %d", j)
			}
		}
	}
}

func TestEvaluateAllMatchesSerial(t *testing.T) {
	layout := ga.NewLayout(5, 2)
	opts := Options{Start: env.Point{Row: 0, Col: 4}, Weights: Weights{Area: 1, Return: 0.5, Rotate: 0.1}}
	serial := NewEvaluator(layout, opts)
	opts.Workers = 4
	parallel := NewEvaluator(layout, opts)

	rng := rand.New(rand.NewSource(5))
	a := ga.NewPopulation(40, layout, rng).Individuals
	b := make([]*ga.Individual, len(a))
	for i, ind := range a {
		b[i] = ga.NewIndividual(layout, ind.Chromosome.Clone())
	}

	if err := serial.EvaluateAll(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if err := parallel.EvaluateAll(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].TotalWeightedFitness != b[i].TotalWeightedFitness {
			t.Errorf("Individual %d: serial %v vs parallel %v", i, a[i].TotalWeightedFitness, b[i].TotalWeightedFitness)
		}
	}
}

func TestEvaluateRejectsInvariantViolations(t *testing.T) {
	e, layout := newEval(3, 1, env.Point{})

	short := ga.NewIndividual(layout, make(ga.Chromosome, 2))
	if err := e.Evaluate(short); !errors.Is(err, ga.ErrInvariant) {
		t.Errorf("Expected invariant error for short chromosome, got %v", err)
	}

	bad := ga.NewIndividual(layout, make(ga.Chromosome, layout.Length()))
	bad.Chromosome[0] = 9
	if err := e.Evaluate(bad); !errors.Is(err, ga.ErrGeneOutOfRange) {
		t.Errorf("Expected gene range error, got %v", err)
	}

	pop := []*ga.Individual{ga.NewIndividual(layout, make(ga.Chromosome, layout.Length())), short}
	if err := e.EvaluateAll(context.Background(), pop); !errors.Is(err, ga.ErrChromosomeLength) {
		t.Errorf("Expected EvaluateAll to surface the length error, got %v", err)
	}

	if _, err := e.Trace(pop[0], 3); err == nil {
		t.Errorf("Expected out-of-range drone error")
	}
}

func TestEvaluateAllHonoursContext(t *testing.T) {
	e, layout := newEval(3, 1, env.Point{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pop := ga.NewPopulation(3, layout, rand.New(rand.NewSource(1))).Individuals
	if err := e.EvaluateAll(ctx, pop); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWeightsFrom(t *testing.T) {
	w := WeightsFrom(config.FitnessConfig{AreaWeight: 2, ReturnWeight: 3, RotateWeight: -1})
	if w != (Weights{Area: 2, Return: 3, Rotate: -1}) {
		t.Errorf("Unexpected weights: %+v", w)
	}
}
