package evolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"dronesearch/internal/config"
	"dronesearch/internal/env"
	"dronesearch/internal/eval"
	"dronesearch/internal/ga"
)

// State of the evolution loop
type State int

const (
	Stopped State = iota
	Running
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// StopReason says why a run ended
type StopReason string

const (
	ReasonNone             StopReason = ""
	ReasonMaxGenerations   StopReason = config.StopMaxGenerations
	ReasonAllCellsExplored StopReason = config.StopAllCellsExplored
	ReasonDesiredFitness   StopReason = config.StopDesiredFitness
)

var (
	ErrNotStopped = errors.New("evolution: start cell can only change while stopped")
	ErrRunning    = errors.New("evolution: already running")
	ErrNotRunning = errors.New("evolution: not running")
	ErrStopped    = errors.New("evolution: run stopped")
)

// Loop drives the generations of one run. Control methods are safe to call
// from any goroutine; Start, Step and Run must be driven from one goroutine.
type Loop struct {
	mu    sync.Mutex
	state State
	start env.Point

	cfg       config.Config
	logger    *slog.Logger
	observers []Observer

	// owned by the driving goroutine
	runID      uuid.UUID
	rng        *rand.Rand
	layout     ga.Layout
	evaluator  *eval.Evaluator
	selector   ga.Selector
	crossover  ga.Crossover
	pop        *ga.Population
	generation int
	bestOfGen  *ga.Individual
	bestOfAll  *ga.Individual
	last       Snapshot
}

// Option configures a Loop
type Option func(*Loop)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithObserver adds a snapshot consumer
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observers = append(l.observers, o) }
}

// New creates a stopped loop. The configuration is copied and only
// validated when the run starts.
func New(cfg *config.Config, opts ...Option) *Loop {
	l := &Loop{
		cfg:    *cfg,
		start:  cfg.Start(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Generation returns the current generation number. Like Last and RunID
// it belongs to the driving goroutine.
func (l *Loop) Generation() int {
	return l.generation
}

// RunID identifies the current or last run
func (l *Loop) RunID() uuid.UUID {
	return l.runID
}

// Last returns the most recently published snapshot
func (l *Loop) Last() Snapshot {
	return l.last
}

// SetStartCell moves the shared start cell. Only honoured while stopped.
func (l *Loop) SetStartCell(p env.Point) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Stopped {
		return ErrNotStopped
	}
	if !l.cfg.Grid.Contains(p) {
		return fmt.Errorf("%w: start cell %v outside %dx%d grid", config.ErrInvalid, p, l.cfg.Grid.Size, l.cfg.Grid.Size)
	}
	l.start = p
	return nil
}

// Pause suspends a running loop at the next generation boundary
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Running {
		l.state = Paused
		l.logger.Info("evolution paused")
	}
}

// Resume continues a paused loop
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Paused {
		l.state = Running
		l.logger.Info("evolution resumed")
	}
}

// Stop aborts the run. The population is discarded by the driving
// goroutine at the next generation boundary.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Stopped {
		l.logger.Info("evolution stopped", "was", l.state.String())
	}
	l.state = Stopped
}

// Start validates the configuration, seeds and scores the first
// generation and publishes its snapshot. A finished loop is reset first.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case Running, Paused:
		l.mu.Unlock()
		return ErrRunning
	case Finished:
		l.state = Stopped
	}
	cfg := l.cfg
	cfg.Grid.StartRow, cfg.Grid.StartCol = l.start.Row, l.start.Col
	l.mu.Unlock()

	l.reset()
	if err := cfg.Validate(); err != nil {
		return err
	}
	selector, err := ga.NewSelector(cfg.GA.Selection, cfg.GA.SelectCount)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	crossover, err := ga.ParseCrossover(cfg.GA.Crossover)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	runID, err := uuid.NewV4()
	if err != nil {
		return err
	}

	l.cfg = cfg
	l.runID = runID
	l.rng = rand.New(rand.NewSource(cfg.Seed))
	l.layout = ga.NewLayout(cfg.Grid.Size, cfg.Drones.Count)
	l.selector = selector
	l.crossover = crossover
	l.evaluator = eval.NewEvaluator(l.layout, eval.Options{
		Start:       cfg.Start(),
		Weights:     eval.WeightsFrom(cfg.Fitness),
		RecordPaths: cfg.Eval.RecordPaths,
		Workers:     cfg.Eval.Workers,
	})

	l.logger.Info("evolution started",
		"run", l.runID,
		"grid", cfg.Grid.Size,
		"drones", cfg.Drones.Count,
		"chromosome", l.layout.Length(),
		"population", cfg.GA.Population,
		"selection", cfg.GA.Selection,
		"crossover", l.crossover.String(),
		"stop", cfg.Stop.Policy,
	)

	l.mu.Lock()
	l.state = Running
	l.mu.Unlock()

	l.generation = 1
	pop := ga.NewPopulation(cfg.GA.Population, l.layout, l.rng)
	if err := l.evaluator.EvaluateAll(ctx, pop.Individuals); err != nil {
		return l.abort(err)
	}
	pop.Sort()
	l.advance(pop, 0)
	return nil
}

// Step runs one generation: select, reproduce, mutate, score, rank,
// publish, then check the stop condition.
func (l *Loop) Step(ctx context.Context) (Snapshot, error) {
	switch st := l.State(); st {
	case Running:
	case Stopped:
		l.reset()
		return Snapshot{}, ErrNotRunning
	default:
		return Snapshot{}, fmt.Errorf("%w: loop is %s", ErrNotRunning, st)
	}

	l.generation++
	sorted := l.pop.Individuals

	// 1. Select the parent pool
	pool, err := l.selector.Select(sorted, l.rng)
	if err != nil {
		return Snapshot{}, l.abort(err)
	}
	pool = ga.EnsureParents(pool, sorted, 2)

	// 2. Reproduce; a lone parent is carried over as a clone
	var children []*ga.Individual
	if len(pool) < 2 {
		for _, p := range pool {
			children = append(children, ga.NewIndividual(l.layout, p.Chromosome.Clone()))
		}
	} else {
		children = ga.Reproduce(pool, l.layout, l.crossover, l.rng)
	}

	// 3. Mutate every child
	mutated := ga.MutateAll(children, l.cfg.GA.MutationCount, l.rng)

	// 4. Score and rank
	if err := l.evaluator.EvaluateAll(ctx, children); err != nil {
		return Snapshot{}, l.abort(err)
	}
	next := &ga.Population{Individuals: children, Layout: l.layout}
	next.Sort()
	if l.cfg.GA.Replacement == config.ReplaceTrim {
		next.Truncate(l.cfg.GA.Population)
	}

	if l.State() == Stopped {
		l.reset()
		return Snapshot{}, ErrStopped
	}
	return l.advance(next, mutated), nil
}

// advance installs a scored, sorted population, updates the bests,
// publishes the snapshot and applies the stop condition.
func (l *Loop) advance(pop *ga.Population, mutated int) Snapshot {
	l.pop = pop
	l.bestOfGen = pop.Best()
	if l.bestOfAll == nil || l.bestOfGen.TotalWeightedFitness > l.bestOfAll.TotalWeightedFitness {
		l.bestOfAll = l.bestOfGen.Clone()
	}

	reason := l.stopReason()
	l.mu.Lock()
	if reason != ReasonNone && l.state != Stopped {
		l.state = Finished
	}
	finished := l.state == Finished
	l.mu.Unlock()

	snap := Snapshot{
		RunID:            l.runID,
		Generation:       l.generation,
		PopulationSize:   pop.Size(),
		MutatedGenes:     mutated,
		BestOfGeneration: snapshotOf(l.bestOfGen, l.layout.GridSize),
		BestOfAll:        snapshotOf(l.bestOfAll, l.layout.GridSize),
		Stats:            ga.Summarize(pop.Individuals),
		Finished:         finished,
		Reason:           reason,
	}
	for _, ind := range pop.TopK(l.cfg.Logging.TopNDebug) {
		snap.Top = append(snap.Top, snapshotOf(ind, l.layout.GridSize))
	}
	l.last = snap

	l.logger.Debug("generation",
		"run", l.runID,
		"generation", l.generation,
		"population", snap.PopulationSize,
		"best", snap.BestOfGeneration.TotalWeightedFitness,
		"best_ever", snap.BestOfAll.TotalWeightedFitness,
		"explored", snap.BestOfAll.TotalExploredCellCount,
	)
	if finished {
		l.logger.Info("evolution finished",
			"run", l.runID,
			"generation", l.generation,
			"reason", string(reason),
			"best_ever", snap.BestOfAll.TotalWeightedFitness,
			"explored", snap.BestOfAll.TotalExploredCellCount,
		)
	}

	for _, o := range l.observers {
		o.Observe(snap)
	}
	return snap
}

func (l *Loop) stopReason() StopReason {
	switch l.cfg.Stop.Policy {
	case config.StopMaxGenerations:
		if l.generation >= l.cfg.Stop.MaxGenerations {
			return ReasonMaxGenerations
		}
	case config.StopAllCellsExplored:
		if l.bestOfAll.TotalExploredCellCount >= l.layout.Cells() {
			return ReasonAllCellsExplored
		}
	case config.StopDesiredFitness:
		if l.bestOfAll.TotalWeightedFitness >= l.cfg.Stop.DesiredFitness {
			return ReasonDesiredFitness
		}
	}
	return ReasonNone
}

// abort ends the run after a failure inside a generation
func (l *Loop) abort(err error) error {
	l.logger.Error("evolution aborted", "run", l.runID, "generation", l.generation, "error", err)
	l.mu.Lock()
	l.state = Stopped
	l.mu.Unlock()
	l.reset()
	return err
}

// reset drops all per-run state
func (l *Loop) reset() {
	l.pop = nil
	l.bestOfGen = nil
	l.bestOfAll = nil
	l.generation = 0
}

// Run starts the loop if needed and steps until it finishes, is stopped or
// ctx is cancelled. While paused it polls at the configured interval.
// Returns nil when the stop condition is met and ErrStopped after Stop.
func (l *Loop) Run(ctx context.Context) error {
	if st := l.State(); st == Stopped || st == Finished {
		if err := l.Start(ctx); err != nil {
			return err
		}
	}

	poll := l.cfg.Loop.PollInterval
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			l.reset()
			return ctx.Err()
		default:
		}

		switch l.State() {
		case Finished:
			return nil
		case Stopped:
			l.reset()
			return ErrStopped
		case Paused:
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		case Running:
			if _, err := l.Step(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if errors.Is(err, ErrNotRunning) {
					// paused or stopped between the check and the step
					continue
				}
				return err
			}
		}
	}
}
