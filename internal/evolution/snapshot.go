package evolution

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gofrs/uuid"

	"dronesearch/internal/env"
	"dronesearch/internal/ga"
)

// DroneSnapshot is a read-only copy of one drone's outcome
type DroneSnapshot struct {
	Explored     *bitset.BitSet
	LastLocation env.Point
	Path         []env.Point
}

// IndividualSnapshot is a read-only copy of an individual, safe to keep
// after the loop moves on
type IndividualSnapshot struct {
	GridSize   int
	Chromosome ga.Chromosome
	Drones     []DroneSnapshot
	Explored   *bitset.BitSet

	TotalExploredCellCount int
	TotalWeightedFitness   float64
	AreaFitness            float64
	ReturnFitness          float64
	RotateFitness          float64
}

// ExploredAt reports whether any drone visited p
func (s IndividualSnapshot) ExploredAt(p env.Point) bool {
	if s.Explored == nil {
		return false
	}
	return s.Explored.Test(env.NewGrid(s.GridSize).Index(p))
}

// DronesAt lists the drones that visited p
func (s IndividualSnapshot) DronesAt(p env.Point) []int {
	idx := env.NewGrid(s.GridSize).Index(p)
	var out []int
	for i, d := range s.Drones {
		if d.Explored != nil && d.Explored.Test(idx) {
			out = append(out, i)
		}
	}
	return out
}

// Snapshot is published once per generation
type Snapshot struct {
	RunID            uuid.UUID
	Generation       int
	PopulationSize   int
	MutatedGenes     int
	BestOfGeneration IndividualSnapshot
	BestOfAll        IndividualSnapshot
	// Top holds the best individuals of the generation, best first, when
	// logging.topn_debug is set
	Top      []IndividualSnapshot
	Stats    ga.PopulationStats
	Finished bool
	Reason   StopReason
}

// Observer consumes snapshots. Observe runs on the loop's goroutine and
// must not block for long.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Snapshot)

// Observe implements Observer
func (f ObserverFunc) Observe(s Snapshot) {
	f(s)
}

func snapshotOf(ind *ga.Individual, gridSize int) IndividualSnapshot {
	if ind == nil {
		return IndividualSnapshot{GridSize: gridSize}
	}
	s := IndividualSnapshot{
		GridSize:               gridSize,
		Chromosome:             ind.Chromosome.Clone(),
		Drones:                 make([]DroneSnapshot, len(ind.Drones)),
		Explored:               ind.Explored.Clone(),
		TotalExploredCellCount: ind.TotalExploredCellCount,
		TotalWeightedFitness:   ind.TotalWeightedFitness,
		AreaFitness:            ind.AreaFitness,
		ReturnFitness:          ind.ReturnFitness,
		RotateFitness:          ind.RotateFitness,
	}
	for i, d := range ind.Drones {
		s.Drones[i] = DroneSnapshot{
			Explored:     d.Explored.Clone(),
			LastLocation: d.LastLocation,
			Path:         append([]env.Point(nil), d.Path...),
		}
	}
	return s
}
