package ga

import (
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"dronesearch/internal/env"
)

// Drone is the outcome of simulating one chromosome segment
type Drone struct {
	Explored     *bitset.BitSet
	LastLocation env.Point
	Path         []env.Point // only filled when path recording is on
}

// Individual represents one candidate multi-drone plan
type Individual struct {
	Chromosome Chromosome
	Drones     []Drone
	Explored   *bitset.BitSet // union over all drones

	TotalExploredCellCount int
	TotalWeightedFitness   float64

	// weighted components, kept for logging
	AreaFitness   float64
	ReturnFitness float64
	RotateFitness float64
}

// NewIndividual wraps a chromosome with empty per-drone state
func NewIndividual(layout Layout, c Chromosome) *Individual {
	cells := uint(layout.Cells())
	ind := &Individual{
		Chromosome: c,
		Drones:     make([]Drone, layout.Drones),
		Explored:   bitset.New(cells),
	}
	for i := range ind.Drones {
		ind.Drones[i].Explored = bitset.New(cells)
	}
	return ind
}

// RandomIndividual creates an individual with a random chromosome
func RandomIndividual(layout Layout, rng *rand.Rand) *Individual {
	return NewIndividual(layout, RandomChromosome(layout.Length(), rng))
}

// Clone creates a deep copy of an individual
func (ind *Individual) Clone() *Individual {
	out := &Individual{
		Chromosome:             ind.Chromosome.Clone(),
		Drones:                 make([]Drone, len(ind.Drones)),
		Explored:               ind.Explored.Clone(),
		TotalExploredCellCount: ind.TotalExploredCellCount,
		TotalWeightedFitness:   ind.TotalWeightedFitness,
		AreaFitness:            ind.AreaFitness,
		ReturnFitness:          ind.ReturnFitness,
		RotateFitness:          ind.RotateFitness,
	}
	for i, d := range ind.Drones {
		out.Drones[i] = Drone{
			Explored:     d.Explored.Clone(),
			LastLocation: d.LastLocation,
			Path:         append([]env.Point(nil), d.Path...),
		}
	}
	return out
}

// Population manages the collection of individuals of one generation
type Population struct {
	Individuals []*Individual
	Layout      Layout
}

// NewPopulation creates a new random population
func NewPopulation(size int, layout Layout, rng *rand.Rand) *Population {
	p := &Population{
		Individuals: make([]*Individual, size),
		Layout:      layout,
	}
	for i := 0; i < size; i++ {
		p.Individuals[i] = RandomIndividual(layout, rng)
	}
	return p
}

// Size returns the population size
func (p *Population) Size() int {
	return len(p.Individuals)
}

// Sort orders the population ascending by fitness
func (p *Population) Sort() {
	p.Individuals = MergeSort(p.Individuals)
}

// Best returns the fittest individual of a sorted population
func (p *Population) Best() *Individual {
	return Best(p.Individuals)
}

// TopK returns the K fittest individuals, best first.
// The population must be sorted.
func (p *Population) TopK(k int) []*Individual {
	if k > len(p.Individuals) {
		k = len(p.Individuals)
	}
	out := make([]*Individual, 0, k)
	for i := len(p.Individuals) - 1; i >= len(p.Individuals)-k; i-- {
		out = append(out, p.Individuals[i])
	}
	return out
}

// Truncate keeps the n fittest individuals of a sorted population
func (p *Population) Truncate(n int) {
	if n < len(p.Individuals) {
		p.Individuals = p.Individuals[len(p.Individuals)-n:]
	}
}
