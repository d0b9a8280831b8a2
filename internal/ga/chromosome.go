package ga

import (
	"errors"
	"fmt"
	"math/rand"

	"dronesearch/internal/env"
)

var (
	// ErrInvariant marks a defect in the operators: the run must abort
	ErrInvariant = errors.New("simulation invariant violated")

	ErrChromosomeLength = fmt.Errorf("%w: chromosome length mismatch", ErrInvariant)
	ErrGeneOutOfRange   = fmt.Errorf("%w: gene outside direction range", ErrInvariant)

	// ErrNonPositiveFitness is returned by the stochastic selection policies
	ErrNonPositiveFitness = errors.New("selection requires positive total fitness")
)

// Chromosome is one direction per step, segment after segment
type Chromosome []env.Direction

// Clone returns an independent copy
func (c Chromosome) Clone() Chromosome {
	out := make(Chromosome, len(c))
	copy(out, c)
	return out
}

// Layout fixes how a chromosome is cut into per-drone segments for a run
type Layout struct {
	GridSize      int
	Drones        int
	SegmentLength int
}

// NewLayout sizes each segment so the drones together can reach every cell
// and still take one extra step: ceil((N²-1)/drones) + 1.
func NewLayout(gridSize, drones int) Layout {
	cells := gridSize*gridSize - 1
	seg := (cells+drones-1)/drones + 1
	return Layout{
		GridSize:      gridSize,
		Drones:        drones,
		SegmentLength: seg,
	}
}

// Length is the chromosome length for this layout
func (l Layout) Length() int {
	return l.Drones * l.SegmentLength
}

// Cells returns the number of grid cells
func (l Layout) Cells() int {
	return l.GridSize * l.GridSize
}

// Segment returns drone d's slice of c. The result aliases c.
func (l Layout) Segment(c Chromosome, d int) Chromosome {
	start := d * l.SegmentLength
	return c[start : start+l.SegmentLength]
}

// Validate checks the chromosome against the layout
func (l Layout) Validate(c Chromosome) error {
	if len(c) != l.Length() {
		return fmt.Errorf("%w: got %d genes, want %d", ErrChromosomeLength, len(c), l.Length())
	}
	for i, g := range c {
		if !g.Valid() {
			return fmt.Errorf("%w: gene %d = %d", ErrGeneOutOfRange, i, g)
		}
	}
	return nil
}

// RandomChromosome draws every gene uniformly from the eight directions
func RandomChromosome(length int, rng *rand.Rand) Chromosome {
	c := make(Chromosome, length)
	for i := range c {
		c[i] = env.Direction(rng.Intn(env.NumDirections))
	}
	return c
}
