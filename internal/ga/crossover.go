package ga

import (
	"fmt"
	"math"
	"math/rand"
)

// Crossover selects how two parent chromosomes are spliced
type Crossover int

const (
	OnePoint Crossover = iota
	TwoPoint
	FitnessCut // cut position proportional to the parents' fitness share
)

// ParseCrossover maps a configuration name to a Crossover
func ParseCrossover(name string) (Crossover, error) {
	switch name {
	case "one_point":
		return OnePoint, nil
	case "two_point", "":
		return TwoPoint, nil
	case "fitness":
		return FitnessCut, nil
	default:
		return 0, fmt.Errorf("unknown crossover %q", name)
	}
}

func (c Crossover) String() string {
	switch c {
	case OnePoint:
		return "one_point"
	case TwoPoint:
		return "two_point"
	case FitnessCut:
		return "fitness"
	default:
		return "unknown"
	}
}

// SinglePointCrossover takes p1 up to a random cut and p2 after it
func SinglePointCrossover(p1, p2 Chromosome, rng *rand.Rand) Chromosome {
	size := len(p1)
	if size == 0 {
		return Chromosome{}
	}
	return splice(p1, p2, rng.Intn(size))
}

// TwoPointCrossover takes the section between two random cuts from p2
func TwoPointCrossover(p1, p2 Chromosome, rng *rand.Rand) Chromosome {
	size := len(p1)
	if size == 0 {
		return Chromosome{}
	}
	lo, hi := rng.Intn(size), rng.Intn(size)
	if lo > hi {
		lo, hi = hi, lo
	}
	child := make(Chromosome, size)
	copy(child[:lo], p1[:lo])
	copy(child[lo:hi], p2[lo:hi])
	copy(child[hi:], p1[hi:])
	return child
}

// FitnessCutCrossover gives each parent a share of the child proportional
// to its fitness. Without a positive combined fitness the cut is the midpoint.
func FitnessCutCrossover(p1, p2 *Individual) Chromosome {
	size := len(p1.Chromosome)
	f1, f2 := p1.TotalWeightedFitness, p2.TotalWeightedFitness
	cut := size / 2
	if sum := f1 + f2; sum > 0 {
		cut = int(math.Round(float64(size) * f1 / sum))
		cut = max(0, min(size, cut))
	}
	return splice(p1.Chromosome, p2.Chromosome, cut)
}

func splice(p1, p2 Chromosome, cut int) Chromosome {
	child := make(Chromosome, len(p1))
	copy(child[:cut], p1[:cut])
	copy(child[cut:], p2[cut:])
	return child
}

// Cross produces one child chromosome from two parents
func (c Crossover) Cross(p1, p2 *Individual, rng *rand.Rand) Chromosome {
	switch c {
	case OnePoint:
		return SinglePointCrossover(p1.Chromosome, p2.Chromosome, rng)
	case FitnessCut:
		return FitnessCutCrossover(p1, p2)
	default:
		return TwoPointCrossover(p1.Chromosome, p2.Chromosome, rng)
	}
}

// Reproduce creates one child for every ordered pair of distinct parents,
// k*k - k children from a pool of k.
func Reproduce(pool []*Individual, layout Layout, c Crossover, rng *rand.Rand) []*Individual {
	k := len(pool)
	children := make([]*Individual, 0, k*k-k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			children = append(children, NewIndividual(layout, c.Cross(pool[i], pool[j], rng)))
		}
	}
	return children
}
