package ga

import (
	"fmt"
	"math/rand"
)

// Selector picks the parent pool for the next generation
type Selector interface {
	Select(pop []*Individual, rng *rand.Rand) ([]*Individual, error)
}

// Selection policy names as they appear in configuration
const (
	SelectTruncation        = "truncation"
	SelectStochastic        = "stochastic"
	SelectInverseStochastic = "inverse_stochastic"
)

// NewSelector builds the named selection policy
func NewSelector(name string, count int) (Selector, error) {
	switch name {
	case SelectTruncation, "":
		return Truncation{Count: count}, nil
	case SelectStochastic:
		return Stochastic{}, nil
	case SelectInverseStochastic:
		return InverseStochastic{}, nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}

// Truncation keeps the Count fittest individuals
type Truncation struct {
	Count int
}

// Select returns the top Count individuals in ascending order
func (t Truncation) Select(pop []*Individual, _ *rand.Rand) ([]*Individual, error) {
	sorted := MergeSort(pop)
	k := t.Count
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[len(sorted)-k:], nil
}

// Stochastic walks the sorted population from best to worst and keeps
// each individual with probability fitness/total.
type Stochastic struct{}

// Select implements Selector
func (Stochastic) Select(pop []*Individual, rng *rand.Rand) ([]*Individual, error) {
	sorted := MergeSort(pop)
	total, err := totalFitness(sorted)
	if err != nil {
		return nil, err
	}
	var pool []*Individual
	for i := len(sorted) - 1; i >= 0; i-- {
		if rng.Float64() < sorted[i].TotalWeightedFitness/total {
			pool = append(pool, sorted[i])
		}
	}
	return pool, nil
}

// InverseStochastic is Stochastic walked from worst to best. The keep
// probability is the same; only the order of random draws differs.
type InverseStochastic struct{}

// Select implements Selector
func (InverseStochastic) Select(pop []*Individual, rng *rand.Rand) ([]*Individual, error) {
	sorted := MergeSort(pop)
	total, err := totalFitness(sorted)
	if err != nil {
		return nil, err
	}
	var pool []*Individual
	for _, ind := range sorted {
		if rng.Float64() < ind.TotalWeightedFitness/total {
			pool = append(pool, ind)
		}
	}
	return pool, nil
}

func totalFitness(pop []*Individual) (float64, error) {
	var sum float64
	for _, ind := range pop {
		sum += ind.TotalWeightedFitness
	}
	if !(sum > 0) {
		return 0, fmt.Errorf("%w: total %.4f over %d individuals", ErrNonPositiveFitness, sum, len(pop))
	}
	return sum, nil
}

// EnsureParents tops pool up to want members with the fittest individuals of
// sorted that are not already in it.
func EnsureParents(pool, sorted []*Individual, want int) []*Individual {
	if len(pool) >= want {
		return pool
	}
	in := make(map[*Individual]bool, len(pool))
	for _, ind := range pool {
		in[ind] = true
	}
	for i := len(sorted) - 1; i >= 0 && len(pool) < want; i-- {
		if !in[sorted[i]] {
			pool = append(pool, sorted[i])
			in[sorted[i]] = true
		}
	}
	return pool
}
