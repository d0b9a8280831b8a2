package ga

import (
	"math/rand"

	"github.com/campoy/unique"

	"dronesearch/internal/env"
)

// Mutate performs count point mutations in place: each picks a random gene
// and overwrites it with a random direction. The same gene may be hit more
// than once. Returns the indices written, in order.
func Mutate(c Chromosome, count int, rng *rand.Rand) []int {
	if len(c) == 0 || count <= 0 {
		return nil
	}
	touched := make([]int, count)
	for i := 0; i < count; i++ {
		idx := rng.Intn(len(c))
		c[idx] = env.Direction(rng.Intn(env.NumDirections))
		touched[i] = idx
	}
	return touched
}

// MutateAll applies Mutate to every individual and returns the total number
// of distinct genes written.
func MutateAll(pop []*Individual, count int, rng *rand.Rand) int {
	distinct := 0
	for _, ind := range pop {
		distinct += DistinctGenes(Mutate(ind.Chromosome, count, rng))
	}
	return distinct
}

// DistinctGenes counts the distinct indices in touched
func DistinctGenes(touched []int) int {
	idx := append([]int(nil), touched...)
	unique.Slice(&idx, func(i, j int) bool { return idx[i] < idx[j] })
	return len(idx)
}
