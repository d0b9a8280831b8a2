package ga

import (
	"gonum.org/v1/gonum/stat"
)

// PopulationStats summarises the fitness spread of one generation
type PopulationStats struct {
	Size         int     `json:"size"`
	BestFitness  float64 `json:"best_fitness"`
	WorstFitness float64 `json:"worst_fitness"`
	MeanFitness  float64 `json:"mean_fitness"`
	StdFitness   float64 `json:"std_fitness"`
	MeanExplored float64 `json:"mean_explored"`
	BestExplored int     `json:"best_explored"`
}

// Summarize computes statistics over a scored population
func Summarize(pop []*Individual) PopulationStats {
	n := len(pop)
	if n == 0 {
		return PopulationStats{}
	}

	fitness := make([]float64, n)
	explored := make([]float64, n)
	s := PopulationStats{
		Size:         n,
		BestFitness:  pop[0].TotalWeightedFitness,
		WorstFitness: pop[0].TotalWeightedFitness,
	}
	for i, ind := range pop {
		fitness[i] = ind.TotalWeightedFitness
		explored[i] = float64(ind.TotalExploredCellCount)
		if ind.TotalWeightedFitness > s.BestFitness {
			s.BestFitness = ind.TotalWeightedFitness
		}
		if ind.TotalWeightedFitness < s.WorstFitness {
			s.WorstFitness = ind.TotalWeightedFitness
		}
		if ind.TotalExploredCellCount > s.BestExplored {
			s.BestExplored = ind.TotalExploredCellCount
		}
	}

	if n == 1 {
		s.MeanFitness = fitness[0]
	} else {
		s.MeanFitness, s.StdFitness = stat.MeanStdDev(fitness, nil)
	}
	s.MeanExplored = stat.Mean(explored, nil)
	return s
}
