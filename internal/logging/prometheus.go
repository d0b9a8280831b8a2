package logging

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dronesearch/internal/evolution"
)

// Metrics exports evolution progress as Prometheus collectors. Every series
// is labelled with the run ID.
type Metrics struct {
	registry *prometheus.Registry

	generations  *prometheus.CounterVec
	mutatedGenes *prometheus.CounterVec
	bestFitness  *prometheus.GaugeVec
	bestEver     *prometheus.GaugeVec
	meanFitness  *prometheus.GaugeVec
	explored     *prometheus.GaugeVec
	population   *prometheus.GaugeVec
	finished     *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	labels := []string{"run_id"}
	m := &Metrics{
		registry:     prometheus.NewRegistry(),
		generations:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dronesearch_generations_total", Help: "Generations evaluated."}, labels),
		mutatedGenes: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dronesearch_mutated_genes_total", Help: "Distinct genes overwritten by mutation."}, labels),
		bestFitness:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_generation_best_fitness", Help: "Best weighted fitness of the latest generation."}, labels),
		bestEver:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_best_fitness", Help: "Best weighted fitness seen in the run."}, labels),
		meanFitness:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_generation_mean_fitness", Help: "Mean weighted fitness of the latest generation."}, labels),
		explored:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_best_explored_cells", Help: "Cells covered by the best plan of the run."}, labels),
		population:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_population_size", Help: "Individuals in the latest generation."}, labels),
		finished:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "dronesearch_run_finished", Help: "1 once the stop condition is met."}, labels),
	}
	m.registry.MustRegister(
		m.generations, m.mutatedGenes,
		m.bestFitness, m.bestEver, m.meanFitness,
		m.explored, m.population, m.finished,
	)
	return m
}

// Registry exposes the private registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records a generation snapshot
func (m *Metrics) Observe(s evolution.Snapshot) {
	l := prometheus.Labels{"run_id": s.RunID.String()}
	m.generations.With(l).Inc()
	m.mutatedGenes.With(l).Add(float64(s.MutatedGenes))
	m.bestFitness.With(l).Set(s.BestOfGeneration.TotalWeightedFitness)
	m.bestEver.With(l).Set(s.BestOfAll.TotalWeightedFitness)
	m.meanFitness.With(l).Set(s.Stats.MeanFitness)
	m.explored.With(l).Set(float64(s.BestOfAll.TotalExploredCellCount))
	m.population.With(l).Set(float64(s.PopulationSize))
	if s.Finished {
		m.finished.With(l).Set(1)
	} else {
		m.finished.With(l).Set(0)
	}
}
