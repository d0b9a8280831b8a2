package logging

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gosuri/uitable"

	"dronesearch/internal/evolution"
)

// topKEvery is how often, in generations, the top-K table is printed
const topKEvery = 10

// Logger handles the per-generation run log: a CSV row, a JSON line and a
// console summary for every snapshot
type Logger struct {
	csvPath     string
	jsonPath    string
	csvFile     *os.File
	csvWriter   *csv.Writer
	jsonFile    *os.File
	console     io.Writer
	summary     bool
	initialized bool
}

// NewLogger creates a new logger. Either path may be empty to skip that file.
func NewLogger(csvPath, jsonPath string) (*Logger, error) {
	l := &Logger{
		csvPath:  csvPath,
		jsonPath: jsonPath,
		console:  os.Stdout,
		summary:  true,
	}

	// Ensure directories exist
	for _, p := range []string{csvPath, jsonPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// SetConsole redirects the console summary; nil silences it
func (l *Logger) SetConsole(w io.Writer) {
	l.console = w
}

// SetSummary toggles the one-line console summary per generation
func (l *Logger) SetSummary(on bool) {
	l.summary = on
}

var csvHeader = []string{
	"run_id", "generation", "population", "mutated_genes",
	"best_fitness", "mean_fitness", "std_fitness", "worst_fitness",
	"best_explored", "best_ever_fitness", "best_ever_explored",
	"best_ever_area", "best_ever_return", "best_ever_rotate",
}

// Init opens the log files and writes the CSV header
func (l *Logger) Init() error {
	var err error

	if l.csvPath != "" {
		l.csvFile, err = os.Create(l.csvPath)
		if err != nil {
			return err
		}
		l.csvWriter = csv.NewWriter(l.csvFile)
		if err := l.csvWriter.Write(csvHeader); err != nil {
			return err
		}
	}

	if l.jsonPath != "" {
		l.jsonFile, err = os.OpenFile(l.jsonPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
	}

	l.initialized = true
	return nil
}

// Close flushes and closes all log files
func (l *Logger) Close() error {
	var first error
	if l.csvWriter != nil {
		l.csvWriter.Flush()
		first = l.csvWriter.Error()
	}
	if l.csvFile != nil {
		if err := l.csvFile.Close(); err != nil && first == nil {
			first = err
		}
	}
	if l.jsonFile != nil {
		if err := l.jsonFile.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.initialized = false
	return first
}

// GenerationSummary is one row of the run log
type GenerationSummary struct {
	RunID            string  `json:"run_id"`
	Generation       int     `json:"generation"`
	Population       int     `json:"population"`
	MutatedGenes     int     `json:"mutated_genes"`
	BestFitness      float64 `json:"best_fitness"`
	MeanFitness      float64 `json:"mean_fitness"`
	StdFitness       float64 `json:"std_fitness"`
	WorstFitness     float64 `json:"worst_fitness"`
	BestExplored     int     `json:"best_explored"`
	BestEverFitness  float64 `json:"best_ever_fitness"`
	BestEverExplored int     `json:"best_ever_explored"`
	BestEverArea     float64 `json:"best_ever_area"`
	BestEverReturn   float64 `json:"best_ever_return"`
	BestEverRotate   float64 `json:"best_ever_rotate"`
	Finished         bool    `json:"finished,omitempty"`
	Reason           string  `json:"reason,omitempty"`
}

// Summarize flattens a snapshot into a run log row
func Summarize(s evolution.Snapshot) GenerationSummary {
	return GenerationSummary{
		RunID:            s.RunID.String(),
		Generation:       s.Generation,
		Population:       s.PopulationSize,
		MutatedGenes:     s.MutatedGenes,
		BestFitness:      s.BestOfGeneration.TotalWeightedFitness,
		MeanFitness:      s.Stats.MeanFitness,
		StdFitness:       s.Stats.StdFitness,
		WorstFitness:     s.Stats.WorstFitness,
		BestExplored:     s.BestOfGeneration.TotalExploredCellCount,
		BestEverFitness:  s.BestOfAll.TotalWeightedFitness,
		BestEverExplored: s.BestOfAll.TotalExploredCellCount,
		BestEverArea:     s.BestOfAll.AreaFitness,
		BestEverReturn:   s.BestOfAll.ReturnFitness,
		BestEverRotate:   s.BestOfAll.RotateFitness,
		Finished:         s.Finished,
		Reason:           string(s.Reason),
	}
}

func (g GenerationSummary) row() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	return []string{
		g.RunID,
		strconv.Itoa(g.Generation),
		strconv.Itoa(g.Population),
		strconv.Itoa(g.MutatedGenes),
		f(g.BestFitness),
		f(g.MeanFitness),
		f(g.StdFitness),
		f(g.WorstFitness),
		strconv.Itoa(g.BestExplored),
		f(g.BestEverFitness),
		strconv.Itoa(g.BestEverExplored),
		f(g.BestEverArea),
		f(g.BestEverReturn),
		f(g.BestEverRotate),
	}
}

// Observe logs a generation snapshot
func (l *Logger) Observe(s evolution.Snapshot) {
	if !l.initialized {
		return
	}
	summary := Summarize(s)

	if l.csvWriter != nil {
		l.csvWriter.Write(summary.row())
		l.csvWriter.Flush()
	}

	if l.jsonFile != nil {
		jsonLine, _ := json.Marshal(summary)
		l.jsonFile.Write(append(jsonLine, '\n'))
	}

	if l.console == nil {
		return
	}
	if l.summary {
		fmt.Fprintf(l.console, "Gen %4d | Best: %7.4f | Mean: %7.4f | Ever: %7.4f | Explored: %d/%d | Pop: %d\n",
			summary.Generation, summary.BestFitness, summary.MeanFitness, summary.BestEverFitness,
			summary.BestEverExplored, s.BestOfAll.GridSize*s.BestOfAll.GridSize, summary.Population)
	}
	if len(s.Top) > 0 && (s.Generation%topKEvery == 0 || s.Finished) {
		LogTopK(l.console, s.Top)
	}
}

// LogTopK prints a table of the given individuals, best first
func LogTopK(w io.Writer, top []evolution.IndividualSnapshot) {
	fmt.Fprintf(w, "  Top %d individuals:\n", len(top))
	table := uitable.New()
	table.MaxColWidth = 40
	table.Wrap = false
	table.AddRow("  #", "Fitness", "Area", "Return", "Rotate", "Explored")
	for i, ind := range top {
		table.AddRow(
			fmt.Sprintf("  %d", i+1),
			fmt.Sprintf("%.4f", ind.TotalWeightedFitness),
			fmt.Sprintf("%.3f", ind.AreaFitness),
			fmt.Sprintf("%.3f", ind.ReturnFitness),
			fmt.Sprintf("%.3f", ind.RotateFitness),
			ind.TotalExploredCellCount,
		)
	}
	fmt.Fprintln(w, table)
}

// WriteSummary prints the end-of-run table for the best plan found
func WriteSummary(w io.Writer, s evolution.Snapshot) {
	best := s.BestOfAll
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("Run:", s.RunID.String())
	table.AddRow("Generations:", s.Generation)
	if s.Reason != evolution.ReasonNone {
		table.AddRow("Stopped by:", string(s.Reason))
	}
	table.AddRow("Best fitness:", fmt.Sprintf("%.4f", best.TotalWeightedFitness))
	table.AddRow("Explored:", fmt.Sprintf("%d/%d", best.TotalExploredCellCount, best.GridSize*best.GridSize))
	table.AddRow("Area / Return / Rotate:", fmt.Sprintf("%.3f / %.3f / %.3f", best.AreaFitness, best.ReturnFitness, best.RotateFitness))
	fmt.Fprintln(w, table)

	drones := uitable.New()
	drones.AddRow("Drone", "Explored", "Last location", "Path length")
	for i, d := range best.Drones {
		explored := uint(0)
		if d.Explored != nil {
			explored = d.Explored.Count()
		}
		drones.AddRow(i, explored, d.LastLocation, len(d.Path))
	}
	fmt.Fprintln(w, drones)
}
