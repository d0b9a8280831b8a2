package logging

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/gofrs/uuid"

	"dronesearch/internal/env"
	"dronesearch/internal/evolution"
	"dronesearch/internal/ga"
)

// twoDronePlan covers (0,0),(0,1),(1,1) with drone 0 and (0,0),(1,0),(1,1)
// with drone 1 on a 3x3 grid
func twoDronePlan() evolution.IndividualSnapshot {
	grid := env.NewGrid(3)
	d0 := bitset.New(9)
	d1 := bitset.New(9)
	for _, p := range []env.Point{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 1}} {
		d0.Set(grid.Index(p))
	}
	for _, p := range []env.Point{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 1, Col: 1}} {
		d1.Set(grid.Index(p))
	}
	return evolution.IndividualSnapshot{
		GridSize: 3,
		Drones: []evolution.DroneSnapshot{
			{Explored: d0, LastLocation: env.Point{Row: 1, Col: 1}, Path: []env.Point{{}, {Row: 0, Col: 1}, {Row: 1, Col: 1}}},
			{Explored: d1, LastLocation: env.Point{Row: 1, Col: 1}},
		},
		Explored:               d0.Union(d1),
		TotalExploredCellCount: 4,
		TotalWeightedFitness:   1.25,
		AreaFitness:            4.0 / 9,
		ReturnFitness:          0.5,
		RotateFitness:          0.3,
	}
}

func testSnapshot(gen int) evolution.Snapshot {
	plan := twoDronePlan()
	return evolution.Snapshot{
		RunID:            uuid.Must(uuid.NewV4()),
		Generation:       gen,
		PopulationSize:   12,
		MutatedGenes:     7,
		BestOfGeneration: plan,
		BestOfAll:        plan,
		Top:              []evolution.IndividualSnapshot{plan},
		Stats:            ga.PopulationStats{Size: 12, BestFitness: 1.25, MeanFitness: 0.75, WorstFitness: 0.1},
	}
}

func TestLoggerWritesRunLog(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "runs", "run.csv")
	jsonPath := filepath.Join(dir, "runs", "run.jsonl")

	l, err := NewLogger(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	var console bytes.Buffer
	l.SetConsole(&console)
	if err := l.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	first := testSnapshot(1)
	last := testSnapshot(10)
	last.Finished = true
	last.Reason = evolution.ReasonMaxGenerations
	l.Observe(first)
	l.Observe(last)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("Unexpected header %v", records[0])
	}
	if records[1][0] != first.RunID.String() || records[1][1] != "1" || records[1][4] != "1.2500" {
		t.Errorf("Unexpected first row %v", records[1])
	}

	jf, err := os.Open(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	defer jf.Close()
	var lines []GenerationSummary
	scanner := bufio.NewScanner(jf)
	for scanner.Scan() {
		var g GenerationSummary
		if err := json.Unmarshal(scanner.Bytes(), &g); err != nil {
			t.Fatalf("decode json line: %v", err)
		}
		lines = append(lines, g)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 json lines, got %d", len(lines))
	}
	if !lines[1].Finished || lines[1].Reason != "max_generations" || lines[1].BestEverExplored != 4 {
		t.Errorf("Unexpected final summary %+v", lines[1])
	}

	out := console.String()
	if !strings.Contains(out, "Gen    1") || !strings.Contains(out, "Explored: 4/9") {
		t.Errorf("Missing console summary:\n%s", out)
	}
	if strings.Count(out, "Top 1 individuals") != 1 {
		t.Errorf("Expected the top-K table only on generation 10:\n%s", out)
	}
}

func TestLoggerSkipsEmptyPaths(t *testing.T) {
	l, err := NewLogger("", "")
	if err != nil {
		t.Fatal(err)
	}
	var console bytes.Buffer
	l.SetConsole(&console)
	l.SetSummary(false)

	// before Init nothing is written
	l.Observe(testSnapshot(10))
	if console.Len() != 0 {
		t.Errorf("Expected no output before Init, got %q", console.String())
	}

	if err := l.Init(); err != nil {
		t.Fatal(err)
	}
	l.Observe(testSnapshot(3))
	if console.Len() != 0 {
		t.Errorf("Expected summary to be silenced, got %q", console.String())
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	s := testSnapshot(1)
	m.Observe(s)
	s.Generation = 2
	s.Finished = true
	m.Observe(s)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() != nil {
				values[mf.GetName()] = metric.GetCounter().GetValue()
			} else {
				values[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	want := map[string]float64{
		"dronesearch_generations_total":       2,
		"dronesearch_mutated_genes_total":     14,
		"dronesearch_best_fitness":            1.25,
		"dronesearch_generation_mean_fitness": 0.75,
		"dronesearch_best_explored_cells":     4,
		"dronesearch_population_size":         12,
		"dronesearch_run_finished":            1,
	}
	for name, v := range want {
		if values[name] != v {
			t.Errorf("%s: expected %v, got %v", name, v, values[name])
		}
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `dronesearch_generations_total{run_id="`+s.RunID.String()+`"} 2`) {
		t.Errorf("Expected labelled counter in exposition:\n%s", body)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.name); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	var buf bytes.Buffer
	logger := NewSlog(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("Unexpected level filtering: %q", buf.String())
	}
}

func TestRenderMap(t *testing.T) {
	var buf bytes.Buffer
	RenderMap(&buf, twoDronePlan(), env.Point{})
	want := strings.Join([]string{
		"┌──────┐",
		"│ S 0 ·│",
		"│ 1 * ·│",
		"│ · · ·│",
		"└──────┘",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Unexpected map:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteSummary(t *testing.T) {
	s := testSnapshot(42)
	s.Reason = evolution.ReasonAllCellsExplored

	var buf bytes.Buffer
	WriteSummary(&buf, s)
	out := buf.String()
	for _, want := range []string{s.RunID.String(), "42", "all_cells_explored", "1.2500", "4/9", "(1,1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in summary:\n%s", want, out)
		}
	}

	buf.Reset()
	LogTopK(&buf, s.Top)
	if !strings.Contains(buf.String(), "Top 1 individuals") || !strings.Contains(buf.String(), "1.2500") {
		t.Errorf("Unexpected top-K table:\n%s", buf.String())
	}
}
