package env

import (
	"encoding/json"
	"io"
)

// TraceStep records what happened to one gene during a drone simulation
type TraceStep struct {
	Gene    Direction `json:"gene"`
	From    Point     `json:"from"`
	To      Point     `json:"to"`
	Cost    int       `json:"cost"`
	Blocked bool      `json:"blocked"`
}

// Trace is a step-by-step record of one drone's segment
type Trace struct {
	Drone int         `json:"drone"`
	Start Point       `json:"start"`
	Steps []TraceStep `json:"steps"`
}

// NewTrace creates an empty trace recorder
func NewTrace(drone int, start Point, capacity int) *Trace {
	return &Trace{
		Drone: drone,
		Start: start,
		Steps: make([]TraceStep, 0, capacity),
	}
}

// Record adds a step to the trace
func (t *Trace) Record(s TraceStep) {
	t.Steps = append(t.Steps, s)
}

// End returns where the drone finished
func (t *Trace) End() Point {
	if len(t.Steps) == 0 {
		return t.Start
	}
	return t.Steps[len(t.Steps)-1].To
}

// Blocked returns how many genes were consumed without moving
func (t *Trace) Blocked() int {
	n := 0
	for _, s := range t.Steps {
		if s.Blocked {
			n++
		}
	}
	return n
}

// TotalCost sums the per-step costs
func (t *Trace) TotalCost() int {
	sum := 0
	for _, s := range t.Steps {
		sum += s.Cost
	}
	return sum
}

// WriteJSON writes the trace as indented JSON
func (t *Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
