package env

import "fmt"

// Point represents a cell on the grid
type Point struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Chebyshev returns the king-move distance between two points
func Chebyshev(a, b Point) int {
	dr := a.Row - b.Row
	if dr < 0 {
		dr = -dr
	}
	dc := a.Col - b.Col
	if dc < 0 {
		dc = -dc
	}
	if dr > dc {
		return dr
	}
	return dc
}

// Grid is the square search area. It only does bounds checks and
// coordinate arithmetic; explored state lives with whoever simulates on it.
type Grid struct {
	Size int
}

// NewGrid creates a size x size grid
func NewGrid(size int) Grid {
	return Grid{Size: size}
}

// Cells returns the number of cells on the grid
func (g Grid) Cells() int {
	return g.Size * g.Size
}

// Contains reports whether p lies on the grid
func (g Grid) Contains(p Point) bool {
	return p.Row >= 0 && p.Row < g.Size && p.Col >= 0 && p.Col < g.Size
}

// Index maps p to its row-major bit index
func (g Grid) Index(p Point) uint {
	return uint(p.Row*g.Size + p.Col)
}

// At is the inverse of Index
func (g Grid) At(i uint) Point {
	return Point{Row: int(i) / g.Size, Col: int(i) % g.Size}
}

// CanMove reports whether moving from p in direction d stays on the grid
func (g Grid) CanMove(p Point, d Direction) bool {
	return g.Contains(step(p, d))
}

// Move returns the cell reached from p in direction d.
// Callers must check CanMove first.
func (g Grid) Move(p Point, d Direction) Point {
	return step(p, d)
}

func step(p Point, d Direction) Point {
	delta := d.Delta()
	return Point{Row: p.Row + delta.Row, Col: p.Col + delta.Col}
}
