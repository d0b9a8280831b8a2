package logging

import (
	"fmt"
	"io"
	"strings"

	"dronesearch/internal/env"
	"dronesearch/internal/evolution"
)

// RenderMap draws the coverage of one plan. The start cell is S, a cell
// visited by a single drone shows that drone's number, cells shared by
// several drones show * and unexplored cells show ·.
func RenderMap(w io.Writer, ind evolution.IndividualSnapshot, start env.Point) {
	n := ind.GridSize
	var b strings.Builder

	b.WriteString("┌")
	b.WriteString(strings.Repeat("──", n))
	b.WriteString("┐\n")

	for r := 0; r < n; r++ {
		b.WriteString("│")
		for c := 0; c < n; c++ {
			b.WriteByte(' ')
			b.WriteRune(cellRune(ind, env.Point{Row: r, Col: c}, start))
		}
		b.WriteString("│\n")
	}

	b.WriteString("└")
	b.WriteString(strings.Repeat("──", n))
	b.WriteString("┘\n")

	fmt.Fprint(w, b.String())
}

func cellRune(ind evolution.IndividualSnapshot, p, start env.Point) rune {
	if p == start {
		return 'S'
	}
	drones := ind.DronesAt(p)
	switch {
	case len(drones) == 0:
		return '·'
	case len(drones) > 1:
		return '*'
	case drones[0] < 10:
		return rune('0' + drones[0])
	default:
		return '#'
	}
}
