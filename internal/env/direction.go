package env

// Direction is one of the eight compass moves, ordered as the 3x3
// neighbourhood minus its centre:
//
//	NW N  NE
//	W  .  E
//	SW S  SE
type Direction uint8

const (
	DirNW Direction = iota
	DirN
	DirNE
	DirW
	DirE
	DirSW
	DirS
	DirSE
)

// NumDirections is the size of the gene alphabet
const NumDirections = 8

var directionDeltas = [NumDirections]Point{
	DirNW: {Row: -1, Col: -1},
	DirN:  {Row: -1, Col: 0},
	DirNE: {Row: -1, Col: 1},
	DirW:  {Row: 0, Col: -1},
	DirE:  {Row: 0, Col: 1},
	DirSW: {Row: 1, Col: -1},
	DirS:  {Row: 1, Col: 0},
	DirSE: {Row: 1, Col: 1},
}

var directionNames = [NumDirections]string{"NW", "N", "NE", "W", "E", "SW", "S", "SE"}

// compass position of each direction, clockwise from N
var compass = [NumDirections]int{
	DirN:  0,
	DirNE: 1,
	DirE:  2,
	DirSE: 3,
	DirS:  4,
	DirSW: 5,
	DirW:  6,
	DirNW: 7,
}

// Valid reports whether d is inside the gene alphabet
func (d Direction) Valid() bool {
	return d < NumDirections
}

// Delta returns the (row, col) offset of d
func (d Direction) Delta() Point {
	return directionDeltas[d]
}

func (d Direction) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return directionNames[d]
}

// Opposite returns the direction pointing the other way
func (d Direction) Opposite() Direction {
	return fromCompass(compass[d] + 4)
}

// Offset returns the angular distance between two directions in
// 45-degree steps, 0..4
func Offset(a, b Direction) int {
	diff := compass[a] - compass[b]
	if diff < 0 {
		diff = -diff
	}
	if diff > 4 {
		diff = NumDirections - diff
	}
	return diff
}

func fromCompass(pos int) Direction {
	pos = ((pos % NumDirections) + NumDirections) % NumDirections
	for d, c := range compass {
		if c == pos {
			return Direction(d)
		}
	}
	return DirS
}
