package env

// BlockedMoveCost is charged for a gene whose move would leave the grid
const BlockedMoveCost = -1000

// baseCost is the per-slot cost for a drone heading S: straight on is
// cheapest, reversing is dearest.
var baseCost = [NumDirections]int{
	DirNW: 4, DirN: 5, DirNE: 4,
	DirW: 3, DirE: 3,
	DirSW: 2, DirS: 1, DirSE: 2,
}

// headingStraight is the heading under which baseCost applies unrotated
const headingStraight = DirS

// rotations[h][d] is the baseCost slot for moving in d while heading h
var rotations [NumDirections][NumDirections]Direction

func init() {
	shiftToStraight := compass[headingStraight]
	for h := Direction(0); h < NumDirections; h++ {
		for d := Direction(0); d < NumDirections; d++ {
			rotations[h][d] = fromCompass(compass[d] - compass[h] + shiftToStraight)
		}
	}
}

// Heading tracks the last executed move of one drone and prices the next
// move relative to it. The zero value is not ready; use NewHeading.
type Heading struct {
	last          Direction
	moveCostIndex [NumDirections]Direction
}

// NewHeading returns a heading facing straight on
func NewHeading() *Heading {
	h := &Heading{}
	h.Reset()
	return h
}

// Reset restores the straight-on heading and the identity permutation
func (h *Heading) Reset() {
	h.last = headingStraight
	h.moveCostIndex = rotations[headingStraight]
}

// Last returns the direction of the last executed move
func (h *Heading) Last() Direction {
	return h.last
}

// Rotate swaps in the permutation for a new heading. Only executed moves
// should rotate; blocked genes leave the heading alone.
func (h *Heading) Rotate(d Direction) {
	if d == h.last {
		return
	}
	h.moveCostIndex = rotations[d]
	h.last = d
}

// Cost prices moving from p in direction d under the current heading
func (h *Heading) Cost(g Grid, p Point, d Direction) int {
	if !g.CanMove(p, d) {
		return BlockedMoveCost
	}
	return baseCost[h.moveCostIndex[d]]
}

// MaxMoveCost is the dearest legal move (a reversal)
func MaxMoveCost() int {
	return baseCost[DirN]
}
