package board

// candidateRadius bounds candidate generation to cells within this
// Chebyshev distance of an existing stone. Caro boards are far too
// sparse early on to consider every empty cell.
const candidateRadius = 2

// GenerateCandidates returns every empty cell within candidateRadius of
// an existing stone, or just the center cell on an empty board. The
// Open Rule is applied automatically when it is the third stone of the
// game (ply == 2): candidates closer than Chebyshev distance 3 from the
// first stone are dropped.
func GenerateCandidates(pos *Position) MoveList {
	var list MoveList
	n := pos.Geo.Size

	if pos.Occupied().IsZero() {
		c := n / 2
		list.Add(NewMove(c, c))
		return list
	}

	occ := pos.Occupied()
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if occ.GetBit(pos.Geo.Index(x, y)) {
				continue
			}
			if hasNeighborStone(pos, occ, x, y, candidateRadius) {
				list.Add(NewMove(x, y))
			}
		}
	}
	if pos.Ply == 2 {
		list = filterOpenRule(pos, list)
	}
	return list
}

func hasNeighborStone(pos *Position, occ Bitboard, x, y, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			xx, yy := x+dx, y+dy
			if pos.Geo.InBounds(xx, yy) && occ.GetBit(pos.Geo.Index(xx, yy)) {
				return true
			}
		}
	}
	return false
}

func chebyshev(x1, y1, x2, y2 int) int {
	dx, dy := abs(x1-x2), abs(y1-y2)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// firstStoneCoord locates Red's opening stone. It is only meaningful
// once at least one stone has been played.
func firstStoneCoord(pos *Position) (Coord, bool) {
	idx := pos.Stones(Red).LSB()
	if idx < 0 {
		return Coord{}, false
	}
	return Coord{X: idx % pos.Geo.Size, Y: idx / pos.Geo.Size}, true
}

func filterOpenRule(pos *Position, list MoveList) MoveList {
	first, ok := firstStoneCoord(pos)
	if !ok {
		return list
	}
	var out MoveList
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		if chebyshev(first.X, first.Y, m.X(), m.Y()) >= 3 {
			out.Add(m)
		}
	}
	return out
}

// OpenRuleSatisfied reports whether m is legal under the Open Rule. It
// is a no-op (always true) except for the third stone of the game.
func OpenRuleSatisfied(pos *Position, m Move) bool {
	if pos.Ply != 2 {
		return true
	}
	first, ok := firstStoneCoord(pos)
	if !ok {
		return true
	}
	return chebyshev(first.X, first.Y, m.X(), m.Y()) >= 3
}

// CountPositions recursively counts reachable positions to the given
// depth, stopping early at any already-won position. It mirrors the
// teacher's Perft and exists for the same reason: a cheap correctness
// and performance smoke test for move generation and MakeMove/UnmakeMove
// symmetry.
func CountPositions(pos *Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	if _, won := Winner(pos); won {
		return 1
	}
	candidates := GenerateCandidates(pos)
	var total uint64
	for i := 0; i < candidates.Len(); i++ {
		m := candidates.Get(i)
		pos.MakeMove(m)
		total += CountPositions(pos, depth-1)
		pos.UnmakeMove()
	}
	return total
}
