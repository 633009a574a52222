package board

import "testing"

func TestShiftsDoNotWrapEdges(t *testing.T) {
	g, err := NewGeometry(15)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	var b Bitboard
	b = g.Set(b, g.Size-1, 5) // rightmost column, row 5
	east := g.East(b)
	if !east.IsZero() {
		t.Fatalf("East shift from rightmost column should vanish, got nonzero bitboard")
	}

	var left Bitboard
	left = g.Set(left, 0, 5)
	west := g.West(left)
	if !west.IsZero() {
		t.Fatalf("West shift from leftmost column should vanish, got nonzero bitboard")
	}

	var top Bitboard
	top = g.Set(top, 7, 0)
	north := g.North(top)
	if !north.IsZero() {
		t.Fatalf("North shift from top row should vanish, got nonzero bitboard")
	}

	var bottom Bitboard
	bottom = g.Set(bottom, 7, g.Size-1)
	south := g.South(bottom)
	if !south.IsZero() {
		t.Fatalf("South shift from bottom row should vanish, got nonzero bitboard")
	}
}

func TestShiftRoundTrip(t *testing.T) {
	g, err := NewGeometry(19)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	var b Bitboard
	b = g.Set(b, 9, 9)
	e := g.East(b)
	if !g.Get(e, 10, 9) {
		t.Fatalf("East(9,9) should set (10,9)")
	}
	back := g.West(e)
	if !back.Equal(b) {
		t.Fatalf("West(East(b)) should equal b")
	}
}

func TestDiagonalShiftStaysOnBoard(t *testing.T) {
	g, err := NewGeometry(15)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	var b Bitboard
	b = g.Set(b, g.Size-1, g.Size-1)
	se := g.SouthEast(b)
	if !se.IsZero() {
		t.Fatalf("SouthEast from bottom-right corner should vanish")
	}
	var top Bitboard
	top = g.Set(top, 0, 0)
	nw := g.NorthWest(top)
	if !nw.IsZero() {
		t.Fatalf("NorthWest from top-left corner should vanish")
	}
}

func TestLineCounts(t *testing.T) {
	g, err := NewGeometry(15)
	if err != nil {
		t.Fatalf("NewGeometry: %v", err)
	}
	lines := g.Lines()
	rows, cols, diags, anti := 0, 0, 0, 0
	for _, l := range lines {
		switch l.Dir {
		case DirHorizontal:
			rows++
		case DirVertical:
			cols++
		case DirDiagonal:
			diags++
		case DirAntiDiagonal:
			anti++
		}
	}
	if rows != g.Size || cols != g.Size {
		t.Fatalf("expected %d rows and cols, got rows=%d cols=%d", g.Size, rows, cols)
	}
	// Diagonals shorter than 5 cells are dropped; a 15x15 board keeps 21
	// of the 29 diagonals on each of the two axes, losing the length-1..4
	// ones at both ends.
	if diags == 0 || anti == 0 {
		t.Fatalf("expected nonzero diagonal counts, got diags=%d anti=%d", diags, anti)
	}
}
