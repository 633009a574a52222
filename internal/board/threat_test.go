package board

import "testing"

func playRow(pos *Position, side Side, y int, xs ...int) {
	for _, x := range xs {
		idx := pos.Geo.Index(x, y)
		pos.stones[side].SetBit(idx)
	}
}

func TestFiveInRowWins(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 2, 3, 4, 5, 6)
	if !HasWin(pos, Red) {
		t.Fatalf("five in a row should be a win")
	}
}

func TestOverlineIsNotAWin(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 2, 3, 4, 5, 6, 7)
	if HasWin(pos, Red) {
		t.Fatalf("six in a row (overline) must not count as a win")
	}
}

func TestSandwichedFiveIsNotAWin(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 3, 4, 5, 6, 7)
	playRow(pos, Blue, 7, 2, 8)
	if HasWin(pos, Red) {
		t.Fatalf("a five blocked on both ends by the opponent must not count as a win")
	}
}

func TestFiveOpenOnOneEndStillWins(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 3, 4, 5, 6, 7)
	playRow(pos, Blue, 7, 2) // only one end blocked
	if !HasWin(pos, Red) {
		t.Fatalf("a five blocked on only one end should still win")
	}
}

func TestIsWinningMoveDetectsCompletion(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 3, 4, 5, 6)
	if !IsWinningMove(pos, Red, NewMove(7, 7)) {
		t.Fatalf("completing a straight four to a five should be a winning move")
	}
	if !IsWinningMove(pos, Red, NewMove(2, 7)) {
		t.Fatalf("completing a straight four on the other end should also win")
	}
}

func TestIsWinningMoveRejectsSandwichingCompletion(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 3, 4, 5, 6)
	playRow(pos, Blue, 7, 2, 8)
	if IsWinningMove(pos, Red, NewMove(7, 7)) {
		t.Fatalf("completing a five that is immediately sandwiched must not count as winning")
	}
}

func TestStraightFourDetected(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 4, 5, 6, 7)
	threats := EnumerateThreats(pos, Red)
	found := false
	for _, th := range threats {
		if th.Kind == StraightFour {
			found = true
			if len(th.GainSquares) != 2 {
				t.Errorf("open straight four should have 2 gain squares, got %d", len(th.GainSquares))
			}
		}
	}
	if !found {
		t.Fatalf("expected a StraightFour threat")
	}
}

func TestBrokenFourDetected(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 4, 5, 6, 8) // XXX_X pattern, gap at 7
	threats := EnumerateThreats(pos, Red)
	found := false
	for _, th := range threats {
		if th.Kind == BrokenFour {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a BrokenFour threat for XXX_X")
	}
}

func TestOpenThreeDetected(t *testing.T) {
	pos, _ := NewPosition(15)
	playRow(pos, Red, 7, 5, 6, 7)
	threats := EnumerateThreats(pos, Red)
	found := false
	for _, th := range threats {
		if th.Kind == StraightThree {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a StraightThree threat for an open three")
	}
}

func TestOpenRuleRejectsCloseThirdStone(t *testing.T) {
	pos, _ := NewPosition(15)
	pos.MakeMove(NewMove(7, 7))
	pos.MakeMove(NewMove(0, 0))
	if OpenRuleSatisfied(pos, NewMove(8, 8)) {
		t.Fatalf("third stone within Chebyshev distance 2 of the first stone should violate the Open Rule")
	}
	if !OpenRuleSatisfied(pos, NewMove(10, 10)) {
		t.Fatalf("third stone at Chebyshev distance 3 should satisfy the Open Rule")
	}
}

func TestGenerateCandidatesHonorsOpenRule(t *testing.T) {
	pos, _ := NewPosition(15)
	pos.MakeMove(NewMove(7, 7))
	pos.MakeMove(NewMove(7, 8))
	candidates := GenerateCandidates(pos)
	for i := 0; i < candidates.Len(); i++ {
		m := candidates.Get(i)
		if !OpenRuleSatisfied(pos, m) {
			t.Fatalf("candidate %v violates the Open Rule", m)
		}
	}
}

func TestGenerateCandidatesFirstMoveIsCenter(t *testing.T) {
	pos, _ := NewPosition(15)
	candidates := GenerateCandidates(pos)
	if candidates.Len() != 1 {
		t.Fatalf("expected exactly one opening candidate, got %d", candidates.Len())
	}
	c := candidates.Get(0)
	center := pos.Geo.Size / 2
	if c.X() != center || c.Y() != center {
		t.Fatalf("expected center opening move, got %v", c)
	}
}
