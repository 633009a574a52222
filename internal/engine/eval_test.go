package engine

import (
	"testing"

	"github.com/carogami/caroengine/internal/board"
)

func TestEvaluateEmptyBoardIsSymmetric(t *testing.T) {
	pos, err := board.NewPosition(15)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	if s := Evaluate(pos, board.Red); s != 0 {
		t.Errorf("Evaluate(empty board) = %d, want 0", s)
	}
}

func TestEvaluateFavorsSideWithOpenThree(t *testing.T) {
	pos, err := board.NewPosition(15)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	// Red gets an open three on row 7; Blue has nothing.
	pos.MakeMove(board.NewMove(5, 7))  // Red
	pos.MakeMove(board.NewMove(0, 0)) // Blue, irrelevant
	pos.MakeMove(board.NewMove(6, 7))  // Red
	pos.MakeMove(board.NewMove(0, 1)) // Blue, irrelevant
	pos.MakeMove(board.NewMove(7, 7))  // Red

	if s := Evaluate(pos, board.Red); s <= 0 {
		t.Errorf("Evaluate from Red's perspective = %d, want > 0 with an open three on the board", s)
	}
	if s := Evaluate(pos, board.Blue); s >= 0 {
		t.Errorf("Evaluate from Blue's perspective = %d, want < 0 facing Red's open three", s)
	}
}

func TestEvaluateWeighsDefenseAboveSymmetricOffense(t *testing.T) {
	pos, err := board.NewPosition(15)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	// Build a Red open three and a Blue open three of identical shape
	// elsewhere on the board, then evaluate from Blue's perspective: with
	// DefenseMultiplier > 1, the opponent's (Red's) equally sized threat
	// should outweigh Blue's own, leaving Blue's score negative.
	redRow, blueRow := 7, 12
	for _, x := range []int{5, 6, 7} {
		pos.MakeMove(board.NewMove(x, redRow)) // Red
		pos.MakeMove(board.NewMove(x, blueRow)) // Blue
	}

	if s := Evaluate(pos, board.Blue); s >= 0 {
		t.Errorf("Evaluate from Blue's perspective = %d, want < 0 since an equal opposing threat outweighs Blue's own", s)
	}
}

func TestEvaluateRunOfFiveDominatesSmallerShapes(t *testing.T) {
	posFive, err := board.NewPosition(15)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	for i, x := range []int{3, 4, 5, 6, 7} {
		posFive.MakeMove(board.NewMove(x, 7))          // Red
		posFive.MakeMove(board.NewMove(0, i*2)) // Blue, scattered so it never forms a run
	}

	posThree, err := board.NewPosition(15)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	for i, x := range []int{5, 6, 7} {
		posThree.MakeMove(board.NewMove(x, 7))          // Red
		posThree.MakeMove(board.NewMove(0, i*2)) // Blue, scattered so it never forms a run
	}

	if Evaluate(posFive, board.Red) <= Evaluate(posThree, board.Red) {
		t.Errorf("a five-in-a-row did not outscore a smaller open three")
	}
}

func TestScanLineFeaturesIgnoresSandwichedFive(t *testing.T) {
	// opponent(2), five reds, opponent(2): a sandwiched five scores as
	// nothing, matching the win detector's sandwich rule.
	cells := []int8{2, 1, 1, 1, 1, 1, 2}
	f := scanLineFeatures(cells)
	if f.five != 0 {
		t.Errorf("scanLineFeatures counted a sandwiched five as a live five: %+v", f)
	}
}

func TestScanLineFeaturesClassifiesOpenVsClosedFour(t *testing.T) {
	open := scanLineFeatures([]int8{0, 1, 1, 1, 1, 0})
	if open.openFour != 1 || open.closedFour != 0 {
		t.Errorf("open four misclassified: %+v", open)
	}

	closed := scanLineFeatures([]int8{2, 1, 1, 1, 1, 0})
	if closed.closedFour != 1 || closed.openFour != 0 {
		t.Errorf("closed four misclassified: %+v", closed)
	}
}
