package engine

import "github.com/carogami/caroengine/internal/board"

// Move ordering priorities. Winning moves and forced blocks sit far
// above everything else so the staged picker never needs to score the
// rest of the move list before returning them.
const (
	ScoreWinning      = 100_000_000
	ScoreTTMove       = 90_000_000
	ScoreMustBlock    = 80_000_000
	ScoreThreatStrong = 5_000_000
	ScoreThreatMedium = 1_000_000
	ScoreThreatWeak   = 100_000
	ScoreKiller1      = 90_000
	ScoreKiller2      = 80_000
	ScoreCounterMove  = 70_000
)

// historyGravityMax bounds the history table via the teacher's gravity
// formula so a long search never overflows int: new = old + bonus -
// |old*bonus|/MAX keeps every entry within [-MAX, MAX].
const historyGravityMax = 30000

// MoveOrderer scores and incrementally selects moves for one search
// thread: killers and history are per-ply/per-cell state carried across
// the whole search, generalized from the teacher's square-indexed
// killer/history/counter-move tables to Caro's single-cell moves (no
// captures, so no MVV-LVA or capture history).
//
// mainHistory, counterMoveHistory and continuation are all indexed by
// the side that made the cutoff move first: a cutoff recorded while Red
// is to move says nothing about whether Blue wants the same cell, so the
// two colors never share a slot.
type MoveOrderer struct {
	killers [MaxPly][2]board.Move

	mainHistory        [2][board.MaxCells]int
	counterMoveHistory [2][board.MaxCells][board.MaxCells]int // [side][opponent's cell][our cell]
	continuation       [2][board.MaxCells][board.MaxCells]int // [side][earlier cell][this cell]

	counterMoves [2][board.MaxCells]board.Move // [side][opponent's cell] -> our best reply so far
}

func NewMoveOrderer() *MoveOrderer {
	o := &MoveOrderer{}
	for i := range o.killers {
		o.killers[i][0] = board.NoMove
		o.killers[i][1] = board.NoMove
	}
	for s := range o.counterMoves {
		for i := range o.counterMoves[s] {
			o.counterMoves[s][i] = board.NoMove
		}
	}
	return o
}

func cellIndex(pos *board.Position, m board.Move) int {
	return pos.Geo.Index(m.X(), m.Y())
}

func moveCellIndex(pos *board.Position, m board.Move) int {
	if m == board.NoMove {
		return -1
	}
	return cellIndex(pos, m)
}

// boundedUpdate applies the teacher's gravity formula to any history-like
// table: new = old + bonus - |old*bonus|/MAX, which saturates toward
// ±historyGravityMax instead of growing without bound.
func boundedUpdate(old, bonus int) int {
	return old + bonus - abs(old*bonus)/historyGravityMax
}

// BestCounterMove returns the reply this side most recently recorded
// against prevMove's cell, but only if it is present in candidates: a
// stale counter-move table entry from a search thread that has since
// moved on must not be handed back as if it were legal here. It reads
// the single stored reply only; counterMoveHistory does not rank it.
func (o *MoveOrderer) BestCounterMove(pos *board.Position, side board.Side, prevMove board.Move, candidates *board.MoveList) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}
	stored := o.counterMoves[side][cellIndex(pos, prevMove)]
	if stored == board.NoMove {
		return board.NoMove
	}
	for i := 0; i < candidates.Len(); i++ {
		if candidates.Get(i) == stored {
			return stored
		}
	}
	return board.NoMove
}

// ScoreMoves assigns a priority to every candidate move. winningMove and
// mustBlock (the opponent's unanswered four gain squares) come from the
// caller since they require a full threat scan the orderer itself
// should not repeat per candidate. counterMove is the single stored
// reply to prevMove, pre-resolved by BestCounterMove.
func (o *MoveOrderer) ScoreMoves(pos *board.Position, side board.Side, moves *board.MoveList, ttMove board.Move, mustBlock map[board.Coord]bool, ply int, counterMove board.Move) []int {
	prev1 := pos.MoveBack(1)
	prev2 := pos.MoveBack(2)
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		scores[i] = o.scoreMove(pos, side, m, ttMove, mustBlock, ply, counterMove, prev1, prev2)
	}
	return scores
}

func (o *MoveOrderer) scoreMove(pos *board.Position, side board.Side, m board.Move, ttMove board.Move, mustBlock map[board.Coord]bool, ply int, counterMove, prev1, prev2 board.Move) int {
	if m == ttMove {
		return ScoreTTMove
	}
	if board.IsWinningMove(pos, side, m) {
		return ScoreWinning
	}
	if mustBlock[m.ToCoord()] {
		return ScoreMustBlock
	}
	switch board.ClassifyMove(pos, side, m) {
	case board.ClassStrong:
		return ScoreThreatStrong
	case board.ClassMedium:
		return ScoreThreatMedium
	case board.ClassWeak:
		return ScoreThreatWeak
	}
	if ply < MaxPly {
		if o.killers[ply][0] == m {
			return ScoreKiller1
		}
		if o.killers[ply][1] == m {
			return ScoreKiller2
		}
	}
	if counterMove != board.NoMove && counterMove == m {
		return ScoreCounterMove
	}
	return o.quietScore(pos, side, m, prev1, prev2)
}

// quietScore implements the composite ordering score for quiet moves:
// twice the main history entry plus the continuation-history contribution
// from one and two plies back.
func (o *MoveOrderer) quietScore(pos *board.Position, side board.Side, m board.Move, prev1, prev2 board.Move) int {
	idx := cellIndex(pos, m)
	score := 2 * o.mainHistory[side][idx]
	if p1 := moveCellIndex(pos, prev1); p1 >= 0 {
		score += o.continuation[side][p1][idx]
	}
	if p2 := moveCellIndex(pos, prev2); p2 >= 0 {
		score += o.continuation[side][p2][idx]
	}
	return score
}

// SortMoves performs a full selection sort keyed by scores, descending.
// PickMove below is the lazy variant that only orders as far as the
// search actually examines before a cutoff.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove lazily selects the highest-scoring move starting at index i
// and swaps it into place, avoiding a full sort when the search cuts
// off early.
func PickMove(moves *board.MoveList, scores []int, i int) board.Move {
	best := i
	for j := i + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != i {
		moves.Swap(i, best)
		scores[i], scores[best] = scores[best], scores[i]
	}
	return moves.Get(i)
}

func (o *MoveOrderer) UpdateKillers(ply int, m board.Move) {
	if ply >= MaxPly {
		return
	}
	if o.killers[ply][0] == m {
		return
	}
	o.killers[ply][1] = o.killers[ply][0]
	o.killers[ply][0] = m
}

// UpdateCounterMove records m as side's reply to prevMove's cell,
// replacing any earlier reply (last write wins), and folds the same
// cutoff into the bounded counter-move history table. Move ordering
// reads only the stored reply; the history table is not consulted.
func (o *MoveOrderer) UpdateCounterMove(prevMove, m board.Move, pos *board.Position, side board.Side, bonus int) {
	if prevMove == board.NoMove {
		return
	}
	prevIdx := cellIndex(pos, prevMove)
	o.counterMoves[side][prevIdx] = m
	idx := cellIndex(pos, m)
	o.counterMoveHistory[side][prevIdx][idx] = boundedUpdate(o.counterMoveHistory[side][prevIdx][idx], bonus)
}

// UpdateHistory applies the bounded-gravity update to main history and,
// when the preceding one or two plies exist, to the continuation-history
// entries that pair this move with them. A cell that stops cutting off
// decays back down the same way.
func (o *MoveOrderer) UpdateHistory(pos *board.Position, side board.Side, m board.Move, bonus int) {
	idx := cellIndex(pos, m)
	o.mainHistory[side][idx] = boundedUpdate(o.mainHistory[side][idx], bonus)

	if p1 := moveCellIndex(pos, pos.MoveBack(1)); p1 >= 0 {
		o.continuation[side][p1][idx] = boundedUpdate(o.continuation[side][p1][idx], bonus)
	}
	if p2 := moveCellIndex(pos, pos.MoveBack(2)); p2 >= 0 {
		o.continuation[side][p2][idx] = boundedUpdate(o.continuation[side][p2][idx], bonus)
	}
}

// PenalizeHistory is called for quiet moves tried before the cutoff
// move, so they don't accumulate history just for having been searched.
func (o *MoveOrderer) PenalizeHistory(pos *board.Position, side board.Side, m board.Move, depth int) {
	o.UpdateHistory(pos, side, m, -depth*depth)
}
