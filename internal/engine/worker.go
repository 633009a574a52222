package engine

import (
	"math"
	"sync/atomic"

	"github.com/carogami/caroengine/internal/board"
)

// MaxPly bounds every ply-indexed array in the search: the PV table,
// the killer table, and the recursion depth guard.
const MaxPly = 128

// MaxQuiescencePly caps how far quiescence search chases forcing moves
// beyond the main search horizon.
const MaxQuiescencePly = 4

// PVLine is the teacher's triangular principal-variation table: pv at
// ply p is seeded from the child's pv at ply p+1 every time alpha
// improves.
type PVLine struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVLine) Line() []board.Move {
	n := pv.length[0]
	out := make([]board.Move, n)
	copy(out, pv.moves[0][:n])
	return out
}

// lmrTable precomputes the log-log late-move-reduction amount, the
// teacher's Stockfish-derived shape (reduction grows with both depth
// and move index) simplified to drop the extra improving/cut-node
// terms this search doesn't track.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			r := 0.5 + math.Log(float64(d))*math.Log(float64(m))/2.0
			if r < 0 {
				r = 0
			}
			lmrTable[d][m] = int(r)
		}
	}
}

// Worker runs one Lazy-SMP search thread: its own position, its own
// move-ordering state (killers/history/counter-moves), sharing only the
// transposition table and the stop flag with its siblings.
type Worker struct {
	ID       int
	Pos      *board.Position
	orderer  *MoveOrderer
	tt       *TranspositionTable
	stopFlag *atomic.Bool
	nodes    uint64
	pv       PVLine
}

func NewWorker(id int, tt *TranspositionTable, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		ID:       id,
		orderer:  NewMoveOrderer(),
		tt:       tt,
		stopFlag: stopFlag,
	}
}

func (w *Worker) Nodes() uint64 { return w.nodes }

func (w *Worker) lmrReduction(depth, moveCount int) int {
	d, m := depth, moveCount
	if d > 63 {
		d = 63
	}
	if m > 63 {
		m = 63
	}
	return lmrTable[d][m]
}

func (w *Worker) updatePV(ply int, m board.Move) {
	w.pv.moves[ply][ply] = m
	for next := ply + 1; next < w.pv.length[ply+1]; next++ {
		w.pv.moves[ply][next] = w.pv.moves[ply+1][next]
	}
	w.pv.length[ply] = w.pv.length[ply+1]
}

// Search runs a fixed-depth negamax search with a full window.
func (w *Worker) Search(depth int) (int, board.Move) {
	return w.SearchWindow(depth, -2*MateScore, 2*MateScore)
}

// SearchWindow runs a fixed-depth negamax search within [alpha, beta],
// letting the caller drive an aspiration-window retry loop.
func (w *Worker) SearchWindow(depth, alpha, beta int) (int, board.Move) {
	w.pv.length[0] = 0
	score := w.negamax(depth, 0, alpha, beta)
	if w.pv.length[0] > 0 {
		return score, w.pv.moves[0][0]
	}
	return score, board.NoMove
}

// negamax is restricted to the refinements named for Caro search: PVS
// with a transposition table, null-move pruning at R = 2 + depth/6, and
// late-move reductions. It deliberately omits the teacher's reverse
// futility pruning, razoring, probcut/multicut, singular extensions,
// and static-exchange-driven pruning, none of which have a Caro
// analogue (there are no captures to evaluate an exchange over).
func (w *Worker) negamax(depth, ply, alpha, beta int) int {
	if w.stopFlag.Load() {
		return 0
	}
	w.nodes++
	w.pv.length[ply] = ply

	side := w.Pos.SideToMove

	if ply > 0 {
		lastMove := w.Pos.LastMove()
		if lastMove != board.NoMove && board.HasWinThrough(w.Pos, side.Other(), lastMove.X(), lastMove.Y()) {
			return -MateScore + ply
		}
		if w.Pos.IsFull() {
			return 0
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta, 0)
	}
	if ply >= MaxPly-1 {
		return Evaluate(w.Pos, side)
	}

	alphaOrig := alpha
	ttMove := board.NoMove
	if entry, ok := w.tt.Probe(w.Pos.Hash); ok {
		ttMove = entry.BestMove
		if int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score > alpha {
					alpha = score
				}
			case TTUpperBound:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	oppThreats := board.EnumerateThreats(w.Pos, side.Other())
	mustBlockList := board.FourGainSquares(oppThreats)
	mustBlock := make(map[board.Coord]bool, len(mustBlockList))
	for _, c := range mustBlockList {
		mustBlock[c] = true
	}

	// Null-move pruning assumes passing can't be better than moving,
	// which fails when the side to move has a mandatory block to make or
	// a winning move sitting on the board: skip it in both cases.
	if depth >= 3 && ply > 0 && beta < MateScore-MaxPly && beta > -MateScore+MaxPly && len(mustBlockList) == 0 {
		myWins := board.FourGainSquares(board.EnumerateThreats(w.Pos, side))
		if len(myWins) == 0 {
			r := 2 + depth/6
			w.Pos.MakeNullMove()
			score := -w.negamax(depth-1-r, ply+1, -beta, -beta+1)
			w.Pos.UnmakeNullMove()
			if w.stopFlag.Load() {
				return 0
			}
			if score >= beta {
				return beta
			}
		}
	}

	candidates := board.GenerateCandidates(w.Pos)
	if candidates.Len() == 0 {
		return 0
	}

	prevMove := w.Pos.LastMove()
	counterMove := w.orderer.BestCounterMove(w.Pos, side, prevMove, &candidates)
	scores := w.orderer.ScoreMoves(w.Pos, side, &candidates, ttMove, mustBlock, ply, counterMove)

	bestScore := -2 * MateScore
	bestMove := board.NoMove
	searched := 0

	for i := 0; i < candidates.Len(); i++ {
		if w.stopFlag.Load() {
			break
		}
		m := PickMove(&candidates, scores, i)
		isQuiet := scores[i] < ScoreThreatWeak

		w.Pos.MakeMove(m)
		var score int
		if searched == 0 {
			score = -w.negamax(depth-1, ply+1, -beta, -alpha)
		} else {
			reduction := 0
			if depth >= 3 && searched >= 4 && isQuiet {
				reduction = w.lmrReduction(depth, searched)
				if reduction > depth-1 {
					reduction = depth - 1
				}
			}
			score = -w.negamax(depth-1-reduction, ply+1, -alpha-1, -alpha)
			if score > alpha && (reduction > 0 || score < beta) {
				score = -w.negamax(depth-1, ply+1, -beta, -alpha)
			}
		}
		w.Pos.UnmakeMove()
		searched++

		if w.stopFlag.Load() {
			break
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.updatePV(ply, m)
				if alpha >= beta {
					if isQuiet {
						w.orderer.UpdateKillers(ply, m)
						w.orderer.UpdateCounterMove(prevMove, m, w.Pos, side, depth*depth)
						w.orderer.UpdateHistory(w.Pos, side, m, depth*depth)
					}
					break
				}
			}
		} else if isQuiet {
			w.orderer.PenalizeHistory(w.Pos, side, m, depth)
		}
	}

	if !w.stopFlag.Load() {
		var flag TTFlag
		switch {
		case bestScore <= alphaOrig:
			flag = TTUpperBound
		case bestScore >= beta:
			flag = TTLowerBound
		default:
			flag = TTExact
		}
		w.tt.Store(w.Pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	}

	return bestScore
}

// quiescence extends the search along forcing moves only: completing a
// four into a five, or answering one of the opponent's. It stops at
// MaxQuiescencePly even if forcing moves remain, trading a small amount
// of tactical accuracy for a hard bound on search blowup.
func (w *Worker) quiescence(ply, alpha, beta, qdepth int) int {
	if w.stopFlag.Load() {
		return 0
	}
	w.nodes++
	side := w.Pos.SideToMove

	if ply > 0 {
		lastMove := w.Pos.LastMove()
		if lastMove != board.NoMove && board.HasWinThrough(w.Pos, side.Other(), lastMove.X(), lastMove.Y()) {
			return -MateScore + ply
		}
	}

	standPat := Evaluate(w.Pos, side)
	if qdepth >= MaxQuiescencePly || w.Pos.IsFull() || ply >= MaxPly-1 {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	myFours := board.FourGainSquares(board.EnumerateThreats(w.Pos, side))
	oppFours := board.FourGainSquares(board.EnumerateThreats(w.Pos, side.Other()))
	if len(myFours) == 0 && len(oppFours) == 0 {
		return alpha
	}

	forcing := map[board.Coord]bool{}
	for _, c := range myFours {
		forcing[c] = true
	}
	for _, c := range oppFours {
		forcing[c] = true
	}

	for coord := range forcing {
		m := board.FromCoord(coord)
		w.Pos.MakeMove(m)
		score := -w.quiescence(ply+1, -beta, -alpha, qdepth+1)
		w.Pos.UnmakeMove()
		if w.stopFlag.Load() {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}
