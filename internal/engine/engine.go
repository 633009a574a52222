package engine

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/carogami/caroengine/internal/board"
)

// ErrNoLegalMoves describes a position with no candidate moves; BestMove
// logs it and returns the Draw sentinel rather than surfacing it to the
// caller as an error.
var ErrNoLegalMoves = errors.New("engine: no legal moves")

// ErrInvariantViolation wraps a recovered panic from inside the search:
// an occupied-cell placement, an unbalanced make/unmake, or any other
// contract violation that should never be reachable from a valid
// position. These are programmer bugs, not search failures.
var ErrInvariantViolation = errors.New("engine: internal invariant violation")

// LogLevel tags an OnLog message, mirroring hailam's plain log.Printf
// severity-by-prefix convention with an actual enum instead of a string.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarn
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// SearchStats reports what one BestMove call actually did, for a caller
// that wants to log or display search quality.
type SearchStats struct {
	DepthCompleted int
	NodesSearched  uint64
	ElapsedMs      int64
	TTHits         uint64
	TTStores       uint64
}

// Result is BestMove's return value: the chosen move, its score in
// centipawns from the moving side's perspective, the principal
// variation, and the stats block.
type Result struct {
	Move  board.Coord
	Score int
	PV    []board.Coord
	Stats SearchStats
}

// IterationInfo is reported to OnIteration once per completed
// iterative-deepening pass from the driver (worker 0) thread.
type IterationInfo struct {
	Depth int
	Nodes uint64
	Score int
	PV    []board.Coord
}

// Engine owns the transposition table that persists across BestMove
// calls and the difficulty preset the next call will use. Worker pools
// are spawned per call and joined before BestMove returns, matching the
// teacher's per-search worker lifetime.
type Engine struct {
	tt         *TranspositionTable
	difficulty AIDifficulty
	stopFlag   atomic.Bool
	rootBest   atomic.Int64

	// tm is the game-lifetime time manager: its NPS/EBF/PID state carries
	// from move to move, per spec's time model.
	tm *TimeManager

	// rng backs applyErrorRate's controlled suboptimality. It defaults to
	// a time-seeded source so unseeded callers still see varied play, but
	// SetSeed lets a caller pin it for reproducible single-threaded runs.
	rng   *rand.Rand
	rngMu sync.Mutex

	// OnIteration fires once per completed depth, from the driver
	// thread only, mirroring hailam's Engine.OnInfo.
	OnIteration func(IterationInfo)
	// OnLog fires for diagnostic messages outside the hot search loop.
	OnLog func(level LogLevel, message string)
}

// NewEngine creates an engine with a transposition table sized to
// approximately ttSizeMB megabytes.
func NewEngine(ttSizeMB int) *Engine {
	e := &Engine{
		tt:         NewTranspositionTable(ttSizeMB),
		difficulty: Normal,
		tm:         NewTimeManager(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	log.Printf("[Engine] transposition table ready: %s clusters", humanize.Comma(int64(e.tt.Size()/clusterSize)))
	return e
}

// SetDifficulty sets the preset the next BestMove call uses.
func (e *Engine) SetDifficulty(d AIDifficulty) {
	e.difficulty = d
}

// SetSeed pins the RNG behind applyErrorRate's difficulty noise to a
// known value: with a fixed seed and Threads == 1, repeated BestMove
// calls against the same position become fully deterministic, per
// spec's single-threaded reproducibility guarantee.
func (e *Engine) SetSeed(seed int64) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

func (e *Engine) logf(level LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if e.OnLog != nil {
		e.OnLog(level, msg)
	}
	log.Printf("[Engine] %s: %s", level, msg)
}

// Stop requests the current (or next) search to abort as soon as its
// workers next poll the stop flag.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Clear empties the transposition table and resets the game-lifetime
// time manager, discarding everything learned from prior searches: the
// right call to make between unrelated games, not between moves of the
// same one.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.tm = NewTimeManager()
}

// Perft recursively counts reachable positions, for move-generation
// self-checks; it never mutates the caller's position.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return board.CountPositions(pos.Copy(), depth)
}

// Evaluate returns the static evaluation of pos from the side to move's
// perspective.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos, pos.SideToMove)
}

// packRoot and unpackRoot give the shared "best move so far" an atomic
// compare-and-swap home: score in the high 32 bits, depth in bits
// 10-17, the packed move in the low 10, following the same packed-word
// idiom as the transposition table's ttSlot.
func packRoot(score int32, depth uint8, move board.Move) int64 {
	return int64(uint64(uint32(score))<<32 | uint64(depth)<<10 | uint64(move&0x3FF))
}

func unpackRoot(p int64) (score int32, depth uint8, move board.Move) {
	u := uint64(p)
	score = int32(uint32(u >> 32))
	depth = uint8((u >> 10) & 0xFF)
	move = board.Move(u & 0x3FF)
	return
}

// updateRootBest installs (depth, score, move) as the shared root
// result if it is better than whatever is currently there: a deeper
// completed iteration always wins, and within the same depth a higher
// score wins. Races between workers completing the same depth are
// resolved by the CAS loop, not a lock.
func (e *Engine) updateRootBest(score, depth int, move board.Move) {
	next := packRoot(int32(score), uint8(depth), move)
	for {
		old := e.rootBest.Load()
		oldScore, oldDepth, _ := unpackRoot(old)
		if int(oldDepth) > depth || (int(oldDepth) == depth && int(oldScore) >= score) {
			return
		}
		if e.rootBest.CompareAndSwap(old, next) {
			return
		}
	}
}

func movesToCoords(moves []board.Move) []board.Coord {
	out := make([]board.Coord, len(moves))
	for i, m := range moves {
		out[i] = m.ToCoord()
	}
	return out
}

func (e *Engine) reportIteration(depth int, nodes uint64, score int, pv []board.Move) {
	if e.OnIteration != nil {
		e.OnIteration(IterationInfo{Depth: depth, Nodes: nodes, Score: score, PV: movesToCoords(pv)})
	}
	e.logf(LogInfo, "depth %d score %d nodes %s", depth, score, humanize.Comma(int64(nodes)))
}

// BestMove is the engine's sole entry point: it validates pos, spawns a
// Lazy-SMP worker pool sized by difficulty, drives iterative deepening
// with a soft/hard time budget, and returns the best move found along
// with its score, principal variation, and search stats.
//
// A panic escaping the search (an internal contract violation: an
// occupied-cell placement, an unbalanced make/unmake) is recovered here
// and reported as ErrInvariantViolation rather than crashing the
// caller, since spec-level contract violations are programmer bugs that
// should never be reachable from a valid position but must not take the
// host process down if one slips through.
func (e *Engine) BestMove(pos *board.Position, side board.Side, clock Clock, difficulty AIDifficulty) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvariantViolation, r)
			result = Result{Move: board.NoCoord}
		}
	}()

	start := time.Now()

	if err := pos.Validate(); err != nil {
		return Result{}, err
	}
	if side != pos.SideToMove {
		return Result{}, fmt.Errorf("%w: side %v does not match position's side to move %v", board.ErrInvalidPosition, side, pos.SideToMove)
	}

	candidates := board.GenerateCandidates(pos)
	if candidates.Len() == 0 {
		e.logf(LogInfo, "%v: returning draw sentinel", ErrNoLegalMoves)
		return Result{
			Move:  board.NoCoord,
			Score: 0,
			Stats: SearchStats{ElapsedMs: time.Since(start).Milliseconds()},
		}, nil
	}

	settings := difficulty.Settings()

	maxDepth := settings.MaxDepth
	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	threads := 1
	if settings.ParallelEnabled && settings.Threads > 1 {
		threads = settings.Threads
		if cpus := runtime.GOMAXPROCS(0); threads > cpus {
			threads = cpus
		}
	}

	scaledClock := clock
	scaledClock.Remaining = time.Duration(float64(clock.Remaining) * settings.TimeMultiplier)
	scaledClock.MoveTime = time.Duration(float64(clock.MoveTime) * settings.TimeMultiplier)

	tm := e.tm
	tm.Init(scaledClock, pos.Ply)

	e.stopFlag.Store(false)
	e.tt.NewSearch()
	e.rootBest.Store(packRoot(int32(-2*MateScore), 0, candidates.Get(0)))

	workers := make([]*Worker, threads)
	for i := range workers {
		workers[i] = NewWorker(i, e.tt, &e.stopFlag)
		workers[i].Pos = pos.Copy()
	}

	watchdogDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-watchdogDone:
				return
			case <-ticker.C:
				if tm.ShouldStop() {
					e.stopFlag.Store(true)
					return
				}
			}
		}
	}()

	g := new(errgroup.Group)
	for i, w := range workers {
		i, w := i, w
		g.Go(func() error {
			e.runWorker(w, i, maxDepth, tm)
			return nil
		})
	}
	_ = g.Wait()
	close(watchdogDone)
	tm.FinalizeMove()

	var totalNodes uint64
	for _, w := range workers {
		totalNodes += w.Nodes()
	}

	score32, depth, move := unpackRoot(e.rootBest.Load())
	if move == board.NoMove {
		move = candidates.Get(0)
	}

	best, bestScore := e.applyErrorRate(pos, candidates, move, int(score32), settings.ErrorRate)

	var pv []board.Move
	if best == move {
		pv = workers[0].pv.Line()
		if len(pv) == 0 || pv[0] != move {
			pv = []board.Move{move}
		}
	} else {
		pv = []board.Move{best}
	}

	return Result{
		Move:  best.ToCoord(),
		Score: bestScore,
		PV:    movesToCoords(pv),
		Stats: SearchStats{
			DepthCompleted: int(depth),
			NodesSearched:  totalNodes,
			ElapsedMs:      time.Since(start).Milliseconds(),
			TTHits:         e.tt.Hits(),
			TTStores:       e.tt.Stores(),
		},
	}, nil
}

// runWorker drives one Lazy-SMP thread's iterative deepening. Worker 0
// is the "main" thread: it alone reports iterations, updates the time
// manager's stability tracking, and decides when the whole search
// stops. Helper workers (id > 0) stagger their starting depth, per the
// teacher's workerSearch, and otherwise just search to fill the shared
// transposition table until the main thread calls a halt.
func (e *Engine) runWorker(w *Worker, id, maxDepth int, tm *TimeManager) {
	startDepth := 1
	switch {
	case id >= 6:
		startDepth = 4
	case id >= 3:
		startDepth = 3
	case id >= 1:
		startDepth = 2
	}

	prevScore := 0
	lastMove := board.NoMove
	stability := 0

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() {
			return
		}

		alpha, beta := -2*MateScore, 2*MateScore
		window := 50
		if depth >= 4 && prevScore != 0 {
			alpha, beta = prevScore-window, prevScore+window
		}

		var score int
		var move board.Move
		for {
			score, move = w.SearchWindow(depth, alpha, beta)
			if e.stopFlag.Load() {
				return
			}
			if score <= alpha || score >= beta {
				window *= 2
				alpha, beta = prevScore-window, prevScore+window
				if window > 4*MateScore {
					alpha, beta = -2*MateScore, 2*MateScore
				}
				continue
			}
			break
		}
		if e.stopFlag.Load() || move == board.NoMove {
			return
		}

		prevScore = score
		e.updateRootBest(score, depth, move)

		if id != 0 {
			continue
		}

		if move == lastMove {
			stability++
		} else {
			stability = 0
		}
		lastMove = move

		tm.UpdateStats(w.Nodes(), depth)
		e.reportIteration(depth, w.Nodes(), score, w.pv.Line())

		if score > MateScore-MaxPly || score < -MateScore+MaxPly {
			e.stopFlag.Store(true)
			return
		}
		tm.AdjustForStability(stability)
		if tm.PastOptimum() && stability >= 4 {
			e.stopFlag.Store(true)
			return
		}
		if tm.ShouldStop() {
			e.stopFlag.Store(true)
			return
		}
		if depth < maxDepth && !tm.ShouldStartNextIteration() {
			e.stopFlag.Store(true)
			return
		}
	}
	if id == 0 {
		e.stopFlag.Store(true)
	}
}

// applyErrorRate injects difficulty's controlled suboptimality: with
// probability rate it discards the search's best move and returns one
// ranked second or third by a single static evaluation instead of the
// full search, a deliberately cheap approximation of "the second-best
// (or later) root move" rather than a full second search. It returns
// the chosen move alongside the score that goes with it, since a
// substituted move no longer carries the original search score.
func (e *Engine) applyErrorRate(pos *board.Position, candidates board.MoveList, best board.Move, bestScore int, rate float64) (board.Move, int) {
	if rate <= 0 {
		return best, bestScore
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	rng := e.rng
	if rng.Float64() >= rate {
		return best, bestScore
	}

	type ranked struct {
		move  board.Move
		score int
	}
	var alts []ranked
	for i := 0; i < candidates.Len(); i++ {
		m := candidates.Get(i)
		if m == best {
			continue
		}
		pos.MakeMove(m)
		s := -Evaluate(pos, pos.SideToMove)
		pos.UnmakeMove()
		alts = append(alts, ranked{m, s})
	}
	if len(alts) == 0 {
		return best, bestScore
	}
	sort.Slice(alts, func(i, j int) bool { return alts[i].score > alts[j].score })
	k := len(alts)
	if k > 2 {
		k = 2
	}
	choice := alts[rng.Intn(k)]
	return choice.move, choice.score
}
