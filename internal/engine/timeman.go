package engine

import (
	"time"
)

// Clock carries the same information the teacher's UCILimits carries
// for one side, generalized away from the two-color wtime/btime split
// since BestMove is always called for whichever side is to move.
type Clock struct {
	Remaining time.Duration
	Increment time.Duration
	MovesToGo int           // 0 = sudden death
	MoveTime  time.Duration // fixed time per move, overrides the rest
	Infinite  bool
}

// TimeManager allocates a soft (optimum) and hard (maximum) deadline for
// one search, then refines the soft deadline as the search reports
// depth-by-depth statistics. The soft/hard split and stability-based
// adjustment are the teacher's; the EMA-based next-iteration predictor
// is new, since the teacher never needs to decide whether a deeper
// iteration is worth starting versus returning the current best move.
//
// A TimeManager is meant to live for an entire game, not one move: emaNPS,
// emaEBF and pidError are memory that Init deliberately does not clear, so
// later moves benefit from earlier ones the same way a human player's time
// sense does.
type TimeManager struct {
	optimumTime time.Duration
	maximumTime time.Duration
	startTime   time.Time

	emaNPS    float64 // nodes/second, exponential moving average
	emaEBF    float64 // effective branching factor between iterations
	haveEBF   bool
	lastNodes uint64
	lastDepth int

	// pidError accumulates the EMA of (actual-optimum)/optimum drift across
	// moves, and only moves for sudden-death clocks: a fixed MoveTime has
	// nothing to correct, since Init pins optimum == maximum == MoveTime
	// directly.
	pidError    float64
	suddenDeath bool
}

func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// emaAlpha weights the newest sample against the running average.
const emaAlpha = 0.3

// iterationOverrun bounds how far the predicted next iteration may
// exceed the remaining optimum budget before ShouldStartNextIteration
// refuses to start it: a corrector clamped to ±30%, not an unbounded
// extrapolation.
const iterationOverrun = 0.30

// pidMaxCorrection bounds how far the accumulated cross-move drift may
// shift a sudden-death search's soft deadline, per spec's PID-style
// corrector: at most ±30% of the uncorrected optimum.
const pidMaxCorrection = 0.30

// pidAlpha weights the newest move's drift sample against the running
// accumulator, the same shape as emaAlpha above.
const pidAlpha = 0.3

// Init sets the soft/hard deadlines for a new search at the given game
// ply, mirroring the teacher's sudden-death move-count estimate. It
// deliberately leaves emaNPS, emaEBF, haveEBF and pidError untouched:
// those are cross-move state that persists for the life of the
// TimeManager, not per-search scratch space.
func (tm *TimeManager) Init(clock Clock, ply int) {
	tm.startTime = time.Now()
	tm.lastNodes, tm.lastDepth = 0, 0
	tm.suddenDeath = false

	if clock.MoveTime > 0 {
		tm.optimumTime = clock.MoveTime
		tm.maximumTime = clock.MoveTime
		return
	}
	if clock.Infinite || clock.Remaining == 0 {
		tm.optimumTime = time.Hour
		tm.maximumTime = time.Hour
		return
	}

	mtg := clock.MovesToGo
	if mtg == 0 {
		mtg = 40 - ply/4
		if mtg < 10 {
			mtg = 10
		}
		if mtg > 40 {
			mtg = 40
		}
	}

	baseTime := clock.Remaining / time.Duration(mtg)
	baseTime += clock.Increment * 9 / 10
	tm.optimumTime = baseTime
	if ply < 6 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// PID-style correction: a history of searches that ran hotter than
	// planned (positive drift) trims the next soft deadline; a history of
	// searches that finished early grows it. Bounded to ±30% so a single
	// bad outlier move can't swing the budget wildly.
	correction := -tm.pidError * pidMaxCorrection
	if correction > pidMaxCorrection {
		correction = pidMaxCorrection
	} else if correction < -pidMaxCorrection {
		correction = -pidMaxCorrection
	}
	tm.optimumTime = time.Duration(float64(tm.optimumTime) * (1 + correction))

	maxFromOptimum := tm.optimumTime * 5
	maxFromRemaining := clock.Remaining * 8 / 10
	if maxFromOptimum < maxFromRemaining {
		tm.maximumTime = maxFromOptimum
	} else {
		tm.maximumTime = maxFromRemaining
	}
	safetyMargin := clock.Remaining * 95 / 100
	if tm.maximumTime > safetyMargin {
		tm.maximumTime = safetyMargin
	}
	if tm.optimumTime < 10*time.Millisecond {
		tm.optimumTime = 10 * time.Millisecond
	}
	if tm.maximumTime < 50*time.Millisecond {
		tm.maximumTime = 50 * time.Millisecond
	}
	tm.suddenDeath = true
}

// FinalizeMove folds this move's actual time usage into the cumulative
// drift accumulator that Init reads back on the next call, implementing
// spec's PID-style corrector. Fixed-MoveTime searches have nothing to
// correct against and are ignored.
func (tm *TimeManager) FinalizeMove() {
	if !tm.suddenDeath || tm.optimumTime <= 0 {
		return
	}
	drift := (tm.Elapsed().Seconds() - tm.optimumTime.Seconds()) / tm.optimumTime.Seconds()
	tm.pidError = pidAlpha*drift + (1-pidAlpha)*tm.pidError
	if tm.pidError > 1 {
		tm.pidError = 1
	} else if tm.pidError < -1 {
		tm.pidError = -1
	}
}

func (tm *TimeManager) Elapsed() time.Duration { return time.Since(tm.startTime) }

func (tm *TimeManager) OptimumTime() time.Duration { return tm.optimumTime }

func (tm *TimeManager) MaximumTime() time.Duration { return tm.maximumTime }

func (tm *TimeManager) ShouldStop() bool { return tm.Elapsed() >= tm.maximumTime }

func (tm *TimeManager) PastOptimum() bool { return tm.Elapsed() >= tm.optimumTime }

// UpdateStats feeds one completed iteration's totals into the NPS and
// effective-branching-factor moving averages.
func (tm *TimeManager) UpdateStats(nodes uint64, depth int) {
	elapsed := tm.Elapsed()
	if elapsed > 0 {
		nps := float64(nodes) / elapsed.Seconds()
		if tm.emaNPS == 0 {
			tm.emaNPS = nps
		} else {
			tm.emaNPS = emaAlpha*nps + (1-emaAlpha)*tm.emaNPS
		}
	}
	if tm.lastNodes > 0 && depth == tm.lastDepth+1 {
		ebf := float64(nodes) / float64(tm.lastNodes)
		if !tm.haveEBF {
			tm.emaEBF = ebf
			tm.haveEBF = true
		} else {
			tm.emaEBF = emaAlpha*ebf + (1-emaAlpha)*tm.emaEBF
		}
	}
	tm.lastNodes, tm.lastDepth = nodes, depth
}

// PredictNextIterationTime estimates how long the next iterative-
// deepening pass will take from the current NPS/EBF averages.
func (tm *TimeManager) PredictNextIterationTime() time.Duration {
	if !tm.haveEBF || tm.emaNPS <= 0 {
		return 0
	}
	predictedNodes := float64(tm.lastNodes) * tm.emaEBF
	seconds := predictedNodes / tm.emaNPS
	return time.Duration(seconds * float64(time.Second))
}

// ShouldStartNextIteration reports whether the driver should begin
// another iterative-deepening pass: no, if the optimum is already
// spent; yes, if there's no prediction yet; otherwise only if the
// predicted cost fits within the remaining optimum budget plus the
// bounded overrun allowance and still clears the hard deadline.
func (tm *TimeManager) ShouldStartNextIteration() bool {
	elapsed := tm.Elapsed()
	if elapsed >= tm.optimumTime {
		return false
	}
	predicted := tm.PredictNextIterationTime()
	if predicted <= 0 {
		return true
	}
	remaining := tm.optimumTime - elapsed
	corrected := time.Duration(float64(remaining) * (1 + iterationOverrun))
	return predicted <= corrected && elapsed+predicted <= tm.maximumTime
}

// AdjustForStability shrinks the optimum once the root best move has
// stopped changing: there's little value searching deeper just to
// confirm the same answer.
func (tm *TimeManager) AdjustForStability(stability int) {
	switch {
	case stability >= 6:
		tm.optimumTime = tm.optimumTime * 40 / 100
	case stability >= 4:
		tm.optimumTime = tm.optimumTime * 60 / 100
	case stability >= 2:
		tm.optimumTime = tm.optimumTime * 80 / 100
	}
}

// AdjustForInstability grows the optimum (bounded by the maximum) when
// the root best move keeps flipping between iterations.
func (tm *TimeManager) AdjustForInstability(changes int) {
	switch {
	case changes >= 4:
		tm.optimumTime = tm.optimumTime * 200 / 100
	case changes >= 2:
		tm.optimumTime = tm.optimumTime * 150 / 100
	}
	if tm.optimumTime > tm.maximumTime {
		tm.optimumTime = tm.maximumTime
	}
}
