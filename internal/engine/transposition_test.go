package engine

import (
	"testing"

	"github.com/carogami/caroengine/internal/board"
)

func TestTranspositionProbeMissOnEmptyTable(t *testing.T) {
	tt := NewTranspositionTable(1)
	if _, ok := tt.Probe(0x1234); ok {
		t.Errorf("Probe on a freshly built table reported a hit")
	}
}

func TestTranspositionStoreThenProbeRoundTrips(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCDEF0123456789)
	move := board.NewMove(7, 9)

	tt.Store(hash, 6, 1234, TTExact, move)

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatalf("Probe missed an entry just stored")
	}
	if entry.BestMove != move {
		t.Errorf("BestMove = %v, want %v", entry.BestMove, move)
	}
	if entry.Score != 1234 {
		t.Errorf("Score = %d, want 1234", entry.Score)
	}
	if entry.Depth != 6 {
		t.Errorf("Depth = %d, want 6", entry.Depth)
	}
	if entry.Flag != TTExact {
		t.Errorf("Flag = %v, want TTExact", entry.Flag)
	}
}

func TestTranspositionDifferentKeySameClusterIsAMiss(t *testing.T) {
	tt := NewTranspositionTable(1)
	hashA := uint64(1)
	hashB := hashA ^ (uint64(1) << 50) // same cluster index, different verifyKey bits

	tt.Store(hashA, 4, 10, TTExact, board.NewMove(1, 1))
	if verifyKey(hashA) == verifyKey(hashB) {
		t.Skip("chosen hashes collide on verifyKey by construction; not exercising the miss path")
	}
	if _, ok := tt.Probe(hashB); ok {
		t.Errorf("Probe reported a hit for a key never stored")
	}
}

func TestTranspositionNewSearchBumpsAge(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(42, 2, 0, TTExact, board.NoMove)
	if full := tt.HashFull(); full == 0 {
		t.Errorf("HashFull reported 0 right after a store for the current search")
	}

	tt.NewSearch()
	// The entry stored under the previous age no longer counts toward
	// the current search's HashFull sample.
	if full := tt.HashFull(); full != 0 {
		t.Errorf("HashFull = %d after NewSearch, want 0 (prior entries are a different age)", full)
	}
}

func TestTranspositionHitRateTracksProbes(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(99)
	tt.Store(hash, 1, 0, TTExact, board.NoMove)

	tt.Probe(hash)                           // hit
	tt.Probe(hash ^ (uint64(1) << 50)) // same cluster, different key: miss

	if rate := tt.HitRate(); rate <= 0 || rate >= 100 {
		t.Errorf("HitRate = %v, want strictly between 0 and 100 after one hit and one miss", rate)
	}
}

func TestAdjustScoreRoundTripsThroughTT(t *testing.T) {
	cases := []struct {
		score int
		ply   int
	}{
		{MateScore - 3, 5},
		{-MateScore + 3, 5},
		{1234, 10},
	}
	for _, c := range cases {
		stored := AdjustScoreToTT(c.score, c.ply)
		got := AdjustScoreFromTT(stored, c.ply)
		if got != c.score {
			t.Errorf("AdjustScoreFromTT(AdjustScoreToTT(%d, %d)) = %d, want %d", c.score, c.ply, got, c.score)
		}
	}
}

func TestStoreKeepsDeepEntryAgainstShallowerNonExactReprobe(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCD)
	tt.Store(hash, 10, 500, TTExact, board.NewMove(1, 1))

	// Same search, same key, but shallower and not exact: depth+2 (6) is
	// below the existing depth (10), so this probe must not overwrite it.
	tt.Store(hash, 4, -100, TTLowerBound, board.NewMove(2, 2))

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatalf("Probe missed the entry entirely")
	}
	if entry.Depth != 10 || entry.Score != 500 {
		t.Errorf("a shallow same-key store overwrote a deep entry: got depth=%d score=%d", entry.Depth, entry.Score)
	}
}

func TestStoreOverwritesWhenNewDepthIsCloseEnough(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCD)
	tt.Store(hash, 10, 500, TTExact, board.NewMove(1, 1))

	// depth+2 (11) >= old depth (10): close enough to replace.
	tt.Store(hash, 9, -100, TTUpperBound, board.NewMove(2, 2))

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatalf("Probe missed the entry entirely")
	}
	if entry.Depth != 9 || entry.Score != -100 {
		t.Errorf("store did not overwrite despite depth+2 >= old depth: got depth=%d score=%d", entry.Depth, entry.Score)
	}
}

func TestStoreOverwritesShallowExactFromTheSameSearch(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCD)
	tt.Store(hash, 10, 500, TTUpperBound, board.NewMove(1, 1))

	// Same search (age unchanged) and the new bound is Exact: always wins
	// even though it's far shallower.
	tt.Store(hash, 1, 42, TTExact, board.NewMove(2, 2))

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatalf("Probe missed the entry entirely")
	}
	if entry.Depth != 1 || entry.Score != 42 {
		t.Errorf("an exact same-search result did not replace a deeper bound: got depth=%d score=%d", entry.Depth, entry.Score)
	}
}

func TestStoreVictimSelectionPrefersStaleShallowOverFreshDeep(t *testing.T) {
	tt := NewTranspositionTable(1)
	// All three hashes below share a cluster index (the low mask bits are
	// zero for every one of them) but carry distinct verifyKey bits.
	hashA := uint64(1) << 50
	hashB := uint64(2) << 50
	hashC := uint64(3) << 50
	hashD := uint64(4) << 50

	tt.Store(hashA, 10, 1, TTExact, board.NoMove) // age 0, score 10-8*2=-6 once age reaches 2
	tt.NewSearch()                                          // age -> 1
	tt.Store(hashB, 5, 2, TTExact, board.NoMove)  // age 1, score 5-8*1=-3
	tt.NewSearch()                                          // age -> 2
	tt.Store(hashC, 3, 3, TTExact, board.NoMove)  // age 2, score 3-8*0=3

	// The cluster is now full (3 slots). A's depth - 8*(currentAge-A.Age)
	// = 10 - 8*2 = -6 is the lowest score, so A must be the one evicted.
	tt.Store(hashD, 1, 4, TTExact, board.NoMove)

	if _, ok := tt.Probe(hashA); ok {
		t.Errorf("victim selection kept the entry the depth/age formula says should be evicted first")
	}
	if _, ok := tt.Probe(hashB); !ok {
		t.Errorf("victim selection evicted B, which scores higher than A under the formula")
	}
	if _, ok := tt.Probe(hashC); !ok {
		t.Errorf("victim selection evicted C, which scores higher than A under the formula")
	}
	if _, ok := tt.Probe(hashD); !ok {
		t.Errorf("the new entry was not stored")
	}
}

func TestClearResetsStats(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(1, 1, 0, TTExact, board.NoMove)
	tt.Probe(1)

	tt.Clear()
	if tt.HitRate() != 0 {
		t.Errorf("HitRate after Clear = %v, want 0", tt.HitRate())
	}
	if _, ok := tt.Probe(1); ok {
		t.Errorf("Probe after Clear found a stale entry")
	}
}
