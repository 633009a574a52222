package engine

import (
	"sync/atomic"

	"github.com/carogami/caroengine/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
	ttEmpty                    // sentinel: slot never written
)

// TTEntry is the decoded view of one transposition table slot.
type TTEntry struct {
	Key      uint32
	BestMove board.Move
	Score    int16
	Depth    int8
	Flag     TTFlag
	Age      uint8
}

// ttSlot packs an entry into a single uint64 so a Lazy-SMP worker can
// read or write it with one atomic op instead of a lock: move(10) |
// score(16) | depth(8) | flag(2) | age(8) | key(20). Because the whole
// entry is one atomic word a read never mixes two writes; the race this
// permits (another position overwriting the slot between a worker's
// store and its later probe) only yields a key mismatch on Probe, which
// is treated as a miss, matching the
// teacher's tolerance of a benign SMP race in exchange for never
// blocking a worker on a table lock.
type ttSlot struct {
	word atomic.Uint64
}

const (
	ttMoveBits  = 10
	ttScoreBits = 16
	ttDepthBits = 8
	ttFlagBits  = 2
	ttAgeBits   = 8
	ttKeyBits   = 20

	ttMoveShift  = 0
	ttScoreShift = ttMoveShift + ttMoveBits
	ttDepthShift = ttScoreShift + ttScoreBits
	ttFlagShift  = ttDepthShift + ttDepthBits
	ttAgeShift   = ttFlagShift + ttFlagBits
	ttKeyShift   = ttAgeShift + ttAgeBits
)

func packTTWord(key uint32, move board.Move, score int16, depth int8, flag TTFlag, age uint8) uint64 {
	return uint64(move&0x3FF)<<ttMoveShift |
		uint64(uint16(score))<<ttScoreShift |
		uint64(uint8(depth))<<ttDepthShift |
		uint64(flag&0x3)<<ttFlagShift |
		uint64(age)<<ttAgeShift |
		uint64(key&0xFFFFF)<<ttKeyShift
}

func unpackTTWord(w uint64) TTEntry {
	return TTEntry{
		BestMove: board.Move((w >> ttMoveShift) & 0x3FF),
		Score:    int16((w >> ttScoreShift) & 0xFFFF),
		Depth:    int8((w >> ttDepthShift) & 0xFF),
		Flag:     TTFlag((w >> ttFlagShift) & 0x3),
		Age:      uint8((w >> ttAgeShift) & 0xFF),
		Key:      uint32((w >> ttKeyShift) & 0xFFFFF),
	}
}

// clusterSize entries share a bucket so a single hash collision doesn't
// immediately evict a deep, still-useful result.
const clusterSize = 3

type ttCluster [clusterSize]ttSlot

// TranspositionTable is a lock-free hash table: every probe and store is
// a handful of atomic loads/stores over a bucket of clusterSize slots,
// safe to share across Lazy-SMP workers without serializing them.
type TranspositionTable struct {
	clusters []ttCluster
	mask     uint64
	age      uint8

	probes atomic.Uint64
	hits   atomic.Uint64
	stores atomic.Uint64
}

// NewTranspositionTable builds a table sized to approximately sizeMB
// megabytes, rounded down to a power-of-two cluster count for a mask
// instead of a modulo.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	bytesPerCluster := uint64(clusterSize * 8)
	numClusters := (uint64(sizeMB) * 1024 * 1024) / bytesPerCluster
	numClusters = roundDownToPowerOf2(numClusters)
	if numClusters == 0 {
		numClusters = 1
	}
	tt := &TranspositionTable{
		clusters: make([]ttCluster, numClusters),
		mask:     numClusters - 1,
	}
	tt.fillEmpty()
	return tt
}

// fillEmpty stamps every slot with the ttEmpty sentinel. The zero value
// of a slot's word decodes to flag TTExact (flag bits 0), not ttEmpty,
// so freshly allocated clusters need an explicit pass or Probe could
// read an all-zero slot as a spurious TTExact hit.
func (tt *TranspositionTable) fillEmpty() {
	empty := packTTWord(0, board.NoMove, 0, 0, ttEmpty, 0)
	for i := range tt.clusters {
		for j := range tt.clusters[i] {
			tt.clusters[i][j].word.Store(empty)
		}
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func verifyKey(hash uint64) uint32 {
	return uint32(hash>>44) & 0xFFFFF
}

// Probe scans every slot in hash's cluster for a key match. The table
// tolerates racing writers: a slot overwritten by another position just
// fails the key check and is treated as a miss.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.probes.Add(1)
	cluster := &tt.clusters[hash&tt.mask]
	want := verifyKey(hash)
	for i := range cluster {
		e := unpackTTWord(cluster[i].word.Load())
		if e.Flag != ttEmpty && e.Key == want {
			tt.hits.Add(1)
			return e, true
		}
	}
	return TTEntry{}, false
}

// Store writes hash's result into its cluster. A key match is only
// overwritten in place when the new result is at least as informative as
// the one already there (depth+2 >= old depth, or it's the same search
// reporting an exact score); otherwise the probe that triggered this
// Store is simply discarded. Absent a key match, the victim among the
// cluster's other slots is whichever scores lowest under
// depth - 8*(current_age - entry_age): an empty slot always wins, and
// among occupied ones a shallow result left over from several searches
// ago outranks a deep one from the search just before this one.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	cluster := &tt.clusters[hash&tt.mask]
	key := verifyKey(hash)
	word := packTTWord(key, bestMove, int16(score), int8(depth), flag, tt.age)

	for i := range cluster {
		e := unpackTTWord(cluster[i].word.Load())
		if e.Flag == ttEmpty || e.Key != key {
			continue
		}
		sameSearch := e.Age == tt.age
		if depth+2 >= int(e.Depth) || (sameSearch && flag == TTExact) {
			cluster[i].word.Store(word)
			tt.stores.Add(1)
		}
		return
	}

	victim := 0
	victimScore := 1 << 30
	for i := range cluster {
		e := unpackTTWord(cluster[i].word.Load())
		if e.Flag == ttEmpty {
			victim = i
			victimScore = -(1 << 30)
			break
		}
		s := int(e.Depth) - 8*(int(tt.age)-int(e.Age))
		if s < victimScore {
			victim = i
			victimScore = s
		}
	}
	cluster[victim].word.Store(word)
	tt.stores.Add(1)
}

// NewSearch increments the age counter so Store can distinguish stale
// entries from ones written during the current search.
func (tt *TranspositionTable) NewSearch() {
	tt.age++
}

func (tt *TranspositionTable) Clear() {
	tt.fillEmpty()
	tt.age = 0
	tt.probes.Store(0)
	tt.hits.Store(0)
	tt.stores.Store(0)
}

// HashFull samples the first 1000/clusterSize clusters (about 1000
// slots) and reports the permille of those slots populated by the
// current search.
func (tt *TranspositionTable) HashFull() int {
	sampleClusters := 1000 / clusterSize
	if sampleClusters == 0 {
		sampleClusters = 1
	}
	if sampleClusters > len(tt.clusters) {
		sampleClusters = len(tt.clusters)
	}
	used, total := 0, 0
	for i := 0; i < sampleClusters; i++ {
		for j := range tt.clusters[i] {
			total++
			e := unpackTTWord(tt.clusters[i][j].word.Load())
			if e.Flag != ttEmpty && e.Age == tt.age {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return (used * 1000) / total
}

func (tt *TranspositionTable) Hits() uint64 { return tt.hits.Load() }

func (tt *TranspositionTable) Stores() uint64 { return tt.stores.Load() }

func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.clusters)) * clusterSize
}

// AdjustScoreFromTT converts a mate score stored relative to the TT
// entry's own subtree back to one relative to the root ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT converts a root-relative mate score into one relative
// to the position being stored, so it's reusable regardless of the ply
// at which it's probed back out.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
