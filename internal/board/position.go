package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is returned by Validate when a position violates a
// structural invariant (overlapping stones, stone count out of sync with
// side to move, or a played cell outside the board).
var ErrInvalidPosition = errors.New("board: invalid position")

// Position is the mutable, search-side board state: two per-side
// bitboards, the side to move, and an incrementally maintained Zobrist
// hash. It carries its own Geometry so every operation knows its board
// size without a parameter.
type Position struct {
	Geo *Geometry

	stones     [2]Bitboard
	SideToMove Side
	Hash       uint64
	Ply        int

	history [MaxCells]UndoInfo
}

// NewPosition returns an empty position on a board of the given size.
func NewPosition(size int) (*Position, error) {
	geo, err := NewGeometry(size)
	if err != nil {
		return nil, err
	}
	return &Position{Geo: geo, SideToMove: Red}, nil
}

// Copy returns a deep copy suitable for a parallel search worker.
func (p *Position) Copy() *Position {
	cp := *p
	return &cp
}

// StoneAt reports the occupant of (x, y), if any.
func (p *Position) StoneAt(x, y int) (Side, bool) {
	if p.Geo.Get(p.stones[Red], x, y) {
		return Red, true
	}
	if p.Geo.Get(p.stones[Blue], x, y) {
		return Blue, true
	}
	return 0, false
}

func (p *Position) IsEmpty(x, y int) bool {
	return !p.Geo.Get(p.stones[Red], x, y) && !p.Geo.Get(p.stones[Blue], x, y)
}

func (p *Position) Occupied() Bitboard {
	return p.stones[Red].Or(p.stones[Blue])
}

func (p *Position) Stones(s Side) Bitboard { return p.stones[s] }

// MakeMove plays a stone for the side to move, updates the hash
// incrementally, and records undo information. The caller must ensure
// the cell is empty and on the board; MakeMove does not validate in the
// hot path, matching the teacher's MakeMove/MakeNullMove split between
// fast incremental updates and Validate-time checking.
func (p *Position) MakeMove(m Move) {
	x, y := m.X(), m.Y()
	idx := p.Geo.Index(x, y)
	side := p.SideToMove

	p.history[p.Ply] = UndoInfo{Move: m, Hash: p.Hash, PlyCount: p.Ply}

	p.stones[side].SetBit(idx)
	p.Hash ^= p.Geo.ZobristPiece(idx, side)
	p.Hash ^= p.Geo.ZobristSideToMove()
	p.SideToMove = side.Other()
	p.Ply++
}

// UnmakeMove reverts the most recent MakeMove.
func (p *Position) UnmakeMove() {
	p.Ply--
	u := p.history[p.Ply]
	x, y := u.Move.X(), u.Move.Y()
	idx := p.Geo.Index(x, y)
	side := p.SideToMove.Other()

	p.stones[side].ClearBit(idx)
	p.SideToMove = side
	p.Hash = u.Hash
}

// MakeNullMove passes the turn without placing a stone, for null-move
// pruning. It is its own inverse: toggling the side to move and XORing
// the same side-to-move key twice cancels out, so UnmakeNullMove is
// just another call to MakeNullMove.
func (p *Position) MakeNullMove() {
	p.Hash ^= p.Geo.ZobristSideToMove()
	p.SideToMove = p.SideToMove.Other()
}

// UnmakeNullMove reverts MakeNullMove.
func (p *Position) UnmakeNullMove() {
	p.Hash ^= p.Geo.ZobristSideToMove()
	p.SideToMove = p.SideToMove.Other()
}

// LastMove returns the most recently played move, or NoMove if the
// position is empty.
func (p *Position) LastMove() Move {
	return p.MoveBack(1)
}

// MoveBack returns the move played k plies ago (k=1 is the most recent),
// or NoMove if the position's history doesn't go back that far. Null
// moves don't occupy a history slot, so MoveBack only ever sees real
// placements, which is what continuation-history lookups need.
func (p *Position) MoveBack(k int) Move {
	if k < 1 || k > p.Ply {
		return NoMove
	}
	return p.history[p.Ply-k].Move
}

// Validate checks the structural invariants a Position must hold:
// stones don't overlap, every stone lies on the board, and the stone
// counts agree with the side to move (Red leads by 0 or 1 stones).
func (p *Position) Validate() error {
	overlap := p.stones[Red].And(p.stones[Blue])
	if !overlap.IsZero() {
		return fmt.Errorf("%w: overlapping stones", ErrInvalidPosition)
	}
	off := p.stones[Red].Or(p.stones[Blue]).AndNot(p.Geo.FullMask())
	if !off.IsZero() {
		return fmt.Errorf("%w: stone off board", ErrInvalidPosition)
	}
	redCount := p.stones[Red].PopCount()
	blueCount := p.stones[Blue].PopCount()
	diff := redCount - blueCount
	wantRedToMove := diff == 0
	wantBlueToMove := diff == 1
	if !wantRedToMove && !wantBlueToMove {
		return fmt.Errorf("%w: stone count imbalance red=%d blue=%d", ErrInvalidPosition, redCount, blueCount)
	}
	if wantRedToMove && p.SideToMove != Red {
		return fmt.Errorf("%w: side to move disagrees with stone count", ErrInvalidPosition)
	}
	if wantBlueToMove && p.SideToMove != Blue {
		return fmt.Errorf("%w: side to move disagrees with stone count", ErrInvalidPosition)
	}
	return nil
}

// IsFull reports whether every cell is occupied (a draw, absent a win).
func (p *Position) IsFull() bool {
	return p.Occupied().Equal(p.Geo.FullMask())
}

func (p *Position) String() string {
	var sb strings.Builder
	n := p.Geo.Size
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			switch {
			case p.Geo.Get(p.stones[Red], x, y):
				sb.WriteByte('X')
			case p.Geo.Get(p.stones[Blue], x, y):
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
