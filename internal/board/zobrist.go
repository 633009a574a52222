package board

// prng is the teacher's xorshift64* generator, used verbatim so the
// Zobrist keys it produces are reproducible across runs and platforms.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// zobristSeed is the teacher's fixed seed, carried over so hashing
// behavior stays reproducible the same way theirs is.
const zobristSeed = 0x98F107A2BEEF1234

// zobristTable holds Size*Size*2 piece keys plus one side-to-move key,
// built once per Geometry since the key count depends on board size.
// The teacher's table is a package-level fixed-size array built in
// init(); here it is sized at construction time via NewGeometry.
type zobristTable struct {
	piece     []uint64 // [cell*2 + int(side)]
	sideToMove uint64
}

func newZobristTable(size int) *zobristTable {
	rng := newPRNG(zobristSeed)
	cells := size * size
	t := &zobristTable{piece: make([]uint64, cells*2)}
	for i := range t.piece {
		t.piece[i] = rng.next()
	}
	t.sideToMove = rng.next()
	return t
}

// ZobristPiece returns the hash key for placing side's stone on the
// given flat cell index.
func (g *Geometry) ZobristPiece(cellIdx int, side Side) uint64 {
	return g.zobrist.piece[cellIdx*2+int(side)]
}

// ZobristSideToMove returns the key XORed in whenever the side to move
// changes.
func (g *Geometry) ZobristSideToMove() uint64 {
	return g.zobrist.sideToMove
}
