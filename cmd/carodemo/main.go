package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/carogami/caroengine/internal/board"
	"github.com/carogami/caroengine/internal/engine"
)

var (
	boardSize  = flag.Int("size", 16, "board size (15-19)")
	moveTimeMs = flag.Int("movetime", 2000, "time budget in milliseconds")
	difficulty = flag.String("difficulty", "Hard", "AI difficulty preset")
)

// difficultyByName mirrors the teacher's flag-to-enum lookup in its UCI
// handler, just against AIDifficulty's wider ladder instead of three
// levels.
var difficultyByName = map[string]engine.AIDifficulty{
	"Braindead":      engine.Braindead,
	"Easy":           engine.Easy,
	"Normal":         engine.Normal,
	"Medium":         engine.Medium,
	"Hard":           engine.Hard,
	"VeryHard":       engine.VeryHard,
	"Expert":         engine.Expert,
	"Master":         engine.Master,
	"Grandmaster":    engine.Grandmaster,
	"Legend":         engine.Legend,
	"BookGeneration": engine.BookGeneration,
}

func main() {
	flag.Parse()

	diff, ok := difficultyByName[*difficulty]
	if !ok {
		log.Fatalf("unknown difficulty %q", *difficulty)
	}

	pos, err := board.NewPosition(*boardSize)
	if err != nil {
		log.Fatalf("could not create board: %v", err)
	}

	// A short opening sequence near the center, Red to move, so the
	// demo shows a real tactical decision instead of the trivial
	// first-move-is-center case.
	center := *boardSize / 2
	opening := []board.Coord{
		{X: center, Y: center},
		{X: center + 1, Y: center},
		{X: center, Y: center + 1},
		{X: center + 2, Y: center},
	}
	for _, c := range opening {
		pos.MakeMove(board.FromCoord(c))
	}

	eng := engine.NewEngine(64)
	eng.SetDifficulty(diff)
	eng.OnIteration = func(info engine.IterationInfo) {
		fmt.Printf("depth %2d  score %7d  nodes %s  pv %v\n",
			info.Depth, info.Score, humanize.Comma(int64(info.Nodes)), info.PV)
	}

	clock := engine.Clock{MoveTime: time.Duration(*moveTimeMs) * time.Millisecond}

	fmt.Print(pos.String())
	result, err := eng.BestMove(pos, pos.SideToMove, clock, diff)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	fmt.Printf("\nbest move: %v  score: %d  depth: %d  nodes: %s  elapsed: %dms  tt hits: %s  tt stores: %s\n",
		result.Move, result.Score, result.Stats.DepthCompleted,
		humanize.Comma(int64(result.Stats.NodesSearched)),
		result.Stats.ElapsedMs,
		humanize.Comma(int64(result.Stats.TTHits)),
		humanize.Comma(int64(result.Stats.TTStores)),
	)
}
