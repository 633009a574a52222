package engine

// AIDifficulty is a coarse strength tag an external caller selects
// instead of hand-tuning search parameters directly, generalized from
// the teacher's three-level Easy/Medium/Hard scheme into the wider
// ladder a Caro opponent needs.
type AIDifficulty int

const (
	Braindead AIDifficulty = iota
	Easy
	Normal
	Medium
	Hard
	VeryHard
	Expert
	Master
	Grandmaster
	Legend
	BookGeneration
)

func (d AIDifficulty) String() string {
	switch d {
	case Braindead:
		return "Braindead"
	case Easy:
		return "Easy"
	case Normal:
		return "Normal"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	case VeryHard:
		return "VeryHard"
	case Expert:
		return "Expert"
	case Master:
		return "Master"
	case Grandmaster:
		return "Grandmaster"
	case Legend:
		return "Legend"
	case BookGeneration:
		return "BookGeneration"
	default:
		return "Unknown"
	}
}

// DifficultySettings bounds a search: how deep it's allowed to go, how
// many Lazy-SMP workers to run, a multiplier applied to the caller's
// time budget, and an error rate used to occasionally discard the best
// move in favor of a weaker alternative so low tiers don't play
// perfectly.
type DifficultySettings struct {
	MaxDepth        int
	Threads         int
	TimeMultiplier  float64
	ParallelEnabled bool
	ErrorRate       float64 // probability of playing the 2nd/3rd best root move instead of the best
}

var difficultyPresets = map[AIDifficulty]DifficultySettings{
	Braindead:      {MaxDepth: 2, Threads: 1, TimeMultiplier: 0.2, ParallelEnabled: false, ErrorRate: 0.60},
	Easy:           {MaxDepth: 4, Threads: 1, TimeMultiplier: 0.3, ParallelEnabled: false, ErrorRate: 0.35},
	Normal:         {MaxDepth: 6, Threads: 1, TimeMultiplier: 0.5, ParallelEnabled: false, ErrorRate: 0.20},
	Medium:         {MaxDepth: 8, Threads: 2, TimeMultiplier: 0.7, ParallelEnabled: true, ErrorRate: 0.10},
	Hard:           {MaxDepth: 10, Threads: 2, TimeMultiplier: 1.0, ParallelEnabled: true, ErrorRate: 0.05},
	VeryHard:       {MaxDepth: 14, Threads: 4, TimeMultiplier: 1.0, ParallelEnabled: true, ErrorRate: 0.02},
	Expert:         {MaxDepth: 18, Threads: 4, TimeMultiplier: 1.2, ParallelEnabled: true, ErrorRate: 0.0},
	Master:         {MaxDepth: 24, Threads: 8, TimeMultiplier: 1.5, ParallelEnabled: true, ErrorRate: 0.0},
	Grandmaster:    {MaxDepth: 32, Threads: 8, TimeMultiplier: 2.0, ParallelEnabled: true, ErrorRate: 0.0},
	Legend:         {MaxDepth: 48, Threads: 16, TimeMultiplier: 3.0, ParallelEnabled: true, ErrorRate: 0.0},
	BookGeneration: {MaxDepth: 32, Threads: 16, TimeMultiplier: 8.0, ParallelEnabled: true, ErrorRate: 0.0},
}

// Settings returns the preset for d, falling back to Normal for an
// unrecognized value rather than panicking mid-game.
func (d AIDifficulty) Settings() DifficultySettings {
	if s, ok := difficultyPresets[d]; ok {
		return s
	}
	return difficultyPresets[Normal]
}
