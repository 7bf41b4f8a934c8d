package bot

// Tuning weighs the selection rules against each other.
type Tuning struct {
	BlankPenalty      float64
	LengthWeight      float64
	ShoutLengthWeight float64
	// DefaultLength is the target card length before any round has been won.
	DefaultLength float64
	// LikeWeight is how much each like counts when a computer judges.
	LikeWeight float64
}

// DefaultTuning favors printed, punchy cards.
var DefaultTuning = Tuning{
	BlankPenalty:      100.0,
	LengthWeight:      2.0,
	ShoutLengthWeight: 0.05,
	DefaultLength:     24.0,
	LikeWeight:        3.0,
}
