package risk

// Level is the crisis risk assigned to a single utterance.
type Level string

const (
	None    Level = "none"
	Concern Level = "concern"
	High    Level = "high"
)

func (l Level) severity() int {
	switch l {
	case High:
		return 2
	case Concern:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is as severe as other.
func (l Level) AtLeast(other Level) bool {
	return l.severity() >= other.severity()
}

// Max returns the more severe of the supplied levels. High always wins.
func Max(levels ...Level) Level {
	best := None
	for _, l := range levels {
		if l.severity() > best.severity() {
			best = l
		}
	}
	return best
}

// ParseLevel maps a wire value back to a Level.
func ParseLevel(raw string) (Level, bool) {
	switch Level(raw) {
	case None, Concern, High:
		return Level(raw), true
	default:
		return "", false
	}
}
