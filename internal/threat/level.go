// Package threat tracks per-client misbehavior: a suspicious-activity count
// that escalates fast and decays slowly, and the threat level derived from
// it that drives adaptive throttling and blocking.
package threat

// Level classifies a client's recent misbehavior. Levels are ordered:
// LevelNone < LevelLow < LevelMedium < LevelHigh < LevelCritical, so the
// usual comparison operators follow escalation order.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// LevelForCount derives the threat level from a suspicious-activity count.
// It is the only place the thresholds live.
func LevelForCount(count int) Level {
	switch {
	case count >= 10:
		return LevelCritical
	case count >= 5:
		return LevelHigh
	case count >= 2:
		return LevelMedium
	case count >= 1:
		return LevelLow
	default:
		return LevelNone
	}
}

// Multiplier returns the rate-limit scaling factor for the level. Critical
// scales to zero; the limiter clamps the effective limit so one request per
// window still gets through before being blocked.
func (l Level) Multiplier() float64 {
	switch l {
	case LevelMedium:
		return 0.7
	case LevelHigh:
		return 0.3
	case LevelCritical:
		return 0
	default:
		return 1.0
	}
}
