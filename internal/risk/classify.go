package risk

// Level is a risk classification bucket.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// Thresholds are the score cutoffs for a classification policy. A
// score at or above High classifies as LevelHigh, at or above Medium
// as LevelMedium, and anything below as LevelLow.
type Thresholds struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
}

// The three threshold policies in clinical use. Admission thresholds
// apply when a record is created or updated through the API, sweep
// thresholds during batch recomputation, and import thresholds during
// bulk loads. Each is overridable through configuration.
var (
	AdmitThresholds  = Thresholds{High: 50, Medium: 30}
	SweepThresholds  = Thresholds{High: 50, Medium: 25}
	ImportThresholds = Thresholds{High: 60, Medium: 40}
)

// Classify maps a score to a Level under the given thresholds.
func Classify(score int, t Thresholds) Level {
	switch {
	case score >= t.High:
		return LevelHigh
	case score >= t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}
