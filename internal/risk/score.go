// Package risk implements the stroke risk engine: a deterministic
// additive scoring function, threshold-based level classification, and
// a batch sweep that recomputes scores across a patient record store.
package risk

// MaxScore caps the additive total.
const MaxScore = 100

// Attributes holds the clinical inputs to the scoring function.
// Numeric fields are pointers so an absent value can be told apart
// from zero; an absent field contributes no points.
type Attributes struct {
	Age             *float64
	Hypertension    *int
	HeartDisease    *int
	AvgGlucoseLevel *float64
	BMI             *float64
	SmokingStatus   string
	Gender          string
}

// Score computes the stroke risk score for the given attributes. Each
// factor contributes points independently and the sum is clamped to
// [0, MaxScore]. Absent or unrecognized values contribute nothing, so
// the function never fails.
func Score(a Attributes) int {
	score := 0

	if a.Age != nil {
		switch age := *a.Age; {
		case age >= 70:
			score += 30
		case age >= 60:
			score += 20
		case age >= 50:
			score += 10
		}
	}

	if a.Hypertension != nil && *a.Hypertension == 1 {
		score += 15
	}
	if a.HeartDisease != nil && *a.HeartDisease == 1 {
		score += 15
	}

	if a.AvgGlucoseLevel != nil {
		switch glucose := *a.AvgGlucoseLevel; {
		case glucose > 200:
			score += 20
		case glucose > 140:
			score += 10
		}
	}

	if a.BMI != nil {
		switch bmi := *a.BMI; {
		case bmi >= 30:
			score += 15
		case bmi >= 25:
			score += 5
		}
	}

	switch a.SmokingStatus {
	case "smokes":
		score += 20
	case "formerly smoked":
		score += 10
	}

	if a.Gender == "Male" {
		score += 5
	}

	if score > MaxScore {
		score = MaxScore
	}
	return score
}
