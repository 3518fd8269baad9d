package main

import (
	"strings"
	"testing"

	"github.com/strokewatch/strokewatch/internal/platform/sandbox"
	"github.com/strokewatch/strokewatch/internal/risk"
)

// ---------------------------------------------------------------------------
// generateInputs tests
// ---------------------------------------------------------------------------

func TestGenerateInputs_Count(t *testing.T) {
	inputs := generateInputs(sandbox.NewDataGenerator(42), 25, 0.05)
	if len(inputs) != 25 {
		t.Errorf("len(inputs) = %d, want 25", len(inputs))
	}
}

func TestGenerateInputs_Zero(t *testing.T) {
	inputs := generateInputs(sandbox.NewDataGenerator(42), 0, 0.05)
	if len(inputs) != 0 {
		t.Errorf("len(inputs) = %d, want 0", len(inputs))
	}
}

// Every generated row must carry the fields bulk import requires, so a
// seed run never produces rejected rows.
func TestGenerateInputs_RequiredFields(t *testing.T) {
	inputs := generateInputs(sandbox.NewDataGenerator(42), 200, 0.05)
	for i, in := range inputs {
		if in.Name == "" {
			t.Errorf("row %d: empty name", i)
		}
		if in.Gender == nil {
			t.Errorf("row %d: missing gender", i)
		}
		if in.Age == nil {
			t.Errorf("row %d: missing age", i)
		}
		if in.AvgGlucoseLevel == nil {
			t.Errorf("row %d: missing avg_glucose_level", i)
		}
		if in.BMI == nil {
			t.Errorf("row %d: missing bmi", i)
		}
	}
}

func TestGenerateInputs_Deterministic(t *testing.T) {
	a := generateInputs(sandbox.NewDataGenerator(7), 50, 0.05)
	b := generateInputs(sandbox.NewDataGenerator(7), 50, 0.05)
	for i := range a {
		if a[i].Name != b[i].Name {
			t.Fatalf("row %d: name %q != %q for same seed", i, a[i].Name, b[i].Name)
		}
		if *a[i].Age != *b[i].Age {
			t.Fatalf("row %d: age %v != %v for same seed", i, *a[i].Age, *b[i].Age)
		}
	}
}

// ---------------------------------------------------------------------------
// sweepSummary tests
// ---------------------------------------------------------------------------

func TestSweepSummary(t *testing.T) {
	out := risk.Outcome{
		TotalPatients: 4,
		UpdatedCount:  2,
		SkippedCount:  1,
		ErrorCount:    1,
		SuccessRate:   50,
	}

	got := sweepSummary(out)
	want := "Total patients: 4\n" +
		"Updated:        2\n" +
		"Skipped:        1\n" +
		"Errors:         1\n" +
		"Success rate:   50.00%\n"
	if got != want {
		t.Errorf("sweepSummary = %q, want %q", got, want)
	}
}

func TestSweepSummary_FractionalRate(t *testing.T) {
	out := risk.Outcome{
		TotalPatients: 3,
		UpdatedCount:  2,
		SkippedCount:  1,
		SuccessRate:   66.67,
	}

	got := sweepSummary(out)
	if !strings.Contains(got, "Success rate:   66.67%") {
		t.Errorf("sweepSummary = %q, want it to contain the 66.67%% rate", got)
	}
}

func TestSweepSummary_EmptyRegistry(t *testing.T) {
	got := sweepSummary(risk.Outcome{})
	if !strings.Contains(got, "Total patients: 0") {
		t.Errorf("sweepSummary = %q, want zero totals", got)
	}
	if !strings.Contains(got, "Success rate:   0.00%") {
		t.Errorf("sweepSummary = %q, want 0.00%% success rate", got)
	}
}
