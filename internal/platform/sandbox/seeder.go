// Package sandbox generates synthetic registry cohorts for demo
// environments and developer on-boarding. Output is reproducible for a
// fixed seed, and the clinical distributions are shaped so a generated
// cohort spreads across all three risk levels.
package sandbox

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/strokewatch/strokewatch/internal/domain/patients"
	"github.com/strokewatch/strokewatch/internal/risk"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	PatientCount int     `json:"patient_count"`
	StrokeRate   float64 `json:"stroke_rate"`
	Seed         int64   `json:"seed"`
}

// DefaultSeedConfig returns the demo defaults.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount: 100,
		StrokeRate:   0.05,
	}
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Patients    int           `json:"patients"`
	HighRisk    int           `json:"high_risk"`
	MediumRisk  int           `json:"medium_risk"`
	LowRisk     int           `json:"low_risk"`
	StrokeCases int           `json:"stroke_cases"`
	Duration    time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Value pools
// ---------------------------------------------------------------------------

var (
	firstNamesMale = []string{
		"James", "Robert", "Michael", "David", "William", "Thomas",
		"Daniel", "Matthew", "Andrew", "Joshua", "Kevin", "George",
		"Edward", "Ryan", "Eric", "Stephen", "Scott", "Samuel",
		"Patrick", "Dennis",
	}
	firstNamesFemale = []string{
		"Mary", "Jennifer", "Linda", "Elizabeth", "Susan", "Sarah",
		"Karen", "Nancy", "Margaret", "Emily", "Michelle", "Amanda",
		"Rebecca", "Laura", "Amy", "Anna", "Emma", "Rachel",
		"Janet", "Helen",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Garcia", "Miller",
		"Davis", "Martinez", "Wilson", "Anderson", "Taylor", "Moore",
		"Lee", "Thompson", "White", "Clark", "Lewis", "Walker",
		"Young", "King", "Wright", "Hill", "Green", "Baker",
	}

	workTypes      = []string{"Private", "Self-employed", "Govt_job", "Never_worked"}
	residenceTypes = []string{"Urban", "Rural"}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic registry rows.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If
// seed is 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *DataGenerator) nextUUID() uuid.UUID {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.New()
	}
	return id
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Input produces one synthetic import row. Ages follow a broad normal
// centered in the fifties, and comorbidity rates climb with age the way
// they do in the screening cohorts the registry ingests.
func (g *DataGenerator) Input(strokeRate float64) patients.PatientInput {
	gender := "Female"
	first := g.pick(firstNamesFemale)
	if g.chance(0.5) {
		gender = "Male"
		first = g.pick(firstNamesMale)
	}

	age := math.Round(clamp(g.rng.NormFloat64()*18+52, 1, 95))

	hypertension := 0
	if g.chance(0.04 + age/250) {
		hypertension = 1
	}
	heartDisease := 0
	if g.chance(0.02 + age/400) {
		heartDisease = 1
	}

	everMarried := "No"
	if age >= 25 && g.chance(0.85) {
		everMarried = "Yes"
	}

	workType := g.pick(workTypes)
	if age < 17 {
		workType = "children"
	}
	residence := g.pick(residenceTypes)

	glucose := round2(clamp(70+math.Abs(g.rng.NormFloat64())*45, 55, 280))
	bmi := round1(clamp(g.rng.NormFloat64()*6.5+28, 14, 60))

	smoking := "never smoked"
	switch {
	case age < 18:
		if g.chance(0.5) {
			smoking = "Unknown"
		}
	case g.chance(0.16):
		smoking = "smokes"
	case g.chance(0.2):
		smoking = "formerly smoked"
	case g.chance(0.35):
		smoking = "Unknown"
	}

	stroke := 0
	if g.chance(strokeRate * (1 + age/100)) {
		stroke = 1
	}

	return patients.PatientInput{
		Name:            first + " " + g.pick(lastNames),
		Gender:          &gender,
		Age:             &age,
		Hypertension:    &hypertension,
		HeartDisease:    &heartDisease,
		EverMarried:     &everMarried,
		WorkType:        &workType,
		ResidenceType:   &residence,
		AvgGlucoseLevel: &glucose,
		BMI:             &bmi,
		SmokingStatus:   &smoking,
		Stroke:          &stroke,
	}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder generates and holds an in-memory cohort.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
	mu        sync.RWMutex
	patients  []*patients.Patient
}

// NewSeeder creates a Seeder with the given config.
func NewSeeder(config SeedConfig) *Seeder {
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
	}
}

// Generate builds the cohort, scoring every row under the admission
// thresholds so the demo data matches what the intake API would store.
func (s *Seeder) Generate() (*SeedResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients = nil
	result := &SeedResult{}
	now := time.Now().UTC()

	for i := 0; i < s.config.PatientCount; i++ {
		in := s.generator.Input(s.config.StrokeRate)
		p := in.Patient()
		p.ID = s.generator.nextUUID()
		p.PatientID = fmt.Sprintf("PT%05d", i+1)
		p.CreatedAt = now
		p.UpdatedAt = now

		score := risk.Score(p.Attributes())
		lvl := risk.Classify(score, risk.AdmitThresholds)
		level := string(lvl)
		at := now
		p.RiskScore = &score
		p.RiskLevel = &level
		p.RiskUpdatedAt = &at

		s.patients = append(s.patients, p)

		switch lvl {
		case risk.LevelHigh:
			result.HighRisk++
		case risk.LevelMedium:
			result.MediumRisk++
		default:
			result.LowRisk++
		}
		if p.Stroke == 1 {
			result.StrokeCases++
		}
	}

	result.Patients = len(s.patients)
	result.Duration = time.Since(start)
	return result, nil
}

// Patients returns the generated cohort.
func (s *Seeder) Patients() []*patients.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.patients
}

// Reset discards the generated cohort.
func (s *Seeder) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = nil
}

// ExportNDJSON writes the cohort as newline-delimited JSON, one patient
// per line.
func (s *Seeder) ExportNDJSON(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enc := json.NewEncoder(w)
	for _, p := range s.patients {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encoding patient %s: %w", p.PatientID, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// SeedHandler
// ---------------------------------------------------------------------------

// SeedHandler provides the sandbox HTTP endpoints.
type SeedHandler struct {
	seeder *Seeder
	mu     sync.Mutex
}

// NewSeedHandler creates a handler with no pre-seeded data.
func NewSeedHandler() *SeedHandler {
	return &SeedHandler{}
}

// RegisterRoutes registers sandbox routes on the API group.
func (h *SeedHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/sandbox/seed", h.handleSeed)
	api.GET("/sandbox/patients", h.handleListPatients)
	api.POST("/sandbox/reset", h.handleReset)
	api.GET("/sandbox/export/ndjson", h.handleExportNDJSON)
}

func (h *SeedHandler) handleSeed(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cfg := DefaultSeedConfig()
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if cfg.PatientCount <= 0 {
		cfg.PatientCount = DefaultSeedConfig().PatientCount
	}
	if cfg.StrokeRate <= 0 {
		cfg.StrokeRate = DefaultSeedConfig().StrokeRate
	}

	h.seeder = NewSeeder(cfg)
	result, err := h.seeder.Generate()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *SeedHandler) handleListPatients(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seeder == nil {
		return c.JSON(http.StatusOK, []*patients.Patient{})
	}
	rows := h.seeder.Patients()
	if rows == nil {
		rows = []*patients.Patient{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *SeedHandler) handleReset(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seeder != nil {
		h.seeder.Reset()
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func (h *SeedHandler) handleExportNDJSON(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.seeder == nil {
		return c.String(http.StatusOK, "")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)
	return h.seeder.ExportNDJSON(c.Response().Writer)
}
