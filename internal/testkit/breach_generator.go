package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"breachtrend/domain/breach"
)

// CauseProfile describes how one breach cause's cost evolves
type CauseProfile struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`      // relative share of rows
	BaseLog    float64 `json:"base_log"`    // log cost at the start date
	DailySlope float64 `json:"daily_slope"` // change in log cost per day
}

// BreachGeneratorConfig configures the synthetic breach data generator
type BreachGeneratorConfig struct {
	Rows             int            `json:"rows"`
	Causes           []CauseProfile `json:"causes"`
	Sectors          []string       `json:"sectors"`
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	NoiseSD          float64        `json:"noise_sd"`
	MissingCauseRate float64        `json:"missing_cause_rate"`
	Seed             int64          `json:"seed"`
}

// DefaultBreachConfig returns the two-cause study scenario: cause A grows by
// 0.0005 log units per day, cause B is flat
func DefaultBreachConfig() BreachGeneratorConfig {
	return BreachGeneratorConfig{
		Rows: 10000,
		Causes: []CauseProfile{
			{Name: "B", Weight: 1, BaseLog: 11, DailySlope: 0},
			{Name: "A", Weight: 1, BaseLog: 11, DailySlope: 0.0005},
		},
		Sectors:   []string{"Healthcare", "Finance", "Retail", "Education", "Government"},
		StartDate: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC),
		NoiseSD:   1.0,
		Seed:      42,
	}
}

// BreachDataGenerator generates breach records with known per-cause trends
type BreachDataGenerator struct {
	config BreachGeneratorConfig
	rng    *rand.Rand
}

// NewBreachDataGenerator creates a new breach data generator
func NewBreachDataGenerator(config BreachGeneratorConfig) *BreachDataGenerator {
	return &BreachDataGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(uint64(config.Seed), 0x5eed)),
	}
}

// GenerateRecords generates config.Rows records. Row i's cost is
// exp(BaseLog + DailySlope*day_index + noise) with normal noise.
func (g *BreachDataGenerator) GenerateRecords() ([]breach.Record, error) {
	cfg := g.config
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be positive, got %d", cfg.Rows)
	}
	if len(cfg.Causes) == 0 {
		return nil, fmt.Errorf("at least one cause profile is required")
	}
	span := int(cfg.EndDate.Sub(cfg.StartDate).Hours() / 24)
	if span < 1 {
		return nil, fmt.Errorf("end date must be after start date")
	}

	totalWeight := 0.0
	for _, c := range cfg.Causes {
		if c.Weight <= 0 {
			return nil, fmt.Errorf("cause %q has non-positive weight", c.Name)
		}
		totalWeight += c.Weight
	}

	records := make([]breach.Record, cfg.Rows)
	for i := range records {
		// The first rows cycle through the profiles so encounter order matches config order
		var profile CauseProfile
		if i < len(cfg.Causes) {
			profile = cfg.Causes[i]
		} else {
			profile = g.pickCause(totalWeight)
		}
		day := g.rng.IntN(span + 1)
		date := cfg.StartDate.AddDate(0, 0, day)
		logCost := profile.BaseLog + profile.DailySlope*float64(day) + cfg.NoiseSD*g.rng.NormFloat64()
		amount := math.Round(math.Exp(logCost)*100) / 100

		cause := profile.Name
		if i >= len(cfg.Causes) && cfg.MissingCauseRate > 0 && g.rng.Float64() < cfg.MissingCauseRate {
			cause = ""
		}
		sector := ""
		if len(cfg.Sectors) > 0 {
			sector = cfg.Sectors[g.rng.IntN(len(cfg.Sectors))]
		}
		affected := int64(math.Exp(7 + 1.5*g.rng.NormFloat64()))

		records[i] = breach.NewRecord(fmt.Sprintf("breach_%05d", i+1), date, cause, sector, affected, amount)
	}
	return records, nil
}

// GenerateRecordSet wraps GenerateRecords into a validated record set
func (g *BreachDataGenerator) GenerateRecordSet() (*breach.RecordSet, error) {
	records, err := g.GenerateRecords()
	if err != nil {
		return nil, err
	}
	return breach.NewRecordSet(records)
}

func (g *BreachDataGenerator) pickCause(total float64) CauseProfile {
	x := g.rng.Float64() * total
	for _, c := range g.config.Causes {
		if x < c.Weight {
			return c
		}
		x -= c.Weight
	}
	return g.config.Causes[len(g.config.Causes)-1]
}
