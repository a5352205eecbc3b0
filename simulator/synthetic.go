package simulator

import (
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
)

// SyntheticConfig parameterizes generated workloads and capacity forecasts
type SyntheticConfig struct {
	Seed int64 `json:"seed"` // Base seed of every generator; 0 randomizes cloud cover

	// Node
	Capacity float64 `json:"capacity"` // Capacity of an idle node per step (mch)
	BaseLoad float64 `json:"baseLoad"` // Mean fraction of the node used by other tenants (0-1)

	// Renewable supply
	Cloudiness      float64  `json:"cloudiness"`      // Mean fraction of solar output lost to clouds (0-1)
	ForecastHorizon Duration `json:"forecastHorizon"` // How far ahead each forecast reaches
	ForecastError   float64  `json:"forecastError"`   // Relative prediction error after one hour

	// Jobs
	ArrivalsPerHour float64          `json:"arrivalsPerHour"` // Poisson arrival rate
	SizeMin         float64          `json:"sizeMin"`         // Smallest job (mch)
	SizeMax         float64          `json:"sizeMax"`         // Largest job (mch)
	SizeDist        DistributionType `json:"sizeDist"`
	SlackMin        Duration         `json:"slackMin"` // Shortest arrival-to-deadline interval
	SlackMax        Duration         `json:"slackMax"` // Longest arrival-to-deadline interval
	SlackDist       DistributionType `json:"slackDist"`
}

// DefaultSyntheticConfig returns a workload that keeps a node busy but not
// saturated on sunny days
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:            1,
		Capacity:        100,
		BaseLoad:        0.4,
		Cloudiness:      0.3,
		ForecastHorizon: Duration(48 * time.Hour),
		ForecastError:   0.05,
		ArrivalsPerHour: 1,
		SizeMin:         10,
		SizeMax:         400,
		SizeDist:        DistExponential,
		SlackMin:        Duration(2 * time.Hour),
		SlackMax:        Duration(18 * time.Hour),
		SlackDist:       DistUniform,
	}
}

// Validate checks the generator parameters against the simulation config.
// Forecasts must reach past the speculative horizon or admission runs would
// step off the end of the table.
func (sc *SyntheticConfig) Validate(cfg Config) error {
	var result *multierror.Error
	if sc.Capacity <= 0 {
		result = multierror.Append(result, ErrInvalidConfig("capacity must be > 0"))
	}
	if sc.BaseLoad < 0 || sc.BaseLoad > 1 {
		result = multierror.Append(result, ErrInvalidConfig("baseLoad must be between 0 and 1"))
	}
	if sc.Cloudiness < 0 || sc.Cloudiness > 1 {
		result = multierror.Append(result, ErrInvalidConfig("cloudiness must be between 0 and 1"))
	}
	if time.Duration(sc.ForecastHorizon) <= cfg.HorizonDuration() {
		result = multierror.Append(result, ErrInvalidConfig("forecastHorizon must exceed speculativeHorizon"))
	}
	if sc.ArrivalsPerHour < 0 {
		result = multierror.Append(result, ErrInvalidConfig("arrivalsPerHour must be >= 0"))
	}
	if sc.SizeMin <= 0 || sc.SizeMax < sc.SizeMin {
		result = multierror.Append(result, ErrInvalidConfig("need 0 < sizeMin <= sizeMax"))
	}
	if sc.SlackMin < Duration(time.Second) || sc.SlackMax < sc.SlackMin {
		result = multierror.Append(result, ErrInvalidConfig("need 1s <= slackMin <= slackMax"))
	}
	return result.ErrorOrNil()
}

// supplyModel derives actual free and renewable-excess capacity per step from
// a daily load curve, a solar curve and per-step cloud cover.
type supplyModel struct {
	cfg    Config
	sc     SyntheticConfig
	start  time.Time
	step   time.Duration
	clouds []float64
}

func newSupplyModel(cfg Config, sc SyntheticConfig, steps int) *supplyModel {
	rng := newRand(sc.Seed)
	clouds := make([]float64, steps)
	// Clouds drift slowly so that neighbouring steps are correlated
	c := sc.Cloudiness
	for i := range clouds {
		c += (rng.Float64() - 0.5) * 0.2
		c += (sc.Cloudiness - c) * 0.05
		clouds[i] = math.Max(0, math.Min(1, c))
	}
	return &supplyModel{
		cfg:    cfg,
		sc:     sc,
		start:  RoundDown(cfg.Start, cfg.StepDuration()),
		step:   cfg.StepDuration(),
		clouds: clouds,
	}
}

// actual returns (u_free, u_reep) of the step ending at t.
func (m *supplyModel) actual(t time.Time) (free, reep float64) {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	load := m.sc.BaseLoad * (1 + 0.3*math.Sin(2*math.Pi*(hour-9)/24))
	load = math.Max(0, math.Min(1, load))
	free = m.sc.Capacity * (1 - load)

	idx := int(t.Sub(m.start) / m.step)
	cloud := m.sc.Cloudiness
	if idx >= 0 && idx < len(m.clouds) {
		cloud = m.clouds[idx]
	}
	solar := m.cfg.SolarMax * math.Max(0, math.Sin(math.Pi*(hour-6)/12)) * (1 - cloud)
	dynamic := m.cfg.PowerMax - m.cfg.PowerStatic
	consumed := m.cfg.PowerStatic + dynamic*load
	excess := math.Max(0, solar-consumed)
	reep = m.sc.Capacity * excess / dynamic
	return free, reep
}

// GenerateForecasts produces one forecast per step between cfg.Start and
// cfg.Final, each covering sc.ForecastHorizon. Prediction error grows with
// lead time; the conservative and optimistic variants bracket the expected one.
func GenerateForecasts(cfg Config, sc SyntheticConfig) []ForecastRecord {
	step := cfg.StepDuration()
	horizon := time.Duration(sc.ForecastHorizon)
	first := RoundDown(cfg.Start, step)
	steps := int(cfg.Final.Add(horizon).Sub(first)/step) + 2
	model := newSupplyModel(cfg, sc, steps)
	rng := newRand(sc.Seed + 1)

	var out []ForecastRecord
	for issued := first; !issued.After(cfg.Final); issued = issued.Add(step) {
		for target := issued.Add(step); !target.After(issued.Add(horizon)); target = target.Add(step) {
			free, reep := model.actual(target)
			lead := target.Sub(issued).Hours()
			spread := sc.ForecastError * math.Sqrt(lead)
			expected := math.Max(0, reep*(1+rng.NormFloat64()*spread))
			out = append(out, ForecastRecord{
				IssuedAt:              issued,
				TargetAt:              target,
				UFree:                 free,
				UFreePred:             math.Max(0, free*(1+rng.NormFloat64()*spread/2)),
				UReep:                 reep,
				UReepPredExpected:     expected,
				UReepPredConservative: math.Max(0, expected*(1-spread)),
				UReepPredOptimistic:   expected * (1 + spread),
			})
		}
	}
	return out
}

// GenerateJobs produces Poisson arrivals strictly between cfg.Start and
// cfg.End whose deadlines fall before cfg.Final.
func GenerateJobs(cfg Config, sc SyntheticConfig) ([]*Job, error) {
	rng := newRand(sc.Seed + 2)
	sizeDist := NewDistribution(sc.SizeDist)
	slackDist := NewDistribution(sc.SlackDist)
	if sc.ArrivalsPerHour <= 0 {
		return nil, nil
	}

	var jobs []*Job
	t := cfg.Start
	for id := 0; ; {
		gap := rng.ExpFloat64() / sc.ArrivalsPerHour
		t = t.Add(time.Duration(gap * float64(time.Hour))).Truncate(time.Second)
		if !t.Before(cfg.End) {
			break
		}
		if !t.After(cfg.Start) {
			continue
		}
		size := sizeDist.Sample(rng, sc.SizeMin, sc.SizeMax)
		slack := slackDist.Sample(rng, float64(sc.SlackMin), float64(sc.SlackMax))
		deadline := t.Add(time.Duration(slack)).Truncate(time.Second)
		if !deadline.Before(cfg.Final) {
			continue
		}
		job, err := NewJob(id, t, size, deadline)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
		id++
	}
	return jobs, nil
}
