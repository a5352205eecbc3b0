package simulator

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// TimestampLayout is the timestamp format used by every dataset and result file.
const TimestampLayout = "2006-01-02 15:04:05"

// Duration is a time.Duration that reads and writes JSON as a Go duration
// string ("10m", "24h").
type Duration time.Duration

// MarshalJSON implements json.Marshaler for Duration
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler for Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all simulation parameters
type Config struct {
	// Simulation window
	Start time.Time `json:"start"` // First instant of the experiment; earlier arrivals/forecasts are dropped
	End   time.Time `json:"end"`   // Simulation stops here; last admissible arrival is before End
	Final time.Time `json:"final"` // Deadlines must fall before Final (End + one day by default)

	// Time quantization
	Step               Duration `json:"step"`               // Capacity bucket size (default 10m, must divide an hour)
	SpeculativeHorizon Duration `json:"speculativeHorizon"` // Bound on speculative admission runs (default 24h)

	Policy Policy `json:"policy"` // Admission/forecast policy

	// Node power model, used by the synthetic generator
	PowerStatic float64 `json:"powerStatic"` // Idle power draw (W)
	PowerMax    float64 `json:"powerMax"`    // Power draw at full load (W)
	SolarMax    float64 `json:"solarMax"`    // Peak solar panel output (W)

	// Logger receives structured simulation logs. Nil discards them.
	Logger *logrus.Entry `json:"-"`
}

// DefaultConfig returns the parameters of the reference evaluation
func DefaultConfig() Config {
	final := time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC)
	return Config{
		Start:              time.Date(2022, 1, 18, 0, 0, 0, 0, time.UTC),
		End:                final.Add(-24 * time.Hour),
		Final:              final,
		Step:               Duration(10 * time.Minute),
		SpeculativeHorizon: Duration(24 * time.Hour),
		Policy:             PolicyExpected,
		PowerStatic:        30,
		PowerMax:           180,
		SolarMax:           400,
	}
}

// StepDuration returns Step as a time.Duration
func (c *Config) StepDuration() time.Duration { return time.Duration(c.Step) }

// HorizonDuration returns SpeculativeHorizon as a time.Duration
func (c *Config) HorizonDuration() time.Duration { return time.Duration(c.SpeculativeHorizon) }

// Validate checks if configuration values are reasonable. Every violation is
// reported, not just the first.
func (c *Config) Validate() error {
	var result *multierror.Error
	step := c.StepDuration()
	if step <= 0 {
		result = multierror.Append(result, ErrInvalidConfig("step must be > 0"))
	} else if time.Hour%step != 0 {
		result = multierror.Append(result, ErrInvalidConfig("step must divide one hour"))
	}
	if c.HorizonDuration() <= 0 {
		result = multierror.Append(result, ErrInvalidConfig("speculativeHorizon must be > 0"))
	}
	if !c.Start.Before(c.End) {
		result = multierror.Append(result, ErrInvalidConfig("start must be before end"))
	}
	if c.Final.Before(c.End) {
		result = multierror.Append(result, ErrInvalidConfig("final must not be before end"))
	}
	switch c.Policy {
	case PolicyBaseline1, PolicyBaseline2, PolicyNaive, PolicyExpected, PolicyConservative, PolicyOptimistic:
	default:
		result = multierror.Append(result, wrapf(ErrUnknownPolicy, "policy %d", int(c.Policy)))
	}
	if c.PowerMax <= c.PowerStatic {
		result = multierror.Append(result, ErrInvalidConfig("powerMax must be > powerStatic"))
	}
	return result.ErrorOrNil()
}

// logger returns the configured logger or a discarding one.
func (c *Config) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger()
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
