package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// DistributionType represents different probability distributions
type DistributionType int

const (
	DistUniform DistributionType = iota
	DistExponential
	DistFixed
)

// String returns the string representation of DistributionType
func (dt DistributionType) String() string {
	switch dt {
	case DistUniform:
		return "uniform"
	case DistExponential:
		return "exponential"
	case DistFixed:
		return "fixed"
	default:
		return fmt.Sprintf("unknown(%d)", int(dt))
	}
}

// ParseDistributionType parses a string into a DistributionType
func ParseDistributionType(s string) (DistributionType, error) {
	switch s {
	case "uniform":
		return DistUniform, nil
	case "exponential":
		return DistExponential, nil
	case "fixed":
		return DistFixed, nil
	default:
		return DistUniform, fmt.Errorf("invalid DistributionType: %s (must be 'uniform', 'exponential' or 'fixed')", s)
	}
}

// MarshalJSON implements json.Marshaler for DistributionType
func (dt DistributionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON implements json.Unmarshaler for DistributionType
func (dt *DistributionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDistributionType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// Distribution samples values in a closed range
type Distribution interface {
	Sample(rng *rand.Rand, min, max float64) float64
}

// UniformDistribution samples uniformly between min and max
type UniformDistribution struct{}

func (d *UniformDistribution) Sample(rng *rand.Rand, min, max float64) float64 {
	if min >= max {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// ExponentialDistribution samples with exponential bias toward min
type ExponentialDistribution struct {
	Lambda float64 // Rate parameter (higher = more skewed toward min)
}

func (d *ExponentialDistribution) Sample(rng *rand.Rand, min, max float64) float64 {
	if min >= max {
		return min
	}

	// Inverse transform sampling: X = -ln(U) / lambda
	u := rng.Float64()
	if u == 0 {
		u = 1e-10 // Avoid log(0)
	}
	x := -math.Log(u) / d.Lambda

	// 95% of the mass lies below 3/lambda; clamp the tail at 6/lambda
	normalized := x / (6.0 / d.Lambda)
	if normalized > 1.0 {
		normalized = 1.0
	}
	return min + normalized*(max-min)
}

// FixedDistribution always samples the same position in the range
type FixedDistribution struct {
	Percentage float64 // Position in the range (0.0 to 1.0)
}

func (d *FixedDistribution) Sample(_ *rand.Rand, min, max float64) float64 {
	if min >= max {
		return min
	}
	p := math.Max(0, math.Min(1, d.Percentage))
	return min + p*(max-min)
}

// NewDistribution creates a distribution based on type
func NewDistribution(distType DistributionType) Distribution {
	switch distType {
	case DistExponential:
		return &ExponentialDistribution{Lambda: 0.5}
	case DistFixed:
		return &FixedDistribution{Percentage: 0.5}
	default:
		return &UniformDistribution{}
	}
}

// newRand returns a seeded generator; seed 0 picks a random seed.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewSource(rand.Int63()))
	}
	return rand.New(rand.NewSource(seed))
}
