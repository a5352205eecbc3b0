package simulator

import (
	"encoding/json"
	"fmt"
)

// Policy selects how admission decisions are made and which forecast columns
// they see.
type Policy int

const (
	PolicyBaseline1    Policy = iota // Perfect forecasts, renewable limit ignored
	PolicyBaseline2                  // Perfect forecasts, renewable limited
	PolicyNaive                      // No forecasts, greedy
	PolicyExpected                   // Predicted renewable excess, expected case
	PolicyConservative               // Predicted renewable excess, conservative case
	PolicyOptimistic                 // Predicted renewable excess, optimistic case
)

// AllPolicies lists every policy in sweep order.
var AllPolicies = []Policy{
	PolicyBaseline1,
	PolicyBaseline2,
	PolicyNaive,
	PolicyExpected,
	PolicyConservative,
	PolicyOptimistic,
}

// String returns the external identifier of the policy
func (p Policy) String() string {
	switch p {
	case PolicyBaseline1:
		return "Baseline 1"
	case PolicyBaseline2:
		return "Baseline 2"
	case PolicyNaive:
		return "Naive"
	case PolicyExpected:
		return "Expected"
	case PolicyConservative:
		return "Conservative"
	case PolicyOptimistic:
		return "Optimistic"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePolicy parses an external identifier into a Policy
func ParsePolicy(s string) (Policy, error) {
	for _, p := range AllPolicies {
		if p.String() == s {
			return p, nil
		}
	}
	return PolicyNaive, wrapf(ErrUnknownPolicy, "%q", s)
}

// MarshalJSON implements json.Marshaler for Policy
func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler for Policy
func (p *Policy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePolicy(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// usesPerfectForecasts reports whether admission sees the realized columns.
func (p Policy) usesPerfectForecasts() bool {
	return p == PolicyBaseline1 || p == PolicyBaseline2
}

// ignoresRenewableLimit reports whether all free capacity counts as freep.
func (p Policy) ignoresRenewableLimit() bool {
	return p == PolicyBaseline1
}
