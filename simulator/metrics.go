package simulator

import (
	"fmt"
	"time"
)

// DecisionPath identifies which branch of the admission controller decided
type DecisionPath int

const (
	PathNaive      DecisionPath = iota // Greedy rule, no lookahead
	PathFastReject                     // Aggregate demand exceeds forecast renewable capacity
	PathFastAccept                     // All queued jobs share one deadline and fit
	PathSimulated                      // Bounded speculative simulation
)

func (p DecisionPath) String() string {
	switch p {
	case PathNaive:
		return "naive"
	case PathFastReject:
		return "fast_reject"
	case PathFastAccept:
		return "fast_accept"
	case PathSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// MarshalText lets DecisionPath key JSON maps by name
func (p DecisionPath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for DecisionPath
func (p *DecisionPath) UnmarshalText(text []byte) error {
	for _, candidate := range []DecisionPath{PathNaive, PathFastReject, PathFastAccept, PathSimulated} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid DecisionPath: %s", text)
}

// Metrics tracks admission and execution statistics of a run
type Metrics struct {
	Timestamp time.Time `json:"timestamp"` // Simulated time of the last update

	// Admission
	Accepted        int                  `json:"accepted"`
	Rejected        int                  `json:"rejected"`
	DecisionsByPath map[DecisionPath]int `json:"decisionsByPath"`

	// Execution
	Succeeded         int     `json:"succeeded"`
	Missed            int     `json:"missed"`
	GridFallbackSteps int     `json:"gridFallbackSteps"` // Steps where the deadline-risk override granted grid capacity
	WorkDoneMCH       float64 `json:"workDoneMCH"`       // Capacity consumed by the real executor, summed over steps
}

// NewMetrics creates an empty metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{DecisionsByPath: make(map[DecisionPath]int)}
}

// RecordDecision counts one admission decision
func (m *Metrics) RecordDecision(now time.Time, d AdmissionDecision) {
	m.Timestamp = now
	if d.Accepted {
		m.Accepted++
	} else {
		m.Rejected++
	}
	m.DecisionsByPath[d.Path]++
}

// RecordFinish counts a finished job
func (m *Metrics) RecordFinish(now time.Time, metDeadline bool) {
	m.Timestamp = now
	if metDeadline {
		m.Succeeded++
	} else {
		m.Missed++
	}
}

// RecordUsage adds consumed capacity
func (m *Metrics) RecordUsage(now time.Time, mch float64, gridFallback bool) {
	m.Timestamp = now
	m.WorkDoneMCH += mch
	if gridFallback {
		m.GridFallbackSteps++
	}
}

// Clone returns a deep copy of the metrics
func (m *Metrics) Clone() *Metrics {
	c := *m
	c.DecisionsByPath = make(map[DecisionPath]int, len(m.DecisionsByPath))
	for k, v := range m.DecisionsByPath {
		c.DecisionsByPath[k] = v
	}
	return &c
}

// Summary is the aggregate outcome of a run
type Summary struct {
	Policy        Policy  `json:"policy"`
	Success       int     `json:"success"`
	Rejected      int     `json:"rejected"`
	Miss          int     `json:"miss"`
	Running       int     `json:"running"`
	GridMCH       float64 `json:"gridMCH"`       // Work powered by grid energy (mch)
	RenewableMCH  float64 `json:"renewableMCH"`  // Work powered by renewable excess energy (mch)
	SimulatedRuns int     `json:"simulatedRuns"` // Admission decisions that needed a speculative run
}

// Summarize aggregates job statuses and the energy split of the final
// capacity table. Per-step figures are converted to mch by the step length.
func Summarize(p Policy, records []JobRecord, table *CapacityTable, step time.Duration, m *Metrics) Summary {
	s := Summary{Policy: p}
	for _, r := range records {
		switch r.Status {
		case StatusSuccess:
			s.Success++
		case StatusRejected:
			s.Rejected++
		case StatusMiss:
			s.Miss++
		default:
			s.Running++
		}
	}
	hours := step.Hours()
	for _, r := range table.Records() {
		grid := r.GridUsage()
		s.GridMCH += grid * hours
		s.RenewableMCH += (r.Used - grid) * hours
	}
	if m != nil {
		s.SimulatedRuns = m.DecisionsByPath[PathSimulated]
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: Success/Rejected/Miss: %d/%d/%d at %.2f mch powered by grid energy",
		s.Policy, s.Success, s.Rejected, s.Miss, s.GridMCH)
}
