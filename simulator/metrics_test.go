package simulator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	finish := at(2)
	records := []JobRecord{
		{ID: 1, Status: StatusSuccess, FinishTime: &finish},
		{ID: 2, Status: StatusRejected},
		{ID: 3, Status: StatusMiss, FinishTime: &finish},
		{ID: 4, Status: StatusRunning},
	}
	table := NewCapacityTable(
		CapacityRecord{At: at(1), Free: 100, RenewableExcess: 40, Used: 60},
		CapacityRecord{At: at(2), Free: 100, RenewableExcess: 40, Used: 30},
	)
	m := NewMetrics()
	m.RecordDecision(t0, AdmissionDecision{Accepted: true, Path: PathSimulated})
	m.RecordDecision(t0, AdmissionDecision{Accepted: false, Path: PathFastReject})

	s := Summarize(PolicyExpected, records, table, testStep, m)
	require.Equal(t, 1, s.Success)
	require.Equal(t, 1, s.Rejected)
	require.Equal(t, 1, s.Miss)
	require.Equal(t, 1, s.Running)
	require.InDelta(t, 20.0/6, s.GridMCH, 1e-9)
	require.InDelta(t, 70.0/6, s.RenewableMCH, 1e-9)
	require.Equal(t, 1, s.SimulatedRuns)
	require.Equal(t, "Expected: Success/Rejected/Miss: 1/1/1 at 3.33 mch powered by grid energy", s.String())
}

func TestMetricsClone(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(t0, AdmissionDecision{Accepted: true, Path: PathNaive})
	c := m.Clone()
	m.RecordDecision(at(1), AdmissionDecision{Accepted: true, Path: PathNaive})
	m.RecordUsage(at(1), 12, true)

	require.Equal(t, 1, c.DecisionsByPath[PathNaive])
	require.Equal(t, 1, c.Accepted)
	require.Equal(t, 0.0, c.WorkDoneMCH)
	require.Equal(t, 2, m.DecisionsByPath[PathNaive])
	require.Equal(t, 1, m.GridFallbackSteps)
}

func TestMetricsJSON(t *testing.T) {
	m := NewMetrics()
	m.RecordDecision(t0, AdmissionDecision{Accepted: false, Path: PathFastReject})
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(data), `"fast_reject":1`)

	var decoded Metrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 1, decoded.DecisionsByPath[PathFastReject])
}
