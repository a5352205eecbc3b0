package simulator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// A single job on an idle node finishes within its step
func TestExperimentSingleJob(t *testing.T) {
	cfg := testConfig(PolicyExpected)
	cfg.End = at(6)
	cfg.Final = at(12)
	set := NewForecastSet(constForecasts(t0, 18, 150, 100, 100))
	job := mustJob(t, 0, t0, 50, at(1))

	x, err := NewExperiment(cfg, []*Job{job}, set)
	require.NoError(t, err)
	var decisions []AdmissionDecision
	x.OnDecision(func(_ *Job, d AdmissionDecision) { decisions = append(decisions, d) })
	var finished []*Job
	x.OnFinish(func(j *Job) { finished = append(finished, j) })

	result, err := x.Run()
	require.NoError(t, err)

	require.Equal(t, []AdmissionDecision{{Accepted: true, Path: PathFastAccept}}, decisions)
	require.Len(t, finished, 1)
	require.Len(t, result.Jobs, 1)
	require.Equal(t, StatusSuccess, result.Jobs[0].Status)
	require.NotNil(t, result.Jobs[0].FinishTime)
	require.Equal(t, t0.Add(5*time.Minute), *result.Jobs[0].FinishTime)

	r, ok := result.Capacity.Get(at(1))
	require.True(t, ok)
	require.Equal(t, 50.0, r.Used)

	require.Equal(t, 1, result.Summary.Success)
	require.Equal(t, 0.0, result.Summary.GridMCH)
	require.InDelta(t, 50.0/6, result.Summary.RenewableMCH, 1e-9)
	require.Equal(t, 1, result.Metrics.DecisionsByPath[PathFastAccept])
}

func TestExperimentInvalidConfig(t *testing.T) {
	cfg := testConfig(PolicyExpected)
	cfg.End = cfg.Start
	_, err := NewExperiment(cfg, nil, NewForecastSet(nil))
	require.Error(t, err)
}

func syntheticRun(t *testing.T, p Policy) *Result {
	t.Helper()
	cfg := testConfig(p)
	cfg.End = t0.Add(12 * time.Hour)
	cfg.Final = t0.Add(24 * time.Hour)
	sc := DefaultSyntheticConfig()
	sc.Seed = 7
	sc.ArrivalsPerHour = 2
	require.NoError(t, sc.Validate(cfg))

	jobs, err := GenerateJobs(cfg, sc)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	x, err := NewExperiment(cfg, jobs, NewForecastSet(GenerateForecasts(cfg, sc)))
	require.NoError(t, err)
	result, err := x.Run()
	require.NoError(t, err)
	return result
}

func TestExperimentDeterministicReplay(t *testing.T) {
	for _, p := range AllPolicies {
		t.Run(p.String(), func(t *testing.T) {
			first := syntheticRun(t, p)
			second := syntheticRun(t, p)
			require.Empty(t, cmp.Diff(first.Jobs, second.Jobs))
			require.Empty(t, cmp.Diff(first.Capacity.Records(), second.Capacity.Records()))
			require.Equal(t, first.Summary, second.Summary)
		})
	}
}

func TestExperimentInvariants(t *testing.T) {
	for _, p := range AllPolicies {
		t.Run(p.String(), func(t *testing.T) {
			result := syntheticRun(t, p)
			s := result.Summary
			require.Equal(t, len(result.Jobs), s.Success+s.Rejected+s.Miss+s.Running)
			require.Equal(t, result.Metrics.Accepted+result.Metrics.Rejected, len(result.Jobs))
			require.Equal(t, result.Metrics.Rejected, s.Rejected)
			for _, r := range result.Capacity.Records() {
				require.GreaterOrEqual(t, r.RemainingFree(), -capacityEpsilon, "step %s", r.At)
				require.GreaterOrEqual(t, r.Used, 0.0)
			}
			for _, j := range result.Jobs {
				if j.FinishTime != nil {
					require.True(t, j.FinishTime.After(j.Arrival), "job %d", j.ID)
				}
			}
		})
	}
}
