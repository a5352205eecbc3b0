package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miretskiy/cucumber/simulator"
)

func testConfig() simulator.Config {
	cfg := simulator.DefaultConfig()
	cfg.Start = time.Date(2022, 1, 18, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2022, 1, 19, 0, 0, 0, 0, time.UTC)
	cfg.Final = time.Date(2022, 1, 20, 0, 0, 0, 0, time.UTC)
	return cfg
}

func ts(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

const requests = `,size,deadline
2022-01-17 23:00:00,10.5,2022-01-18 02:00:00
2022-01-18 00:00:00,20,2022-01-18 02:00:00
2022-01-18 00:03:12,30,2022-01-18 06:00:00
2022-01-18 23:59:59,40,2022-01-19 12:00:00
2022-01-19 00:00:00,50,2022-01-19 12:00:00
2022-01-18 12:00:00,60,2022-01-20 00:00:00
`

func TestReadJobs(t *testing.T) {
	jobs, err := ReadJobs("requests.csv", strings.NewReader(requests), testConfig())
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, 2, jobs[0].ID(), "ids count dropped rows")
	assert.Equal(t, ts("2022-01-18 00:03:12"), jobs[0].Arrival())
	assert.Equal(t, 30.0, jobs[0].Size())
	assert.Equal(t, ts("2022-01-18 06:00:00"), jobs[0].Deadline())
	assert.Equal(t, 3, jobs[1].ID())
}

func TestRequestsRoundTrip(t *testing.T) {
	cfg := testConfig()
	jobs, err := ReadJobs("requests.csv", strings.NewReader(requests), cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRequests(&buf, jobs))
	again, err := ReadJobs("again.csv", &buf, cfg)
	require.NoError(t, err)
	require.Len(t, again, len(jobs))
	for i := range jobs {
		// IDs are renumbered by row
		assert.Equal(t, i, again[i].ID())
		assert.Equal(t, jobs[i].Arrival(), again[i].Arrival())
		assert.Equal(t, jobs[i].Size(), again[i].Size())
		assert.Equal(t, jobs[i].Deadline(), again[i].Deadline())
	}
}

func TestReadJobsErrors(t *testing.T) {
	cfg := testConfig()

	_, err := ReadJobs("r.csv", strings.NewReader(",size\n"), cfg)
	require.ErrorContains(t, err, "missing columns deadline")

	_, err = ReadJobs("r.csv", strings.NewReader(",size,deadline\n2022-01-18 01:00:00,abc,2022-01-18 02:00:00\n"), cfg)
	require.ErrorContains(t, err, "line 2")

	_, err = ReadJobs("r.csv", strings.NewReader(",size,deadline\n2022-01-18 01:00:00,1,tomorrow\n"), cfg)
	require.ErrorContains(t, err, "column deadline")

	_, err = ReadJobs("r.csv", strings.NewReader(",size,deadline\n2022-01-18 03:00:00,1,2022-01-18 02:00:00\n"), cfg)
	require.ErrorIs(t, err, simulator.ErrInvalidJob)
}

func TestForecastsRoundTrip(t *testing.T) {
	cfg := testConfig()
	records := []simulator.ForecastRecord{
		{
			IssuedAt: ts("2022-01-17 23:50:00"), TargetAt: ts("2022-01-18 00:00:00"),
			UFree: 1, UFreePred: 1, UReep: 1, UReepPredExpected: 1, UReepPredConservative: 1, UReepPredOptimistic: 1,
		},
		{
			IssuedAt: ts("2022-01-18 00:00:00"), TargetAt: ts("2022-01-18 00:10:00"),
			UFree: 80.25, UFreePred: 70, UReep: 30, UReepPredExpected: 25, UReepPredConservative: 15.5, UReepPredOptimistic: 90,
		},
		{
			IssuedAt: ts("2022-01-20 00:00:00"), TargetAt: ts("2022-01-20 00:10:00"),
			UFree: 2, UFreePred: 2, UReep: 2, UReepPredExpected: 2, UReepPredConservative: 2, UReepPredOptimistic: 2,
		},
		{
			IssuedAt: ts("2022-01-20 00:10:00"), TargetAt: ts("2022-01-20 00:20:00"),
			UFree: 3, UFreePred: 3, UReep: 3, UReepPredExpected: 3, UReepPredConservative: 3, UReepPredOptimistic: 3,
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteForecasts(&buf, records))

	got, err := ReadForecasts("u.csv", &buf, cfg)
	require.NoError(t, err)
	// Issuance window is inclusive at both ends
	require.Empty(t, cmp.Diff(records[1:3], got))
}

func TestReadForecastsColumnsByName(t *testing.T) {
	data := `issued,target,u_reep,u_free,u_reep_pred_optimistic,u_free_pred,u_reep_pred_conservative,u_reep_pred_expected
2022-01-18 00:00:00,2022-01-18 00:10:00,3,1,6,2,5,4
`
	got, err := ReadForecasts("u.csv", strings.NewReader(data), testConfig())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, simulator.ForecastRecord{
		IssuedAt:              ts("2022-01-18 00:00:00"),
		TargetAt:              ts("2022-01-18 00:10:00"),
		UFree:                 1,
		UFreePred:             2,
		UReep:                 3,
		UReepPredExpected:     4,
		UReepPredConservative: 5,
		UReepPredOptimistic:   6,
	}, got[0])

	_, err = ReadForecasts("u.csv", strings.NewReader("a,b,u_free\n"), testConfig())
	require.ErrorContains(t, err, "u_free_pred")
}

func TestWriteJobRecords(t *testing.T) {
	finish := ts("2022-01-18 00:05:00")
	records := []simulator.JobRecord{
		{ID: 1, Status: simulator.StatusSuccess, Size: 50, Arrival: ts("2022-01-18 00:00:00"), FinishTime: &finish, Deadline: ts("2022-01-18 00:10:00")},
		{ID: 2, Status: simulator.StatusRejected, Size: 12.5, Arrival: ts("2022-01-18 00:01:00"), Deadline: ts("2022-01-18 00:10:00")},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJobRecords(&buf, records))
	require.Equal(t, `id,status,mch,arrive time,finish time,deadline
1,SUCCESS,50,2022-01-18 00:00:00,2022-01-18 00:05:00,2022-01-18 00:10:00
2,REJECTED,12.5,2022-01-18 00:01:00,-,2022-01-18 00:10:00
`, buf.String())
}

func TestWriteCapacityTable(t *testing.T) {
	table := simulator.NewCapacityTable(
		simulator.CapacityRecord{At: ts("2022-01-18 00:20:00"), FreeRenewable: 10, Free: 20, RenewableExcess: 10, Used: 0},
		simulator.CapacityRecord{At: ts("2022-01-18 00:10:00"), FreeRenewable: 30, Free: 100, RenewableExcess: 30, Used: 42.5},
	)
	var buf bytes.Buffer
	require.NoError(t, WriteCapacityTable(&buf, table))
	require.Equal(t, `datetime,u_freep,u_free,u_reep,u_used
2022-01-18 00:10:00,30,100,30,42.5
2022-01-18 00:20:00,10,20,10,0
`, buf.String())
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2022, 1, 18, 6, 30, 0, 0, time.UTC)
	for _, s := range []string{"2022-01-18 06:30:00", "2022-01-18 06:30:00.000", "2022-01-18T06:30:00Z", "2022-01-18 07:30:00+01:00"} {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		require.True(t, want.Equal(got), s)
	}
	_, err := ParseTimestamp("18/01/2022")
	require.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	path := JobsPath(dir, "tiny")
	require.Equal(t, filepath.Join(dir, "requests_tiny.csv"), path)

	records := []simulator.JobRecord{{ID: 1, Status: simulator.StatusRunning, Size: 1, Arrival: ts("2022-01-18 01:00:00"), Deadline: ts("2022-01-18 02:00:00")}}
	require.NoError(t, SaveJobRecords(JobResultsPath(dir, "tiny", "berlin", simulator.PolicyBaseline1), records))
	require.FileExists(t, filepath.Join(dir, "jobs_tiny_berlin_Baseline 1.csv"))

	_, err := LoadJobs(path, cfg)
	require.Error(t, err, "missing file")

	jobs, err := ReadJobs("requests.csv", strings.NewReader(requests), cfg)
	require.NoError(t, err)
	require.NoError(t, SaveRequests(path, jobs))
	loaded, err := LoadJobs(path, cfg)
	require.NoError(t, err)
	require.Len(t, loaded, len(jobs))

	forecasts := []simulator.ForecastRecord{{IssuedAt: cfg.Start, TargetAt: cfg.Start.Add(10 * time.Minute), UFree: 5}}
	fpath := ForecastsPath(dir, "tiny", "berlin")
	require.NoError(t, SaveForecasts(fpath, forecasts))
	loadedForecasts, err := LoadForecasts(fpath, cfg)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(forecasts, loadedForecasts))
}
