package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/miretskiy/cucumber/simulator"
)

func TestSimConfigFromFlags(t *testing.T) {
	viper.Set("horizon", 12*time.Hour)
	defer viper.Set("horizon", nil)

	cfg, err := simConfig()
	require.NoError(t, err)
	require.Equal(t, simulator.DefaultConfig().Start, cfg.Start)
	require.Equal(t, 12*time.Hour, cfg.HorizonDuration())

	viper.Set("start", "yesterday")
	defer viper.Set("start", nil)
	_, err = simConfig()
	require.ErrorContains(t, err, "--start")
}

// A generated dataset written to disk replays to the same results
func TestSyntheticThenSweep(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "results")
	data := filepath.Join(dir, "data")
	settings := map[string]interface{}{
		"start":      "2022-01-18 00:00:00",
		"end":        "2022-01-18 06:00:00",
		"final":      "2022-01-18 12:00:00",
		"results":    results,
		"write-data": data,
		"data":       data,
		"policies":   []string{"Naive", "Expected", "Optimistic"},
	}
	for k, v := range settings {
		viper.Set(k, v)
	}
	defer func() {
		for k := range settings {
			viper.Set(k, nil)
		}
	}()

	require.NoError(t, runSynthetic())
	require.FileExists(t, filepath.Join(data, "requests_synthetic.csv"))
	require.FileExists(t, filepath.Join(data, "u_synthetic_seed1.csv"))

	jobsFile := filepath.Join(results, "jobs_synthetic_seed1_Expected.csv")
	capacityFile := filepath.Join(results, "u_synthetic_seed1_Expected.csv")
	generatedJobs, err := os.ReadFile(jobsFile)
	require.NoError(t, err)
	generatedCapacity, err := os.ReadFile(capacityFile)
	require.NoError(t, err)

	require.NoError(t, runSweep([]string{"synthetic"}, []string{"seed1"}))
	replayedJobs, err := os.ReadFile(jobsFile)
	require.NoError(t, err)
	replayedCapacity, err := os.ReadFile(capacityFile)
	require.NoError(t, err)
	require.Equal(t, string(generatedJobs), string(replayedJobs))
	require.Equal(t, string(generatedCapacity), string(replayedCapacity))
}

func TestUnknownPolicy(t *testing.T) {
	viper.Set("policies", []string{"Greedy"})
	defer viper.Set("policies", nil)
	_, err := selectedPolicies()
	require.ErrorIs(t, err, simulator.ErrUnknownPolicy)
}
