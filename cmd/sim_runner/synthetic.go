package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miretskiy/cucumber/dataset"
	"github.com/miretskiy/cucumber/simulator"
)

var syntheticCmd = &cobra.Command{
	Use:   "synthetic",
	Short: "Run every policy against a generated workload and solar forecast",
	Long: `Run every policy against a generated workload and solar forecast.

The generator parameters default to a node that is busy but not saturated on
sunny days. --synthetic-config points to a JSON file overriding them, and
--write-data saves the generated dataset so that it can be replayed with the
sweep command.`,
	RunE: func(cmd *cobra.Command, args []string) error { return runSynthetic() },
}

func init() {
	flags := syntheticCmd.Flags()
	flags.Int64("seed", 1, "Generator seed")
	flags.Float64("arrivals-per-hour", simulator.DefaultSyntheticConfig().ArrivalsPerHour, "Job arrival rate")
	flags.String("synthetic-config", "", "JSON file with generator parameters")
	flags.String("write-data", "", "Directory to save the generated requests and forecasts to")
	bindFlags(flags)
}

func syntheticConfig() (simulator.SyntheticConfig, error) {
	sc := simulator.DefaultSyntheticConfig()
	if path := viper.GetString("synthetic-config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return sc, errors.Wrap(err, "read synthetic config")
		}
		if err := json.Unmarshal(data, &sc); err != nil {
			return sc, errors.Wrapf(err, "parse %s", path)
		}
	}
	if viper.IsSet("seed") {
		sc.Seed = viper.GetInt64("seed")
	}
	if viper.IsSet("arrivals-per-hour") {
		sc.ArrivalsPerHour = viper.GetFloat64("arrivals-per-hour")
	}
	return sc, nil
}

func runSynthetic() error {
	cfg, err := simConfig()
	if err != nil {
		return err
	}
	sc, err := syntheticConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(cfg); err != nil {
		return err
	}
	policies, err := selectedPolicies()
	if err != nil {
		return err
	}

	jobs, err := simulator.GenerateJobs(cfg, sc)
	if err != nil {
		return err
	}
	records := simulator.GenerateForecasts(cfg, sc)
	scenario, site := "synthetic", "seed"+strconv.FormatInt(sc.Seed, 10)
	logger := log.WithFields(log.Fields{"scenario": scenario, "site": site})
	logger.Infof("generated %d jobs and %d forecast rows", len(jobs), len(records))

	if dir := viper.GetString("write-data"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create data directory")
		}
		if err := dataset.SaveRequests(dataset.JobsPath(dir, scenario), jobs); err != nil {
			return err
		}
		if err := dataset.SaveForecasts(dataset.ForecastsPath(dir, scenario, site), records); err != nil {
			return err
		}
		logger.Infof("dataset written to %s", filepath.Clean(dir))
	}

	b := batch{
		config:    cfg,
		jobs:      jobs,
		forecasts: simulator.NewForecastSet(records),
		log:       logger,
	}
	results, err := b.run(policies, viper.GetInt("parallel"))
	if err != nil {
		return err
	}
	resultsDir := viper.GetString("results")
	if resultsDir != "" {
		if err := os.MkdirAll(resultsDir, 0o755); err != nil {
			return errors.Wrap(err, "create results directory")
		}
	}
	fmt.Printf("\n### SCENARIO: %s\n\n### SOLAR SITE: %s\n", scenario, site)
	for i, result := range results {
		fmt.Println(result.Summary)
		if resultsDir == "" {
			continue
		}
		if err := saveResult(resultsDir, scenario, site, policies[i], result); err != nil {
			return err
		}
	}
	return nil
}
