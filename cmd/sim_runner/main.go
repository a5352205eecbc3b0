package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/miretskiy/cucumber/dataset"
	"github.com/miretskiy/cucumber/simulator"
)

const envPrefix = "CUCUMBER"

var rootCmd = &cobra.Command{
	Use:   "sim_runner",
	Short: "Run admission control experiments against renewable capacity forecasts",
	Long: `Run admission control experiments against renewable capacity forecasts.

Without a subcommand, every policy is evaluated for each scenario and solar
site. Job requests are read from <data>/requests_<scenario>.csv and forecasts
from <data>/u_<scenario>_<site>.csv.

Every flag can also be set in the file given by --config or through a
CUCUMBER_<FLAG> environment variable (dashes become underscores).`,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSweep(viper.GetStringSlice("scenarios"), viper.GetStringSlice("sites"))
	},
}

func init() {
	defaults := simulator.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML or JSON config file")
	flags.String("log-level", "error", "Log level: debug, info, warn or error")
	flags.String("start", defaults.Start.Format(simulator.TimestampLayout), "First instant of the experiment")
	flags.String("end", defaults.End.Format(simulator.TimestampLayout), "Last admissible arrival (exclusive); the simulation stops here")
	flags.String("final", defaults.Final.Format(simulator.TimestampLayout), "Deadlines must be before this instant")
	flags.Duration("step", defaults.StepDuration(), "Capacity time step")
	flags.Duration("horizon", defaults.HorizonDuration(), "Bound on speculative admission runs")
	flags.StringSlice("policies", policyNames(simulator.AllPolicies), "Policies to evaluate")
	flags.Int("parallel", runtime.NumCPU(), "Experiments to run concurrently")
	flags.String("results", "results", "Directory for result files; empty disables writing")

	sweep := rootCmd.Flags()
	sweep.String("data", "data", "Directory holding the request and forecast files")
	sweep.StringSlice("scenarios", []string{"alibaba", "nyctaxi"}, "Workload scenarios")
	sweep.StringSlice("sites", []string{"berlin", "cdmx", "capet"}, "Solar sites")

	bindFlags(flags)
	bindFlags(sweep)
	rootCmd.AddCommand(syntheticCmd)
}

func bindFlags(flags *pflag.FlagSet) {
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if path := viper.GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
	}

	level, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	return nil
}

// simConfig builds the simulation config shared by every experiment
func simConfig() (simulator.Config, error) {
	cfg := simulator.DefaultConfig()
	var err error
	if cfg.Start, err = dataset.ParseTimestamp(viper.GetString("start")); err != nil {
		return cfg, errors.Wrap(err, "--start")
	}
	if cfg.End, err = dataset.ParseTimestamp(viper.GetString("end")); err != nil {
		return cfg, errors.Wrap(err, "--end")
	}
	if cfg.Final, err = dataset.ParseTimestamp(viper.GetString("final")); err != nil {
		return cfg, errors.Wrap(err, "--final")
	}
	cfg.Step = simulator.Duration(viper.GetDuration("step"))
	cfg.SpeculativeHorizon = simulator.Duration(viper.GetDuration("horizon"))
	return cfg, cfg.Validate()
}

func selectedPolicies() ([]simulator.Policy, error) {
	var out []simulator.Policy
	for _, name := range viper.GetStringSlice("policies") {
		p, err := simulator.ParsePolicy(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func policyNames(policies []simulator.Policy) []string {
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.String()
	}
	return names
}

func runSweep(scenarios, sites []string) error {
	cfg, err := simConfig()
	if err != nil {
		return err
	}
	policies, err := selectedPolicies()
	if err != nil {
		return err
	}
	dataDir := viper.GetString("data")
	resultsDir := viper.GetString("results")
	if resultsDir != "" {
		if err := os.MkdirAll(resultsDir, 0o755); err != nil {
			return errors.Wrap(err, "create results directory")
		}
	}

	for _, scenario := range scenarios {
		fmt.Printf("\n### SCENARIO: %s\n", scenario)
		jobs, err := dataset.LoadJobs(dataset.JobsPath(dataDir, scenario), cfg)
		if err != nil {
			return err
		}
		for _, site := range sites {
			fmt.Printf("\n### SOLAR SITE: %s\n", site)
			records, err := dataset.LoadForecasts(dataset.ForecastsPath(dataDir, scenario, site), cfg)
			if err != nil {
				return err
			}
			logger := log.WithFields(log.Fields{"scenario": scenario, "site": site})
			logger.Infof("loaded %d jobs and %d forecast rows", len(jobs), len(records))

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
			for i, result := range results {
				fmt.Println(result.Summary)
				if resultsDir == "" {
					continue
				}
				if err := saveResult(resultsDir, scenario, site, policies[i], result); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func saveResult(dir, scenario, site string, p simulator.Policy, result *simulator.Result) error {
	if err := dataset.SaveJobRecords(dataset.JobResultsPath(dir, scenario, site, p), result.Jobs); err != nil {
		return err
	}
	return dataset.SaveCapacityTable(dataset.CapacityResultsPath(dir, scenario, site, p), result.Capacity)
}

func main() {
	started := time.Now()
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
	log.Infof("done in %s", time.Since(started).Round(time.Millisecond))
}
