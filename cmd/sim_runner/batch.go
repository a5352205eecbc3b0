package main

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/miretskiy/cucumber/simulator"
)

// batch evaluates several policies on the same workload and forecasts
type batch struct {
	config    simulator.Config
	jobs      []*simulator.Job
	forecasts *simulator.ForecastSet
	log       *log.Entry
}

// run returns one result per policy, in the order given. Experiments share
// the read-only forecast set; each gets its own copy of the jobs.
func (b *batch) run(policies []simulator.Policy, parallel int) ([]*simulator.Result, error) {
	results := make([]*simulator.Result, len(policies))
	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, p := range policies {
		g.Go(func() error {
			cfg := b.config
			cfg.Policy = p
			cfg.Logger = b.log.WithField("policy", p.String())

			jobs := make([]*simulator.Job, len(b.jobs))
			for k, j := range b.jobs {
				jobs[k] = j.Clone()
			}
			x, err := simulator.NewExperiment(cfg, jobs, b.forecasts)
			if err != nil {
				return err
			}
			result, err := x.Run()
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
