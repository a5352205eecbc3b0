package simulator

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Experiment runs one policy against one workload and capacity forecast
type Experiment struct {
	config Config
	jobs   []*Job

	env       *Environment
	rm        *ResourceManager
	executor  *Executor
	admission *AdmissionController
	metrics   *Metrics
}

// Result is the outcome of an experiment
type Result struct {
	Jobs     []JobRecord
	Capacity *CapacityTable
	Metrics  *Metrics
	Summary  Summary
}

// NewExperiment wires the real execution and admission processes. jobs are
// owned by the experiment from here on; they are ordered by arrival time.
func NewExperiment(config Config, jobs []*Job, forecasts *ForecastSet) (*Experiment, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Arrival().Before(jobs[j].Arrival()) })

	step := config.StepDuration()
	env := NewEnvironment(config.Start)
	queue := NewJobQueue(env)
	rm := NewResourceManager(RealizedCapacity(forecasts, config.Policy, config.Start, step), step)
	metrics := NewMetrics()

	executor := NewExecutor(queue, rm, false, config.logger())
	executor.Metrics = metrics
	admission := NewAdmissionController(config, jobs, queue, rm, forecasts)
	admission.Metrics = metrics

	env.Process(executor)
	env.Process(admission)

	return &Experiment{
		config:    config,
		jobs:      jobs,
		env:       env,
		rm:        rm,
		executor:  executor,
		admission: admission,
		metrics:   metrics,
	}, nil
}

// OnDecision registers an observer for admission decisions
func (x *Experiment) OnDecision(fn func(job *Job, d AdmissionDecision)) { x.admission.OnDecision = fn }

// OnFinish registers an observer for jobs the real executor completes
func (x *Experiment) OnFinish(fn func(job *Job)) { x.executor.OnFinish = fn }

// Run simulates until the configured end and collects the result. An error
// means a model invariant was violated and the result is unusable.
func (x *Experiment) Run() (*Result, error) {
	log := x.config.logger().WithField("policy", x.config.Policy.String())
	log.Infof("running %d jobs from %s to %s", len(x.jobs),
		x.config.Start.Format(TimestampLayout), x.config.End.Format(TimestampLayout))
	started := time.Now()

	if err := x.env.Run(x.config.End); err != nil {
		return nil, err
	}

	records := make([]JobRecord, len(x.jobs))
	for i, j := range x.jobs {
		records[i] = j.Record()
	}
	summary := Summarize(x.config.Policy, records, x.rm.Table(), x.config.StepDuration(), x.metrics)
	log.WithFields(logrus.Fields{
		"success":  summary.Success,
		"rejected": summary.Rejected,
		"miss":     summary.Miss,
		"gridMCH":  summary.GridMCH,
		"elapsed":  time.Since(started).String(),
	}).Info("experiment finished")

	return &Result{
		Jobs:     records,
		Capacity: x.rm.Table().Clone(),
		Metrics:  x.metrics.Clone(),
		Summary:  summary,
	}, nil
}
