package main

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miretskiy/cucumber/simulator"
)

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cucumber_admission_decisions_total",
		Help: "Admission decisions by policy, decision path and outcome",
	}, []string{"policy", "path", "outcome"})

	jobsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cucumber_jobs_finished_total",
		Help: "Jobs finished by the real executor, by policy and status",
	}, []string{"policy", "status"})

	gridMCH = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cucumber_grid_mch",
		Help: "Work powered by grid energy in the last finished experiment (mch)",
	}, []string{"policy"})

	renewableMCH = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cucumber_renewable_mch",
		Help: "Work powered by renewable excess energy in the last finished experiment (mch)",
	}, []string{"policy"})

	experimentsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cucumber_experiments_running",
		Help: "Experiments currently running",
	})

	experimentDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cucumber_experiment_duration_seconds",
		Help:    "Wall-clock duration of experiments",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"policy"})

	registerOnce sync.Once
)

func initPrometheusMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			decisionsTotal,
			jobsFinishedTotal,
			gridMCH,
			renewableMCH,
			experimentsRunning,
			experimentDuration,
		)
	})
}

func recordDecision(policy string, d simulator.AdmissionDecision) {
	outcome := "rejected"
	if d.Accepted {
		outcome = "accepted"
	}
	decisionsTotal.WithLabelValues(policy, d.Path.String(), outcome).Inc()
}

func recordFinish(policy string, status simulator.JobStatus) {
	jobsFinishedTotal.WithLabelValues(policy, string(status)).Inc()
}

func recordSummary(s simulator.Summary) {
	gridMCH.WithLabelValues(s.Policy.String()).Set(s.GridMCH)
	renewableMCH.WithLabelValues(s.Policy.String()).Set(s.RenewableMCH)
}
