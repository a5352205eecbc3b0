package main

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/miretskiy/cucumber/dataset"
	"github.com/miretskiy/cucumber/simulator"
)

// ClientMessage is a command sent by a client. A run uses the dataset of
// Scenario and Site when Scenario is set, and generated data otherwise.
type ClientMessage struct {
	Type      string                     `json:"type"`
	Config    *simulator.Config          `json:"config,omitempty"`
	Scenario  string                     `json:"scenario,omitempty"`
	Site      string                     `json:"site,omitempty"`
	Synthetic *simulator.SyntheticConfig `json:"synthetic,omitempty"`
}

// ServerMessage is an event streamed to the client
type ServerMessage struct {
	Type     string               `json:"type"`
	Running  *bool                `json:"running,omitempty"`
	Config   *simulator.Config    `json:"config,omitempty"`
	Decision *DecisionEvent       `json:"decision,omitempty"`
	Job      *simulator.JobRecord `json:"job,omitempty"`
	Metrics  *simulator.Metrics   `json:"metrics,omitempty"`
	Summary  *simulator.Summary   `json:"summary,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// DecisionEvent reports one admission decision
type DecisionEvent struct {
	JobID    int       `json:"jobId"`
	At       time.Time `json:"at"`
	Accepted bool      `json:"accepted"`
	Path     string    `json:"path"`
}

// safeConn wraps a WebSocket connection with a mutex to prevent concurrent writes
type safeConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (sc *safeConn) WriteJSON(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteJSON(v)
}

// session is the state of one client connection. At most one experiment
// runs per session.
type session struct {
	conn    *safeConn
	dataDir string
	log     *log.Entry

	mu      sync.Mutex
	running bool
	closed  bool
	config  simulator.Config
}

func newSession(conn *safeConn, dataDir string, logger *log.Entry) *session {
	return &session{conn: conn, dataDir: dataDir, log: logger, config: simulator.DefaultConfig()}
}

// start claims the session for a run
func (s *session) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.closed {
		return false
	}
	s.running = true
	return true
}

func (s *session) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.sendStatus()
}

// close stops further writes; a running experiment completes silently
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *session) send(msg ServerMessage) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.log.Warnf("Error sending %s: %v", msg.Type, err)
		s.close()
	}
}

func (s *session) sendStatus() {
	s.mu.Lock()
	running := s.running
	cfg := s.config
	s.mu.Unlock()
	s.send(ServerMessage{Type: "status", Running: &running, Config: &cfg})
}

func (s *session) sendError(err error) {
	s.send(ServerMessage{Type: "error", Error: err.Error()})
}

// prepare resolves the config and input data of a run
func (s *session) prepare(msg ClientMessage) (simulator.Config, []*simulator.Job, *simulator.ForecastSet, error) {
	cfg := simulator.DefaultConfig()
	if msg.Config != nil {
		cfg = *msg.Config
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	if msg.Scenario != "" {
		if msg.Site == "" {
			return cfg, nil, nil, errors.New("site is required with scenario")
		}
		jobs, err := dataset.LoadJobs(dataset.JobsPath(s.dataDir, msg.Scenario), cfg)
		if err != nil {
			return cfg, nil, nil, err
		}
		records, err := dataset.LoadForecasts(dataset.ForecastsPath(s.dataDir, msg.Scenario, msg.Site), cfg)
		if err != nil {
			return cfg, nil, nil, err
		}
		return cfg, jobs, simulator.NewForecastSet(records), nil
	}

	sc := simulator.DefaultSyntheticConfig()
	if msg.Synthetic != nil {
		sc = *msg.Synthetic
	}
	if err := sc.Validate(cfg); err != nil {
		return cfg, nil, nil, err
	}
	jobs, err := simulator.GenerateJobs(cfg, sc)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, jobs, simulator.NewForecastSet(simulator.GenerateForecasts(cfg, sc)), nil
}

// run executes one experiment and streams its events
func (s *session) run(msg ClientMessage) {
	defer s.finish()

	cfg, jobs, forecasts, err := s.prepare(msg)
	if err != nil {
		s.sendError(err)
		return
	}
	policy := cfg.Policy.String()
	cfg.Logger = s.log.WithField("policy", policy)
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	s.sendStatus()

	x, err := simulator.NewExperiment(cfg, jobs, forecasts)
	if err != nil {
		s.sendError(err)
		return
	}
	x.OnDecision(func(job *simulator.Job, d simulator.AdmissionDecision) {
		recordDecision(policy, d)
		s.send(ServerMessage{Type: "decision", Decision: &DecisionEvent{
			JobID:    job.ID(),
			At:       job.Arrival(),
			Accepted: d.Accepted,
			Path:     d.Path.String(),
		}})
	})
	x.OnFinish(func(job *simulator.Job) {
		r := job.Record()
		recordFinish(policy, r.Status)
		s.send(ServerMessage{Type: "finish", Job: &r})
	})

	experimentsRunning.Inc()
	started := time.Now()
	result, err := x.Run()
	experimentsRunning.Dec()
	experimentDuration.WithLabelValues(policy).Observe(time.Since(started).Seconds())
	if err != nil {
		s.log.Errorf("Experiment failed: %v", err)
		s.sendError(err)
		return
	}

	recordSummary(result.Summary)
	s.send(ServerMessage{Type: "metrics", Metrics: result.Metrics})
	s.send(ServerMessage{Type: "summary", Summary: &result.Summary})
	s.log.Info(result.Summary.String())
}
