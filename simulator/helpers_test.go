package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	t0       = time.Date(2022, 1, 18, 0, 0, 0, 0, time.UTC)
	testStep = 10 * time.Minute
)

// at returns t0 advanced by n steps
func at(n int) time.Time { return t0.Add(time.Duration(n) * testStep) }

// constForecasts issues one forecast per step starting at from. Every
// forecast predicts free and reep exactly, for targets steps ahead.
func constForecasts(from time.Time, issuances, targets int, free, reep float64) []ForecastRecord {
	out := make([]ForecastRecord, 0, issuances*targets)
	for i := 0; i < issuances; i++ {
		issued := from.Add(time.Duration(i) * testStep)
		for k := 1; k <= targets; k++ {
			out = append(out, ForecastRecord{
				IssuedAt:              issued,
				TargetAt:              issued.Add(time.Duration(k) * testStep),
				UFree:                 free,
				UFreePred:             free,
				UReep:                 reep,
				UReepPredExpected:     reep,
				UReepPredConservative: reep,
				UReepPredOptimistic:   reep,
			})
		}
	}
	return out
}

func testConfig(p Policy) Config {
	cfg := DefaultConfig()
	cfg.Start = t0
	cfg.End = t0.Add(6 * time.Hour)
	cfg.Final = t0.Add(12 * time.Hour)
	cfg.Policy = p
	return cfg
}

func mustJob(t *testing.T, id int, arrival time.Time, size float64, deadline time.Time) *Job {
	t.Helper()
	job, err := NewJob(id, arrival, size, deadline)
	require.NoError(t, err)
	return job
}

// testAdmission builds an admission controller over a queue with no
// consumer, so accepted jobs stay queued.
func testAdmission(cfg Config, records []ForecastRecord) (*AdmissionController, *JobQueue, *ResourceManager) {
	env := NewEnvironment(cfg.Start)
	set := NewForecastSet(records)
	queue := NewJobQueue(env)
	rm := NewResourceManager(RealizedCapacity(set, cfg.Policy, cfg.Start, cfg.StepDuration()), cfg.StepDuration())
	return NewAdmissionController(cfg, nil, queue, rm, set), queue, rm
}

// scriptedProcess logs each resumption and then sleeps for the next delay
type scriptedProcess struct {
	name   string
	log    *[]string
	delays []time.Duration
	err    error
}

func (p *scriptedProcess) Step(env *Environment) error {
	*p.log = append(*p.log, p.name+"@"+env.Now().Sub(t0).String())
	if p.err != nil {
		return p.err
	}
	if len(p.delays) > 0 {
		d := p.delays[0]
		p.delays = p.delays[1:]
		env.Timeout(p, d)
	}
	return nil
}

// parkedConsumer records jobs handed to it by a JobQueue
type parkedConsumer struct {
	delivered []*Job
	resumed   int
}

func (c *parkedConsumer) Step(*Environment) error { c.resumed++; return nil }
func (c *parkedConsumer) deliver(job *Job)        { c.delivered = append(c.delivered, job) }
