package simulator

import (
	"time"

	"github.com/sirupsen/logrus"
)

type executorState int

const (
	executorWaiting executorState = iota // Parked on the queue or about to dequeue
	executorRunning                      // Working on a job
	executorDone                         // Speculative run drained its queue
)

// Executor drains a JobQueue in release order and runs one job at a time,
// non-preemptively, on the capacity the ResourceManager reports.
//
// A speculative executor answers an admission question against cloned state:
// it never falls back to grid capacity for at-risk jobs, because detecting a
// miss under the renewable budget is what it is asked, and it terminates once
// its queue is empty.
type Executor struct {
	queue       *JobQueue
	rm          *ResourceManager
	speculative bool
	log         *logrus.Entry

	state   executorState
	job     *Job
	pending *Job

	// Optional observers
	Metrics  *Metrics
	OnFinish func(job *Job)
}

// NewExecutor creates an executor for queue backed by rm
func NewExecutor(queue *JobQueue, rm *ResourceManager, speculative bool, log *logrus.Entry) *Executor {
	if log == nil {
		log = discardLogger()
	}
	return &Executor{
		queue:       queue,
		rm:          rm,
		speculative: speculative,
		log:         log.WithFields(logrus.Fields{"process": "execution", "speculative": speculative}),
	}
}

// Current returns the job being worked on, if any
func (e *Executor) Current() *Job { return e.job }

// Done reports whether a speculative executor has terminated
func (e *Executor) Done() bool { return e.state == executorDone }

func (e *Executor) deliver(job *Job) { e.pending = job }

// Step implements Process
func (e *Executor) Step(env *Environment) error {
	for {
		switch e.state {
		case executorWaiting:
			job := e.pending
			e.pending = nil
			if job == nil {
				var ok bool
				if job, ok = e.queue.get(e); !ok {
					return nil
				}
			}
			e.start(env, job)

		case executorRunning:
			if !e.job.Finished() {
				return e.runStep(env)
			}
			if err := e.finish(env); err != nil {
				return err
			}
			if e.speculative && e.queue.Len() == 0 {
				e.state = executorDone
				return nil
			}
			e.state = executorWaiting

		case executorDone:
			return nil
		}
	}
}

func (e *Executor) start(env *Environment, job *Job) {
	e.queue.markReturned(job)
	e.job = job
	e.state = executorRunning
	e.logf(logrus.InfoLevel, env, "starting job %d (%d queued)", job.ID(), e.queue.Len())
}

// runStep gives the current job the capacity of the current step and
// suspends until the job finishes or the step ends.
func (e *Executor) runStep(env *Environment) error {
	now := env.Now()
	job := e.job
	allocation, free, err := e.rm.AvailableNow(now)
	if err != nil {
		return err
	}
	gridFallback := false
	if !e.speculative {
		atRisk, err := e.deadlineAtRisk(now, job)
		if err != nil {
			return err
		}
		if atRisk {
			gridFallback = allocation < free
			allocation = free
		}
	}

	stepEnd := RoundUp(now, e.rm.Step())
	if allocation <= 0 {
		if !e.speculative {
			job.idle(now)
		}
		e.logf(logrus.DebugLevel, env, "idling job %d (%.2f mch left) until %s",
			job.ID(), job.Remaining(), stepEnd.Format(TimestampLayout))
		env.Timeout(e, stepEnd.Sub(now))
		return nil
	}

	e.logf(logrus.DebugLevel, env, "running job %d (%.2f mch left) for %.2f mch until %s",
		job.ID(), job.Remaining(), allocation, stepEnd.Format(TimestampLayout))
	excess, used, err := job.Advance(allocation, now, stepEnd)
	if err != nil {
		return err
	}
	consumed := allocation - excess
	if err := e.rm.Account(now, consumed); err != nil {
		return err
	}
	if e.Metrics != nil {
		e.Metrics.RecordUsage(now, consumed, gridFallback)
	}
	env.Timeout(e, used)
	return nil
}

// deadlineAtRisk reports whether job cannot meet its deadline on renewable
// capacity alone, in which case it may draw on all free capacity.
func (e *Executor) deadlineAtRisk(now time.Time, job *Job) (bool, error) {
	if job.Deadline().Before(now) {
		e.log.WithField("job", job.ID()).Debugf("%s: using grid power, deadline %s is in the past",
			now.Format(TimestampLayout), job.Deadline().Format(TimestampLayout))
		return true, nil
	}
	freep, _ := e.rm.AvailableOver(now, job.Deadline())
	if freep < job.Remaining() {
		e.log.WithField("job", job.ID()).Debugf("%s: using grid power, %.2f mch remaining but only %.2f mch renewable until %s",
			now.Format(TimestampLayout), job.Remaining(), freep, job.Deadline().Format(TimestampLayout))
		return true, nil
	}
	return false, nil
}

func (e *Executor) finish(env *Environment) error {
	job := e.job
	ok, err := job.FinishedBeforeDeadline()
	if err != nil {
		return err
	}
	if ok {
		e.logf(logrus.InfoLevel, env, "finished job %d successfully (deadline %s)",
			job.ID(), job.Deadline().Format(TimestampLayout))
	} else {
		e.logf(logrus.InfoLevel, env, "finished job %d - DEADLINE MISS (deadline %s)",
			job.ID(), job.Deadline().Format(TimestampLayout))
	}
	if e.Metrics != nil {
		e.Metrics.RecordFinish(env.Now(), ok)
	}
	if e.OnFinish != nil {
		e.OnFinish(job)
	}
	return nil
}

// logf logs real-run events at level and speculative ones at debug.
func (e *Executor) logf(level logrus.Level, env *Environment, format string, args ...interface{}) {
	if e.speculative {
		level = logrus.DebugLevel
	}
	if !e.log.Logger.IsLevelEnabled(level) {
		return
	}
	e.log.WithField("at", env.Now().Format(TimestampLayout)).Logf(level, format, args...)
}
