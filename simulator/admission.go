package simulator

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// AdmissionDecision is the outcome of one admission check
type AdmissionDecision struct {
	Accepted bool
	Path     DecisionPath
}

// AdmissionController receives job requests at their arrival times and
// accepts or rejects each. An accepted job is a commitment to finish it
// before its deadline.
//
// Except under the naive policy, decisions are taken on a private fork of the
// queue, the active job and a forecast-based capacity table; the live queue,
// the live ResourceManager and the arriving job itself are never touched
// while deciding.
type AdmissionController struct {
	policy    Policy
	arrivals  []*Job
	queue     *JobQueue
	rm        *ResourceManager
	forecasts *ForecastSet
	step      time.Duration
	horizon   time.Duration
	log       *logrus.Entry

	next    int
	waiting bool

	// Optional observers
	Metrics    *Metrics
	OnDecision func(job *Job, d AdmissionDecision)
}

// NewAdmissionController creates the admission process for arrivals, which
// must be ordered by arrival time. Accepted jobs are put into queue.
func NewAdmissionController(cfg Config, arrivals []*Job, queue *JobQueue, rm *ResourceManager, forecasts *ForecastSet) *AdmissionController {
	return &AdmissionController{
		policy:    cfg.Policy,
		arrivals:  arrivals,
		queue:     queue,
		rm:        rm,
		forecasts: forecasts,
		step:      cfg.StepDuration(),
		horizon:   cfg.HorizonDuration(),
		log:       cfg.logger().WithFields(logrus.Fields{"process": "admission", "policy": cfg.Policy.String()}),
	}
}

// Step implements Process
func (a *AdmissionController) Step(env *Environment) error {
	for a.next < len(a.arrivals) {
		job := a.arrivals[a.next]
		if !a.waiting {
			delay := job.Arrival().Sub(env.Now())
			if delay < 0 {
				return wrapf(ErrArrivalOrder, "job %d arrives at %s, now is %s",
					job.ID(), job.Arrival().Format(TimestampLayout), env.Now().Format(TimestampLayout))
			}
			a.waiting = true
			env.Timeout(a, delay)
			return nil
		}
		a.waiting = false
		a.next++

		d, err := a.Decide(env.Now(), job)
		if err != nil {
			return err
		}
		if d.Accepted {
			job.decision = DecisionAccepted
		} else {
			job.decision = DecisionRejected
		}
		if a.Metrics != nil {
			a.Metrics.RecordDecision(env.Now(), d)
		}
		if a.OnDecision != nil {
			a.OnDecision(job, d)
		}
		if d.Accepted {
			a.queue.Put(job)
		}
	}
	return nil
}

// Decide answers whether job should be admitted at now. It does not record
// the decision on the job or enqueue it.
func (a *AdmissionController) Decide(now time.Time, job *Job) (AdmissionDecision, error) {
	if a.policy == PolicyNaive {
		freep, _, err := a.rm.AvailableNow(now)
		if err != nil {
			return AdmissionDecision{}, err
		}
		return AdmissionDecision{Accepted: a.queue.Len() == 0 && freep > 0, Path: PathNaive}, nil
	}
	used, err := a.rm.UsedAt(now)
	if err != nil {
		return AdmissionDecision{}, err
	}
	return a.speculate(now, job.Clone(), a.queue.Snapshot(), a.queue.Active(now, a.step).Clone(), used)
}

// speculate decides on forked state: candidate, queued and active are copies
// owned by this call.
func (a *AdmissionController) speculate(now time.Time, candidate *Job, queued []*Job, active *Job, initialUsed float64) (AdmissionDecision, error) {
	log := a.log.WithFields(logrus.Fields{"at": now.Format(TimestampLayout), "job": candidate.ID()})

	jobs := append(queued, candidate)
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Deadline().Before(jobs[j].Deadline()) })

	start := now
	if active == nil {
		// The previous job finished before this step
		initialUsed = 0
	} else {
		// Non-preemptive: the active job keeps the node
		jobs = append([]*Job{active}, jobs...)
		start = active.LastProcessed()
	}
	log.Debugf("checking admission (%d open jobs)", len(jobs))

	table, err := ForecastCapacity(a.forecasts, a.policy, RoundDown(start, a.step), initialUsed)
	if err != nil {
		return AdmissionDecision{}, err
	}
	forecast := NewResourceManager(table, a.step)

	// Not enough renewable capacity for the whole queue: no order can help.
	demand := 0.0
	for _, j := range jobs {
		demand += j.Remaining()
	}
	supply, _ := forecast.AvailableOver(start, jobs[len(jobs)-1].Deadline())
	supply -= initialUsed
	if demand > supply {
		log.Infof("rejected (queue would reserve %.2f/%.2f available mch)", demand, supply)
		return AdmissionDecision{Accepted: false, Path: PathFastReject}, nil
	}
	// One shared deadline and enough capacity: order cannot cause a miss.
	if jobs[0].Deadline().Equal(jobs[len(jobs)-1].Deadline()) {
		log.Infof("accepted (all open jobs share a deadline and use %.2f/%.2f available mch)", demand, supply)
		return AdmissionDecision{Accepted: true, Path: PathFastAccept}, nil
	}

	log.Debugf("simulating from %s (%.2f mch already used)", start.Format(TimestampLayout), initialUsed)
	env := NewEnvironment(start)
	queue := NewFIFOQueue(env)
	for _, j := range jobs {
		queue.Put(j)
	}
	env.Process(NewExecutor(queue, forecast, true, a.log))
	if err := env.Run(RoundDown(start, a.step).Add(a.horizon)); err != nil {
		return AdmissionDecision{}, err
	}

	for _, j := range jobs {
		if !j.Finished() {
			log.Debugf("job %d will not finish within %s", j.ID(), a.horizon)
			log.Infof("rejected (queued job %d would miss its deadline)", j.ID())
			return AdmissionDecision{Accepted: false, Path: PathSimulated}, nil
		}
		if ok, _ := j.FinishedBeforeDeadline(); !ok {
			finish, _ := j.FinishTime()
			log.Debugf("job %d will finish at %s and miss its deadline %s",
				j.ID(), finish.Format(TimestampLayout), j.Deadline().Format(TimestampLayout))
			log.Infof("rejected (queued job %d would miss its deadline)", j.ID())
			return AdmissionDecision{Accepted: false, Path: PathSimulated}, nil
		}
	}
	log.Info("accepted")
	return AdmissionDecision{Accepted: true, Path: PathSimulated}, nil
}
