package simulator

import (
	"fmt"
	"time"
)

// Decision is the admission outcome recorded on a job
type Decision int

const (
	DecisionPending Decision = iota
	DecisionAccepted
	DecisionRejected
)

// JobStatus is the derived lifecycle state of a job
type JobStatus string

const (
	StatusRejected JobStatus = "REJECTED"
	StatusRunning  JobStatus = "RUNNING"
	StatusSuccess  JobStatus = "SUCCESS"
	StatusMiss     JobStatus = "MISS"
)

// Job is a delay-tolerant workload measured in millicore-hours (mch).
// All fields are values so that Clone never shares state with the original.
type Job struct {
	id            int
	arrival       time.Time
	size          float64
	remaining     float64
	deadline      time.Time
	lastProcessed time.Time // zero until first advanced or idled
	decision      Decision
}

// NewJob creates a job arriving at arrival with size mch of work due by deadline
func NewJob(id int, arrival time.Time, size float64, deadline time.Time) (*Job, error) {
	if !arrival.Before(deadline) {
		return nil, wrapf(ErrInvalidJob, "job %d: arrival %s not before deadline %s",
			id, arrival.Format(TimestampLayout), deadline.Format(TimestampLayout))
	}
	if size <= 0 {
		return nil, wrapf(ErrInvalidJob, "job %d: size %.2f", id, size)
	}
	return &Job{
		id:        id,
		arrival:   arrival,
		size:      size,
		remaining: size,
		deadline:  deadline,
	}, nil
}

func (j *Job) ID() int                  { return j.id }
func (j *Job) Arrival() time.Time       { return j.arrival }
func (j *Job) Size() float64            { return j.size }
func (j *Job) Remaining() float64       { return j.remaining }
func (j *Job) Deadline() time.Time      { return j.deadline }
func (j *Job) LastProcessed() time.Time { return j.lastProcessed }
func (j *Job) Decision() Decision       { return j.decision }

// Finished reports whether all work has been done
func (j *Job) Finished() bool { return j.remaining == 0 }

// FinishTime returns when the job finished, if it has
func (j *Job) FinishTime() (time.Time, bool) {
	if !j.Finished() {
		return time.Time{}, false
	}
	return j.lastProcessed, true
}

// FinishedBeforeDeadline reports whether a finished job met its deadline.
// Asking about an unfinished job is a usage error.
func (j *Job) FinishedBeforeDeadline() (bool, error) {
	if !j.Finished() {
		return false, wrapf(ErrNotFinished, "job %d (%.2f mch remaining)", j.id, j.remaining)
	}
	return !j.lastProcessed.After(j.deadline), nil
}

// Status derives the job's lifecycle state
func (j *Job) Status() JobStatus {
	switch {
	case j.decision == DecisionRejected:
		return StatusRejected
	case !j.Finished():
		return StatusRunning
	case !j.lastProcessed.After(j.deadline):
		return StatusSuccess
	default:
		return StatusMiss
	}
}

// Advance runs the job with amount mch of capacity during [start, end).
// If the job needs less than amount, it finishes early: only the matching
// fraction of the interval is used (rounded to whole seconds) and the unused
// capacity is returned as excess.
func (j *Job) Advance(amount float64, start, end time.Time) (excess float64, used time.Duration, err error) {
	if amount <= 0 {
		return 0, 0, wrapf(ErrInvalidWork, "job %d: advance by %.4f mch", j.id, amount)
	}
	left := j.remaining - amount
	if left > 0 {
		used = end.Sub(start)
		j.remaining = left
	} else {
		excess = -left
		fraction := j.remaining / amount
		used = time.Duration(float64(end.Sub(start)) * fraction).Round(time.Second)
		j.remaining = 0
	}
	j.lastProcessed = start.Add(used)
	return excess, used, nil
}

// idle records that the job held the node at now without making progress.
func (j *Job) idle(now time.Time) { j.lastProcessed = now }

// Clone returns an independent copy of the job
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}

func (j *Job) String() string {
	finish := ""
	if t, ok := j.FinishTime(); ok {
		finish = ", finish_time=" + t.Format(TimestampLayout)
	}
	return fmt.Sprintf("Job(%d [%s], arrive_time=%s, size=%.2f/%.2f, deadline=%s%s)",
		j.id, j.Status(), j.arrival.Format(TimestampLayout), j.remaining, j.size,
		j.deadline.Format(TimestampLayout), finish)
}

// JobRecord is the per-job output row handed to reporting
type JobRecord struct {
	ID         int        `json:"id"`
	Status     JobStatus  `json:"status"`
	Size       float64    `json:"mch"`
	Arrival    time.Time  `json:"arriveTime"`
	FinishTime *time.Time `json:"finishTime,omitempty"` // nil means not finished
	Deadline   time.Time  `json:"deadline"`
}

// Record returns the reporting row for the job
func (j *Job) Record() JobRecord {
	r := JobRecord{
		ID:       j.id,
		Status:   j.Status(),
		Size:     j.size,
		Arrival:  j.arrival,
		Deadline: j.deadline,
	}
	if t, ok := j.FinishTime(); ok {
		r.FinishTime = &t
	}
	return r
}
