package simulator

import (
	"container/heap"
	"sort"
	"time"
)

// consumer is a process that can park on a JobQueue until a job arrives.
type consumer interface {
	Process
	deliver(job *Job)
}

// JobQueue holds jobs that have been accepted but not yet dequeued. The
// deadline-ordered variant is the real run's queue; the FIFO variant keeps a
// speculative run's pre-arranged order.
type JobQueue struct {
	env    *Environment
	items  jobHeap
	seq    uint64
	waiter consumer

	// lastReturned is the job most recently handed to the consumer.
	lastReturned *Job
}

// NewJobQueue creates a queue that releases jobs by ascending deadline.
// Jobs with equal deadlines leave in insertion order.
func NewJobQueue(env *Environment) *JobQueue {
	return &JobQueue{env: env, items: jobHeap{byDeadline: true}}
}

// NewFIFOQueue creates a queue that releases jobs in insertion order
func NewFIFOQueue(env *Environment) *JobQueue {
	return &JobQueue{env: env, items: jobHeap{byDeadline: false}}
}

// Len returns the number of queued jobs
func (q *JobQueue) Len() int { return q.items.Len() }

// Put enqueues a job. The queue is unbounded so Put never suspends; a parked
// consumer is handed the head job immediately and resumed at the current time.
func (q *JobQueue) Put(job *Job) {
	q.seq++
	heap.Push(&q.items, queuedJob{job: job, seq: q.seq})
	if q.waiter != nil {
		w := q.waiter
		q.waiter = nil
		w.deliver(heap.Pop(&q.items).(queuedJob).job)
		q.env.Schedule(q.env.Now(), w)
	}
}

// get returns the head job, or parks c until one is put.
func (q *JobQueue) get(c consumer) (*Job, bool) {
	if q.items.Len() > 0 {
		return heap.Pop(&q.items).(queuedJob).job, true
	}
	if q.waiter != nil && q.waiter != c {
		panic("BUG: JobQueue supports a single consumer")
	}
	q.waiter = c
	return nil, false
}

// markReturned records the job the consumer is now working on.
func (q *JobQueue) markReturned(job *Job) { q.lastReturned = job }

// Active returns the most recently dequeued job while it still holds the
// node: until it finishes, and through the rest of the step it finished in.
func (q *JobQueue) Active(now time.Time, step time.Duration) *Job {
	j := q.lastReturned
	if j == nil {
		return nil
	}
	if j.Finished() && j.lastProcessed.Before(RoundDown(now, step)) {
		return nil
	}
	return j
}

// Jobs returns the queued jobs in release order. The jobs are shared with
// the queue; use Snapshot for independent copies.
func (q *JobQueue) Jobs() []*Job {
	entries := make([]queuedJob, len(q.items.entries))
	copy(entries, q.items.entries)
	sort.Slice(entries, func(i, j int) bool { return q.items.less(entries[i], entries[j]) })
	jobs := make([]*Job, len(entries))
	for i, e := range entries {
		jobs[i] = e.job
	}
	return jobs
}

// Snapshot returns independent copies of the queued jobs in release order
func (q *JobQueue) Snapshot() []*Job {
	jobs := q.Jobs()
	for i, j := range jobs {
		jobs[i] = j.Clone()
	}
	return jobs
}

type queuedJob struct {
	job *Job
	seq uint64
}

// jobHeap implements heap.Interface for queued jobs
type jobHeap struct {
	entries    []queuedJob
	byDeadline bool
}

func (h jobHeap) less(a, b queuedJob) bool {
	if h.byDeadline && !a.job.deadline.Equal(b.job.deadline) {
		return a.job.deadline.Before(b.job.deadline)
	}
	return a.seq < b.seq
}

func (h jobHeap) Len() int           { return len(h.entries) }
func (h jobHeap) Less(i, j int) bool { return h.less(h.entries[i], h.entries[j]) }
func (h jobHeap) Swap(i, j int)      { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *jobHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(queuedJob))
}

func (h *jobHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	x := old[n-1]
	old[n-1] = queuedJob{}
	h.entries = old[0 : n-1]
	return x
}
