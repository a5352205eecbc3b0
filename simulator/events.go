package simulator

import (
	"fmt"
	"time"
)

// Process is a simulated activity. Step runs it from its last suspension
// point to the next one; before returning, the process either asks the
// Environment to wake it again (Timeout, Schedule) or parks itself on a
// JobQueue. A process that does neither has terminated.
type Process interface {
	Step(env *Environment) error
}

// Event is a pending resumption of a process
type Event struct {
	at      time.Time
	seq     uint64
	process Process
}

// Timestamp returns the simulated time at which the process resumes
func (e *Event) Timestamp() time.Time { return e.at }

// Process returns the process to resume
func (e *Event) Process() Process { return e.process }

func (e *Event) String() string {
	return fmt.Sprintf("Resume(t=%s, seq=%d, %T)", e.at.Format(TimestampLayout), e.seq, e.process)
}
