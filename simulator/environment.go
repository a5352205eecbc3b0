package simulator

import (
	"fmt"
	"time"
)

// Environment is a single-threaded discrete event loop. Simulated time only
// moves forward, and resumptions scheduled for the same instant run in the
// order they were scheduled.
type Environment struct {
	now   time.Time
	queue *EventQueue
}

// NewEnvironment creates an event loop whose clock starts at start
func NewEnvironment(start time.Time) *Environment {
	return &Environment{
		now:   start,
		queue: NewEventQueue(),
	}
}

// Now returns the current simulated time
func (env *Environment) Now() time.Time { return env.now }

// Pending returns the number of scheduled resumptions
func (env *Environment) Pending() int { return env.queue.Len() }

// Process registers p and schedules its first step at the current time
func (env *Environment) Process(p Process) {
	env.queue.Push(env.now, p)
}

// Schedule resumes p at the given time. Scheduling in the past is a bug.
func (env *Environment) Schedule(at time.Time, p Process) {
	if at.Before(env.now) {
		panic(fmt.Sprintf("BUG: resumption at %s scheduled before now %s",
			at.Format(TimestampLayout), env.now.Format(TimestampLayout)))
	}
	env.queue.Push(at, p)
}

// Timeout suspends p for d of simulated time
func (env *Environment) Timeout(p Process, d time.Duration) {
	env.Schedule(env.now.Add(d), p)
}

// Run processes resumptions scheduled strictly before until. It stops early
// and returns the error of the first failing step; otherwise the clock ends
// at until.
func (env *Environment) Run(until time.Time) error {
	for !env.queue.IsEmpty() && env.queue.Peek().Timestamp().Before(until) {
		event := env.queue.Pop()
		env.now = event.Timestamp()
		if err := event.Process().Step(env); err != nil {
			return err
		}
	}
	if env.now.Before(until) {
		env.now = until
	}
	return nil
}
