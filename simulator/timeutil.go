package simulator

import "time"

// RoundDown returns the start of the time step containing t.
func RoundDown(t time.Time, step time.Duration) time.Time {
	return t.Truncate(step)
}

// RoundUp returns the start of the step after the one containing t. A
// timestamp already on a boundary still moves a full step forward: capacity
// for a step is keyed by the step's end.
func RoundUp(t time.Time, step time.Duration) time.Time {
	return RoundDown(t, step).Add(step)
}

// stepFraction returns how much of its step t has covered, in [0, 1).
func stepFraction(t time.Time, step time.Duration) float64 {
	return float64(t.Sub(RoundDown(t, step))) / float64(step)
}
