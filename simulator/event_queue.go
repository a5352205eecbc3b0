package simulator

import (
	"container/heap"
	"time"
)

// EventQueue is a priority queue of process resumptions, ordered by
// timestamp and then by scheduling sequence
type EventQueue struct {
	events eventHeap
	seq    uint64
}

// NewEventQueue creates a new event queue
func NewEventQueue() *EventQueue {
	eq := &EventQueue{
		events: make(eventHeap, 0),
	}
	heap.Init(&eq.events)
	return eq
}

// Push schedules p to resume at the given time
func (eq *EventQueue) Push(at time.Time, p Process) {
	eq.seq++
	heap.Push(&eq.events, &Event{at: at, seq: eq.seq, process: p})
}

// Pop removes and returns the next event
func (eq *EventQueue) Pop() *Event {
	if eq.IsEmpty() {
		return nil
	}
	return heap.Pop(&eq.events).(*Event)
}

// Peek returns the next event without removing it
func (eq *EventQueue) Peek() *Event {
	if eq.IsEmpty() {
		return nil
	}
	return eq.events[0]
}

// IsEmpty returns true if the queue is empty
func (eq *EventQueue) IsEmpty() bool {
	return eq.events.Len() == 0
}

// Len returns the number of events in the queue
func (eq *EventQueue) Len() int {
	return eq.events.Len()
}

// eventHeap implements heap.Interface for Event
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}
