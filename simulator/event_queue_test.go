package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventQueueBasicOperations(t *testing.T) {
	t.Run("new queue is empty", func(t *testing.T) {
		q := NewEventQueue()
		require.True(t, q.IsEmpty())
		require.Nil(t, q.Pop())
		require.Nil(t, q.Peek())
	})

	t.Run("push and pop single event", func(t *testing.T) {
		q := NewEventQueue()
		p := &scriptedProcess{name: "a"}
		q.Push(at(1), p)
		require.Equal(t, 1, q.Len())

		e := q.Pop()
		require.NotNil(t, e)
		require.Equal(t, at(1), e.Timestamp())
		require.Same(t, p, e.Process())
		require.True(t, q.IsEmpty())
	})
}

func TestEventQueueOrdering(t *testing.T) {
	q := NewEventQueue()
	late := &scriptedProcess{name: "late"}
	first := &scriptedProcess{name: "first"}
	second := &scriptedProcess{name: "second"}
	early := &scriptedProcess{name: "early"}

	q.Push(at(3), late)
	q.Push(at(2), first)
	q.Push(at(2), second)
	q.Push(at(1), early)

	require.Same(t, early, q.Peek().Process())
	var order []string
	var last time.Time
	for !q.IsEmpty() {
		e := q.Pop()
		require.False(t, e.Timestamp().Before(last), "events must come out in time order")
		last = e.Timestamp()
		order = append(order, e.Process().(*scriptedProcess).name)
	}
	// Equal timestamps resume in push order
	require.Equal(t, []string{"early", "first", "second", "late"}, order)
}
