package engine

import "container/heap"

// Action is the body of a scheduled event. A non-nil error aborts the run.
type Action func() error

// Event is one scheduled resumption of a process.
type Event struct {
	Time   float64
	ID     uint64
	Action Action
}

// eventQueue is a min-heap on (Time, ID). IDs grow with every schedule call,
// so events due at the same instant come out in the order they were scheduled.
type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	return q[i].ID < q[j].ID
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*Event)) }

func (q *eventQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return last
}

func (q *eventQueue) schedule(e *Event) {
	heap.Push(q, e)
}

// next removes the earliest event, or returns nil when none is left.
func (q *eventQueue) next() *Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Event)
}

func (q eventQueue) peek() *Event {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
