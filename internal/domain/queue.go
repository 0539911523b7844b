package domain

import "container/heap"

// EventQueue is the single priority structure mandated by the scheduler
// redesign note: both exogenous (market) and endogenous (order/fill/signal)
// events are pushed into the same heap, so an event produced while
// processing event N is visible to the loop on a later iteration without a
// second merge pass.
type EventQueue struct {
	h    eventHeap
	next uint64
}

func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(&q.h)
	return q
}

// Push enqueues an event, stamping it with the next insertion sequence so
// that equal-(timestamp,kind) events preserve FIFO order.
func (q *EventQueue) Push(e Event) {
	e.setSequence(q.next)
	q.next++
	heap.Push(&q.h, e)
}

// Pop removes and returns the earliest event, or nil if the queue is empty.
func (q *EventQueue) Pop() Event {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(Event)
}

// Peek returns the earliest event without removing it, or nil if empty.
func (q *EventQueue) Peek() Event {
	if q.h.Len() == 0 {
		return nil
	}
	return q.h[0]
}

func (q *EventQueue) Len() int { return q.h.Len() }

type eventHeap []Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return Less(h[i], h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
