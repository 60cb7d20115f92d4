package reminder

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// entry is one pending reminder: a weak reference to a task plus its
// fire time. The scheduler never owns task data; tasks are re-validated
// against the store before delivery.
type entry struct {
	taskID uuid.UUID
	userID string
	fireAt time.Time
	index  int // heap index, maintained by fireQueue
}

// fireQueue is a min-heap of entries keyed by fire time, with a
// by-task index so Schedule can replace and Cancel can remove in
// O(log n). Not safe for concurrent use; the scheduler serializes
// access behind its mutex.
type fireQueue struct {
	heap   entryHeap
	byTask map[uuid.UUID]*entry
}

func newFireQueue() *fireQueue {
	return &fireQueue{byTask: make(map[uuid.UUID]*entry)}
}

// upsert inserts the entry for a task or replaces its fire time.
func (q *fireQueue) upsert(taskID uuid.UUID, userID string, fireAt time.Time) {
	if e, ok := q.byTask[taskID]; ok {
		e.userID = userID
		e.fireAt = fireAt
		heap.Fix(&q.heap, e.index)
		return
	}
	e := &entry{taskID: taskID, userID: userID, fireAt: fireAt}
	heap.Push(&q.heap, e)
	q.byTask[taskID] = e
}

// remove deletes the entry for a task if present.
// Returns false when no entry existed.
func (q *fireQueue) remove(taskID uuid.UUID) bool {
	e, ok := q.byTask[taskID]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, e.index)
	delete(q.byTask, taskID)
	return true
}

// peek returns the earliest entry without removing it, or nil when empty.
func (q *fireQueue) peek() *entry {
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0]
}

// popDue removes and returns all entries due at or before now.
func (q *fireQueue) popDue(now time.Time) []*entry {
	var due []*entry
	for len(q.heap) > 0 && !q.heap[0].fireAt.After(now) {
		e := heap.Pop(&q.heap).(*entry)
		delete(q.byTask, e.taskID)
		due = append(due, e)
	}
	return due
}

func (q *fireQueue) len() int { return len(q.heap) }

// entryHeap implements heap.Interface ordered by fire time.
type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].fireAt.Before(h[j].fireAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x any) { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
