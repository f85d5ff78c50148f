// ABOUTME: Manually advanced clock and scheduler
// ABOUTME: Fires due callbacks in order when Advance moves time forward
package sched

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a Clock and Scheduler whose time only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	queue taskQueue
}

// NewManual creates a manual clock starting at zero
func NewManual() *Manual {
	m := &Manual{}
	heap.Init(&m.queue)
	return m
}

// Now returns the current manual time
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc queues fn to run once time reaches now+d
func (m *Manual) AfterFunc(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{owner: m, at: m.now + d, seq: m.seq, fn: fn, index: -1}
	heap.Push(&m.queue, t)
	return t
}

// Advance moves time forward by d, running every callback that comes due.
// Callbacks scheduled by other callbacks also run if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if m.queue.Len() == 0 || m.queue.items[0].at > target {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := heap.Pop(&m.queue).(*manualTask)
		if t.at > m.now {
			m.now = t.at
		}
		t.fired = true
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of queued callbacks
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

type manualTask struct {
	owner *Manual
	at    time.Duration
	seq   uint64
	fn    func()
	index int
	fired bool
}

func (t *manualTask) Cancel() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&m.queue, t.index)
	return true
}

// taskQueue orders tasks by due time, then by scheduling order
type taskQueue struct {
	items []*manualTask
}

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Less(i, j int) bool {
	if q.items[i].at == q.items[j].at {
		return q.items[i].seq < q.items[j].seq
	}
	return q.items[i].at < q.items[j].at
}

func (q *taskQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	t := x.(*manualTask)
	t.index = len(q.items)
	q.items = append(q.items, t)
}

func (q *taskQueue) Pop() interface{} {
	n := len(q.items)
	t := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	t.index = -1
	return t
}
