package x11

import (
	"container/heap"
	"sync"

	"github.com/bryanchriswhite/DeskMirror/internal/engine"
)

type request struct {
	id       engine.ID
	priority engine.Priority
	seq      uint64
	index    int
}

// requestHeap orders by priority, then by arrival
type requestHeap []*request

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *requestHeap) Push(x interface{}) {
	r := x.(*request)
	r.index = len(*h)
	*h = append(*h, r)
}
func (h *requestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*h = old[:n-1]
	return r
}

// requestQueue holds at most one pending request per window
type requestQueue struct {
	mu      sync.Mutex
	heap    requestHeap
	pending map[engine.ID]*request
	seq     uint64
	ready   chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		pending: make(map[engine.ID]*request),
		ready:   make(chan struct{}, 1),
	}
}

// push adds a request or upgrades the pending one for id
func (q *requestQueue) push(id engine.ID, priority engine.Priority) {
	q.mu.Lock()
	if r, ok := q.pending[id]; ok {
		if priority < r.priority {
			r.priority = priority
			heap.Fix(&q.heap, r.index)
		}
		q.mu.Unlock()
		return
	}
	q.seq++
	r := &request{id: id, priority: priority, seq: q.seq}
	heap.Push(&q.heap, r)
	q.pending[id] = r
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop removes the most urgent request
func (q *requestQueue) pop() (engine.ID, engine.Priority, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return 0, 0, false
	}
	r := heap.Pop(&q.heap).(*request)
	delete(q.pending, r.id)
	return r.id, r.priority, true
}

// remove drops the pending request for id, if any
func (q *requestQueue) remove(id engine.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.pending[id]; ok {
		heap.Remove(&q.heap, r.index)
		delete(q.pending, id)
	}
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
