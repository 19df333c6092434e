package cache

import (
	"container/heap"
	"sync"
)

type queueItem struct {
	job      WarmupJob
	priority int
	index    int
}

type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	return h[i].priority > h[j].priority
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

// PriorityQueue holds the warmer's standing job set ordered by
// priority, highest first.
type PriorityQueue struct {
	items itemHeap
	mu    sync.RWMutex
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{items: make(itemHeap, 0)}
}

func (pq *PriorityQueue) Push(job WarmupJob) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	heap.Push(&pq.items, &queueItem{job: job, priority: job.Priority})
}

func (pq *PriorityQueue) Pop() (WarmupJob, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if len(pq.items) == 0 {
		return WarmupJob{}, false
	}

	item := heap.Pop(&pq.items).(*queueItem)
	return item.job, true
}

func (pq *PriorityQueue) Peek() (WarmupJob, bool) {
	pq.mu.RLock()
	defer pq.mu.RUnlock()

	if len(pq.items) == 0 {
		return WarmupJob{}, false
	}

	return pq.items[0].job, true
}

func (pq *PriorityQueue) Len() int {
	pq.mu.RLock()
	defer pq.mu.RUnlock()
	return len(pq.items)
}

func (pq *PriorityQueue) Empty() bool {
	return pq.Len() == 0
}

func (pq *PriorityQueue) Clear() {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	pq.items = pq.items[:0]
}

// GetJobs snapshots the standing jobs without draining the queue. The
// slice is in heap order, not fully sorted.
func (pq *PriorityQueue) GetJobs() []WarmupJob {
	pq.mu.RLock()
	defer pq.mu.RUnlock()

	jobs := make([]WarmupJob, len(pq.items))
	for i, item := range pq.items {
		jobs[i] = item.job
	}
	return jobs
}
