package sequence

import (
	"cmp"
	"container/heap"
)

type PriorityItem[T any, P cmp.Ordered] struct {
	Value    T
	Priority P
	seq      uint64
	index    int
}

type priorityQueue[T any, P cmp.Ordered] struct {
	items []*PriorityItem[T, P]
	min   bool
}

func (pq *priorityQueue[T, P]) Len() int {
	return len(pq.items)
}

// Less orders by priority, then by insertion so equal priorities pop in FIFO order.
func (pq *priorityQueue[T, P]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority != b.Priority {
		if pq.min {
			return a.Priority < b.Priority
		}
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

func (pq *priorityQueue[T, P]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *priorityQueue[T, P]) Push(x any) {
	item := x.(*PriorityItem[T, P])
	item.index = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *priorityQueue[T, P]) Pop() any {
	old := pq.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	pq.items = old[0 : n-1]
	return item
}

type PriorityQueue[T any, P cmp.Ordered] struct {
	pq  priorityQueue[T, P]
	seq uint64
}

// NewPriorityQueue pops the highest priority first.
func NewPriorityQueue[T any, P cmp.Ordered]() *PriorityQueue[T, P] {
	pq := &PriorityQueue[T, P]{}
	heap.Init(&pq.pq)
	return pq
}

// NewMinPriorityQueue pops the lowest priority first.
func NewMinPriorityQueue[T any, P cmp.Ordered]() *PriorityQueue[T, P] {
	pq := &PriorityQueue[T, P]{pq: priorityQueue[T, P]{min: true}}
	heap.Init(&pq.pq)
	return pq
}

func (pq *PriorityQueue[T, P]) Enqueue(value T, priority P) *PriorityItem[T, P] {
	pq.seq++
	item := &PriorityItem[T, P]{
		Value:    value,
		Priority: priority,
		seq:      pq.seq,
	}
	heap.Push(&pq.pq, item)
	return item
}

func (pq *PriorityQueue[T, P]) Dequeue() (T, P, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		var none P
		return zero, none, false
	}
	item := heap.Pop(&pq.pq).(*PriorityItem[T, P])
	return item.Value, item.Priority, true
}

func (pq *PriorityQueue[T, P]) Peek() (T, bool) {
	if pq.pq.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.pq.items[0].Value, true
}

func (pq *PriorityQueue[T, P]) Update(item *PriorityItem[T, P], value T, priority P) {
	item.Value = value
	item.Priority = priority
	heap.Fix(&pq.pq, item.index)
}

func (pq *PriorityQueue[T, P]) Len() int {
	return pq.pq.Len()
}

func (pq *PriorityQueue[T, P]) IsEmpty() bool {
	return pq.pq.Len() == 0
}
