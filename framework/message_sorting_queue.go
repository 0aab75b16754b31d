package framework

import (
	"sort"
	"sync"
)

// MessageSortingQueue receives items tagged with a 1-based sequence counter, possibly out
// of order, and delivers them on C in counter order. Items that arrive early are held back
// until every item before them has been delivered.
type MessageSortingQueue[T any] struct {
	C           chan T
	lastCounter int
	deferred    []deferredMessage[T]
	lock        sync.Mutex
	closeOnce   sync.Once
}

type deferredMessage[T any] struct {
	counter int
	message T
}

func NewMessageSortingQueue[T any](channelSize int) *MessageSortingQueue[T] {
	return &MessageSortingQueue[T]{C: make(chan T, channelSize)}
}

// Accept adds an item. The channel must have room for every item that can become
// deliverable, or Accept blocks while holding the lock.
func (q *MessageSortingQueue[T]) Accept(counter int, message T) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if counter > q.lastCounter+1 {
		q.deferred = append(q.deferred, deferredMessage[T]{counter: counter, message: message})
		sort.Slice(q.deferred, func(i, j int) bool { return q.deferred[i].counter < q.deferred[j].counter })
		return
	}
	q.lastCounter = counter
	q.C <- message
	for len(q.deferred) > 0 {
		next := q.deferred[0]
		if next.counter != q.lastCounter+1 {
			break
		}
		q.deferred = q.deferred[1:]
		q.lastCounter++
		q.C <- next.message
	}
}

func (q *MessageSortingQueue[T]) Deferred() []T {
	q.lock.Lock()
	ret := make([]T, 0, len(q.deferred))
	for _, d := range q.deferred {
		ret = append(ret, d.message)
	}
	q.lock.Unlock()
	return ret
}

func (q *MessageSortingQueue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.C)
	})
}
