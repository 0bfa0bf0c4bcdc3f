// Package buffer implements the write queue shared between a stream's
// callers and its worker.
package buffer

import (
	"container/list"
	"sync"
)

// Callback is invoked once the full payload of an entry has been written.
type Callback func(b []byte, n int, args ...interface{})

type Entry struct {
	Data     []byte
	Callback Callback
	Args     []interface{}
}

// Remainder returns a new entry holding the bytes after the first n,
// carrying the same callback and arguments.
func (e Entry) Remainder(n int) Entry {
	if n > len(e.Data) {
		n = len(e.Data)
	}
	return Entry{
		Data:     e.Data[n:],
		Callback: e.Callback,
		Args:     e.Args,
	}
}

// Queue is a double-ended queue of entries. Every method, including the
// emptiness test, holds the lock.
type Queue struct {
	entries *list.List
	mu      sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{entries: list.New()}
}

func (q *Queue) PushTail(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries.PushBack(e)
}

func (q *Queue) PushHead(e Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries.PushFront(e)
}

func (q *Queue) PopTail() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remove(q.entries.Back())
}

func (q *Queue) PopHead() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remove(q.entries.Front())
}

func (q *Queue) PeekHead() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return peek(q.entries.Front())
}

func (q *Queue) PeekTail() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return peek(q.entries.Back())
}

func (q *Queue) Empty() bool {
	return q.Len() == 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

func (q *Queue) remove(el *list.Element) (Entry, bool) {
	if el == nil {
		return Entry{}, false
	}
	return q.entries.Remove(el).(Entry), true
}

func peek(el *list.Element) (Entry, bool) {
	if el == nil {
		return Entry{}, false
	}
	return el.Value.(Entry), true
}
