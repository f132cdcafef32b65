package framework

import "sync"

// Mailbox is a FIFO handing values from producer goroutines to the loop.
// Post and Pop are the only synchronization points.
type Mailbox[T any] struct {
	// Limit caps queued values, 0 means unlimited. Values posted to a full
	// mailbox are dropped.
	Limit int

	lock sync.Mutex
	head *mailItem[T]
	tail *mailItem[T]
	size int
}

type mailItem[T any] struct {
	val  T
	next *mailItem[T]
}

// Post enqueues a value. It returns false if the value was dropped.
func (m *Mailbox[T]) Post(val T) bool {
	item := &mailItem[T]{val: val}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Limit > 0 && m.size >= m.Limit {
		return false
	}
	if m.head == nil {
		m.head = item
	} else {
		m.tail.next = item
	}
	m.tail = item
	m.size++
	return true
}

// Pop dequeues the oldest value without blocking.
func (m *Mailbox[T]) Pop() (val T, ok bool) {
	m.lock.Lock()
	item := m.head
	if item != nil {
		if m.head = item.next; m.head == nil {
			m.tail = nil
		}
		m.size--
	}
	m.lock.Unlock()
	if item == nil {
		return
	}
	return item.val, true
}

// Drain takes all queued values at once.
func (m *Mailbox[T]) Drain() []T {
	m.lock.Lock()
	head := m.head
	m.head, m.tail, m.size = nil, nil, 0
	m.lock.Unlock()
	var vals []T
	for ; head != nil; head = head.next {
		vals = append(vals, head.val)
	}
	return vals
}

// Len returns the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.size
}
