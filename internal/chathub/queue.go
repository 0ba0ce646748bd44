package chathub

// WaitQueue is the ordered pool of users currently seeking a partner.
// Strict FIFO order of insertion is the only ordering guarantee; there is
// no priority or preference matching. Guarded by the hub's mutex.
type WaitQueue struct {
	order   []string
	present map[string]struct{}
}

func NewWaitQueue() *WaitQueue {
	return &WaitQueue{present: make(map[string]struct{})}
}

// Enqueue appends the user unless already waiting. Returns false for the
// duplicate case.
func (q *WaitQueue) Enqueue(userID string) bool {
	if _, ok := q.present[userID]; ok {
		return false
	}
	q.present[userID] = struct{}{}
	q.order = append(q.order, userID)
	return true
}

// Dequeue removes the user if present, no-op otherwise.
func (q *WaitQueue) Dequeue(userID string) bool {
	if _, ok := q.present[userID]; !ok {
		return false
	}
	delete(q.present, userID)
	for i, id := range q.order {
		if id == userID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

func (q *WaitQueue) Contains(userID string) bool {
	_, ok := q.present[userID]
	return ok
}

func (q *WaitQueue) Len() int {
	return len(q.order)
}

// Snapshot returns the waiting users in insertion order.
func (q *WaitQueue) Snapshot() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}
