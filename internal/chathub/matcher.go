package chathub

// Matcher holds the pairing decision logic. It is a coordination queue, not
// a scheduler: the earliest-enqueued user is paired with the next distinct
// waiting user, and that is the whole algorithm. Match attempts run inside
// the event that changed the queue (join, requeue after a teardown), never
// on a periodic tick.
type Matcher struct{}

// TryMatch selects the earliest waiting user and the next waiting user that
// is not the same person, removes both from the queue and returns them.
// ok is false when fewer than two distinct users are waiting.
func (Matcher) TryMatch(q *WaitQueue) (userA, userB string, ok bool) {
	if q.Len() < 2 {
		return "", "", false
	}
	waiting := q.Snapshot()
	userA = waiting[0]
	for _, candidate := range waiting[1:] {
		if candidate != userA {
			userB = candidate
			break
		}
	}
	if userB == "" {
		return "", "", false
	}
	q.Dequeue(userA)
	q.Dequeue(userB)
	return userA, userB, true
}
