package chathub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuschat/internal/chathub"
)

// TestMatcherNeedsTwoUsers verifies no pairing happens with fewer than two
// waiting users.
func TestMatcherNeedsTwoUsers(t *testing.T) {
	var m chathub.Matcher
	q := chathub.NewWaitQueue()

	_, _, ok := m.TryMatch(q)
	assert.False(t, ok)

	q.Enqueue("solo")
	_, _, ok = m.TryMatch(q)
	assert.False(t, ok)
	assert.True(t, q.Contains("solo"), "lone user should remain waiting")
}

// TestMatcherPairsEarliestTwo verifies the two longest-waiting users are
// paired, in order, and removed from the queue.
func TestMatcherPairsEarliestTwo(t *testing.T) {
	var m chathub.Matcher
	q := chathub.NewWaitQueue()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	userA, userB, ok := m.TryMatch(q)
	require.True(t, ok)
	assert.Equal(t, "a", userA)
	assert.Equal(t, "b", userB)
	assert.Equal(t, []string{"c"}, q.Snapshot())
}

// TestMatcherDrainsQueueInPairs verifies repeated attempts consume the
// queue two at a time until one or zero users remain.
func TestMatcherDrainsQueueInPairs(t *testing.T) {
	var m chathub.Matcher
	q := chathub.NewWaitQueue()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		q.Enqueue(id)
	}

	pairs := 0
	for {
		_, _, ok := m.TryMatch(q)
		if !ok {
			break
		}
		pairs++
	}
	assert.Equal(t, 2, pairs)
	assert.Equal(t, []string{"e"}, q.Snapshot())
}
