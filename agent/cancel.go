package agent

import (
	"context"
	"sync"
	"time"

	"github.com/tesobe/opey-go/graph"
)

// DefaultCancelTTL is how long an unconsumed cancellation flag survives
// before the sweeper discards it.
const DefaultCancelTTL = 10 * time.Minute

// cancelledMessage is appended to the transcript when a turn is
// short-circuited by a cancellation request.
const cancelledMessage = "[Cancelled]"

// CancelCoordinator tracks cancellation requests per thread.
//
// Cancellation is cooperative: requesting it sets a flag, and the
// engine's guard consumes the flag at the next node boundary. A node
// already executing finishes first, so cancellation latency is bounded
// by the longest single node body. Flags that are never consumed (the
// turn finished before the flag was checked, or the thread went idle)
// expire after the TTL.
type CancelCoordinator struct {
	mu    sync.Mutex
	flags map[string]time.Time
	ttl   time.Duration
}

// NewCancelCoordinator creates a coordinator with the given flag TTL.
// A non-positive TTL falls back to DefaultCancelTTL.
func NewCancelCoordinator(ttl time.Duration) *CancelCoordinator {
	if ttl <= 0 {
		ttl = DefaultCancelTTL
	}
	return &CancelCoordinator{
		flags: make(map[string]time.Time),
		ttl:   ttl,
	}
}

// Request flags the thread for cancellation. Requesting an already
// flagged thread refreshes the flag's timestamp.
func (c *CancelCoordinator) Request(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags[threadID] = time.Now()
}

// IsCancelled reports whether the thread has an unexpired cancellation
// flag.
func (c *CancelCoordinator) IsCancelled(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.flags[threadID]
	if !ok {
		return false
	}
	if time.Since(at) > c.ttl {
		delete(c.flags, threadID)
		return false
	}
	return true
}

// Clear removes the thread's cancellation flag, if any.
func (c *CancelCoordinator) Clear(threadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flags, threadID)
}

// Sweep removes flags older than maxAge and returns how many were
// discarded.
func (c *CancelCoordinator) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for threadID, at := range c.flags {
		if time.Since(at) > maxAge {
			delete(c.flags, threadID)
			removed++
		}
	}
	return removed
}

// StartSweeper launches a background goroutine that sweeps expired
// flags every interval until the context is cancelled.
func (c *CancelCoordinator) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(c.ttl)
			}
		}
	}()
}

// Guard returns the engine guard implementing cooperative cancellation.
//
// When the thread is flagged, the guard short-circuits the node with a
// delta that appends a cancellation marker to the transcript and leaves
// the token counter untouched, then clears the flag. Pending tool calls
// are closed out with error results so the transcript stays valid for
// the next model call. Routing continues from the merged state, so a
// cancelled step with nothing pending ends the turn normally.
func (c *CancelCoordinator) Guard() graph.Guard[State] {
	return func(ctx context.Context, threadID, nodeID string, s State) (graph.NodeResult[State], bool) {
		if !c.IsCancelled(threadID) {
			return graph.NodeResult[State]{}, false
		}
		c.Clear(threadID)

		var messages []Message
		for _, tc := range s.PendingToolCalls() {
			messages = append(messages, ToolErrorMessage(tc.ID, "cancelled by user"))
		}
		messages = append(messages, AIMessage(cancelledMessage))

		return graph.NodeResult[State]{Delta: State{Messages: messages}}, true
	}
}
