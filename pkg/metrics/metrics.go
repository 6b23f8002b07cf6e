// Package metrics holds process-wide counters exposed on the API server.
package metrics

import "sync/atomic"

// Counter is a monotonically increasing value safe for concurrent use.
type Counter struct {
	v atomic.Int64
}

func (c *Counter) Inc() {
	c.v.Add(1)
}

func (c *Counter) Add(n int64) {
	c.v.Add(n)
}

func (c *Counter) Value() int64 {
	return c.v.Load()
}

var (
	SessionsOpened     Counter
	SessionsClosed     Counter
	FramesIn           Counter
	FramesOut          Counter
	DecodeErrors       Counter
	DroppedMessages    Counter
	SlowConsumers      Counter
	MonumentsRequested Counter
	MonumentsAccepted  Counter
	MonumentsFailed    Counter
	MonumentsCompleted Counter
	TokensCollected    Counter
)

// Snapshot returns the current value of every counter keyed by name.
func Snapshot() map[string]any {
	return map[string]any{
		"sessions_opened":     SessionsOpened.Value(),
		"sessions_closed":     SessionsClosed.Value(),
		"sessions_active":     SessionsOpened.Value() - SessionsClosed.Value(),
		"frames_in":           FramesIn.Value(),
		"frames_out":          FramesOut.Value(),
		"decode_errors":       DecodeErrors.Value(),
		"dropped_messages":    DroppedMessages.Value(),
		"slow_consumers":      SlowConsumers.Value(),
		"monuments_requested": MonumentsRequested.Value(),
		"monuments_accepted":  MonumentsAccepted.Value(),
		"monuments_failed":    MonumentsFailed.Value(),
		"monuments_completed": MonumentsCompleted.Value(),
		"tokens_collected":    TokensCollected.Value(),
	}
}
