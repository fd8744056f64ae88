// Package blackboard implements the per-episode FrameData store: a
// single-writer, many-reader mapping from topic key to the latest published
// message, plus a latched termination flag. No history is kept; a reader
// always observes whatever the owning writer most recently published.
//
// Topics are pre-registered string constants below. Get and Set are generic
// over the expected payload type so a topic's readers and writer agree at
// compile time without runtime type assertions scattered through the node
// implementations.
package blackboard

import "fmt"

// Topic identifies a single-writer slot on the blackboard.
type Topic string

// Recognised topics. Each has exactly one owning writer node; see the
// package doc comment of the node that publishes it.
const (
	TopicWorld       Topic = "world"
	TopicEgoState    Topic = "ego_state"
	TopicLidarScan   Topic = "lidar_scan"
	TopicControlCmd  Topic = "control_cmd"
	TopicObstacles   Topic = "obstacles"
	TopicTermination Topic = "termination_reason"
)

// Blackboard is the shared per-tick state owned exclusively by the Executor.
// It is never accessed from more than one goroutine at a time: the
// single-threaded scheduling model in §5 makes locking unnecessary.
type Blackboard struct {
	values     map[Topic]any
	terminated bool
}

// New returns an empty Blackboard with no termination signal set.
func New() *Blackboard {
	return &Blackboard{values: make(map[Topic]any)}
}

// Set publishes val under topic, overwriting any previous value.
func Set[T any](b *Blackboard, topic Topic, val T) {
	b.values[topic] = val
}

// Get reads the current value published under topic. ok is false if nothing
// has been published yet, or if the stored value is not of type T.
func Get[T any](b *Blackboard, topic Topic) (val T, ok bool) {
	raw, present := b.values[topic]
	if !present {
		return val, false
	}
	typed, ok := raw.(T)
	return typed, ok
}

// MustGet is Get but panics on a missing or mistyped topic. Nodes should use
// this only for topics their own contract guarantees are published before
// they run (i.e. by a strictly higher-priority node earlier in the same
// tick, or by on_init).
func MustGet[T any](b *Blackboard, topic Topic) T {
	val, ok := Get[T](b, topic)
	if !ok {
		panic(fmt.Sprintf("blackboard: topic %q missing or wrong type", topic))
	}
	return val
}

// Terminate latches the termination signal. Once set it remains set for the
// rest of the episode; Terminate is idempotent.
func (b *Blackboard) Terminate() { b.terminated = true }

// Terminated reports whether the termination signal has been latched.
func (b *Blackboard) Terminated() bool { return b.terminated }
