// Package conversation holds the canonical in-memory message sequence for a
// single brainstorm chat.
//
// A [History] is an ordered sequence of [Message] values. Insertion order is
// turn order. The package enforces the structural rules of a conversation:
//
//   - message IDs are unique and never reused
//   - at most one message is streaming, and it is always the last one
//   - an assistant message is always preceded by a user message
//   - two assistant messages never sit next to each other
//
// History performs no I/O and knows nothing about generation. All structural
// changes are driven by the chat coordinator; UI layers only ever see value
// copies via [History.Snapshot].
//
// # Concurrency
//
// History is safe for concurrent use. Writes come from two goroutines at most:
// the coordinator applying a mutation and an active generation session
// appending streamed deltas. A sync.RWMutex keeps both consistent.
package conversation
