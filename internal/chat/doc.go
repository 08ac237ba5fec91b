// Package chat coordinates user-initiated conversation mutations with
// streaming generation sessions.
//
// [Chat] is the single entry point for every structural change to a
// conversation: submitting a user turn, editing a previous user message,
// regenerating an assistant reply, deleting messages, clearing the history,
// and stopping an in-flight generation. It owns both the
// [conversation.History] and the at-most-one active [generation.Session],
// and serializes them behind one mutex.
//
// # Cancel before mutate
//
// Every structural mutation first bumps the generation token and cancels the
// active session, then touches the history. Session callbacks compare their
// token against the current one and are silently discarded on mismatch, so a
// straggling delta from a superseded stream can never resurrect content that
// was just edited away. This is the only race the coordinator defends
// against; everything else is plain mutual exclusion.
//
// # Observing progress
//
// Mutation calls return immediately. Streaming progress is observed through
// [Chat.Subscribe]: delta, complete, failed, cancelled and mutated events are
// delivered best-effort over buffered channels, and the UI re-reads
// [Chat.Snapshot] whenever it cares about exact state.
package chat
