package conversation

import "errors"

// Sentinel errors for history operations. They are part of the package's
// public API and should be checked with errors.Is().
//
// Example:
//
//	if err := h.ReplaceContent(id, text); errors.Is(err, conversation.ErrNotFound) {
//	    // stale UI reference, surface as a rejected mutation
//	}
var (
	// ErrNotFound indicates the referenced message ID does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrInvalidRole indicates a mutation targeted a message of the wrong
	// role, such as editing an assistant reply.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvariant indicates an append would break conversation ordering or
	// uniqueness rules. The coordinator never produces such appends; seeing
	// this error from the public mutation API is a bug.
	ErrInvariant = errors.New("conversation invariant violated")
)
