package service

import "errors"

// Sentinel errors surfaced by the approval engine. Handlers map these to HTTP
// status codes; anything else is treated as a persistence failure.
var (
	// ErrNotFound: the referenced entity, workflow or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput: a malformed identifier or payload field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotApprover: the acting user is not the record's designated approver.
	ErrNotApprover = errors.New("acting user is not the designated approver")

	// ErrInvalidAction: the action is neither "approve" nor "reject".
	ErrInvalidAction = errors.New("invalid action: must be 'approve' or 'reject'")

	// ErrNoApprovers: approver resolution produced an empty set, so the
	// workflow cannot be created.
	ErrNoApprovers = errors.New("cannot determine approver")

	// ErrAlreadyProcessed: the record or its workflow already reached a
	// terminal state.
	ErrAlreadyProcessed = errors.New("approval already processed")

	// ErrNoOptions: a step type has no valid assigned-value options at all.
	ErrNoOptions = errors.New("no options available for step type")
)
