package core

import (
	"errors"
)

var (
	// ErrPermissionDenied is returned when the acting user lacks a required
	// capability or moderator assignment. Callers should not retry.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidStateTransition is returned when a transition is not legal
	// from the node's current moderation state, including the losing side of
	// two concurrent approvals. Callers may refetch and retry.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAncestorNotPublic is returned on a direct materialization attempt
	// while an ancestor has no public counterpart. During approval this is
	// not an error, it is the path into ApprovedWaitingForParents.
	ErrAncestorNotPublic = errors.New("ancestor not public")

	// ErrNotFound is returned when a referenced node, user or grant is absent.
	ErrNotFound = errors.New("not found")
)
