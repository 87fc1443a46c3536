package core

// The ModerationState of a node tracks where it stands in the moderation
// pipeline. There is no terminal state, a node can cycle through the pipeline
// again with every edit.
type ModerationState int

const (
	// Changed means the node was created or edited and nobody reviewed it yet.
	Changed ModerationState = 1

	// NeedApprovement means publication was requested and at least one
	// moderator has to sign off.
	NeedApprovement ModerationState = 2

	// Approved means all required moderators signed off and the node's own
	// approval condition is met. An approved node has a public counterpart.
	Approved ModerationState = 10

	// ApprovedWaitingForParents means the node is approved but can not
	// materialize yet because an ancestor is not public.
	ApprovedWaitingForParents ModerationState = 11
)

func (s ModerationState) String() string {
	switch s {
	case Changed:
		return "changed"
	case NeedApprovement:
		return "need approvement"
	case Approved:
		return "approved"
	case ApprovedWaitingForParents:
		return "approved, waiting for parents"
	}
	return "unknown"
}

func (s ModerationState) Valid() bool {
	switch s {
	case Changed, NeedApprovement, Approved, ApprovedWaitingForParents:
		return true
	default:
		return false
	}
}
