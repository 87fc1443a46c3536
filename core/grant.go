package core

type DBGrant interface {
	UserID() int
	NodeID() int // zero means global, covering the whole tree
	Capabilities() CapabilitySet
	Moderate() bool // whether the user's approval is required below NodeID
}

type GrantDB interface {
	GetAllGrants() ([]DBGrant, error)
	GetGrant(userID, nodeID int) (DBGrant, error)
	GetGrantsOn(nodeID int) ([]DBGrant, error)
	InsertGrant(userID, nodeID int, caps CapabilitySet, moderate bool) error
	IsNotFound(err error) bool
	RemoveGrant(userID, nodeID int) error
	RemoveGrantsOn(nodeID int) error
}
