package core

// A DBPublic is the materialized, publicly visible projection of a node. It
// mirrors the structural attributes of its source node as they were at the
// moment of materialization. It references the source node by id only.
type DBPublic interface {
	NodeID() int
	ParentID() int
	Lft() int
	Rght() int
	Level() int
	Published() bool
	TsCreated() int64
}

type PublicDB interface {
	DeletePublic(nodeID int) error
	GetPublic(nodeID int) (DBPublic, error)
	InsertPublic(n DBNode) (DBPublic, error)
	IsNotFound(err error) bool
}
