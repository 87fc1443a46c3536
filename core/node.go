package core

import (
	"fmt"
	"regexp"
	"strings"
)

type DBNode interface {
	ID() int
	ParentID() int // zero if node is root
	Slug() string
	Lft() int   // tree ordering key
	Rght() int  // right-bound tree ordering key
	Level() int // depth, root nodes are level zero
	State() ModerationState
	TsCreated() int64
}

type NodeDB interface {
	CountChildren(id int) (int, error)
	DeleteNode(n DBNode) error
	GetChildren(id int) ([]DBNode, error) // ordered by tree position
	GetNodeByID(id int) (DBNode, error)
	GetNodeBySlug(parentID int, slug string) (DBNode, error)
	InsertNode(parentID int, slug string, state ModerationState) (DBNode, error)
	IsNotFound(err error) bool
	SetState(n DBNode, state ModerationState) error
}

// A Node wraps a DBNode with its ancestor chain. The chain is acyclic and
// finite, the engine refuses to open nodes deeper than maxDepth.
type Node struct {
	DBNode
	Parent *Node // nil if node is root
	db     *CoreDB
}

const maxDepth = 16

// openNode loads the node with the given id and its whole ancestor chain.
func (c *CoreDB) openNode(id int) (*Node, error) {

	var chain = []DBNode{} // leaf first

	for id != 0 {
		if len(chain) >= maxDepth {
			return nil, fmt.Errorf("node %d: ancestor chain too deep", chain[0].ID())
		}
		dbNode, err := c.NodeDB.GetNodeByID(id)
		if err != nil {
			if c.NodeDB.IsNotFound(err) {
				return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
			}
			return nil, err
		}
		chain = append(chain, dbNode)
		id = dbNode.ParentID()
	}

	var n *Node
	for i := len(chain) - 1; i >= 0; i-- {
		n = &Node{
			DBNode: chain[i],
			Parent: n,
			db:     c,
		}
	}
	return n, nil
}

// ID shadows DBNode.ID. If the receiver is nil, it returns zero.
func (n *Node) ID() int {
	if n != nil {
		return n.DBNode.ID()
	}
	return 0
}

// Ancestors returns the ancestor chain of the node, root first, without the
// node itself.
func (n *Node) Ancestors() []*Node {
	var ancestors []*Node
	for m := n.Parent; m != nil; m = m.Parent {
		ancestors = append([]*Node{m}, ancestors...)
	}
	return ancestors
}

// IsDescendantOf returns whether the node is below the other node. A node is
// not a descendant of itself.
func (n *Node) IsDescendantOf(other *Node) bool {
	for m := n.Parent; m != nil; m = m.Parent {
		if m.ID() == other.ID() {
			return true
		}
	}
	return false
}

func (n *Node) Depth() int {
	var depth = 0
	for m := n; m != nil; m = m.Parent {
		depth++
	}
	return depth
}

func (n *Node) Children() ([]*Node, error) {
	dbChildren, err := n.db.NodeDB.GetChildren(n.ID())
	if err != nil {
		return nil, err
	}
	var children = make([]*Node, 0, len(dbChildren))
	for _, c := range dbChildren {
		children = append(children, &Node{
			DBNode: c,
			Parent: n,
			db:     n.db,
		})
	}
	return children, nil
}

func (n *Node) CountChildren() (int, error) {
	return n.db.NodeDB.CountChildren(n.ID())
}

func (n *Node) String() string {
	return n.Slug()
}

var slugRegex *regexp.Regexp = regexp.MustCompile(`[^a-z0-9]+`)

// Normalizes a slug. Runs of anything but lowercase letters and digits
// collapse into a single dash.
func NormalizeSlug(slug string) string {

	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = slugRegex.ReplaceAllString(slug, `-`)

	for len(slug) > 0 && slug[len(slug)-1] == '-' {
		slug = slug[:len(slug)-1]
	}

	return slug
}
