package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wansing/modflow/auth"
)

// Policy configures workflow behavior at the orchestrator boundary.
type Policy struct {
	// RetractOnEdit removes the public counterpart of a node when the node is
	// edited again, together with the counterparts below it (descendant
	// visibility stays consistent with ancestor visibility). If false, the
	// old counterpart stays visible until the next successful materialize.
	RetractOnEdit bool
}

// CoreDB composes the storage interfaces with the engine operations.
//
// Mutating operations take the write lock and the read paths take the read
// lock, so a state flip and its propagation side effects are never
// observable half-applied. Of two concurrent approvals on the same node one
// transitions and materializes, the other observes the idempotent Approved
// result.
type CoreDB struct {
	GrantDB
	NodeDB
	PublicDB
	auth.UserDB

	Policy Policy

	mu sync.RWMutex
}

// GetNode loads the node with the given id and its ancestor chain.
func (c *CoreDB) GetNode(id int) (*Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openNode(id)
}

// PublicCounterpart returns the public counterpart of the node, or nil if
// there is none.
func (c *CoreDB) PublicCounterpart(nodeID int) (DBPublic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicCounterpart(nodeID)
}

func (c *CoreDB) publicCounterpart(nodeID int) (DBPublic, error) {
	public, err := c.PublicDB.GetPublic(nodeID)
	if err != nil {
		if c.PublicDB.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return public, nil
}

// HasPublicCounterpart reports whether the node is materialized.
func (c *CoreDB) HasPublicCounterpart(nodeID int) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	public, err := c.publicCounterpart(nodeID)
	return public != nil, err
}

// CreateNode creates a node below the given parent, parent id zero meaning a
// new root node. The actor needs the add capability on the parent. The new
// node starts in Changed and has no public counterpart.
func (c *CoreDB) CreateNode(actor auth.User, parentID int, slug string) (*Node, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	var parent *Node
	if parentID != 0 {
		var err error
		parent, err = c.openNode(parentID)
		if err != nil {
			return nil, err
		}
	}

	if err := c.RequireCapability(actor, parent, Add); err != nil {
		return nil, err
	}

	if parent.Depth() >= maxDepth {
		return nil, fmt.Errorf("node %d: tree too deep", parent.ID())
	}

	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, errors.New("slug can't be empty")
	}

	dbNode, err := c.NodeDB.InsertNode(parentID, slug, Changed)
	if err != nil {
		return nil, err
	}

	return &Node{
		DBNode: dbNode,
		Parent: parent,
		db:     c,
	}, nil
}

// EditNode records an edit of the node. The actor needs the change
// capability, which is re-checked on every edit regardless of who created
// the node. The node goes back to Changed. An existing counterpart from a
// prior approval is kept or retracted depending on Policy.RetractOnEdit.
func (c *CoreDB) EditNode(actor auth.User, nodeID int) (*Node, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.openNode(nodeID)
	if err != nil {
		return nil, err
	}

	if err := c.RequireCapability(actor, n, Change); err != nil {
		return nil, err
	}

	if c.Policy.RetractOnEdit {
		if err := c.retract(n); err != nil {
			return nil, err
		}
	}

	if err := c.NodeDB.SetState(n.DBNode, Changed); err != nil {
		return nil, err
	}
	return n, nil
}

// RequestPublish submits the node for publication. The actor needs the
// publish capability. With zero moderator assignments in scope the node goes
// straight to Approved (or ApprovedWaitingForParents if an ancestor is not
// public), else to NeedApprovement.
func (c *CoreDB) RequestPublish(actor auth.User, nodeID int) (ModerationState, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.openNode(nodeID)
	if err != nil {
		return 0, err
	}

	if err := c.RequireCapability(actor, n, Publish); err != nil {
		return 0, err
	}

	return c.requestPublish(n)
}

// Approve records a moderator's sign-off on the node. Valid only from
// NeedApprovement; approving an already approved node is a no-op returning
// the same state. The actor must hold a moderator assignment covering the
// node, superusers pass without one.
func (c *CoreDB) Approve(actor auth.User, nodeID int) (ModerationState, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.openNode(nodeID)
	if err != nil {
		return 0, err
	}

	switch n.State() {
	case NeedApprovement:
		// the regular case
	case Approved:
		return Approved, nil
	default:
		return 0, fmt.Errorf("approve node %d in state %q: %w", n.ID(), n.State(), ErrInvalidStateTransition)
	}

	if actor == nil {
		return 0, ErrPermissionDenied
	}
	if !actor.Superuser() {
		ok, err := c.isModerator(actor, n)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrPermissionDenied
		}
	}

	return c.approveNode(n)
}

// CopySubtree deep-copies the node and its descendants below the target
// parent, including permission grants and moderator assignments. Every
// copied node starts in Changed with no public counterpart, regardless of
// the state of its source. The actor needs the add capability on the target
// parent.
func (c *CoreDB) CopySubtree(actor auth.User, sourceID, targetParentID int) (*Node, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	source, err := c.openNode(sourceID)
	if err != nil {
		return nil, err
	}

	var target *Node
	if targetParentID != 0 {
		target, err = c.openNode(targetParentID)
		if err != nil {
			return nil, err
		}
	}

	if err := c.RequireCapability(actor, target, Add); err != nil {
		return nil, err
	}

	if target != nil && (target.ID() == source.ID() || target.IsDescendantOf(source)) {
		return nil, errors.New("can't copy node below itself")
	}

	return c.copyNode(source, target)
}

func (c *CoreDB) copyNode(source, targetParent *Node) (*Node, error) {

	if targetParent.Depth() >= maxDepth {
		return nil, errors.New("tree too deep")
	}

	slug, err := c.availableSlug(targetParent.ID(), source.Slug())
	if err != nil {
		return nil, err
	}

	dbNode, err := c.NodeDB.InsertNode(targetParent.ID(), slug, Changed)
	if err != nil {
		return nil, err
	}

	var copied = &Node{
		DBNode: dbNode,
		Parent: targetParent,
		db:     c,
	}

	grants, err := c.GrantDB.GetGrantsOn(source.ID())
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		if err := c.GrantDB.InsertGrant(grant.UserID(), copied.ID(), grant.Capabilities(), grant.Moderate()); err != nil {
			return nil, err
		}
	}

	children, err := source.Children()
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if _, err := c.copyNode(child, copied); err != nil {
			return nil, err
		}
	}

	return copied, nil
}

// availableSlug appends a numeric suffix until the slug is free below the
// parent.
func (c *CoreDB) availableSlug(parentID int, slug string) (string, error) {
	var candidate = slug
	for i := 2; ; i++ {
		_, err := c.NodeDB.GetNodeBySlug(parentID, candidate)
		if err != nil {
			if c.NodeDB.IsNotFound(err) {
				return candidate, nil
			}
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
}

// DeleteNode shadows NodeDB.DeleteNode. It removes a leaf node along with its
// counterpart and the grants assigned on it. The actor needs the delete
// capability.
func (c *CoreDB) DeleteNode(actor auth.User, nodeID int) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.openNode(nodeID)
	if err != nil {
		return err
	}

	if err := c.RequireCapability(actor, n, Delete); err != nil {
		return err
	}

	count, err := n.CountChildren()
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("can't delete node with child nodes")
	}

	if err := c.retract(n); err != nil {
		return err
	}
	if err := c.GrantDB.RemoveGrantsOn(n.ID()); err != nil {
		return err
	}
	return c.NodeDB.DeleteNode(n.DBNode)
}
