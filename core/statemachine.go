package core

// ancestorsPublic reports whether every ancestor of n has a public
// counterpart. A root node trivially passes.
func (c *CoreDB) ancestorsPublic(n *Node) (bool, error) {
	for m := n.Parent; m != nil; m = m.Parent {
		if _, err := c.PublicDB.GetPublic(m.ID()); err != nil {
			if c.PublicDB.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// materialize creates the public counterpart of n, mirroring its structural
// attributes. Materializing an already materialized node is a no-op which
// returns the existing counterpart. No node may have a counterpart while an
// ancestor lacks one, so ErrAncestorNotPublic is returned then.
func (c *CoreDB) materialize(n *Node) (DBPublic, error) {

	if public, err := c.PublicDB.GetPublic(n.ID()); err == nil {
		return public, nil
	} else if !c.PublicDB.IsNotFound(err) {
		return nil, err
	}

	ok, err := c.ancestorsPublic(n)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAncestorNotPublic
	}

	return c.PublicDB.InsertPublic(n.DBNode)
}

// requestPublish drives the node out of Changed. With no moderator
// assignments in scope there is nobody to ask, so the node goes straight to
// approval. Else it queues for review.
func (c *CoreDB) requestPublish(n *Node) (ModerationState, error) {

	count, err := c.ModeratorCount(n)
	if err != nil {
		return 0, err
	}

	if count == 0 {
		return c.approveNode(n)
	}

	if err := c.NodeDB.SetState(n.DBNode, NeedApprovement); err != nil {
		return 0, err
	}
	return NeedApprovement, nil
}

// approveNode is called when the node's own approval condition is met. It
// decides between Approved and ApprovedWaitingForParents, materializes the
// counterpart on Approved, and then promotes waiting descendants.
func (c *CoreDB) approveNode(n *Node) (ModerationState, error) {

	ok, err := c.ancestorsPublic(n)
	if err != nil {
		return 0, err
	}

	if !ok {
		if err := c.NodeDB.SetState(n.DBNode, ApprovedWaitingForParents); err != nil {
			return 0, err
		}
		return ApprovedWaitingForParents, nil
	}

	if err := c.NodeDB.SetState(n.DBNode, Approved); err != nil {
		return 0, err
	}
	if _, err := c.materialize(n); err != nil {
		return 0, err
	}
	if err := c.promoteWaiting(n); err != nil {
		return 0, err
	}
	return Approved, nil
}

// promoteWaiting promotes descendants of n which were approved before n
// became public. Promotion is top-down: a node follows only after its own
// parent has materialized, so subtrees below non-waiting children are left
// alone.
func (c *CoreDB) promoteWaiting(n *Node) error {

	children, err := n.Children()
	if err != nil {
		return err
	}

	for _, child := range children {
		if child.State() != ApprovedWaitingForParents {
			continue
		}
		if err := c.NodeDB.SetState(child.DBNode, Approved); err != nil {
			return err
		}
		if _, err := c.materialize(child); err != nil {
			return err
		}
		if err := c.promoteWaiting(child); err != nil {
			return err
		}
	}
	return nil
}

// retract removes the node's public counterpart, if any. Counterparts below
// it are removed as well because no node may stay public under a non-public
// ancestor. Retracted descendants in Approved go back to
// ApprovedWaitingForParents, so a later re-approval of the ancestor promotes
// them again.
func (c *CoreDB) retract(n *Node) error {

	if _, err := c.PublicDB.GetPublic(n.ID()); err != nil {
		if c.PublicDB.IsNotFound(err) {
			return nil
		}
		return err
	}

	if err := c.retractChildren(n); err != nil {
		return err
	}

	return c.PublicDB.DeletePublic(n.ID())
}

func (c *CoreDB) retractChildren(n *Node) error {

	children, err := n.Children()
	if err != nil {
		return err
	}

	for _, child := range children {
		if _, err := c.PublicDB.GetPublic(child.ID()); err != nil {
			if c.PublicDB.IsNotFound(err) {
				continue
			}
			return err
		}
		if err := c.retractChildren(child); err != nil {
			return err
		}
		if err := c.PublicDB.DeletePublic(child.ID()); err != nil {
			return err
		}
		if child.State() == Approved {
			if err := c.NodeDB.SetState(child.DBNode, ApprovedWaitingForParents); err != nil {
				return err
			}
		}
	}
	return nil
}
