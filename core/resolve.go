package core

import (
	"github.com/wansing/modflow/auth"
)

// CanPerform reports whether the user has the given capability on the node.
//
// Superusers can do anything. For everyone else, the nearest grant wins: the
// walk starts at the node itself and goes up the ancestor chain, and the
// first grant found for the user decides alone. Grants do not merge across
// levels. A global grant (node id zero) is checked last. No grant anywhere
// means no.
//
// The node may be nil, which stands for the (virtual) root of the tree, e.g.
// when creating a new root node. Then only superusers and global grants pass.
func (c *CoreDB) CanPerform(u auth.User, n *Node, capability Capability) (bool, error) {

	if u == nil {
		return false, nil
	}

	if u.Superuser() {
		return true, nil
	}

	for m := n; m != nil; m = m.Parent {
		grant, err := c.GrantDB.GetGrant(u.ID(), m.ID())
		if err != nil {
			if c.GrantDB.IsNotFound(err) {
				continue
			}
			return false, err
		}
		return grant.Capabilities().Has(capability), nil
	}

	grant, err := c.GrantDB.GetGrant(u.ID(), 0)
	if err != nil {
		if c.GrantDB.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return grant.Capabilities().Has(capability), nil
}

// RequireCapability returns ErrPermissionDenied if the user does not have the
// given capability on the node.
func (c *CoreDB) RequireCapability(u auth.User, n *Node, capability Capability) error {
	ok, err := c.CanPerform(u, n, capability)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// Moderators returns the moderate-flagged grants whose subtree contains the
// node. Unlike capabilities, moderator assignments accumulate down the chain:
// a node can require approval from moderators registered at multiple ancestor
// levels. Global grants cover every node.
func (c *CoreDB) Moderators(n *Node) ([]DBGrant, error) {

	var moderators []DBGrant

	for m := n; m != nil; m = m.Parent {
		grants, err := c.GrantDB.GetGrantsOn(m.ID())
		if err != nil {
			return nil, err
		}
		for _, grant := range grants {
			if grant.Moderate() {
				moderators = append(moderators, grant)
			}
		}
	}

	grants, err := c.GrantDB.GetGrantsOn(0)
	if err != nil {
		return nil, err
	}
	for _, grant := range grants {
		if grant.Moderate() {
			moderators = append(moderators, grant)
		}
	}

	return moderators, nil
}

// ModeratorCount returns the number of moderator assignments covering the
// node. Zero means nobody has to approve it.
func (c *CoreDB) ModeratorCount(n *Node) (int, error) {
	moderators, err := c.Moderators(n)
	if err != nil {
		return 0, err
	}
	return len(moderators), nil
}

// isModerator reports whether the user holds a moderator assignment covering
// the node.
func (c *CoreDB) isModerator(u auth.User, n *Node) (bool, error) {
	moderators, err := c.Moderators(n)
	if err != nil {
		return false, err
	}
	for _, grant := range moderators {
		if grant.UserID() == u.ID() {
			return true, nil
		}
	}
	return false, nil
}
