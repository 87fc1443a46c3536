package sqldb_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/modflow/core"
	"github.com/wansing/modflow/sqldb"
)

func open(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // the pool must not open a second, empty :memory: database
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestNodeTreeKeys(t *testing.T) {

	nodeDB := sqldb.NewNodeDB(open(t))

	root, err := nodeDB.InsertNode(0, "root", core.Changed)
	require.NoError(t, err)
	a, err := nodeDB.InsertNode(root.ID(), "a", core.Changed)
	require.NoError(t, err)
	b, err := nodeDB.InsertNode(root.ID(), "b", core.Changed)
	require.NoError(t, err)
	aa, err := nodeDB.InsertNode(a.ID(), "aa", core.Changed)
	require.NoError(t, err)

	// keys are recomputed on every structural change, so re-read everything
	reload := func(n core.DBNode) core.DBNode {
		m, err := nodeDB.GetNodeByID(n.ID())
		require.NoError(t, err)
		return m
	}
	root, a, b, aa = reload(root), reload(a), reload(b), reload(aa)

	// root(1,8) -> a(2,5) -> aa(3,4), b(6,7)
	assert.Equal(t, 1, root.Lft())
	assert.Equal(t, 8, root.Rght())
	assert.Equal(t, 0, root.Level())
	assert.Equal(t, 2, a.Lft())
	assert.Equal(t, 5, a.Rght())
	assert.Equal(t, 1, a.Level())
	assert.Equal(t, 3, aa.Lft())
	assert.Equal(t, 4, aa.Rght())
	assert.Equal(t, 2, aa.Level())
	assert.Equal(t, 6, b.Lft())
	assert.Equal(t, 7, b.Rght())

	// children come back in tree order
	children, err := nodeDB.GetChildren(root.ID())
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].Slug())
	assert.Equal(t, "b", children[1].Slug())

	count, err := nodeDB.CountChildren(root.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNodeStateAndDelete(t *testing.T) {

	nodeDB := sqldb.NewNodeDB(open(t))

	root, err := nodeDB.InsertNode(0, "root", core.Changed)
	require.NoError(t, err)
	child, err := nodeDB.InsertNode(root.ID(), "child", core.Changed)
	require.NoError(t, err)

	require.NoError(t, nodeDB.SetState(child, core.NeedApprovement))
	assert.Equal(t, core.NeedApprovement, child.State())

	child, err = nodeDB.GetNodeByID(child.ID())
	require.NoError(t, err)
	assert.Equal(t, core.NeedApprovement, child.State())

	assert.Error(t, nodeDB.DeleteNode(root)) // has a child

	require.NoError(t, nodeDB.DeleteNode(child))
	_, err = nodeDB.GetNodeByID(child.ID())
	assert.True(t, nodeDB.IsNotFound(err))

	require.NoError(t, nodeDB.DeleteNode(root))
}

func TestGrants(t *testing.T) {

	grantDB := sqldb.NewGrantDB(open(t))

	require.NoError(t, grantDB.InsertGrant(1, 10, core.AllCapabilities, true))
	require.NoError(t, grantDB.InsertGrant(2, 10, core.CapabilitySet(core.Add), false))
	require.NoError(t, grantDB.InsertGrant(3, 11, core.CapabilitySet(core.Publish), false))

	all, err := grantDB.GetAllGrants()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	g, err := grantDB.GetGrant(1, 10)
	require.NoError(t, err)
	assert.Equal(t, core.AllCapabilities, g.Capabilities())
	assert.True(t, g.Moderate())

	_, err = grantDB.GetGrant(1, 11)
	assert.True(t, grantDB.IsNotFound(err))

	// inserting again replaces the grant
	require.NoError(t, grantDB.InsertGrant(1, 10, core.CapabilitySet(core.Change), false))
	g, err = grantDB.GetGrant(1, 10)
	require.NoError(t, err)
	assert.Equal(t, core.CapabilitySet(core.Change), g.Capabilities())
	assert.False(t, g.Moderate())

	grants, err := grantDB.GetGrantsOn(10)
	require.NoError(t, err)
	assert.Len(t, grants, 2)

	require.NoError(t, grantDB.RemoveGrant(2, 10))
	grants, err = grantDB.GetGrantsOn(10)
	require.NoError(t, err)
	assert.Len(t, grants, 1)

	require.NoError(t, grantDB.RemoveGrantsOn(10))
	grants, err = grantDB.GetGrantsOn(10)
	require.NoError(t, err)
	assert.Len(t, grants, 0)

	all, err = grantDB.GetAllGrants()
	require.NoError(t, err)
	assert.Len(t, all, 1) // the grant on node 11 survives
}

func TestPublicMirrorsNode(t *testing.T) {

	db := open(t)
	nodeDB := sqldb.NewNodeDB(db)
	publicDB := sqldb.NewPublicDB(db)

	root, err := nodeDB.InsertNode(0, "root", core.Approved)
	require.NoError(t, err)

	p, err := publicDB.InsertPublic(root)
	require.NoError(t, err)
	assert.Equal(t, root.ID(), p.NodeID())
	assert.Equal(t, root.Lft(), p.Lft())
	assert.Equal(t, root.Rght(), p.Rght())
	assert.Equal(t, root.ParentID(), p.ParentID())
	assert.Equal(t, root.Level(), p.Level())
	assert.True(t, p.Published())

	p, err = publicDB.GetPublic(root.ID())
	require.NoError(t, err)
	assert.Equal(t, root.ID(), p.NodeID())

	require.NoError(t, publicDB.DeletePublic(root.ID()))
	_, err = publicDB.GetPublic(root.ID())
	assert.True(t, publicDB.IsNotFound(err))
}

func TestUsers(t *testing.T) {

	userDB := sqldb.NewUserDB(open(t))

	u, err := userDB.InsertUser("alice", false, true)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name())
	assert.False(t, u.Superuser())
	assert.True(t, u.Staff())

	u, err = userDB.GetUserByName("alice")
	require.NoError(t, err)

	got, err := userDB.GetUser(u.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name())

	_, err = userDB.GetUserByName("bob")
	assert.True(t, userDB.IsNotFound(err))

	_, err = userDB.InsertUser("alice", false, true)
	assert.Error(t, err) // names are unique

	assert.True(t, userDB.Writeable())

	_, err = userDB.InsertUser("bob", true, false)
	require.NoError(t, err)
	users, err := userDB.GetAllUsers(10, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name()) // ordered by name
	assert.Equal(t, "bob", users[1].Name())

	require.NoError(t, userDB.Delete(u))
	_, err = userDB.GetUser(u.ID())
	assert.True(t, userDB.IsNotFound(err))
}
