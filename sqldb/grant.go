package sqldb

import (
	"database/sql"
	"errors"

	"github.com/wansing/modflow/core"
)

type grant struct {
	userID       int
	nodeID       int
	capabilities int
	moderate     bool
}

func (g *grant) UserID() int {
	return g.userID
}

func (g *grant) NodeID() int {
	return g.nodeID
}

func (g *grant) Capabilities() core.CapabilitySet {
	return core.CapabilitySet(g.capabilities)
}

func (g *grant) Moderate() bool {
	return g.moderate
}

type GrantDB struct {
	db       *sql.DB
	get      *sql.Stmt
	getAll   *sql.Stmt
	getOn    *sql.Stmt
	insert   *sql.Stmt
	remove   *sql.Stmt
	removeOn *sql.Stmt
}

func NewGrantDB(db *sql.DB) *GrantDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS access (
			usr int(11) NOT NULL,
			elementId int(11) NOT NULL, -- zero means the whole tree
			capabilities int(11) NOT NULL,
			moderate bool NOT NULL,
			PRIMARY KEY (usr, elementId)
		);`)
	if err != nil {
		panic(err)
	}

	var grantDB = &GrantDB{}
	grantDB.db = db
	grantDB.get = mustPrepare(db, "SELECT capabilities, moderate FROM access WHERE usr = ? AND elementId = ? LIMIT 1")
	grantDB.getAll = mustPrepare(db, "SELECT usr, elementId, capabilities, moderate FROM access")
	grantDB.getOn = mustPrepare(db, "SELECT usr, capabilities, moderate FROM access WHERE elementId = ?")
	grantDB.insert = mustPrepare(db, "INSERT OR REPLACE INTO access (usr, elementId, capabilities, moderate) VALUES (?, ?, ?, ?)")
	grantDB.remove = mustPrepare(db, "DELETE FROM access WHERE usr = ? AND elementId = ?")
	grantDB.removeOn = mustPrepare(db, "DELETE FROM access WHERE elementId = ?")
	return grantDB
}

func (db *GrantDB) GetGrant(userID, nodeID int) (core.DBGrant, error) {
	var g = &grant{
		userID: userID,
		nodeID: nodeID,
	}
	return g, db.get.QueryRow(userID, nodeID).Scan(&g.capabilities, &g.moderate)
}

func (db *GrantDB) GetGrantsOn(nodeID int) ([]core.DBGrant, error) {

	rows, err := db.getOn.Query(nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants = []core.DBGrant{}

	for rows.Next() {
		var g = &grant{
			nodeID: nodeID,
		}
		if err = rows.Scan(&g.userID, &g.capabilities, &g.moderate); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, nil
}

func (db *GrantDB) GetAllGrants() ([]core.DBGrant, error) {

	rows, err := db.getAll.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants = []core.DBGrant{}

	for rows.Next() {
		var g = &grant{}
		if err = rows.Scan(&g.userID, &g.nodeID, &g.capabilities, &g.moderate); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, nil
}

func (db *GrantDB) InsertGrant(userID, nodeID int, caps core.CapabilitySet, moderate bool) error {
	if !caps.Valid() {
		return errors.New("invalid capability set")
	}
	_, err := db.insert.Exec(userID, nodeID, int(caps), moderate)
	return err
}

func (db *GrantDB) RemoveGrant(userID, nodeID int) error {
	_, err := db.remove.Exec(userID, nodeID)
	return err
}

func (db *GrantDB) RemoveGrantsOn(nodeID int) error {
	_, err := db.removeOn.Exec(nodeID)
	return err
}

func (db *GrantDB) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
