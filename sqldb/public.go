package sqldb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/wansing/modflow/core"
)

type public struct {
	nodeID    int
	parentID  int
	lft       int
	rght      int
	level     int
	published bool
	tsCreated int64
}

func (p *public) NodeID() int {
	return p.nodeID
}

func (p *public) ParentID() int {
	return p.parentID
}

func (p *public) Lft() int {
	return p.lft
}

func (p *public) Rght() int {
	return p.rght
}

func (p *public) Level() int {
	return p.level
}

func (p *public) Published() bool {
	return p.published
}

func (p *public) TsCreated() int64 {
	return p.tsCreated
}

type PublicDB struct {
	db     *sql.DB
	get    *sql.Stmt
	insert *sql.Stmt
	remove *sql.Stmt
}

func NewPublicDB(db *sql.DB) *PublicDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS public (
			elementId int(11) NOT NULL, -- source node
			parentId int(11) NOT NULL,
			lft int(11) NOT NULL,
			rght int(11) NOT NULL,
			level int(11) NOT NULL,
			published bool NOT NULL,
			ts_created int(11) NOT NULL,
			PRIMARY KEY (elementId)
		);`)
	if err != nil {
		panic(err)
	}

	var publicDB = &PublicDB{}
	publicDB.db = db
	publicDB.get = mustPrepare(db, "SELECT parentId, lft, rght, level, published, ts_created FROM public WHERE elementId = ? LIMIT 1")
	publicDB.insert = mustPrepare(db, "INSERT INTO public (elementId, parentId, lft, rght, level, published, ts_created) VALUES (?, ?, ?, ?, ?, ?, ?)")
	publicDB.remove = mustPrepare(db, "DELETE FROM public WHERE elementId = ?")
	return publicDB
}

func (db *PublicDB) GetPublic(nodeID int) (core.DBPublic, error) {
	var p = &public{
		nodeID: nodeID,
	}
	return p, db.get.QueryRow(nodeID).Scan(&p.parentID, &p.lft, &p.rght, &p.level, &p.published, &p.tsCreated)
}

// InsertPublic mirrors the structural attributes of the source node as they
// are right now.
func (db *PublicDB) InsertPublic(n core.DBNode) (core.DBPublic, error) {
	var p = &public{
		nodeID:    n.ID(),
		parentID:  n.ParentID(),
		lft:       n.Lft(),
		rght:      n.Rght(),
		level:     n.Level(),
		published: true,
		tsCreated: time.Now().Unix(),
	}
	_, err := db.insert.Exec(p.nodeID, p.parentID, p.lft, p.rght, p.level, p.published, p.tsCreated)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *PublicDB) DeletePublic(nodeID int) error {
	_, err := db.remove.Exec(nodeID)
	return err
}

func (db *PublicDB) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
