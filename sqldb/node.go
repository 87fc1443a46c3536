package sqldb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/wansing/modflow/core"
)

type node struct {
	id        int
	parentID  int
	slug      string
	state     int
	lft       int
	rght      int
	level     int
	tsCreated int64
}

func (e *node) ID() int {
	return e.id
}

func (e *node) ParentID() int {
	return e.parentID
}

func (e *node) Slug() string {
	return e.slug
}

func (e *node) State() core.ModerationState {
	return core.ModerationState(e.state)
}

func (e *node) Lft() int {
	return e.lft
}

func (e *node) Rght() int {
	return e.rght
}

func (e *node) Level() int {
	return e.level
}

func (e *node) TsCreated() int64 {
	return e.tsCreated
}

type NodeDB struct {
	*sql.DB
	countChildren *sql.Stmt
	getChildren   *sql.Stmt
	getNode       *sql.Stmt
	getNodeByID   *sql.Stmt
	insertNode    *sql.Stmt
	removeNode    *sql.Stmt
	selectAll     *sql.Stmt
	setPosition   *sql.Stmt
	setState      *sql.Stmt
}

func NewNodeDB(db *sql.DB) *NodeDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS element (
			id INTEGER PRIMARY KEY,
			parentId int(11) NOT NULL,
			slug varchar(64) NOT NULL,
			state int(11) NOT NULL,
			lft int(11) NOT NULL,
			rght int(11) NOT NULL,
			level int(11) NOT NULL,
			ts_created int(11) NOT NULL,
			UNIQUE (parentId, slug)
		);`)
	if err != nil {
		panic(err)
	}

	var nodeDB = &NodeDB{}
	nodeDB.DB = db
	nodeDB.countChildren = mustPrepare(db, "SELECT COUNT(1) FROM element WHERE parentId = ?")
	nodeDB.getChildren = mustPrepare(db, "SELECT id, parentId, slug, state, lft, rght, level, ts_created FROM element WHERE parentId = ? ORDER BY lft")
	nodeDB.getNode = mustPrepare(db, "SELECT id, parentId, slug, state, lft, rght, level, ts_created FROM element WHERE parentId = ? AND slug = ? LIMIT 1")
	nodeDB.getNodeByID = mustPrepare(db, "SELECT id, parentId, slug, state, lft, rght, level, ts_created FROM element WHERE id = ? LIMIT 1")
	nodeDB.insertNode = mustPrepare(db, "INSERT INTO element (parentId, slug, state, lft, rght, level, ts_created) VALUES (?, ?, ?, 0, 0, 0, ?)")
	nodeDB.removeNode = mustPrepare(db, "DELETE FROM element WHERE id = ?")
	nodeDB.selectAll = mustPrepare(db, "SELECT id, parentId FROM element ORDER BY id")
	nodeDB.setPosition = mustPrepare(db, "UPDATE element SET lft = ?, rght = ?, level = ? WHERE id = ?")
	nodeDB.setState = mustPrepare(db, "UPDATE element SET state = ? WHERE id = ?")
	return nodeDB
}

func (db *NodeDB) CountChildren(id int) (int, error) {
	var count int
	return count, db.countChildren.QueryRow(id).Scan(&count)
}

func (db *NodeDB) scanNode(row *sql.Row) (*node, error) {
	var e = &node{}
	return e, row.Scan(&e.id, &e.parentID, &e.slug, &e.state, &e.lft, &e.rght, &e.level, &e.tsCreated)
}

func (db *NodeDB) GetNodeByID(id int) (core.DBNode, error) {
	e, err := db.scanNode(db.getNodeByID.QueryRow(id))
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (db *NodeDB) GetNodeBySlug(parentID int, slug string) (core.DBNode, error) {
	e, err := db.scanNode(db.getNode.QueryRow(parentID, slug))
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (db *NodeDB) GetChildren(id int) ([]core.DBNode, error) {

	rows, err := db.getChildren.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children = []core.DBNode{}

	for rows.Next() {
		var child = &node{}
		err := rows.Scan(&child.id, &child.parentID, &child.slug, &child.state, &child.lft, &child.rght, &child.level, &child.tsCreated)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return children, nil
}

func (db *NodeDB) InsertNode(parentID int, slug string, state core.ModerationState) (core.DBNode, error) {

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}

	res, err := tx.Stmt(db.insertNode).Exec(parentID, slug, int(state), time.Now().Unix())
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := db.renumber(tx); err != nil {
		tx.Rollback()
		return nil, err
	}

	var e = &node{}
	if err := tx.Stmt(db.getNodeByID).QueryRow(id).Scan(&e.id, &e.parentID, &e.slug, &e.state, &e.lft, &e.rght, &e.level, &e.tsCreated); err != nil {
		tx.Rollback()
		return nil, err
	}

	return e, tx.Commit()
}

func (db *NodeDB) DeleteNode(e core.DBNode) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	var childrenCount int
	if err := tx.Stmt(db.countChildren).QueryRow(e.ID()).Scan(&childrenCount); err == nil {
		if childrenCount > 0 {
			tx.Rollback()
			return errors.New("can't delete node with child nodes")
		}
	} else {
		tx.Rollback()
		return err
	}

	if _, err := tx.Stmt(db.removeNode).Exec(e.ID()); err != nil {
		tx.Rollback()
		return err
	}

	if err := db.renumber(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *NodeDB) SetState(e core.DBNode, state core.ModerationState) error {
	_, err := db.setState.Exec(int(state), e.ID())
	if err == nil {
		e.(*node).state = int(state)
	}
	return err
}

func (db *NodeDB) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// renumber recomputes the tree ordering keys and levels of all nodes after a
// structural change. Siblings are ordered by creation. Trees here are small,
// a full pass is cheaper than incremental nested-set bookkeeping.
func (db *NodeDB) renumber(tx *sql.Tx) error {

	rows, err := tx.Stmt(db.selectAll).Query()
	if err != nil {
		return err
	}

	var children = make(map[int][]int) // parent id -> child ids, in creation order

	for rows.Next() {
		var id, parentID int
		if err := rows.Scan(&id, &parentID); err != nil {
			rows.Close()
			return err
		}
		children[parentID] = append(children[parentID], id)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	var counter int
	var walk func(id, level int) error
	walk = func(id, level int) error {
		counter++
		var lft = counter
		for _, childID := range children[id] {
			if err := walk(childID, level+1); err != nil {
				return err
			}
		}
		counter++
		_, err := tx.Stmt(db.setPosition).Exec(lft, counter, level, id)
		return err
	}

	for _, rootID := range children[0] {
		if err := walk(rootID, 0); err != nil {
			return err
		}
	}
	return nil
}
