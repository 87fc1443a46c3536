package sqldb

import (
	"database/sql"
	"errors"

	"github.com/wansing/modflow/auth"
)

type user struct {
	id        int
	name      string
	superuser bool
	staff     bool
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

func (u *user) Superuser() bool {
	return u.superuser
}

func (u *user) Staff() bool {
	return u.staff
}

type UserDB struct {
	*sql.DB
	delete    *sql.Stmt
	get       *sql.Stmt
	getAll    *sql.Stmt
	getByName *sql.Stmt
	insert    *sql.Stmt
}

func NewUserDB(db *sql.DB) *UserDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS usr (
			id INTEGER PRIMARY KEY,
			name varchar(128) NOT NULL,
			superuser bool NOT NULL,
			staff bool NOT NULL,
			UNIQUE(name)
		);`)
	if err != nil {
		panic(err)
	}

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	userDB.get = mustPrepare(db, "SELECT name, superuser, staff FROM usr WHERE id = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT id, name, superuser, staff FROM usr ORDER BY name LIMIT ? OFFSET ?")
	userDB.getByName = mustPrepare(db, "SELECT id, superuser, staff FROM usr WHERE name = ? LIMIT 1")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (name, superuser, staff) VALUES (?, ?, ?)")
	return userDB
}

func (db *UserDB) Writeable() bool {
	return true
}

func (db *UserDB) Delete(u auth.DBUser) error {
	_, err := db.delete.Exec(u.ID())
	return err
}

func (db *UserDB) GetUser(id int) (auth.DBUser, error) {
	var u = &user{
		id: id,
	}
	return u, db.get.QueryRow(id).Scan(&u.name, &u.superuser, &u.staff)
}

func (db *UserDB) GetUserByName(name string) (auth.DBUser, error) {
	var u = &user{
		name: name,
	}
	return u, db.getByName.QueryRow(name).Scan(&u.id, &u.superuser, &u.staff)
}

func (db *UserDB) GetAllUsers(limit, offset int) ([]auth.DBUser, error) {

	rows, err := db.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = []auth.DBUser{}

	for rows.Next() {
		var u = &user{}
		if err = rows.Scan(&u.id, &u.name, &u.superuser, &u.staff); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

func (db *UserDB) InsertUser(name string, superuser, staff bool) (auth.DBUser, error) {

	res, err := db.insert.Exec(name, superuser, staff)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &user{
		id:        int(id),
		name:      name,
		superuser: superuser,
		staff:     staff,
	}, nil
}

func (db *UserDB) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
