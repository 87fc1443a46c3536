package auth

type DBUser interface {
	ID() int
	Name() string // can be email address
	Superuser() bool
	Staff() bool
}

type UserDB interface {
	Delete(u DBUser) error
	GetUser(id int) (DBUser, error)
	GetUserByName(name string) (DBUser, error)
	GetAllUsers(limit, offset int) ([]DBUser, error)
	InsertUser(name string, superuser, staff bool) (DBUser, error)
	IsNotFound(err error) bool
	Writeable() bool
}

type User DBUser
