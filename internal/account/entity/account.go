package entity

import "time"

// Role is the closed set of actor kinds an account can hold.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// Account represents a row in the `accounts` table: the credentials every
// profile authenticates with. Role is fixed at creation.
type Account struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Patch carries the credential fields a caller may change. Blank fields are
// left untouched.
type Patch struct {
	Username string
	Password string
}

func (p Patch) Empty() bool { return p.Username == "" && p.Password == "" }
