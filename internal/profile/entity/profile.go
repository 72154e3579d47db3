// Package entity holds the role-specific profile records. Each profile
// points at its account through AccountID, a plain column with no foreign key.
package entity

import "time"

type Admin struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	CPF       string `db:"cpf"`
	Phone     string `db:"phone"`
}

type Teacher struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	CPF       string `db:"cpf"`
	Phone     string `db:"phone"`
}

// Student carries enrolment data on top of the contact fields. Birthdate
// and Biometry are optional.
type Student struct {
	ID            string     `db:"id"`
	AccountID     string     `db:"account_id"`
	Name          string     `db:"name"`
	RA            string     `db:"ra"`
	RM            string     `db:"rm"`
	CPF           string     `db:"cpf"`
	Phone         string     `db:"phone"`
	Email         string     `db:"email"`
	SchoolClassID string     `db:"school_class_id"`
	Birthdate     *time.Time `db:"birthdate"`
	Biometry      *int64     `db:"biometry"`
	Photo         string     `db:"photo"`
	InSchool      bool       `db:"in_school"`
}

func (a *Admin) GetID() string        { return a.ID }
func (a *Admin) SetID(id string)      { a.ID = id }
func (a *Admin) GetAccountID() string { return a.AccountID }
func (a *Admin) DisplayName() string  { return a.Name }

func (t *Teacher) GetID() string        { return t.ID }
func (t *Teacher) SetID(id string)      { t.ID = id }
func (t *Teacher) GetAccountID() string { return t.AccountID }
func (t *Teacher) DisplayName() string  { return t.Name }

func (s *Student) GetID() string        { return s.ID }
func (s *Student) SetID(id string)      { s.ID = id }
func (s *Student) GetAccountID() string { return s.AccountID }
func (s *Student) DisplayName() string  { return s.Name }
