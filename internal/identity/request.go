package identity

import (
	"strings"

	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
)

// Credentials are the account half of a registration request.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AdminRequest struct {
	Credentials
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
}

type TeacherRequest struct {
	Credentials
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
}

type StudentRequest struct {
	Credentials
	Name          string `json:"name" validate:"required"`
	RA            string `json:"ra"`
	RM            string `json:"rm"`
	CPF           string `json:"cpf"`
	Phone         string `json:"phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	SchoolClassID string `json:"schoolClassId" validate:"required"`
	Birthdate     string `json:"birthdate"`
	Biometry      *int64 `json:"biometry"`
	Photo         string `json:"photo"`
}

// CredentialsPatch is the optional account half of an update request.
type CredentialsPatch struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c CredentialsPatch) toPatch() accountentity.Patch {
	return accountentity.Patch{Username: strings.TrimSpace(c.Username), Password: c.Password}
}

type AdminUpdate struct {
	CredentialsPatch
	profile.AdminPatch
}

type TeacherUpdate struct {
	CredentialsPatch
	profile.TeacherPatch
}

type StudentUpdate struct {
	CredentialsPatch
	profile.StudentPatch
}
