package identity

import (
	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
	schoolentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// AdminView is an admin joined with its account. Password is the stored
// hash, never the raw value.
type AdminView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
}

type TeacherView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	CPF      string `json:"cpf"`
	Phone    string `json:"phone"`
}

type StudentView struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	RA            string `json:"ra"`
	RM            string `json:"rm"`
	CPF           string `json:"cpf"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	SchoolClassID string `json:"schoolClassId"`
	Birthdate     string `json:"birthdate,omitempty"`
	Biometry      *int64 `json:"biometry"`
	Photo         string `json:"photo"`
	InSchool      bool   `json:"inschool"`
}

type ClassView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Grade        string   `json:"grade"`
	Course       string   `json:"course"`
	Shift        string   `json:"shift"`
	TeacherIDs   []string `json:"teacherIds"`
	TeacherNames []string `json:"teacherNames"`
}

type SubjectView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	TeacherIDs   []string `json:"teacherIds"`
	TeacherNames []string `json:"teacherNames"`
}

func adminView(p *entity.Admin, a *accountentity.Account) *AdminView {
	return &AdminView{ID: p.ID, Username: a.Username, Password: a.PasswordHash,
		Name: p.Name, Email: p.Email, CPF: p.CPF, Phone: p.Phone}
}

func teacherView(p *entity.Teacher, a *accountentity.Account) *TeacherView {
	return &TeacherView{ID: p.ID, Username: a.Username, Password: a.PasswordHash,
		Name: p.Name, Email: p.Email, CPF: p.CPF, Phone: p.Phone}
}

func studentView(p *entity.Student, a *accountentity.Account) *StudentView {
	v := &StudentView{ID: p.ID, Username: a.Username, Password: a.PasswordHash,
		Name: p.Name, RA: p.RA, RM: p.RM, CPF: p.CPF, Phone: p.Phone, Email: p.Email,
		SchoolClassID: p.SchoolClassID, Biometry: p.Biometry, Photo: p.Photo, InSchool: p.InSchool}
	if p.Birthdate != nil {
		v.Birthdate = p.Birthdate.Format(profile.DateLayout)
	}
	return v
}

func classView(c *schoolentity.SchoolClass, names []string) *ClassView {
	return &ClassView{ID: c.ID, Name: c.Name, Grade: string(c.Grade), Course: string(c.Course),
		Shift: string(c.Shift), TeacherIDs: c.TeacherIDs, TeacherNames: names}
}

func subjectView(s *schoolentity.SchoolSubject, names []string) *SubjectView {
	return &SubjectView{ID: s.ID, Name: s.Name, TeacherIDs: s.TeacherIDs, TeacherNames: names}
}
