package profile

import (
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
)

// DateLayout is the wire format for birthdates.
const DateLayout = "2006-01-02"

// set overwrites *dst only when v has text.
func set(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

type AdminPatch struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
}

func (p AdminPatch) Apply(a *entity.Admin) {
	set(&a.Name, p.Name)
	set(&a.Email, p.Email)
	set(&a.CPF, p.CPF)
	set(&a.Phone, p.Phone)
}

type TeacherPatch struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
}

func (p TeacherPatch) Apply(t *entity.Teacher) {
	set(&t.Name, p.Name)
	set(&t.Email, p.Email)
	set(&t.CPF, p.CPF)
	set(&t.Phone, p.Phone)
}

// StudentPatch updates a student. The class id is not checked here; the
// caller resolves it before applying.
type StudentPatch struct {
	Name          string  `json:"name"`
	RA            string  `json:"ra"`
	RM            string  `json:"rm"`
	CPF           string  `json:"cpf"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email" validate:"omitempty,email"`
	SchoolClassID *string `json:"schoolClassId"`
	Birthdate     string  `json:"birthdate"`
	Biometry      *int64  `json:"biometry"`
	Photo         string  `json:"photo"`
	InSchool      *bool   `json:"inschool"`
}

// ClassID returns the trimmed class id when the patch changes it.
func (p StudentPatch) ClassID() (string, bool) {
	if p.SchoolClassID == nil {
		return "", false
	}
	id := strings.TrimSpace(*p.SchoolClassID)
	return id, id != ""
}

// Apply merges p into s. A birthdate on or after today's date is ignored;
// one that does not parse is a validation error and leaves s untouched.
func (p StudentPatch) Apply(s *entity.Student, now time.Time) error {
	var birth *time.Time
	if b := strings.TrimSpace(p.Birthdate); b != "" {
		d, err := ParseDate(b)
		if err != nil {
			return err
		}
		if BeforeToday(d, now) {
			birth = &d
		}
	}
	set(&s.Name, p.Name)
	set(&s.RA, p.RA)
	set(&s.RM, p.RM)
	set(&s.CPF, p.CPF)
	set(&s.Phone, p.Phone)
	set(&s.Email, p.Email)
	set(&s.Photo, p.Photo)
	if id, ok := p.ClassID(); ok {
		s.SchoolClassID = id
	}
	if birth != nil {
		s.Birthdate = birth
	}
	if p.Biometry != nil {
		v := *p.Biometry
		s.Biometry = &v
	}
	if p.InSchool != nil {
		s.InSchool = *p.InSchool
	}
	return nil
}

// ParseDate reads a yyyy-mm-dd date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("birthdate", "expected "+DateLayout)
	}
	return d, nil
}

// BeforeToday reports whether d falls on a calendar day before now's.
func BeforeToday(d, now time.Time) bool {
	y, m, day := now.Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return d.Before(today)
}
