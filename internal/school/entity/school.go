package entity

import (
	"sort"
	"strings"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
)

type Grade string

const (
	GradeFirstYear  Grade = "FIRST_YEAR"
	GradeSecondYear Grade = "SECOND_YEAR"
	GradeThirdYear  Grade = "THIRD_YEAR"
)

type Course string

const (
	CourseADM Course = "ADM"
	CourseBIO Course = "BIO"
	CourseCV  Course = "CV"
	CourseDG  Course = "DG"
	CourseDDI Course = "DDI"
	CourseDS  Course = "DS"
	CourseEDF Course = "EDF"
	CourseLOG Course = "LOG"
	CourseMAT Course = "MAT"
	CourseMEC Course = "MEC"
	CourseMED Course = "MED"
)

type Shift string

const (
	ShiftMorning   Shift = "MORNING"
	ShiftAfternoon Shift = "AFTERNOON"
	ShiftNight     Shift = "NIGHT"
)

var (
	grades  = []Grade{GradeFirstYear, GradeSecondYear, GradeThirdYear}
	courses = []Course{CourseADM, CourseBIO, CourseCV, CourseDG, CourseDDI, CourseDS, CourseEDF, CourseLOG, CourseMAT, CourseMEC, CourseMED}
	shifts  = []Shift{ShiftMorning, ShiftAfternoon, ShiftNight}
)

// parseEnum matches s exactly against the closed set.
func parseEnum[T ~string](field, s string, set []T) (T, error) {
	for _, v := range set {
		if string(v) == s {
			return v, nil
		}
	}
	var zero T
	return zero, &apperr.InvalidEnumValueError{Field: field, Value: s}
}

func ParseGrade(s string) (Grade, error)   { return parseEnum("grade", s, grades) }
func ParseCourse(s string) (Course, error) { return parseEnum("course", s, courses) }
func ParseShift(s string) (Shift, error)   { return parseEnum("shift", s, shifts) }

// SchoolClass is a row in school_classes. TeacherIDs is its membership set,
// stored separately and never checked against the teachers table.
type SchoolClass struct {
	ID         string   `db:"id"`
	Name       string   `db:"name"`
	Grade      Grade    `db:"grade"`
	Course     Course   `db:"course"`
	Shift      Shift    `db:"shift"`
	TeacherIDs []string `db:"-"`
}

type SchoolSubject struct {
	ID         string   `db:"id"`
	Name       string   `db:"name"`
	TeacherIDs []string `db:"-"`
}

// Membership is one (owner, teacher) pair of a class or subject set.
type Membership struct {
	OwnerID   string `db:"owner_id" json:"ownerId"`
	TeacherID string `db:"teacher_id" json:"teacherId"`
}

// NormalizeIDs turns a client-supplied list into a set: blanks dropped,
// duplicates collapsed, sorted for stable storage. nil stays nil.
func NormalizeIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
