package school

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/validation"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

// ClassInput is the create payload for a class. Enum fields arrive as text
// and are parsed here.
type ClassInput struct {
	Name       string   `json:"name" validate:"required"`
	Grade      string   `json:"grade" validate:"required"`
	Course     string   `json:"course" validate:"required"`
	Shift      string   `json:"shift" validate:"required"`
	TeacherIDs []string `json:"teacherIds"`
}

// ClassPatch updates a class. Blank strings keep the current value; a nil
// TeacherIDs keeps the current set, any other value replaces it.
type ClassPatch struct {
	Name       string   `json:"name"`
	Grade      string   `json:"grade"`
	Course     string   `json:"course"`
	Shift      string   `json:"shift"`
	TeacherIDs []string `json:"teacherIds"`
}

type SubjectInput struct {
	Name       string   `json:"name" validate:"required"`
	TeacherIDs []string `json:"teacherIds"`
}

type SubjectPatch struct {
	Name       string   `json:"name"`
	TeacherIDs []string `json:"teacherIds"`
}

// Service is the CRUD surface for classes and subjects.
type Service struct {
	classes  *repo.ClassRepo
	subjects *repo.SubjectRepo
	logger   *zap.SugaredLogger
}

func NewService(classes *repo.ClassRepo, subjects *repo.SubjectRepo, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{classes: classes, subjects: subjects, logger: logger}
}

func (s *Service) CreateClass(ctx context.Context, in ClassInput) (*entity.SchoolClass, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c := &entity.SchoolClass{ID: utilities.NewSnowflakeID(), Name: in.Name, TeacherIDs: entity.NormalizeIDs(in.TeacherIDs)}
	if err := applyEnums(c, in.Grade, in.Course, in.Shift); err != nil {
		return nil, err
	}
	if c.TeacherIDs == nil {
		c.TeacherIDs = []string{}
	}
	if err := s.classes.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Validation("name", "a class with this name already exists")
		}
		return nil, fmt.Errorf("create class: %w", err)
	}
	s.logger.Debugw("class created", "id", c.ID, "name", c.Name, "teachers", len(c.TeacherIDs))
	return c, nil
}

func (s *Service) GetClass(ctx context.Context, id string) (*entity.SchoolClass, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("school_class", id)
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListClasses(ctx context.Context) ([]*entity.SchoolClass, error) {
	return s.classes.List(ctx)
}

// ListClassesByIDs is best effort: unknown ids are left out.
func (s *Service) ListClassesByIDs(ctx context.Context, ids []string) ([]*entity.SchoolClass, error) {
	return s.classes.ListByIDs(ctx, entity.NormalizeIDs(ids))
}

func (s *Service) UpdateClass(ctx context.Context, id string, p ClassPatch) (*entity.SchoolClass, error) {
	c, err := s.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		c.Name = name
	}
	if err := applyEnums(c, p.Grade, p.Course, p.Shift); err != nil {
		return nil, err
	}
	replace := p.TeacherIDs != nil
	if replace {
		c.TeacherIDs = entity.NormalizeIDs(p.TeacherIDs)
	}
	rows, err := s.classes.Update(ctx, c, replace)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Validation("name", "a class with this name already exists")
		}
		return nil, fmt.Errorf("update class: %w", err)
	}
	if rows == 0 {
		return nil, apperr.NotFound("school_class", id)
	}
	return c, nil
}

func (s *Service) DeleteClass(ctx context.Context, id string) error {
	rows, err := s.classes.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("school_class", id)
	}
	return nil
}

func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (*entity.SchoolSubject, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	sub := &entity.SchoolSubject{ID: utilities.NewSnowflakeID(), Name: in.Name, TeacherIDs: entity.NormalizeIDs(in.TeacherIDs)}
	if sub.TeacherIDs == nil {
		sub.TeacherIDs = []string{}
	}
	if err := s.subjects.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	s.logger.Debugw("subject created", "id", sub.ID, "name", sub.Name, "teachers", len(sub.TeacherIDs))
	return sub, nil
}

func (s *Service) GetSubject(ctx context.Context, id string) (*entity.SchoolSubject, error) {
	sub, err := s.subjects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("school_subject", id)
		}
		return nil, err
	}
	return sub, nil
}

func (s *Service) ListSubjects(ctx context.Context) ([]*entity.SchoolSubject, error) {
	return s.subjects.List(ctx)
}

func (s *Service) UpdateSubject(ctx context.Context, id string, p SubjectPatch) (*entity.SchoolSubject, error) {
	sub, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		sub.Name = name
	}
	replace := p.TeacherIDs != nil
	if replace {
		sub.TeacherIDs = entity.NormalizeIDs(p.TeacherIDs)
	}
	rows, err := s.subjects.Update(ctx, sub, replace)
	if err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}
	if rows == 0 {
		return nil, apperr.NotFound("school_subject", id)
	}
	return sub, nil
}

func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	rows, err := s.subjects.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("school_subject", id)
	}
	return nil
}

// Memberships returns every class and subject membership pair.
func (s *Service) Memberships(ctx context.Context) (classes, subjects []entity.Membership, err error) {
	if classes, err = s.classes.Memberships(ctx); err != nil {
		return nil, nil, err
	}
	if subjects, err = s.subjects.Memberships(ctx); err != nil {
		return nil, nil, err
	}
	return classes, subjects, nil
}

// RemoveTeachers strips teacher ids from every class and subject set and
// returns how many pairs were removed.
func (s *Service) RemoveTeachers(ctx context.Context, teacherIDs []string) (int64, error) {
	n, err := s.classes.RemoveTeachers(ctx, teacherIDs)
	if err != nil {
		return 0, err
	}
	m, err := s.subjects.RemoveTeachers(ctx, teacherIDs)
	if err != nil {
		return n, err
	}
	return n + m, nil
}

// applyEnums parses each non-blank enum field. Parse failures are re-raised
// as validation errors on the offending field.
func applyEnums(c *entity.SchoolClass, grade, course, shift string) error {
	if grade != "" {
		g, err := entity.ParseGrade(grade)
		if err != nil {
			return apperr.WrapValidation("grade", err)
		}
		c.Grade = g
	}
	if course != "" {
		v, err := entity.ParseCourse(course)
		if err != nil {
			return apperr.WrapValidation("course", err)
		}
		c.Course = v
	}
	if shift != "" {
		v, err := entity.ParseShift(shift)
		if err != nil {
			return apperr.WrapValidation("shift", err)
		}
		c.Shift = v
	}
	return nil
}
