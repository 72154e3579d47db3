// Package profile stores the role-specific Admin, Teacher and Student
// records. Stores never look at accounts or membership sets; keeping those
// links consistent is the identity orchestrator's job.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

// Record is implemented by the pointer to each profile row type.
type Record[E any] interface {
	*E
	GetID() string
	SetID(id string)
	GetAccountID() string
	DisplayName() string
}

// Store wraps a ProfileRepo with id generation and not-found mapping.
type Store[E any, P Record[E]] struct {
	repo   *repo.ProfileRepo[E]
	kind   string
	logger *zap.SugaredLogger
}

func NewStore[E any, P Record[E]](r *repo.ProfileRepo[E], kind string, logger *zap.SugaredLogger) *Store[E, P] {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store[E, P]{repo: r, kind: kind, logger: logger}
}

type (
	AdminStore   = Store[entity.Admin, *entity.Admin]
	TeacherStore = Store[entity.Teacher, *entity.Teacher]
	StudentStore = Store[entity.Student, *entity.Student]
)

func NewAdminStore(r *repo.ProfileRepo[entity.Admin], logger *zap.SugaredLogger) *AdminStore {
	return NewStore[entity.Admin, *entity.Admin](r, "admin", logger)
}

func NewTeacherStore(r *repo.ProfileRepo[entity.Teacher], logger *zap.SugaredLogger) *TeacherStore {
	return NewStore[entity.Teacher, *entity.Teacher](r, "teacher", logger)
}

func NewStudentStore(r *repo.ProfileRepo[entity.Student], logger *zap.SugaredLogger) *StudentStore {
	return NewStore[entity.Student, *entity.Student](r, "student", logger)
}

// Kind is the entity name used in not-found errors.
func (s *Store[E, P]) Kind() string { return s.kind }

// Create assigns a fresh id and inserts p as given. The account id is not
// checked.
func (s *Store[E, P]) Create(ctx context.Context, p P) (P, error) {
	p.SetID(utilities.NewSnowflakeID())
	if err := s.repo.Create(ctx, (*E)(p)); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.kind, err)
	}
	s.logger.Debugw("profile created", "kind", s.kind, "id", p.GetID(), "account_id", p.GetAccountID())
	return p, nil
}

func (s *Store[E, P]) GetByID(ctx context.Context, id string) (P, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(s.kind, id)
		}
		return nil, err
	}
	return P(row), nil
}

func (s *Store[E, P]) List(ctx context.Context) ([]P, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return toRecords[E, P](rows), nil
}

// ListByIDs never fails on unknown ids; they are simply absent from the result.
func (s *Store[E, P]) ListByIDs(ctx context.Context, ids []string) ([]P, error) {
	rows, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toRecords[E, P](rows), nil
}

// Update loads the row, lets apply modify it and writes it back.
func (s *Store[E, P]) Update(ctx context.Context, id string, apply func(P) error) (P, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p); err != nil {
		return nil, err
	}
	rows, err := s.repo.Save(ctx, (*E)(p))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.kind, err)
	}
	if rows == 0 {
		return nil, apperr.NotFound(s.kind, id)
	}
	return p, nil
}

// Delete removes the profile row only.
func (s *Store[E, P]) Delete(ctx context.Context, id string) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	if rows == 0 {
		return apperr.NotFound(s.kind, id)
	}
	s.logger.Debugw("profile deleted", "kind", s.kind, "id", id)
	return nil
}

func toRecords[E any, P Record[E]](rows []*E) []P {
	out := make([]P, len(rows))
	for i, row := range rows {
		out[i] = P(row)
	}
	return out
}
