package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// SubjectRepo stores school subjects and their teacher membership sets.
type SubjectRepo struct {
	db      *sqlx.DB
	members memberSet
}

func NewSubjectRepo(db *sqlx.DB) *SubjectRepo {
	return &SubjectRepo{db: db, members: memberSet{table: "school_subject_teachers", ownerCol: "subject_id"}}
}

func (r *SubjectRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS school_subjects (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	return r.members.ensure(ctx, r.db)
}

func (r *SubjectRepo) Create(ctx context.Context, s *entity.SchoolSubject) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO school_subjects (id, name) VALUES (:id, :name)`, s); err != nil {
			return err
		}
		return r.members.replace(ctx, tx, s.ID, s.TeacherIDs)
	})
}

func (r *SubjectRepo) GetByID(ctx context.Context, id string) (*entity.SchoolSubject, error) {
	var row entity.SchoolSubject
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, name FROM school_subjects WHERE id = ?`), id); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, []*entity.SchoolSubject{&row}); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *SubjectRepo) List(ctx context.Context) ([]*entity.SchoolSubject, error) {
	rows := []*entity.SchoolSubject{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name FROM school_subjects ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, r.attach(ctx, rows)
}

func (r *SubjectRepo) Update(ctx context.Context, s *entity.SchoolSubject, replaceMembers bool) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `UPDATE school_subjects SET name = :name WHERE id = :id`, s)
		if err != nil {
			return err
		}
		if rows, err = res.RowsAffected(); err != nil || rows == 0 {
			return err
		}
		if replaceMembers {
			return r.members.replace(ctx, tx, s.ID, s.TeacherIDs)
		}
		return nil
	})
	return rows, err
}

func (r *SubjectRepo) Delete(ctx context.Context, id string) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.members.clear(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM school_subjects WHERE id = ?`), id)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	return rows, err
}

func (r *SubjectRepo) Memberships(ctx context.Context) ([]entity.Membership, error) {
	return r.members.all(ctx, r.db)
}

func (r *SubjectRepo) RemoveTeachers(ctx context.Context, teacherIDs []string) (int64, error) {
	return r.members.removeTeachers(ctx, r.db, teacherIDs)
}

func (r *SubjectRepo) attach(ctx context.Context, rows []*entity.SchoolSubject) error {
	ids := make([]string, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.ID)
	}
	sets, err := r.members.load(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, s := range rows {
		s.TeacherIDs = sets[s.ID]
		if s.TeacherIDs == nil {
			s.TeacherIDs = []string{}
		}
	}
	return nil
}
