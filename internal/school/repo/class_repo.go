package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// ClassRepo stores school classes and their teacher membership sets.
type ClassRepo struct {
	db      *sqlx.DB
	members memberSet
}

func NewClassRepo(db *sqlx.DB) *ClassRepo {
	return &ClassRepo{db: db, members: memberSet{table: "school_class_teachers", ownerCol: "class_id"}}
}

// EnsureTable creates school_classes and its membership table if missing.
func (r *ClassRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS school_classes (
  id VARCHAR(32) PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  grade VARCHAR(16) NOT NULL,
  course VARCHAR(8) NOT NULL,
  shift VARCHAR(16) NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	return r.members.ensure(ctx, r.db)
}

const classColumns = `id, name, grade, course, shift`

func (r *ClassRepo) Create(ctx context.Context, c *entity.SchoolClass) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `INSERT INTO school_classes (id, name, grade, course, shift) VALUES (:id, :name, :grade, :course, :shift)`
		if _, err := tx.NamedExecContext(ctx, q, c); err != nil {
			return err
		}
		return r.members.replace(ctx, tx, c.ID, c.TeacherIDs)
	})
}

// GetByID returns the class with its membership set or sql.ErrNoRows.
func (r *ClassRepo) GetByID(ctx context.Context, id string) (*entity.SchoolClass, error) {
	var row entity.SchoolClass
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+classColumns+` FROM school_classes WHERE id = ?`), id); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, []*entity.SchoolClass{&row}); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ClassRepo) List(ctx context.Context) ([]*entity.SchoolClass, error) {
	rows := []*entity.SchoolClass{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+classColumns+` FROM school_classes ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, r.attach(ctx, rows)
}

// ListByIDs returns the classes that exist among ids; unknown ids are skipped.
func (r *ClassRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.SchoolClass, error) {
	rows := []*entity.SchoolClass{}
	if len(ids) == 0 {
		return rows, nil
	}
	q, args, err := sqlx.In(`SELECT `+classColumns+` FROM school_classes WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, r.attach(ctx, rows)
}

// Update writes the scalar columns and, when replaceMembers is set, swaps
// the membership set for c.TeacherIDs.
func (r *ClassRepo) Update(ctx context.Context, c *entity.SchoolClass, replaceMembers bool) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `UPDATE school_classes SET name = :name, grade = :grade, course = :course, shift = :shift WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, q, c)
		if err != nil {
			return err
		}
		if rows, err = res.RowsAffected(); err != nil || rows == 0 {
			return err
		}
		if replaceMembers {
			return r.members.replace(ctx, tx, c.ID, c.TeacherIDs)
		}
		return nil
	})
	return rows, err
}

func (r *ClassRepo) Delete(ctx context.Context, id string) (int64, error) {
	var rows int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.members.clear(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM school_classes WHERE id = ?`), id)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	return rows, err
}

// Memberships lists every (class, teacher) pair.
func (r *ClassRepo) Memberships(ctx context.Context) ([]entity.Membership, error) {
	return r.members.all(ctx, r.db)
}

// RemoveTeachers drops the teacher ids from every class set.
func (r *ClassRepo) RemoveTeachers(ctx context.Context, teacherIDs []string) (int64, error) {
	return r.members.removeTeachers(ctx, r.db, teacherIDs)
}

func (r *ClassRepo) attach(ctx context.Context, rows []*entity.SchoolClass) error {
	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	sets, err := r.members.load(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, c := range rows {
		c.TeacherIDs = sets[c.ID]
		if c.TeacherIDs == nil {
			c.TeacherIDs = []string{}
		}
	}
	return nil
}
