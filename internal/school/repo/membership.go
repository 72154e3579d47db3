package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school/entity"
)

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx.
type dbtx interface {
	sqlx.ExtContext
	Rebind(string) string
}

// withTx runs fn inside a transaction, rolling back on error.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// memberSet persists a set of teacher ids per owner row in a link table.
// Neither column carries a foreign key: teacher ids are plain values.
type memberSet struct {
	table    string
	ownerCol string
}

func (m memberSet) ensure(ctx context.Context, db dbtx) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  %s VARCHAR(32) NOT NULL,
  teacher_id VARCHAR(32) NOT NULL,
  PRIMARY KEY (%s, teacher_id)
)`, m.table, m.ownerCol, m.ownerCol)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_teacher_id ON %s (teacher_id)`, m.table, m.table)
	_, err := db.ExecContext(ctx, idx)
	return err
}

// load returns owner id -> sorted teacher ids for the given owners.
func (m memberSet) load(ctx context.Context, db dbtx, ownerIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(fmt.Sprintf(`SELECT %s AS owner_id, teacher_id FROM %s WHERE %s IN (?) ORDER BY teacher_id`,
		m.ownerCol, m.table, m.ownerCol), ownerIDs)
	if err != nil {
		return nil, err
	}
	var rows []entity.Membership
	if err := sqlx.SelectContext(ctx, db, &rows, db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OwnerID] = append(out[row.OwnerID], row.TeacherID)
	}
	return out, nil
}

// replace overwrites the owner's set with ids.
func (m memberSet) replace(ctx context.Context, tx dbtx, ownerID string, ids []string) error {
	if err := m.clear(ctx, tx, ownerID); err != nil {
		return err
	}
	ins := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (%s, teacher_id) VALUES (?, ?)`, m.table, m.ownerCol))
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, ins, ownerID, id); err != nil {
			return err
		}
	}
	return nil
}

func (m memberSet) clear(ctx context.Context, tx dbtx, ownerID string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, m.table, m.ownerCol)), ownerID)
	return err
}

// all lists every pair in the set table.
func (m memberSet) all(ctx context.Context, db dbtx) ([]entity.Membership, error) {
	rows := []entity.Membership{}
	q := fmt.Sprintf(`SELECT %s AS owner_id, teacher_id FROM %s ORDER BY %s, teacher_id`, m.ownerCol, m.table, m.ownerCol)
	if err := sqlx.SelectContext(ctx, db, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// removeTeachers drops the given teacher ids from every owner's set.
func (m memberSet) removeTeachers(ctx context.Context, db dbtx, teacherIDs []string) (int64, error) {
	if len(teacherIDs) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(fmt.Sprintf(`DELETE FROM %s WHERE teacher_id IN (?)`, m.table), teacherIDs)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
