package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
)

// Table describes where a profile kind lives. Columns must match the db
// tags of the row type, id first.
type Table struct {
	Name    string
	Columns []string
	DDL     string
}

var AdminTable = Table{
	Name:    "admins",
	Columns: []string{"id", "account_id", "name", "email", "cpf", "phone"},
	DDL: `
CREATE TABLE IF NOT EXISTS admins (
  id VARCHAR(32) PRIMARY KEY,
  account_id VARCHAR(32) NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  cpf TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT ''
)`,
}

var TeacherTable = Table{
	Name:    "teachers",
	Columns: []string{"id", "account_id", "name", "email", "cpf", "phone"},
	DDL: `
CREATE TABLE IF NOT EXISTS teachers (
  id VARCHAR(32) PRIMARY KEY,
  account_id VARCHAR(32) NOT NULL,
  name TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  cpf TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT ''
)`,
}

var StudentTable = Table{
	Name: "students",
	Columns: []string{"id", "account_id", "name", "ra", "rm", "cpf", "phone", "email",
		"school_class_id", "birthdate", "biometry", "photo", "in_school"},
	DDL: `
CREATE TABLE IF NOT EXISTS students (
  id VARCHAR(32) PRIMARY KEY,
  account_id VARCHAR(32) NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  ra TEXT NOT NULL DEFAULT '',
  rm TEXT NOT NULL DEFAULT '',
  cpf TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  school_class_id VARCHAR(32) NOT NULL,
  birthdate DATE,
  biometry BIGINT,
  photo TEXT NOT NULL DEFAULT '',
  in_school BOOLEAN NOT NULL DEFAULT FALSE
)`,
}

// ProfileRepo is the sqlx store shared by all profile kinds.
type ProfileRepo[T any] struct {
	db    *sqlx.DB
	table Table

	cols   string
	insert string
	update string
}

func New[T any](db *sqlx.DB, table Table) *ProfileRepo[T] {
	named := make([]string, len(table.Columns))
	sets := make([]string, 0, len(table.Columns)-1)
	for i, c := range table.Columns {
		named[i] = ":" + c
		if c != "id" {
			sets = append(sets, c+" = :"+c)
		}
	}
	return &ProfileRepo[T]{
		db:     db,
		table:  table,
		cols:   strings.Join(table.Columns, ", "),
		insert: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table.Name, strings.Join(table.Columns, ", "), strings.Join(named, ", ")),
		update: fmt.Sprintf(`UPDATE %s SET %s WHERE id = :id`, table.Name, strings.Join(sets, ", ")),
	}
}

func NewAdminRepo(db *sqlx.DB) *ProfileRepo[entity.Admin] {
	return New[entity.Admin](db, AdminTable)
}

func NewTeacherRepo(db *sqlx.DB) *ProfileRepo[entity.Teacher] {
	return New[entity.Teacher](db, TeacherTable)
}

func NewStudentRepo(db *sqlx.DB) *ProfileRepo[entity.Student] {
	return New[entity.Student](db, StudentTable)
}

// EnsureTable creates the table and its account_id index if missing.
func (r *ProfileRepo[T]) EnsureTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.table.DDL); err != nil {
		return err
	}
	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_account_id ON %s (account_id)`, r.table.Name, r.table.Name)
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

func (r *ProfileRepo[T]) Create(ctx context.Context, p *T) error {
	_, err := r.db.NamedExecContext(ctx, r.insert, p)
	return err
}

// GetByID returns sql.ErrNoRows when the id is unknown.
func (r *ProfileRepo[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var row T
	q := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.cols, r.table.Name))
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ProfileRepo[T]) List(ctx context.Context) ([]*T, error) {
	rows := []*T{}
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, r.cols, r.table.Name)
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDs returns the rows that exist among ids, ordered by id.
func (r *ProfileRepo[T]) ListByIDs(ctx context.Context, ids []string) ([]*T, error) {
	rows := []*T{}
	if len(ids) == 0 {
		return rows, nil
	}
	q, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (?) ORDER BY id`, r.cols, r.table.Name), ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Save writes every column of p and returns the affected row count.
func (r *ProfileRepo[T]) Save(ctx context.Context, p *T) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, r.update, p)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ProfileRepo[T]) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table.Name)), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
