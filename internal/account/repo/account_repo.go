package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
)

// AccountRepo provides data access for the accounts table using sqlx.
// Queries are written with ? placeholders and rebound for the driver.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id VARCHAR(32) PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role VARCHAR(16) NOT NULL,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts (role)`)
	return err
}

const accountColumns = `id, username, password_hash, role, created_at, updated_at`

// Create inserts a new account row. The caller sets the ID.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO accounts (id, username, password_hash, role, created_at, updated_at)
		VALUES (:id, :username, :password_hash, :role, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, q, a)
	return err
}

// GetByID fetches a full account row or sql.ErrNoRows.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	q := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByUsername fetches by username or sql.ErrNoRows.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	q := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`)
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, username); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns every account ordered by id.
func (r *AccountRepo) List(ctx context.Context) ([]*entity.Account, error) {
	rows := []*entity.Account{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+accountColumns+` FROM accounts ORDER BY id`); err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes username and password hash. Role is not part of the statement.
func (r *AccountRepo) Update(ctx context.Context, a *entity.Account) (int64, error) {
	const q = `UPDATE accounts SET username = :username, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes an account and reports how many rows went away.
func (r *AccountRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM accounts WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
