// Package dbtest opens throwaway sqlite databases for package tests.
package dbtest

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/database"
)

// Open returns an in-memory sqlite database closed when the test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
