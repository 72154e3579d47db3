// Package app wires repositories and services over one database handle.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
	profilerepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school"
	schoolrepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/school/repo"
)

type App struct {
	DB       *sqlx.DB
	Accounts *account.Service
	Identity *identity.Orchestrator

	tables []interface {
		EnsureTable(ctx context.Context) error
	}
}

func New(db *sqlx.DB, bcryptCost int, logger *zap.SugaredLogger) *App {
	ar := accountrepo.NewAccountRepo(db)
	adr := profilerepo.NewAdminRepo(db)
	tr := profilerepo.NewTeacherRepo(db)
	sr := profilerepo.NewStudentRepo(db)
	cr := schoolrepo.NewClassRepo(db)
	subr := schoolrepo.NewSubjectRepo(db)

	accounts := account.NewService(ar, account.BcryptHasher{Cost: bcryptCost}, logger)
	o := identity.New(accounts,
		profile.NewAdminStore(adr, logger),
		profile.NewTeacherStore(tr, logger),
		profile.NewStudentStore(sr, logger),
		school.NewService(cr, subr, logger),
		logger,
	)
	a := &App{DB: db, Accounts: accounts, Identity: o}
	a.tables = append(a.tables, ar, adr, tr, sr, cr, subr)
	return a
}

// EnsureSchema creates every table the service uses.
func (a *App) EnsureSchema(ctx context.Context) error {
	for _, t := range a.tables {
		if err := t.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
