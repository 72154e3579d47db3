// Package identity ties accounts to their role profiles. It is the only
// writer of cross-store links: registration creates the account then the
// profile, deregistration removes the profile then the account, and views
// join the two back together for presentation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account"
	accountentity "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/school"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/validation"
)

type Orchestrator struct {
	accounts *account.Service
	admins   *profile.AdminStore
	teachers *profile.TeacherStore
	students *profile.StudentStore
	school   *school.Service
	logger   *zap.SugaredLogger
	now      func() time.Time
}

type Option func(*Orchestrator)

// WithClock overrides the clock used for the birthdate cutoff.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(
	accounts *account.Service,
	admins *profile.AdminStore,
	teachers *profile.TeacherStore,
	students *profile.StudentStore,
	schoolSvc *school.Service,
	logger *zap.SugaredLogger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	o := &Orchestrator{
		accounts: accounts,
		admins:   admins,
		teachers: teachers,
		students: students,
		school:   schoolSvc,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// register creates the account and then the profile built for it. When the
// profile insert fails the account is deleted again so no account is left
// without a profile.
func register[E any, P profile.Record[E]](
	ctx context.Context,
	o *Orchestrator,
	store *profile.Store[E, P],
	creds Credentials,
	role accountentity.Role,
	build func(accountID string) P,
) (P, *accountentity.Account, error) {
	acc, err := o.accounts.Create(ctx, creds.Username, creds.Password, role)
	if err != nil {
		return nil, nil, err
	}
	p, err := store.Create(ctx, build(acc.ID))
	if err != nil {
		if cerr := o.accounts.Delete(context.WithoutCancel(ctx), acc.ID); cerr != nil {
			o.logger.Errorw("compensating account delete failed", "kind", store.Kind(), "account_id", acc.ID, "error", cerr)
			return nil, nil, errors.Join(err, fmt.Errorf("remove account %s: %w", acc.ID, cerr))
		}
		o.logger.Warnw("profile create failed, account removed", "kind", store.Kind(), "account_id", acc.ID, "error", err)
		return nil, nil, err
	}
	o.logger.Infow("registered", "kind", store.Kind(), "id", p.GetID(), "account_id", acc.ID, "username", acc.Username)
	return p, acc, nil
}

// deregister removes the profile first and the account second, so a
// failure in between leaves an account without a profile rather than a
// profile pointing at nothing.
func deregister[E any, P profile.Record[E]](ctx context.Context, o *Orchestrator, store *profile.Store[E, P], id string) error {
	p, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	if err := o.accounts.Delete(ctx, p.GetAccountID()); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			o.logger.Warnw("deregistered profile had no account", "kind", store.Kind(), "id", id, "account_id", p.GetAccountID())
			return nil
		}
		return fmt.Errorf("delete account of %s %s: %w", store.Kind(), id, err)
	}
	o.logger.Infow("deregistered", "kind", store.Kind(), "id", id, "account_id", p.GetAccountID())
	return nil
}

// update checks the credential change against the account store, saves the
// merged profile and only then forwards the credentials. A rejected apply or
// a failed profile save leaves the account untouched.
func update[E any, P profile.Record[E]](
	ctx context.Context,
	o *Orchestrator,
	store *profile.Store[E, P],
	id string,
	creds CredentialsPatch,
	apply func(P) error,
) (P, *accountentity.Account, error) {
	current, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	acc, err := o.accounts.GetByID(ctx, current.GetAccountID())
	if err != nil {
		return nil, nil, err
	}
	patch := creds.toPatch()
	if err := o.accounts.CheckPatch(ctx, acc, patch); err != nil {
		return nil, nil, err
	}
	p, err := store.Update(ctx, id, apply)
	if err != nil {
		return nil, nil, err
	}
	if patch.Empty() {
		return p, acc, nil
	}
	acc, err = o.accounts.Update(ctx, acc.ID, patch)
	if err != nil {
		o.logger.Errorw("profile saved, credentials not applied", "kind", store.Kind(), "id", id, "account_id", p.GetAccountID(), "error", err)
		return nil, nil, fmt.Errorf("update credentials of %s %s: %w", store.Kind(), id, err)
	}
	return p, acc, nil
}

// get loads a profile and its account.
func get[E any, P profile.Record[E]](ctx context.Context, o *Orchestrator, store *profile.Store[E, P], id string) (P, *accountentity.Account, error) {
	p, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	acc, err := o.accounts.GetByID(ctx, p.GetAccountID())
	if err != nil {
		return nil, nil, err
	}
	return p, acc, nil
}

// listViews joins every profile with its account. Profiles whose account
// is gone are skipped and logged; Reconcile reports them.
func listViews[E any, P profile.Record[E], V any](
	ctx context.Context,
	o *Orchestrator,
	store *profile.Store[E, P],
	view func(P, *accountentity.Account) V,
) ([]V, error) {
	profiles, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := o.accountsByID(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(profiles))
	for _, p := range profiles {
		acc, ok := accounts[p.GetAccountID()]
		if !ok {
			o.logger.Warnw("profile without account skipped", "kind", store.Kind(), "id", p.GetID(), "account_id", p.GetAccountID())
			continue
		}
		out = append(out, view(p, acc))
	}
	return out, nil
}

func (o *Orchestrator) accountsByID(ctx context.Context) (map[string]*accountentity.Account, error) {
	all, err := o.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*accountentity.Account, len(all))
	for _, a := range all {
		m[a.ID] = a
	}
	return m, nil
}

func (o *Orchestrator) RegisterAdmin(ctx context.Context, req AdminRequest) (*AdminView, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, acc, err := register(ctx, o, o.admins, req.Credentials, accountentity.RoleAdmin, func(accountID string) *entity.Admin {
		return &entity.Admin{AccountID: accountID, Name: req.Name, Email: req.Email, CPF: req.CPF, Phone: req.Phone}
	})
	if err != nil {
		return nil, err
	}
	return adminView(p, acc), nil
}

func (o *Orchestrator) RegisterTeacher(ctx context.Context, req TeacherRequest) (*TeacherView, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, acc, err := register(ctx, o, o.teachers, req.Credentials, accountentity.RoleTeacher, func(accountID string) *entity.Teacher {
		return &entity.Teacher{AccountID: accountID, Name: req.Name, Email: req.Email, CPF: req.CPF, Phone: req.Phone}
	})
	if err != nil {
		return nil, err
	}
	return teacherView(p, acc), nil
}

// RegisterStudent requires the class to exist before any account is made.
func (o *Orchestrator) RegisterStudent(ctx context.Context, req StudentRequest) (*StudentView, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SchoolClassID = strings.TrimSpace(req.SchoolClassID)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var birth *time.Time
	if b := strings.TrimSpace(req.Birthdate); b != "" {
		d, err := profile.ParseDate(b)
		if err != nil {
			return nil, err
		}
		birth = &d
	}
	if _, err := o.school.GetClass(ctx, req.SchoolClassID); err != nil {
		return nil, err
	}
	p, acc, err := register(ctx, o, o.students, req.Credentials, accountentity.RoleStudent, func(accountID string) *entity.Student {
		return &entity.Student{
			AccountID:     accountID,
			Name:          req.Name,
			RA:            req.RA,
			RM:            req.RM,
			CPF:           req.CPF,
			Phone:         req.Phone,
			Email:         req.Email,
			SchoolClassID: req.SchoolClassID,
			Birthdate:     birth,
			Biometry:      req.Biometry,
			Photo:         req.Photo,
		}
	})
	if err != nil {
		return nil, err
	}
	return studentView(p, acc), nil
}

func (o *Orchestrator) DeregisterAdmin(ctx context.Context, id string) error {
	return deregister(ctx, o, o.admins, id)
}

// DeregisterTeacher leaves the teacher's id in any class or subject set;
// name resolution drops it from then on.
func (o *Orchestrator) DeregisterTeacher(ctx context.Context, id string) error {
	return deregister(ctx, o, o.teachers, id)
}

func (o *Orchestrator) DeregisterStudent(ctx context.Context, id string) error {
	return deregister(ctx, o, o.students, id)
}

func (o *Orchestrator) UpdateAdmin(ctx context.Context, id string, req AdminUpdate) (*AdminView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, acc, err := update(ctx, o, o.admins, id, req.CredentialsPatch, func(a *entity.Admin) error {
		req.AdminPatch.Apply(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adminView(p, acc), nil
}

func (o *Orchestrator) UpdateTeacher(ctx context.Context, id string, req TeacherUpdate) (*TeacherView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	p, acc, err := update(ctx, o, o.teachers, id, req.CredentialsPatch, func(t *entity.Teacher) error {
		req.TeacherPatch.Apply(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return teacherView(p, acc), nil
}

// UpdateStudent checks the birthdate format and the new class before
// touching either store.
func (o *Orchestrator) UpdateStudent(ctx context.Context, id string, req StudentUpdate) (*StudentView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if b := strings.TrimSpace(req.Birthdate); b != "" {
		if _, err := profile.ParseDate(b); err != nil {
			return nil, err
		}
	}
	if classID, ok := req.ClassID(); ok {
		if _, err := o.school.GetClass(ctx, classID); err != nil {
			return nil, err
		}
	}
	now := o.now()
	p, acc, err := update(ctx, o, o.students, id, req.CredentialsPatch, func(s *entity.Student) error {
		return req.StudentPatch.Apply(s, now)
	})
	if err != nil {
		return nil, err
	}
	return studentView(p, acc), nil
}

// ResolveAdminView joins p with its account; a vanished account surfaces
// as NotFound("account", id).
func (o *Orchestrator) ResolveAdminView(ctx context.Context, p *entity.Admin) (*AdminView, error) {
	acc, err := o.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	return adminView(p, acc), nil
}

func (o *Orchestrator) ResolveTeacherView(ctx context.Context, p *entity.Teacher) (*TeacherView, error) {
	acc, err := o.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	return teacherView(p, acc), nil
}

func (o *Orchestrator) ResolveStudentView(ctx context.Context, p *entity.Student) (*StudentView, error) {
	acc, err := o.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	return studentView(p, acc), nil
}

func (o *Orchestrator) GetAdmin(ctx context.Context, id string) (*AdminView, error) {
	p, acc, err := get(ctx, o, o.admins, id)
	if err != nil {
		return nil, err
	}
	return adminView(p, acc), nil
}

func (o *Orchestrator) GetTeacher(ctx context.Context, id string) (*TeacherView, error) {
	p, acc, err := get(ctx, o, o.teachers, id)
	if err != nil {
		return nil, err
	}
	return teacherView(p, acc), nil
}

func (o *Orchestrator) GetStudent(ctx context.Context, id string) (*StudentView, error) {
	p, acc, err := get(ctx, o, o.students, id)
	if err != nil {
		return nil, err
	}
	return studentView(p, acc), nil
}

func (o *Orchestrator) ListAdmins(ctx context.Context) ([]*AdminView, error) {
	return listViews(ctx, o, o.admins, adminView)
}

func (o *Orchestrator) ListTeachers(ctx context.Context) ([]*TeacherView, error) {
	return listViews(ctx, o, o.teachers, teacherView)
}

func (o *Orchestrator) ListStudents(ctx context.Context) ([]*StudentView, error) {
	return listViews(ctx, o, o.students, studentView)
}
