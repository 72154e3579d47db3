package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-roster-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-roster-go/pkg/utilities"
)

// PasswordHasher defines the one-way hashing capability (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.WrapValidation("password", err)
		}
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Service is the credential store: it owns account records and is the only
// place raw passwords are turned into hashes.
type Service struct {
	repo   *accountrepo.AccountRepo
	hasher PasswordHasher
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(r *accountrepo.AccountRepo, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, hasher: hasher, logger: logger, now: time.Now}
}

// Create stores a new account with a hashed password. A taken username fails
// with apperr.ErrDuplicateUsername and writes nothing.
func (s *Service) Create(ctx context.Context, username, rawPassword string, role entity.Role) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username", "required")
	}
	if rawPassword == "" {
		return nil, apperr.Validation("password", "required")
	}
	if !role.Valid() {
		return nil, apperr.Validation("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	a := &entity.Account{
		ID:           utilities.NewSnowflakeID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		// lost a race with a concurrent create of the same username
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Debugw("account created", "id", a.ID, "username", a.Username, "role", a.Role)
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("account", id)
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	a, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("account", username)
		}
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*entity.Account, error) {
	return s.repo.List(ctx)
}

// Update applies the non-blank fields of p. The role never changes.
func (s *Service) Update(ctx context.Context, id string, p entity.Patch) (*entity.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return a, nil
	}
	if name := strings.TrimSpace(p.Username); name != "" && name != a.Username {
		if err := s.ensureUsernameFree(ctx, name); err != nil {
			return nil, err
		}
		a.Username = name
	}
	if p.Password != "" {
		hash, err := s.hasher.Hash(p.Password)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}
	a.UpdatedAt = s.now().UTC()
	rows, err := s.repo.Update(ctx, a)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	if rows == 0 {
		return nil, apperr.NotFound("account", id)
	}
	return a, nil
}

// CheckPatch reports whether p could be applied to a without a conflict.
// Nothing is written.
func (s *Service) CheckPatch(ctx context.Context, a *entity.Account, p entity.Patch) error {
	if name := strings.TrimSpace(p.Username); name != "" && name != a.Username {
		return s.ensureUsernameFree(ctx, name)
	}
	return nil
}

// Delete removes the account. Deleting an id twice fails the second time.
func (s *Service) Delete(ctx context.Context, id string) error {
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("account", id)
	}
	return nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords both yield apperr.ErrBadCredentials to avoid user enumeration.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.ErrBadCredentials
	}
	a, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, apperr.ErrBadCredentials
	}
	return a, nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return apperr.ErrDuplicateUsername
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return err
	}
}
