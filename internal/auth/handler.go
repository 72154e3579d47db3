package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/httpx"
)

// Authenticator verifies a username/password pair against the credential store.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*entity.Account, error)
}

// Handler exposes the login endpoint.
type Handler struct {
	tokens   *TokenService
	accounts Authenticator
	logger   *zap.SugaredLogger
}

func NewHandler(tokens *TokenService, accounts Authenticator, logger *zap.SugaredLogger) *Handler {
	return &Handler{tokens: tokens, accounts: accounts, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, r, err)
		return
	}
	a, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Debugw("login failed", "username", req.Username, "err", err)
		httpx.WriteError(w, h.logger, r, err)
		return
	}
	token, exp, err := h.tokens.Issue(a)
	if err != nil {
		httpx.WriteError(w, h.logger, r, err)
		return
	}
	h.logger.Infow("login", "username", a.Username, "role", a.Role)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp})
}

type ctxKey struct{}

// AccountLookup resolves a token subject to the live account.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
}

// AccountFromContext returns the account the verified bearer token belongs to.
func AccountFromContext(ctx context.Context) (*entity.Account, bool) {
	a, ok := ctx.Value(ctxKey{}).(*entity.Account)
	return a, ok && a != nil
}

// Middleware rejects requests without a valid bearer token. The token subject
// must still name an existing account; that account is stored in the request
// context.
func Middleware(tokens *TokenService, accounts AccountLookup, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				httpx.WriteError(w, logger, r, apperr.InvalidToken("missing bearer token"))
				return
			}
			username, err := tokens.Verify(strings.TrimSpace(header[len("bearer "):]))
			if err != nil {
				httpx.WriteError(w, logger, r, err)
				return
			}
			a, err := accounts.GetByUsername(r.Context(), username)
			if errors.Is(err, apperr.ErrNotFound) {
				logger.Infow("token for unknown account", "username", username)
				httpx.WriteError(w, logger, r, apperr.InvalidToken("unknown subject"))
				return
			}
			if err != nil {
				httpx.WriteError(w, logger, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, a)))
		})
	}
}

// RequireRole lets the request through only when the authenticated account
// holds one of roles. It must run inside Middleware.
func RequireRole(logger *zap.SugaredLogger, roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := AccountFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, logger, r, apperr.InvalidToken("missing bearer token"))
				return
			}
			if !slices.Contains(roles, a.Role) {
				httpx.WriteError(w, logger, r, fmt.Errorf("role %s on %s %s: %w", a.Role, r.Method, r.URL.Path, apperr.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
