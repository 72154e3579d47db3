package account

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-roster-go/internal/httpx"
)

// Handler exposes the read-only account listing and lookup.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// View is the account as the API presents it.
type View struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func ToView(a *entity.Account) View {
	return View{ID: a.ID, Username: a.Username, Password: a.PasswordHash, Role: string(a.Role)}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, r, err)
		return
	}
	out := make([]View, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToView(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ToView(a))
}
