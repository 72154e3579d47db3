package identity

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/httpx"
)

// Resource is one CRUD collection: GET/POST on Path, GET/PUT/DELETE on
// Path/{id}. Credentials marks collections whose views carry password
// hashes.
type Resource struct {
	Path        string
	Credentials bool
	List        http.HandlerFunc
	Create      http.HandlerFunc
	Get         http.HandlerFunc
	Update      http.HandlerFunc
	Delete      http.HandlerFunc
}

type Handler struct {
	o      *Orchestrator
	logger *zap.SugaredLogger
}

func NewHandler(o *Orchestrator, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{o: o, logger: logger}
}

// Resources lists the collections served under /api.
func (h *Handler) Resources() []Resource {
	o := h.o
	return []Resource{
		{
			Path:        "/api/admin",
			Credentials: true,
			List:        listAll(h, o.ListAdmins),
			Create:      create(h, o.RegisterAdmin),
			Get:         getByID(h, o.GetAdmin),
			Update:      updateByID(h, o.UpdateAdmin),
			Delete:      deleteByID(h, o.DeregisterAdmin),
		},
		{
			Path:        "/api/teachers",
			Credentials: true,
			List:        listAll(h, o.ListTeachers),
			Create:      create(h, o.RegisterTeacher),
			Get:         getByID(h, o.GetTeacher),
			Update:      updateByID(h, o.UpdateTeacher),
			Delete:      deleteByID(h, o.DeregisterTeacher),
		},
		{
			Path:        "/api/student",
			Credentials: true,
			List:        listAll(h, o.ListStudents),
			Create:      create(h, o.RegisterStudent),
			Get:         getByID(h, o.GetStudent),
			Update:      updateByID(h, o.UpdateStudent),
			Delete:      deleteByID(h, o.DeregisterStudent),
		},
		{
			Path:   "/api/schoolclass",
			List:   listAll(h, o.ListClasses),
			Create: create(h, o.CreateClass),
			Get:    getByID(h, o.GetClass),
			Update: updateByID(h, o.UpdateClass),
			Delete: deleteByID(h, o.DeleteClass),
		},
		{
			Path:   "/api/schoolsubject",
			List:   listAll(h, o.ListSubjects),
			Create: create(h, o.CreateSubject),
			Get:    getByID(h, o.GetSubject),
			Update: updateByID(h, o.UpdateSubject),
			Delete: deleteByID(h, o.DeleteSubject),
		},
	}
}

func listAll[V any](h *Handler, fn func(context.Context) ([]V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context())
		if err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func create[Req, V any](h *Handler, fn func(context.Context, Req) (V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		out, err := fn(r.Context(), req)
		if err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, out)
	}
}

func getByID[V any](h *Handler, fn func(context.Context, string) (V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context(), r.PathValue("id"))
		if err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func updateByID[Req, V any](h *Handler, fn func(context.Context, string, Req) (V, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		out, err := fn(r.Context(), r.PathValue("id"), req)
		if err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func deleteByID(h *Handler, fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), r.PathValue("id")); err != nil {
			httpx.WriteError(w, h.logger, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
