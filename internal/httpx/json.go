package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/apperr"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto a status code and a {"error": ...} body. Server
// errors are logged and their message is not echoed to the client.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = http.StatusText(status)
	} else {
		logger.Debugw("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	WriteJSON(w, status, map[string]string{"error": msg})
}

// DecodeJSON reads a JSON body into v; malformed payloads become a validation
// failure on "body".
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("body", "empty payload")
		}
		return apperr.WrapValidation("body", err)
	}
	return nil
}
