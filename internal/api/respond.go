package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	var env errorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details
	respondJSON(w, status, env)
}

// respondError maps a coded error onto its HTTP status. Internal errors are
// logged and answered without detail.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := rerrors.GetHTTPStatus(err)
	code := string(rerrors.GetCode(err))
	if status >= http.StatusInternalServerError {
		s.log.FromContext(r.Context()).Error("request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}
	if status == http.StatusInternalServerError {
		respondErr(w, status, code, "internal error", nil)
		return
	}
	respondErr(w, status, code, message(err), rerrors.GetFields(err))
}

func message(err error) string {
	var e *rerrors.Error
	if rerrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
