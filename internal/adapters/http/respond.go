package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"trustlens/internal/domain"
	"trustlens/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// fail maps service errors onto status codes. Validation errors carry their
// field list; anything unexpected is reported and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	default:
		s.errLog.Log(err, logging.LogOptions{
			Msg: "request failed",
			Tags: map[string]string{
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": middleware.GetReqID(r.Context()),
			},
		})
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
