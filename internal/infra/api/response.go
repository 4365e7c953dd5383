package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"contract-plan-manager/internal/domain"
	"contract-plan-manager/internal/infra/logging"
)

// Response is the envelope every /api endpoint answers with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Errors  []string    `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data, Errors: []string{}})
}

func fail(w http.ResponseWriter, status int, message string, errs ...string) {
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, Response{Success: false, Message: message, Errors: errs})
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Infrastructure failures are
// logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log *zerolog.Logger, err error, notFound string) {
	status := statusFor(err)
	l := logging.With(r.Context(), log)
	switch status {
	case http.StatusInternalServerError:
		if errors.Is(err, context.Canceled) {
			l.Debug().Err(err).Str("path", r.URL.Path).Msg("request cancelled")
		} else {
			l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		}
		fail(w, status, "Internal server error")
	case http.StatusNotFound:
		l.Debug().Err(err).Str("path", r.URL.Path).Msg("not found")
		fail(w, status, notFound, err.Error())
	default:
		l.Warn().Err(err).Str("path", r.URL.Path).Msg("business rule violation")
		fail(w, status, err.Error())
	}
}
