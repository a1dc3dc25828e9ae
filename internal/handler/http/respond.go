package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
	"github.com/ayushnagarcodes/natours/pkg/logger"
	"github.com/ayushnagarcodes/natours/pkg/validator"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// response is the envelope every endpoint answers with. Status is "success"
// on 2xx, "fail" on 4xx, and "error" on 5xx.
type response struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// sessionCookie is the cookie name the session token is mirrored into.
const sessionCookie = "jwt"

// responder centralizes response writing so the error detail posture and
// cookie attributes are decided in one place.
type responder struct {
	logger    *slog.Logger
	dev       bool
	cookieTTL time.Duration
}

func newResponder(log *slog.Logger, environment string, cookieTTL time.Duration) *responder {
	return &responder{
		logger:    log,
		dev:       environment == "development",
		cookieTTL: cookieTTL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func (rp *responder) success(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, response{Status: statusSuccess, Data: data})
}

func (rp *responder) successMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Status: statusSuccess, Message: message})
}

func (rp *responder) successList(w http.ResponseWriter, status int, results int, data any) {
	writeJSON(w, status, response{Status: statusSuccess, Results: &results, Data: data})
}

// session writes a 2xx response carrying a fresh session token, mirrored
// into an HttpOnly cookie.
func (rp *responder) session(w http.ResponseWriter, status int, token string, data any) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(rp.cookieTTL),
		HttpOnly: true,
		Secure:   !rp.dev,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, response{Status: statusSuccess, Token: token, Data: data})
}

// error writes the envelope for a failed request. Client errors keep their
// message; server errors expose detail only in development and are logged
// either way.
func (rp *responder) error(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "something went very wrong"
	operational := false

	var valErr *validator.ValidationError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		message = valErr.Error()
		operational = true
	case errors.As(err, &appErr):
		status = appErr.Status
		message = appErr.Message
		operational = true
	}

	label := statusFail
	if status >= 500 {
		label = statusError
		logger.WithContext(r.Context(), rp.logger).Error("request failed",
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		switch {
		case rp.dev:
			// Surface the full error chain while developing.
			message = err.Error()
		case !operational:
			// Unknown errors leak nothing in production.
			message = "something went very wrong"
		}
	}

	writeJSON(w, status, response{Status: label, Message: message})
}

// badRequest is used for bodies that fail to decode before any validation
// can run.
func (rp *responder) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, response{Status: statusFail, Message: message})
}
