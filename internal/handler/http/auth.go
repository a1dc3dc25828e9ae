package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/service"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
)

// AuthHandler handles HTTP requests for the credential and session
// endpoints.
type AuthHandler struct {
	service *service.AuthService
	rp      *responder
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, rp *responder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, rp: rp, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest is the JSON request body for requesting a reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON request body for completing a reset. The
// token itself travels in the URL.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest is the JSON request body for an authenticated
// password change.
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// userPayload is how an account appears inside a response envelope.
func userPayload(u *domain.User) map[string]any {
	return map[string]any{"user": u}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	return json.NewDecoder(r.Body).Decode(dst)
}

// --- Handlers ---

// Signup handles POST /api/v1/users/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := decodeBody(w, r, &req); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	user, token, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.session(w, http.StatusCreated, token, userPayload(user))
}

// Login handles POST /api/v1/users/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.session(w, http.StatusOK, token, userPayload(user))
}

// ForgotPassword handles POST /api/v1/users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.successMessage(w, http.StatusOK, "token sent to email")
}

// ResetPassword handles PATCH /api/v1/users/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	user, token, err := h.service.CompletePasswordReset(r.Context(), secret, req.Password, req.PasswordConfirm)
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.session(w, http.StatusOK, token, userPayload(user))
}

// UpdatePassword handles PATCH /api/v1/users/update-password
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		h.rp.error(w, r, apperrors.Authentication("you are not logged in, please log in to get access"))
		return
	}

	var req UpdatePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	updated, token, err := h.service.ChangePassword(r.Context(), user.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.session(w, http.StatusOK, token, userPayload(updated))
}
