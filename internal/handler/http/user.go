package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayushnagarcodes/natours/internal/service"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
)

// UserHandler handles HTTP requests for profile self-service and the admin
// listing.
type UserHandler struct {
	service *service.UserService
	rp      *responder
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, rp *responder, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, rp: rp, logger: logger}
}

// UpdateMe handles PATCH /api/v1/users/update-me. Password fields are
// rejected here so they can only change through the password endpoints.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		h.rp.error(w, r, apperrors.Authentication("you are not logged in, please log in to get access"))
		return
	}

	var raw map[string]json.RawMessage
	if err := decodeBody(w, r, &raw); err != nil {
		h.rp.badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if _, hasPassword := raw["password"]; hasPassword {
		h.rp.error(w, r, apperrors.Validation("this route is not for password updates, please use /update-password"))
		return
	}
	if _, hasConfirm := raw["passwordConfirm"]; hasConfirm {
		h.rp.error(w, r, apperrors.Validation("this route is not for password updates, please use /update-password"))
		return
	}

	var in service.UpdateProfileInput
	if name, ok := raw["name"]; ok {
		if err := json.Unmarshal(name, &in.Name); err != nil {
			h.rp.badRequest(w, "invalid request body: name must be a string")
			return
		}
	}
	if email, ok := raw["email"]; ok {
		if err := json.Unmarshal(email, &in.Email); err != nil {
			h.rp.badRequest(w, "invalid request body: email must be a string")
			return
		}
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, in)
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.success(w, http.StatusOK, userPayload(updated))
}

// DeleteMe handles DELETE /api/v1/users/delete-me. The account is
// deactivated, not erased.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		h.rp.error(w, r, apperrors.Authentication("you are not logged in, please log in to get access"))
		return
	}

	if err := h.service.Deactivate(r.Context(), user.ID); err != nil {
		h.rp.error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.rp.error(w, r, err)
		return
	}

	h.rp.successList(w, http.StatusOK, len(users), map[string]any{"users": users})
}
