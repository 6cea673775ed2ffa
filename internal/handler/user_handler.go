package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trackor-auth/internal/service"
	"trackor-auth/pkg/apierror"
)

type UserHandler struct {
	auth *service.AuthService
}

func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", users)
}

// Disable soft-deletes the account; its sessions die on the next gate
// check because the principal can no longer be resolved.
func (h *UserHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		writeError(w, apierror.New("BAD_REQUEST", "user_id is required", "user_id", http.StatusBadRequest))
		return
	}

	if err := h.auth.DisableUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User disabled.", nil)
}
