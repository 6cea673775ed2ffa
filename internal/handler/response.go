package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trackor-auth/internal/model"
	"trackor-auth/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// errorMappings translate the service taxonomy into stable wire codes.
// Order matters only for readability; sentinels are disjoint.
var errorMappings = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{model.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token is expired"},
	{model.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID", "Token is invalid"},
	{model.ErrTokenMalformed, http.StatusBadRequest, "TOKEN_MALFORMED", "Token is malformed"},
	{model.ErrTokenMissing, http.StatusUnauthorized, "TOKEN_MISSING", "Token not found"},
	{model.ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED", "The token has already been used or revoked"},
	{model.ErrRefreshTypeInvalid, http.StatusUnauthorized, "REFRESH_TYPE_INVALID", "Refresh token is not valid"},
	{model.ErrPrincipalMismatch, http.StatusUnauthorized, "PRINCIPAL_MISMATCH", "Invalid user requesting refresh action"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{model.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED", "Your account has been blocked by the administrator"},
	{model.ErrEmailUnverified, http.StatusForbidden, "EMAIL_UNVERIFIED", "Please verify your email by following the link sent to your email address"},
	{model.ErrOtpNotFound, http.StatusBadRequest, "OTP_INVALID", "Invalid OTP"},
	{model.ErrOtpExpired, http.StatusBadRequest, "OTP_EXPIRED", "OTP expired"},
	{model.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied"},
	{model.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
	{model.ErrUserAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "An account already exists with the same email. Please login"},
	{model.ErrEmailAlreadyVerified, http.StatusBadRequest, "ALREADY_VERIFIED", "Email is already verified"},
	{model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid input"},
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else {
		matched := false
		for _, m := range errorMappings {
			if errors.Is(err, m.err) {
				status = m.status
				body.Code = m.code
				body.Message = m.message
				matched = true
				break
			}
		}
		if !matched {
			// Storage and transport faults stay internal; log them so
			// they are visible in container logs.
			slog.Error("unhandled error in writeError", "error", err.Error())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
