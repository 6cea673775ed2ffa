package model

import "errors"

var (
	// Token decode errors
	ErrTokenInvalid   = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")

	// Login errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrEmailUnverified    = errors.New("email unverified")

	// Refresh errors
	ErrTokenMissing       = errors.New("token missing")
	ErrRefreshTypeInvalid = errors.New("not a refresh token")
	ErrPrincipalMismatch  = errors.New("principal mismatch")
	ErrTokenRevoked       = errors.New("token revoked")

	// OTP errors
	ErrOtpNotFound = errors.New("otp not found")
	ErrOtpExpired  = errors.New("otp expired")

	// Gate / user errors
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrEmailAlreadyVerified = errors.New("email already verified")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
