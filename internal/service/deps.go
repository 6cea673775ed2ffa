package service

import (
	"context"
	"time"

	"trackor-auth/internal/mail"
	"trackor-auth/internal/model"
)

// UserDirectory is the backing user store collaborator.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePasswordAndRevoke(ctx context.Context, userID string, passwordHash string, rec model.RevocationRecord) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.PublicUser, error)
}

// OtpStore generates and consumes one-time passcodes.
type OtpStore interface {
	Generate(ctx context.Context, target string, otpContext string) (model.OtpIssued, error)
	Verify(ctx context.Context, digits string, target string, otpContext string) error
}

// RevocationStore records tokens that must never be honored again.
type RevocationStore interface {
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
	Revoke(ctx context.Context, tokenString string, issuedAt time.Time, expiresAt time.Time) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// Notifier hands a message off for asynchronous delivery; it never
// blocks the caller on transport latency.
type Notifier interface {
	Enqueue(msg mail.Message)
}
