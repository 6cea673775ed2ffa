package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trackor-auth/internal/model"
)

// OtpRepository persists one-time passcodes. The invariant it guards:
// at most one active (unused, unexpired) code per (target, context).
type OtpRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

func NewOtpRepository(pool *pgxpool.Pool, ttl time.Duration) *OtpRepository {
	return &OtpRepository{pool: pool, ttl: ttl, now: time.Now}
}

func (r *OtpRepository) WithClock(now func() time.Time) *OtpRepository {
	r.now = now
	return r
}

// Generate supersedes any prior code for (target, context) and mints a
// fresh 6-digit one. Delete and insert run in one transaction so two
// concurrent calls cannot both leave a live code; the later write wins.
func (r *OtpRepository) Generate(ctx context.Context, target string, otpContext string) (model.OtpIssued, error) {
	digits, err := generateDigits()
	if err != nil {
		return model.OtpIssued{}, fmt.Errorf("generate otp digits: %w", err)
	}

	now := r.now().UTC()
	expiresAt := now.Add(r.ttl)

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM otps WHERE target = $1 AND context = $2`,
			target, otpContext); err != nil {
			return fmt.Errorf("supersede prior otps: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO otps (id, digits, target, context, expires_at, is_used, created_at)
			 VALUES ($1, $2, $3, $4, $5, false, $6)`,
			uuid.NewString(), digits, target, otpContext, expiresAt, now); err != nil {
			return fmt.Errorf("insert otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.OtpIssued{}, err
	}

	return model.OtpIssued{Digits: digits, ExpiresAt: expiresAt}, nil
}

// Verify consumes the newest unused matching code. Expired codes error
// distinctly and stay unused; consumed codes never verify again.
func (r *OtpRepository) Verify(ctx context.Context, digits string, target string, otpContext string) error {
	var (
		id        string
		expiresAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, expires_at FROM otps
		 WHERE digits = $1 AND target = $2 AND context = $3 AND is_used = false
		 ORDER BY created_at DESC
		 LIMIT 1`,
		digits, target, otpContext).Scan(&id, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrOtpNotFound
	}
	if err != nil {
		return fmt.Errorf("find otp: %w", err)
	}

	if r.now().UTC().After(expiresAt) {
		return model.ErrOtpExpired
	}

	// The is_used guard makes consumption atomic: if a concurrent verify
	// or a superseding generate got here first, zero rows change.
	tag, err := r.pool.Exec(ctx,
		`UPDATE otps SET is_used = true WHERE id = $1 AND is_used = false`, id)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOtpNotFound
	}
	return nil
}

func generateDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
