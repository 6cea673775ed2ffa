package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"trackor-auth/internal/mail"
	"trackor-auth/internal/model"
	"trackor-auth/internal/token"
)

const (
	RoleAdmin  = "admin"
	RoleParent = "parent"

	bcryptCost = 10
)

// TokenTTLs bundles the lifetime policy for everything the service
// signs. Remember-me extends the access window; link TTLs cover the
// short-lived email-action tokens.
type TokenTTLs struct {
	Access     time.Duration
	Refresh    time.Duration
	RememberMe time.Duration
	VerifyLink time.Duration
	ResetLink  time.Duration
}

// AuthService owns credential-based session issuance and the account
// flows around it: signup, OTP and link verification, password reset,
// logout.
type AuthService struct {
	users       UserDirectory
	otps        OtpStore
	revocations RevocationStore
	codec       *token.Codec
	notifier    Notifier
	ttls        TokenTTLs
	now         func() time.Time
}

func NewAuthService(users UserDirectory, otps OtpStore, revocations RevocationStore, codec *token.Codec, notifier Notifier, ttls TokenTTLs) *AuthService {
	return &AuthService{
		users:       users,
		otps:        otps,
		revocations: revocations,
		codec:       codec,
		notifier:    notifier,
		ttls:        ttls,
		now:         time.Now,
	}
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Signup creates the account and kicks off email proof-of-possession.
// Mail delivery is asynchronous; a failed send never rolls the account
// back, verification is retried through the resend endpoints.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Password) == "" {
		return model.ErrInvalidInput
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         RoleParent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}

	return s.sendOtp(ctx, email)
}

// VerifyOtp consumes the code and, for email targets, marks the account
// verified.
func (s *AuthService) VerifyOtp(ctx context.Context, req model.VerifyOtpRequest) error {
	target, otpContext, err := otpTarget(req.Email, req.Phone)
	if err != nil {
		return err
	}

	if err := s.otps.Verify(ctx, strings.TrimSpace(req.Otp), target, otpContext); err != nil {
		return err
	}

	if req.Email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, target)
	if err != nil {
		return err
	}
	if user.IsEmailVerified() {
		return nil
	}
	return s.users.MarkEmailVerified(ctx, user.ID)
}

// ResendOtp regenerates the code for a known account, superseding any
// prior one.
func (s *AuthService) ResendOtp(ctx context.Context, req model.ResendOtpRequest) error {
	target, _, err := otpTarget(req.Email, req.Phone)
	if err != nil {
		return err
	}

	if _, err := s.users.FindByEmail(ctx, target); err != nil {
		return err
	}

	return s.sendOtp(ctx, target)
}

func (s *AuthService) sendOtp(ctx context.Context, email string) error {
	issued, err := s.otps.Generate(ctx, email, model.OtpContextEmailVerification)
	if err != nil {
		return err
	}

	s.notifier.Enqueue(mail.Message{
		To:      email,
		Subject: "Account Email Verification",
		Body: fmt.Sprintf(
			"Greetings from Trackor. Here is your one time password - %s; ignore this email if you didn't request it. The code is only valid for the next 10 minutes.",
			issued.Digits),
		Closure: "Thanks and regards",
	})
	return nil
}

func otpTarget(email string, phone string) (target string, otpContext string, err error) {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	switch {
	case email != "":
		return email, model.OtpContextEmailVerification, nil
	case phone != "":
		return phone, model.OtpContextPhoneVerification, nil
	default:
		return "", "", model.ErrInvalidInput
	}
}

// VerifyEmailLink redeems a signed verification link token.
func (s *AuthService) VerifyEmailLink(ctx context.Context, tokenString string) error {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return err
	}
	if claims.TokenType != token.TypeVerifyEmail {
		return model.ErrTokenInvalid
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified() {
		return model.ErrEmailAlreadyVerified
	}

	return s.users.MarkEmailVerified(ctx, user.ID)
}

// ResendVerificationLink mails a fresh signed verification link to a
// known, still-unverified account.
func (s *AuthService) ResendVerificationLink(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsEmailVerified() {
		return model.ErrEmailAlreadyVerified
	}

	signed, _, err := s.codec.Sign(user.Principal(), token.TypeVerifyEmail, s.ttls.VerifyLink)
	if err != nil {
		return err
	}

	s.notifier.Enqueue(mail.Message{
		To:       user.Email,
		Subject:  "Account Email Verification",
		Body:     "Greetings from Trackor. This email was sent to you by request; ignore it if you didn't ask for a new verification link.",
		Closure:  "Thanks and regards",
		CTALabel: "Click to verify",
		Href:     "verify-email?token=" + url.QueryEscape(signed) + "&email=" + url.QueryEscape(user.Email),
	})
	return nil
}

// Login verifies credentials and issues an access + refresh token pair.
// Unknown email and wrong password both collapse into
// ErrInvalidCredentials so callers cannot probe account existence.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, model.Principal, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.Principal{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, model.Principal{}, err
	}

	if user.IsDeleted() {
		return model.TokenPair{}, model.Principal{}, model.ErrAccountDisabled
	}

	if user.Role != RoleAdmin && !user.IsEmailVerified() {
		return model.TokenPair{}, model.Principal{}, model.ErrEmailUnverified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.TokenPair{}, model.Principal{}, model.ErrInvalidCredentials
	}

	principal := user.Principal()

	accessTTL := s.ttls.Access
	if req.RememberMe {
		accessTTL = s.ttls.RememberMe
	}

	accessToken, accessExpires, err := s.codec.Sign(principal, token.TypeAccess, accessTTL)
	if err != nil {
		return model.TokenPair{}, model.Principal{}, err
	}

	refreshToken, _, err := s.codec.Sign(principal, token.TypeRefresh, s.ttls.Refresh)
	if err != nil {
		return model.TokenPair{}, model.Principal{}, err
	}

	return model.TokenPair{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		TokenType:     "Bearer",
		AccessExpires: accessExpires,
	}, principal, nil
}

// ForgotPassword mails a 48h reset link to a known account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	signed, _, err := s.codec.Sign(user.Principal(), token.TypeReset, s.ttls.ResetLink)
	if err != nil {
		return err
	}

	s.notifier.Enqueue(mail.Message{
		To:       user.Email,
		Subject:  "Reset Password",
		Body:     fmt.Sprintf("Hi %s, please use the link below to reset your password. If you did not make this request, ignore this email. The link is valid for 48 hours.", user.Name),
		Closure:  "Thanks and regards",
		CTALabel: "Reset Password",
		Href:     "reset-password?token=" + url.QueryEscape(signed),
	})
	return nil
}

// ResetPassword redeems a reset link exactly once. The digest update and
// the token revocation commit in a single transaction; the pre-check
// rejects links that were already consumed.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString string, newPassword string) error {
	if strings.TrimSpace(tokenString) == "" {
		return model.ErrTokenMissing
	}
	if strings.TrimSpace(newPassword) == "" {
		return model.ErrInvalidInput
	}

	revoked, err := s.revocations.IsRevoked(ctx, tokenString)
	if err != nil {
		return err
	}
	if revoked {
		return model.ErrTokenRevoked
	}

	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return err
	}
	if claims.TokenType != token.TypeReset {
		return model.ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	rec := model.RevocationRecord{
		Token:     tokenString,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.users.UpdatePasswordAndRevoke(ctx, user.ID, string(hash), rec); err != nil {
		return err
	}

	// Mirror into the active revocation backend; a no-op when it is the
	// same Postgres table the transaction already wrote.
	if err := s.revocations.Revoke(ctx, rec.Token, rec.IssuedAt, rec.ExpiresAt); err != nil {
		slog.Error("mirror reset-token revocation failed", "error", err)
	}
	return nil
}

// Logout blacklists every presented token until its natural expiry.
// Undecodable tokens are skipped: an invalid signature can never be
// honored anyway.
func (s *AuthService) Logout(ctx context.Context, tokens []string) {
	for _, tokenString := range tokens {
		if strings.TrimSpace(tokenString) == "" {
			continue
		}

		claims, err := s.codec.Verify(tokenString)
		if err != nil {
			slog.Warn("skipping blacklist of undecodable token on logout", "error", err)
			continue
		}

		if err := s.revocations.Revoke(ctx, tokenString, claims.IssuedAt.Time, claims.ExpiresAt.Time); err != nil {
			slog.Error("blacklist token on logout failed", "error", err)
		}
	}
}

// ValidateAccess is the per-request gate behind the auth middleware: it
// verifies the token, rejects revoked sessions, and re-derives the
// principal from the live user record.
func (s *AuthService) ValidateAccess(ctx context.Context, tokenString string) (model.Principal, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return model.Principal{}, err
	}
	if claims.TokenType != token.TypeAccess {
		return model.Principal{}, model.ErrTokenInvalid
	}

	revoked, err := s.revocations.IsRevoked(ctx, tokenString)
	if err != nil {
		return model.Principal{}, err
	}
	if revoked {
		return model.Principal{}, model.ErrTokenRevoked
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return model.Principal{}, err
	}
	if user.IsDeleted() {
		return model.Principal{}, model.ErrUnauthenticated
	}

	return user.Principal(), nil
}

// GetUserByID returns the public view of an account for /me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	return s.users.List(ctx)
}

func (s *AuthService) DisableUser(ctx context.Context, id string) error {
	return s.users.SoftDelete(ctx, id)
}
