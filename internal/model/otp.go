package model

import "time"

// OTP contexts scope a code to the flow that requested it. A code minted
// for email verification can never satisfy a different flow.
const (
	OtpContextEmailVerification = "email_verification"
	OtpContextPhoneVerification = "phone_verification"
)

// OtpRecord is a single one-time passcode. At most one active (unused,
// unexpired) record exists per (target, context); generating a new code
// supersedes all prior ones for that pair.
type OtpRecord struct {
	ID        string    `json:"id"`
	Digits    string    `json:"digits"`
	Target    string    `json:"target"`
	Context   string    `json:"context"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
}

// OtpIssued is what callers get back from a generate call. The digits are
// only ever delivered over the notification channel, never in an API body.
type OtpIssued struct {
	Digits    string
	ExpiresAt time.Time
}

// RevocationRecord marks a token that must never be honored again,
// regardless of signature validity. Rows are reclaimed once their natural
// expiry passes.
type RevocationRecord struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
