package model

import "time"

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	PasswordHash  string     `json:"-"`
	Role          string     `json:"role"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	DeletedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Principal is the stable identity minted into a token. It is never
// mutated; freshness comes from re-deriving it off the user record.
type Principal struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// IsDeleted reports whether the account was soft-deleted by an
// administrator. Deleted accounts never authenticate.
func (u User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u User) IsEmailVerified() bool {
	return u.EmailVerified != nil
}

type PublicUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	EmailVerified *time.Time `json:"email_verified,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// TokenPair is the result of a successful login or refresh. AccessToken
// is empty on refreshes that only rotated the refresh token.
type TokenPair struct {
	AccessToken   string    `json:"access_token,omitempty"`
	RefreshToken  string    `json:"refresh_token"`
	TokenType     string    `json:"token_type"`
	AccessExpires time.Time `json:"access_expires,omitzero"`
}
