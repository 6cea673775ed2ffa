package service

import (
	"context"
	"strings"
	"time"

	"trackor-auth/internal/model"
	"trackor-auth/internal/token"
)

// TokenService rotates refresh tokens. Every successful rotation revokes
// the presented refresh token, so a leaked predecessor dies the moment
// its successor is minted.
type TokenService struct {
	codec       *token.Codec
	revocations RevocationStore
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewTokenService(codec *token.Codec, revocations RevocationStore, accessTTL time.Duration, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		codec:       codec,
		revocations: revocations,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Rotate validates the refresh token against its claimed owner and mints
// a replacement pair. claimedPrincipalID comes from the request's own
// authenticated context, so a stolen refresh token cannot be redeemed
// under someone else's session. A new access token is minted only when
// wantAccess is set.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, claimedPrincipalID string, wantAccess bool) (model.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.TokenPair{}, model.ErrTokenMissing
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	if claims.TokenType != token.TypeRefresh {
		return model.TokenPair{}, model.ErrRefreshTypeInvalid
	}

	if claims.Subject != claimedPrincipalID {
		return model.TokenPair{}, model.ErrPrincipalMismatch
	}

	revoked, err := s.revocations.IsRevoked(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if revoked {
		return model.TokenPair{}, model.ErrTokenRevoked
	}

	principal := claims.Principal()

	newRefresh, _, err := s.codec.Sign(principal, token.TypeRefresh, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.revocations.Revoke(ctx, refreshToken, claims.IssuedAt.Time, claims.ExpiresAt.Time); err != nil {
		return model.TokenPair{}, err
	}

	pair := model.TokenPair{
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
	}

	if wantAccess {
		access, accessExpires, err := s.codec.Sign(principal, token.TypeAccess, s.accessTTL)
		if err != nil {
			return model.TokenPair{}, err
		}
		pair.AccessToken = access
		pair.AccessExpires = accessExpires
	}

	return pair, nil
}
