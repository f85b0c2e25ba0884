package auth

import "supportkb/internal/domain/models"

// TokenVerifier validates bearer tokens and returns their claims
type TokenVerifier interface {
	// VerifyToken returns domain.ErrUnauthorized for invalid, expired or badly signed tokens
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases resources held by the verifier
	Close() error
}
