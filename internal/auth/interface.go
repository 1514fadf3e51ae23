package auth

import "cloudfiles/internal/domain/models"

// JWTVerifier validates bearer tokens for the middleware.
type JWTVerifier interface {
	// VerifyToken returns the claims of a valid, authenticated-user token.
	// Any failure is reported as domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close stops background key refresh.
	Close() error
}
