package providers

import "context"

// AuthProvider resolves a bearer credential to an opaque caller identity via
// the external identity service. It is the only authentication the API does.
type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error)
}

type TokenClaims struct {
	UID string `json:"uid"`
}
