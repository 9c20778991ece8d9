package testsupport

import (
	"testing"

	"github.com/soundtech/meeting-backend/internal/token"
)

// NewIssuer returns a JWT token issuer with fixed test credentials.
func NewIssuer(t testing.TB) *token.JWTIssuer {
	t.Helper()

	issuer, err := token.NewJWTIssuer("test-app", "test-secret-0123456789abcdef0123")
	if err != nil {
		t.Fatalf("token.NewJWTIssuer: %v", err)
	}
	return issuer
}
