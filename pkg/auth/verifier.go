// Package auth turns a bearer credential into a stable user identity.
//
// Two variants are selected at startup by AUTH_MODE: a local shared-secret
// JWT verifier and a Firebase ID-token verifier. Callers only see Verifier.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signaling-relay/pkg/config"
	"signaling-relay/pkg/constants"
	appErrors "signaling-relay/pkg/errors"
	"signaling-relay/pkg/jwt"
)

// Identity is the result of a successful verification
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates a credential and returns the identity it asserts.
// Every failure is an AppError with an authentication code.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// NewVerifier builds the verifier selected by cfg.Mode
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Mode {
	case constants.AuthModeJWT, "":
		return NewJWTVerifier(jwt.NewJWTManager(cfg.JWTSecret, 24*time.Hour)), nil
	case constants.AuthModeFirebase:
		return NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsPath)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// JWTVerifier verifies HS256 tokens signed with the local secret
type JWTVerifier struct {
	manager *jwt.JWTManager
}

// NewJWTVerifier creates a JWTVerifier
func NewJWTVerifier(manager *jwt.JWTManager) *JWTVerifier {
	return &JWTVerifier{manager: manager}
}

// Verify implements Verifier
func (v *JWTVerifier) Verify(_ context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, appErrors.UnauthorizedError("Authentication token required")
	}

	claims, err := v.manager.ValidateToken(credential)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ExpiredTokenError(err)
		}
		return nil, appErrors.InvalidTokenError(err)
	}

	return &Identity{UserID: claims.Identity(), Email: claims.Email}, nil
}

// CredentialFromRequest extracts a bearer credential from the Authorization
// header, or from the token query parameter for browser WebSocket clients.
func CredentialFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
