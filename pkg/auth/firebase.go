package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseAuth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	appErrors "signaling-relay/pkg/errors"
)

// tokenVerifier is the subset of the Firebase auth client used here
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseAuth.Token, error)
}

// FirebaseVerifier verifies Firebase-issued ID tokens
type FirebaseVerifier struct {
	client tokenVerifier
}

// NewFirebaseVerifier initializes the Firebase Admin SDK. Credentials are read
// into memory from credentialsPath when set; otherwise application default
// credentials are used together with projectID.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsPath string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		credentials, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credentials))
	}

	var fbConfig *firebase.Config
	if projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

func newFirebaseVerifierWithClient(client tokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify implements Verifier
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, appErrors.UnauthorizedError("Authentication token required")
	}

	token, err := v.client.VerifyIDToken(ctx, credential)
	if err != nil {
		if firebaseAuth.IsIDTokenExpired(err) {
			return nil, appErrors.ExpiredTokenError(err)
		}
		return nil, appErrors.InvalidTokenError(err)
	}

	email, _ := token.Claims["email"].(string)
	return &Identity{UserID: token.UID, Email: strings.TrimSpace(email)}, nil
}
