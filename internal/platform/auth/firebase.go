package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/campverse/api/internal/platform/config"
)

const envAuthEmulatorHost = "FIREBASE_AUTH_EMULATOR_HOST"

// idTokenClient is the slice of the Admin SDK auth client the verifier uses.
type idTokenClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier checks shopper and staff ID tokens with the Admin SDK.
// Tokens carrying the admin role are additionally checked for revocation so
// that a disabled staff account loses access before its token expires.
type FirebaseVerifier struct {
	client        idTokenClient
	timeout       time.Duration
	revokeCheck   func(token *firebaseauth.Token) bool
	alwaysRevoked bool
}

// FirebaseOption customises FirebaseVerifier instances.
type FirebaseOption func(*FirebaseVerifier)

// WithFirebaseTimeout bounds each Admin SDK call.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(v *FirebaseVerifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithRevocationCheckForAll checks revocation on every token, not only admin tokens.
func WithRevocationCheckForAll() FirebaseOption {
	return func(v *FirebaseVerifier) { v.alwaysRevoked = true }
}

func withIDTokenClient(client idTokenClient) FirebaseOption {
	return func(v *FirebaseVerifier) { v.client = client }
}

// NewFirebaseVerifier initialises the Firebase app for cfg.ProjectID. When
// FIREBASE_AUTH_EMULATOR_HOST is set the SDK talks to the emulator and no
// credentials are loaded.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig, opts ...FirebaseOption) (*FirebaseVerifier, error) {
	v := &FirebaseVerifier{
		timeout:     defaultVerifyTimeout,
		revokeCheck: tokenHasAdminRole,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.client != nil {
		return v, nil
	}

	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	switch {
	case strings.TrimSpace(os.Getenv(envAuthEmulatorHost)) != "":
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	v.client = client
	return v, nil
}

// VerifyIDToken validates idToken. Revoked tokens are reported as ErrTokenRevoked.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if v == nil || v.client == nil {
		return nil, errors.New("firebase verifier not initialised")
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !v.alwaysRevoked && !v.revokeCheck(token) {
		return token, nil
	}

	token, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	switch {
	case err == nil:
		return token, nil
	case firebaseauth.IsIDTokenRevoked(err), firebaseauth.IsUserDisabled(err):
		return nil, fmt.Errorf("%w: %v", ErrTokenRevoked, err)
	default:
		return nil, err
	}
}

func tokenHasAdminRole(token *firebaseauth.Token) bool {
	if token == nil {
		return false
	}
	for _, role := range rolesFromClaims(token.Claims, defaultRoleClaim) {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}
