package auth

import (
	"context"
	"slices"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the caller behind a verified Firebase ID token. Campers and
// staff share the shape; staff carry RoleAdmin.
type Identity struct {
	UID    string
	Email  string
	Name   string
	Roles  []string
	Locale string

	token *firebaseauth.Token
}

// Token returns the decoded ID token, nil for identities built in tests.
func (i *Identity) Token() *firebaseauth.Token {
	if i == nil {
		return nil
	}
	return i.token
}

func (i *Identity) HasRole(role string) bool {
	role = normaliseRole(role)
	if i == nil || role == "" {
		return false
	}
	return slices.ContainsFunc(i.Roles, func(r string) bool { return strings.EqualFold(r, role) })
}

func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// CanAccess reports whether the caller may read a resource owned by ownerID.
// Owners see their own orders and bookings; staff see everything.
func (i *Identity) CanAccess(ownerID string) bool {
	if i == nil {
		return false
	}
	if ownerID != "" && ownerID == i.UID {
		return true
	}
	return i.IsAdmin()
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by RequireFirebaseAuth.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, _ := ctx.Value(identityKey{}).(*Identity)
	return identity, identity != nil
}
