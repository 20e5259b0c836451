package models

import "time"

// User represents an account in the system.
type User struct {
	ID          string    `json:"id" firestore:"-"` // Auth UID, doubles as the document ID
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Role        string    `json:"role" firestore:"role"` // default account role, e.g. "ADMIN", "USER"
	Plan        string    `json:"plan" firestore:"plan"` // e.g. "FREE", "PRO", "ENTERPRISE"
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// PrincipalSource identifies how a principal was authenticated.
type PrincipalSource string

const (
	SourceFirebase PrincipalSource = "firebase"
	SourceAPIToken PrincipalSource = "api_token"
	SourceJWT      PrincipalSource = "jwt"
)

// Principal is the authenticated caller of a request, resolved from a
// Firebase ID token, a legacy API token, or a signed JWT. Permissions may be
// embedded directly (token-based principals) and may contain the wildcard "*";
// for session principals the evaluator loads them from the role and ACL
// stores.
type Principal struct {
	ID          string          `json:"id"`
	Role        string          `json:"role,omitempty"`
	Plan        string          `json:"plan,omitempty"`
	Permissions []string        `json:"permissions,omitempty"`
	TeamID      string          `json:"teamId,omitempty"`
	Source      PrincipalSource `json:"source"`
}

// APIToken is a long-lived bearer credential carrying its own permission
// grants. Token values are prefixed "tok_".
type APIToken struct {
	ID          string     `json:"id" firestore:"-"`
	Token       string     `json:"token" firestore:"token"`
	UserID      string     `json:"userId" firestore:"userId"`
	Name        string     `json:"name" firestore:"name"`
	Permissions []string   `json:"permissions" firestore:"permissions"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" firestore:"expiresAt,omitempty"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty" firestore:"lastUsedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// Expired reports whether the token has an expiry in the past.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
