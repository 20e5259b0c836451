package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEnum marks input outside one of the fixed enums; handlers map it
// to a 400.
var ErrInvalidEnum = errors.New("invalid enum value")

// Environment classifies a key by deployment stage. Every key carries exactly
// one environment; two keys may share a name within a folder as long as their
// environments differ, which is why the environment doubles as a
// disambiguation key during path resolution.
type Environment string

const (
	EnvDevelopment Environment = "DEVELOPMENT"
	EnvStaging     Environment = "STAGING"
	EnvTesting     Environment = "TESTING"
	EnvProduction  Environment = "PRODUCTION"
	EnvLocal       Environment = "LOCAL"
	EnvOther       Environment = "OTHER"
)

// DefaultEnvironment is applied when a key is created without one.
const DefaultEnvironment = EnvDevelopment

// Environments returns the accepted environment values in a stable order,
// used when enumerating the set in validation errors.
func Environments() []Environment {
	return []Environment{EnvDevelopment, EnvStaging, EnvTesting, EnvProduction, EnvLocal, EnvOther}
}

// ParseEnvironment normalizes s to uppercase and validates it against the
// fixed environment set. Environment input is the one case-insensitive
// affordance in the API; names stay case-sensitive.
func ParseEnvironment(s string) (Environment, error) {
	env := Environment(strings.ToUpper(strings.TrimSpace(s)))
	for _, e := range Environments() {
		if env == e {
			return env, nil
		}
	}
	return "", fmt.Errorf("%w: environment %q is not one of %v", ErrInvalidEnum, s, Environments())
}

// KeyType classifies the kind of secret stored in a key.
type KeyType string

const (
	KeyTypePassword    KeyType = "PASSWORD"
	KeyTypeAPIKey      KeyType = "API_KEY"
	KeyTypeSSHKey      KeyType = "SSH_KEY"
	KeyTypeCertificate KeyType = "CERTIFICATE"
	KeyTypeSecret      KeyType = "SECRET"
	KeyTypeOther       KeyType = "OTHER"
)

// ParseKeyType validates s against the fixed key-type set.
func ParseKeyType(s string) (KeyType, error) {
	t := KeyType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case KeyTypePassword, KeyTypeAPIKey, KeyTypeSSHKey, KeyTypeCertificate, KeyTypeSecret, KeyTypeOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: key type %q is not recognized", ErrInvalidEnum, s)
}

// Key is a single secret record bound to exactly one folder. Value holds the
// encrypted blob at rest; it is decrypted only when a terminal key is read
// through the resolver or the key endpoint.
type Key struct {
	ID          string      `json:"id" firestore:"-"` // Document ID, auto-generated
	Name        string      `json:"name" firestore:"name"`
	Description string      `json:"description,omitempty" firestore:"description,omitempty"`
	Value       string      `json:"value,omitempty" firestore:"value"` // encrypted at rest
	Type        KeyType     `json:"type" firestore:"type"`
	Environment Environment `json:"environment" firestore:"environment"`
	Tags        []string    `json:"tags,omitempty" firestore:"tags,omitempty"`
	IsFavorite  bool        `json:"isFavorite" firestore:"isFavorite"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty" firestore:"expiresAt,omitempty"`
	FolderID    string      `json:"folderId,omitempty" firestore:"folderId"` // "" means relocated to root
	OwnerID     string      `json:"ownerId" firestore:"ownerId"`
	CreatedAt   time.Time   `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time   `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// WithoutValue returns a copy of the key with the encrypted value stripped,
// for use in listings where values must never appear.
func (k *Key) WithoutValue() *Key {
	c := *k
	c.Value = ""
	return &c
}
