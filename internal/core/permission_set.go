package core

import (
	"sort"
	"strings"
)

// Wildcard grants every permission.
const Wildcard = "*"

// Coarse permissions the access endpoint requires before resolving a path.
const (
	PermKeysRead      = "keys:read"
	PermKeysWrite     = "keys:write"
	PermKeysDelete    = "keys:delete"
	PermFoldersRead   = "folders:read"
	PermFoldersWrite  = "folders:write"
	PermFoldersDelete = "folders:delete"
)

// PermissionSet is the effective set of permission tokens for a principal.
// Matching is an explicit pattern layer rather than ad hoc string
// comparison: a held "*" matches everything and a held "keys:*" matches
// every permission in the keys category.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given tokens.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set.Add(p)
	}
	return set
}

// Add inserts a permission token. Empty tokens are ignored.
func (s PermissionSet) Add(perm string) {
	if perm == "" {
		return
	}
	s[perm] = struct{}{}
}

// Has reports whether perm is granted: exactly, via the global wildcard, or
// via a category wildcard such as "keys:*".
func (s PermissionSet) Has(perm string) bool {
	if _, ok := s[perm]; ok {
		return true
	}
	if _, ok := s[Wildcard]; ok {
		return true
	}
	for held := range s {
		if strings.HasSuffix(held, ":*") && strings.HasPrefix(perm, strings.TrimSuffix(held, "*")) {
			return true
		}
	}
	return false
}

// HasAny reports whether at least one of perms is granted.
func (s PermissionSet) HasAny(perms []string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is granted. An empty list is
// vacuously granted.
func (s PermissionSet) HasAll(perms []string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// List returns the held tokens in sorted order.
func (s PermissionSet) List() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
