package core

import (
	"strings"

	"keyvault-backend-go/internal/models"
)

// maxPathDepth bounds the number of path segments. It doubles as the
// worst-case latency bound for the serial folder walk.
const maxPathDepth = 10

// ResolveType is the caller's hint for disambiguating the terminal path
// segment when its kind is structurally ambiguous.
type ResolveType string

const (
	ResolveAuto    ResolveType = "auto"
	ResolveKey     ResolveType = "key"
	ResolveFolder  ResolveType = "folder"
	ResolveProject ResolveType = "project"
)

// ParseResolveType normalizes a type query parameter; anything unrecognized
// falls back to auto.
func ParseResolveType(s string) ResolveType {
	switch ResolveType(strings.ToLower(strings.TrimSpace(s))) {
	case ResolveKey:
		return ResolveKey
	case ResolveFolder:
		return ResolveFolder
	case ResolveProject:
		return ResolveProject
	default:
		return ResolveAuto
	}
}

// ResolveRequest is a single path-resolution invocation.
type ResolveRequest struct {
	Principal *models.Principal
	// Path is the slash-delimited navigation string, e.g.
	// "Webmeter/Database/DB_URL".
	Path string
	// RawEnvironment is the unvalidated environment query value; empty means
	// no filter was supplied.
	RawEnvironment string
	Type           ResolveType
}

// ResolutionKind tags the outcome variant of a successful resolution.
type ResolutionKind string

const (
	KindProject ResolutionKind = "project"
	KindFolder  ResolutionKind = "folder"
	KindKey     ResolutionKind = "key"
)

// Resolution is the successful outcome of a path resolution: exactly one of
// the three views. Listings never carry key values; only the terminal Key of
// a key view holds a (decrypted) value.
type Resolution struct {
	Kind ResolutionKind
	Path string
	// Environment is the effective filter; "all" when none was supplied.
	Environment string
	Message     string

	Project *models.Folder

	// Folder view and key view: the resolved folder (nil for a key directly
	// under the project) and the slash path of folders matched so far.
	Folder     *models.Folder
	FolderPath string

	// Key view: terminal key with Value holding the decrypted plaintext, or
	// the "[Encrypted]" placeholder when decryption failed.
	Key *models.Key

	// Project and folder views: direct contents.
	Keys       []*models.Key
	Subfolders []*models.Folder
}
