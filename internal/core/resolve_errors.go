package core

import (
	"fmt"
	"net/http"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

// ResolveCode identifies a resolution failure class. Codes are part of the
// API surface: SDKs branch on them.
type ResolveCode string

const (
	CodeMissingPath         ResolveCode = "MISSING_PATH"
	CodeInvalidPath         ResolveCode = "INVALID_PATH"
	CodePathTooDeep         ResolveCode = "PATH_TOO_DEEP"
	CodeInvalidEnvironment  ResolveCode = "INVALID_ENVIRONMENT"
	CodeEnvironmentRequired ResolveCode = "ENVIRONMENT_REQUIRED"
	CodeProjectNotFound     ResolveCode = "PROJECT_NOT_FOUND"
	CodeSubfolderNotFound   ResolveCode = "SUBFOLDER_NOT_FOUND"
	CodeKeyNotFound         ResolveCode = "KEY_NOT_FOUND"
	CodeInternalError       ResolveCode = "INTERNAL_ERROR"
)

// ProjectHint names a project available to the principal, attached to
// ProjectNotFound responses.
type ProjectHint struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// KeyHint names a key available at the failure point, attached to
// KeyNotFound responses.
type KeyHint struct {
	Name        string             `json:"name"`
	Environment models.Environment `json:"environment"`
	Type        models.KeyType     `json:"type"`
}

// ResolveError is the structured failure outcome of a path resolution. It is
// a value, not a panic or wrapped store error: the endpoint pattern-matches
// on Code/Status to pick the HTTP response, and the contextual fields give
// the caller enough to self-correct without a separate listing call.
type ResolveError struct {
	Code    ResolveCode `json:"error"`
	Status  int         `json:"status"`
	Message string      `json:"message"`

	Path        string `json:"path,omitempty"`
	Project     string `json:"project,omitempty"`
	FoundPath   string `json:"foundPath,omitempty"`
	MissingName string `json:"missingName,omitempty"`
	Environment string `json:"environment,omitempty"`

	Suggestions         []string      `json:"suggestions,omitempty"`
	Examples            []string      `json:"examples,omitempty"`
	AvailableProjects   []ProjectHint `json:"availableProjects,omitempty"`
	AvailableSubfolders []string      `json:"availableSubfolders,omitempty"`
	AvailableKeys       []KeyHint     `json:"availableKeys,omitempty"`
	AcceptedValues      []string      `json:"acceptedValues,omitempty"`
	CurrentDepth        int           `json:"currentDepth,omitempty"`
	MaxDepth            int           `json:"maxDepth,omitempty"`
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// pathExamples are attached to malformed-path errors as remediation text.
var pathExamples = []string{
	"?path=Webmeter/Database/DB_URL&environment=production",
	"?path=MyApp/Development/API_Keys&environment=development",
	"?path=ProjectName&environment=staging",
}

// ErrMissingPath builds the error for an absent path parameter.
func ErrMissingPath() *ResolveError {
	return &ResolveError{
		Code:     CodeMissingPath,
		Status:   http.StatusBadRequest,
		Message:  "Path parameter is required. Use ?path=ProjectName/Environment/Subfolder",
		Examples: pathExamples,
	}
}

func errInvalidPath(path string) *ResolveError {
	return &ResolveError{
		Code:     CodeInvalidPath,
		Status:   http.StatusBadRequest,
		Message:  "Path cannot be empty or contain only whitespace",
		Path:     path,
		Examples: pathExamples,
	}
}

func errPathTooDeep(path string, depth int) *ResolveError {
	return &ResolveError{
		Code:         CodePathTooDeep,
		Status:       http.StatusBadRequest,
		Message:      fmt.Sprintf("Path cannot exceed %d levels deep", maxPathDepth),
		Path:         path,
		CurrentDepth: depth,
		MaxDepth:     maxPathDepth,
	}
}

func errInvalidEnvironment(raw string) *ResolveError {
	accepted := make([]string, 0, len(models.Environments()))
	for _, e := range models.Environments() {
		accepted = append(accepted, string(e))
	}
	return &ResolveError{
		Code:           CodeInvalidEnvironment,
		Status:         http.StatusBadRequest,
		Message:        fmt.Sprintf("Environment %q is not valid", raw),
		Environment:    raw,
		AcceptedValues: accepted,
	}
}

func errEnvironmentRequired(path string) *ResolveError {
	return &ResolveError{
		Code:   CodeEnvironmentRequired,
		Status: http.StatusBadRequest,
		Message: "Environment is required for key-level access because identically named keys " +
			"may exist in several environments (e.g. DB_URL in both Development and Production)",
		Path:     path,
		Examples: pathExamples,
	}
}

func errProjectNotFound(path, name string, available []ProjectHint) *ResolveError {
	return &ResolveError{
		Code:              CodeProjectNotFound,
		Status:            http.StatusNotFound,
		Message:           fmt.Sprintf("Project %q not found", name),
		Path:              path,
		MissingName:       name,
		AvailableProjects: available,
		Suggestions: []string{
			"Check the project name spelling; matching is exact and case-sensitive",
			"Use one of the listed availableProjects",
		},
	}
}

func errSubfolderNotFound(path, project, foundPath, name string, siblings []string) *ResolveError {
	return &ResolveError{
		Code:                CodeSubfolderNotFound,
		Status:              http.StatusNotFound,
		Message:             fmt.Sprintf("Folder %q not found under %q", name, foundPath),
		Path:                path,
		Project:             project,
		FoundPath:           foundPath,
		MissingName:         name,
		AvailableSubfolders: siblings,
		Suggestions: []string{
			"Check the folder name spelling; matching is exact and case-sensitive",
			"Use one of the listed availableSubfolders",
		},
	}
}

func errKeyNotFound(path, project, foundPath, name, environment string, keys []KeyHint, subfolders []string) *ResolveError {
	return &ResolveError{
		Code:                CodeKeyNotFound,
		Status:              http.StatusNotFound,
		Message:             fmt.Sprintf("Key %q not found in %q for environment %s", name, foundPath, environment),
		Path:                path,
		Project:             project,
		FoundPath:           foundPath,
		MissingName:         name,
		Environment:         environment,
		AvailableKeys:       keys,
		AvailableSubfolders: subfolders,
		Suggestions: []string{
			"The key may exist under a different environment; compare availableKeys",
			"If you meant a folder, add ?type=folder",
		},
	}
}

// errInternal sanitizes a store failure: the response carries only the
// coarse classification, never the raw error.
func errInternal(path string, storeErr error) *ResolveError {
	return &ResolveError{
		Code:    CodeInternalError,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("An unexpected error occurred while processing your request (%s)", db.Classify(storeErr)),
		Path:    path,
	}
}
