package api

import (
	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AccessResponse is the success envelope of the access endpoint. Exactly one
// of the three views is populated, tagged by Type.
type AccessResponse struct {
	Success     bool   `json:"success"`
	Type        string `json:"type"` // "project" | "folder" | "key"
	Path        string `json:"path"`
	Environment string `json:"environment"`
	Message     string `json:"message,omitempty"`

	Project    *models.Folder `json:"project,omitempty"`
	Folder     *models.Folder `json:"folder,omitempty"`
	FolderPath string         `json:"folderPath,omitempty"`

	// Key view only; Value carries the decrypted plaintext.
	Key *models.Key `json:"key,omitempty"`

	// Project and folder views only.
	Keys            []*models.Key    `json:"keys,omitempty"`
	Subfolders      []*models.Folder `json:"subfolders,omitempty"`
	TotalKeys       int              `json:"totalKeys,omitempty"`
	TotalSubfolders int              `json:"totalSubfolders,omitempty"`
}

// AccessErrorResponse wraps a structured resolution error in the endpoint's
// envelope.
type AccessErrorResponse struct {
	Success bool `json:"success"`
	*core.ResolveError
}

// KeyDetailResponse is used when a single key is read directly, so the
// decrypted value can ride alongside the stored metadata.
type KeyDetailResponse struct {
	Key   *models.Key `json:"key"`
	Value string      `json:"value"`
}

func newAccessResponse(res *core.Resolution) AccessResponse {
	return AccessResponse{
		Success:         true,
		Type:            string(res.Kind),
		Path:            res.Path,
		Environment:     res.Environment,
		Message:         res.Message,
		Project:         res.Project,
		Folder:          res.Folder,
		FolderPath:      res.FolderPath,
		Key:             res.Key,
		Keys:            res.Keys,
		Subfolders:      res.Subfolders,
		TotalKeys:       len(res.Keys),
		TotalSubfolders: len(res.Subfolders),
	}
}
