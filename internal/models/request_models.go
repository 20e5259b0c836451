package models

import "time"

// CreateFolderRequest is the request body for creating a folder. An empty
// ParentID creates a root-level project.
type CreateFolderRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
	ParentID    string `json:"parentId"`
}

// UpdateFolderRequest is the request body for updating a folder. Pointers
// distinguish omitted fields from zero values.
type UpdateFolderRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	ParentID    *string `json:"parentId"`
}

// CreateKeyRequest is the request body for creating a key. Value is the
// plaintext secret; it is encrypted before storage. An empty Environment
// defaults to DEVELOPMENT.
type CreateKeyRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Value       string     `json:"value" binding:"required"`
	Type        string     `json:"type"`
	Environment string     `json:"environment"`
	Tags        []string   `json:"tags"`
	IsFavorite  bool       `json:"isFavorite"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	FolderID    string     `json:"folderId" binding:"required"`
}

// UpdateKeyRequest is the request body for updating a key.
type UpdateKeyRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Value       *string    `json:"value"`
	Type        *string    `json:"type"`
	Environment *string    `json:"environment"`
	Tags        *[]string  `json:"tags"`
	IsFavorite  *bool      `json:"isFavorite"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}
