package core

import "errors"

// Sentinel errors returned by the CRUD services. Handlers map these to HTTP
// statuses with errors.Is.
var (
	ErrFolderNotFound       = errors.New("folder not found")
	ErrKeyNotFound          = errors.New("key not found")
	ErrParentNotFound       = errors.New("parent folder not found")
	ErrFolderCycle          = errors.New("folder hierarchy contains a cycle")
	ErrFolderTooDeep        = errors.New("folder hierarchy exceeds maximum depth")
	ErrInvalidEncryptionKey = errors.New("encryption key must be 32 bytes after base64 decoding")
)
