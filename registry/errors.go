package registry

import "errors"

var (
	// ErrUploadDirRequired indicates an empty upload directory path.
	ErrUploadDirRequired = errors.New("upload directory is required")
)
