package uploads

import (
	"context"
	"errors"
)

// Store persists a finished media buffer and returns a fetchable URL.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType, path string) (string, error)
}

var (
	// ErrUploadFailed wraps any storage failure. The caller keeps the
	// artifact so the user can retry without re-recording.
	ErrUploadFailed = errors.New("uploads: upload failed")

	ErrNothingToUpload = errors.New("uploads: nothing to upload")
	ErrInvalidArgument = errors.New("uploads: invalid argument")
)
