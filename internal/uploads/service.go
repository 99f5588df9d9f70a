package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"propdesk/internal/capture"
)

// Service moves finished capture artifacts into storage.
//
// Contract:
//   - Only uploadable artifacts go out; invalid or released ones are rejected
//     before any network call.
//   - On failure the artifact buffer is left intact so the caller can retry.
//   - On success the artifact buffer is released; the URL is the record now.
type Service struct {
	store  Store
	logger *slog.Logger
	clock  func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, clock: time.Now}
}

// Recording is the persisted result of a successful send.
type Recording struct {
	ID          string             `json:"id"`
	WorkspaceID string             `json:"workspace_id"`
	SessionID   string             `json:"session_id,omitempty"`
	Kind        capture.Kind       `json:"kind"`
	SourceMode  capture.SourceMode `json:"source_mode"`
	MIMEType    string             `json:"mime_type"`
	DurationSec int                `json:"duration_seconds"`
	URL         string             `json:"url"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Send uploads the artifact and returns the stored recording. The artifact
// survives a failed send untouched.
func (s *Service) Send(ctx context.Context, workspaceID, sessionID string, a *capture.Artifact) (Recording, error) {
	if workspaceID == "" {
		return Recording{}, ErrInvalidArgument
	}
	if a == nil || !a.Uploadable() {
		return Recording{}, ErrNothingToUpload
	}

	id := uuid.NewString()
	path := objectPath(workspaceID, sessionID, id, a)

	url, err := s.store.Upload(ctx, a.Bytes(), a.MIMEType, path)
	if err != nil {
		s.logger.Error("recording upload failed",
			"workspace_id", workspaceID,
			"session_id", sessionID,
			"kind", string(a.Kind),
			"error", err)
		return Recording{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	rec := Recording{
		ID:          id,
		WorkspaceID: workspaceID,
		SessionID:   sessionID,
		Kind:        a.Kind,
		SourceMode:  a.SourceMode,
		MIMEType:    a.MIMEType,
		DurationSec: a.DurationSeconds,
		URL:         url,
		CreatedAt:   s.clock().UTC(),
	}
	a.Release()
	return rec, nil
}

func objectPath(workspaceID, sessionID, id string, a *capture.Artifact) string {
	ext := extensionFor(a.MIMEType)
	if sessionID != "" {
		return fmt.Sprintf("recordings/%s/%s/%s%s", workspaceID, sessionID, id, ext)
	}
	return fmt.Sprintf("recordings/%s/%s%s", workspaceID, id, ext)
}

func extensionFor(mime string) string {
	switch mime {
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/mpeg":
		return ".mp3"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	default:
		return ""
	}
}
