package capture

import (
	"errors"
	"strings"
	"sync"
)

// Kind of captured media.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// SourceMode says how the artifact was produced.
type SourceMode string

const (
	SourceMicrophone  SourceMode = "microphone_recording"
	SourceAIGenerated SourceMode = "ai_generated"
	SourceCamera      SourceMode = "camera_recording"
	SourceFileImport  SourceMode = "file_import"
)

var (
	// ErrPermissionDenied means microphone/camera access was refused.
	// Recoverable: the UI must explain and offer guidance, not retry silently.
	ErrPermissionDenied = errors.New("capture: media permission denied")

	// ErrUnsupportedMedia is returned for imports that are not a recognized
	// video type. No side effects occur.
	ErrUnsupportedMedia = errors.New("capture: unsupported media type")

	// ErrFileTooLarge is returned for imports over the size limit.
	ErrFileTooLarge = errors.New("capture: file too large")

	// ErrNotRecording is returned when stop is called with no recording active.
	ErrNotRecording = errors.New("capture: not recording")

	// ErrAlreadyRecording guards re-entrant start.
	ErrAlreadyRecording = errors.New("capture: recording already active")

	// ErrNoArtifact is returned when an operation needs a finalized artifact.
	ErrNoArtifact = errors.New("capture: no artifact")
)

// Artifact is a finalized capture, ready for upload unless flagged invalid.
//
// Lifecycle: created when capture completes; Release discards the buffer when
// the owning dialog closes or a new capture starts, so finished media never
// lingers in memory.
type Artifact struct {
	mu sync.Mutex

	Kind            Kind       `json:"kind"`
	MIMEType        string     `json:"mime_type"`
	DurationSeconds int        `json:"duration_seconds"`
	SourceMode      SourceMode `json:"source_mode"`

	// Invalid blocks upload; InvalidReason is surfaced to the user.
	Invalid       bool   `json:"invalid,omitempty"`
	InvalidReason string `json:"invalid_reason,omitempty"`

	bytes    []byte
	released bool
}

func newArtifact(kind Kind, bytes []byte, mime string, durationSeconds int, mode SourceMode) *Artifact {
	return &Artifact{
		Kind:            kind,
		MIMEType:        mime,
		DurationSeconds: durationSeconds,
		SourceMode:      mode,
		bytes:           bytes,
	}
}

// NewClipArtifact wraps an already-captured clip, validating the MIME type
// against the kind. Upload handlers and the generated-voice path use this
// where no recorder is involved.
func NewClipArtifact(kind Kind, clip Clip, mode SourceMode) (*Artifact, error) {
	if len(clip.Bytes) == 0 {
		return nil, ErrUnsupportedMedia
	}
	prefix := "audio/"
	if kind == KindVideo {
		prefix = "video/"
	}
	if !strings.HasPrefix(clip.MIMEType, prefix) {
		return nil, ErrUnsupportedMedia
	}
	return newArtifact(kind, clip.Bytes, clip.MIMEType, clip.DurationSeconds, mode), nil
}

// Bytes returns the captured media. Nil after Release.
func (a *Artifact) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bytes
}

// Uploadable reports whether the artifact may be persisted.
func (a *Artifact) Uploadable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.Invalid && !a.released && len(a.bytes) > 0
}

// Release discards the buffer. Idempotent.
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bytes = nil
	a.released = true
}

func (a *Artifact) markInvalid(reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Invalid = true
	a.InvalidReason = reason
}
