package capture

import "context"

// TrackState mirrors the lifecycle of an acquired media track.
type TrackState string

const (
	TrackLive  TrackState = "live"
	TrackEnded TrackState = "ended"
)

// Device acquires media input streams. The real implementation lives at the
// platform boundary (browser getUserMedia, OS capture); the core only ever
// talks to this interface, so recorder logic is testable without hardware.
//
// Acquire must map a permission refusal to ErrPermissionDenied.
type Device interface {
	Acquire(ctx context.Context, kind Kind) (Stream, error)
}

// Stream is one open capture stream.
//
// Resource discipline: Release must stop every track (TrackState becomes
// ended) and must be safe to call from any state, any number of times. No
// code path may leave a live stream behind.
type Stream interface {
	// StartRecording begins buffering media chunks.
	StartRecording() error

	// StopRecording finalizes buffered chunks into one clip and implicitly
	// releases the stream.
	StopRecording() (Clip, error)

	// Release stops all tracks without producing a clip.
	Release()

	// TrackState reports whether the underlying tracks are still live.
	TrackState() TrackState
}

// Clip is the raw output of a finished recording, before it becomes an Artifact.
type Clip struct {
	Bytes           []byte
	MIMEType        string
	DurationSeconds int
}
