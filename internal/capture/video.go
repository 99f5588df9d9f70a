package capture

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Prober reads decoded media metadata. Injected so duration checks are
// testable without a real decoder.
type Prober interface {
	// Duration returns the decoded duration of the clip.
	Duration(bytes []byte, mimeType string) (time.Duration, error)
}

// VideoRecorder produces video Artifacts through three acquisition paths:
//
//   - live webcam recording (desktop-class): camera+mic stream with preview,
//     buffered until stop, capped at MaxDuration like the audio recorder;
//   - native capture delegation (mobile-class): the platform camera flow
//     hands in a finished clip, no recording loop here;
//   - file import: pre-recorded file validated for type and size.
//
// Every path releases any open stream on finalize, cancel, or teardown, and
// reads duration from decoded metadata. A clip longer than MaxDuration is
// kept but flagged invalid so upload is blocked until the user re-captures.
type VideoRecorder struct {
	mu sync.Mutex

	device Device
	prober Prober
	cfg    VideoConfig

	stream    Stream
	preview   bool
	recording bool
	startedAt time.Time
	autoStop  *time.Timer
	gen       uint64

	artifact *Artifact

	clock func() time.Time
}

type VideoConfig struct {
	// MaxDuration caps recordings and imports. Default 180s.
	MaxDuration time.Duration
	// MaxImportBytes caps file imports. Default 100MB.
	MaxImportBytes int64
}

func (c VideoConfig) withDefaults() VideoConfig {
	out := c
	if out.MaxDuration <= 0 {
		out.MaxDuration = 180 * time.Second
	}
	if out.MaxImportBytes <= 0 {
		out.MaxImportBytes = 100 << 20
	}
	return out
}

// importExtensions is the recognized video file whitelist.
var importExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".webm": {},
	".m4v":  {},
}

func NewVideoRecorder(device Device, prober Prober, cfg VideoConfig) *VideoRecorder {
	return &VideoRecorder{
		device: device,
		prober: prober,
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
	}
}

// SetClock overrides the time source. Test use only; call before recording.
func (v *VideoRecorder) SetClock(clock func() time.Time) { v.clock = clock }

// OpenPreview acquires the camera+microphone stream for the live preview
// without recording yet. Permission refusal surfaces as ErrPermissionDenied.
func (v *VideoRecorder) OpenPreview(ctx context.Context) error {
	v.mu.Lock()
	if v.stream != nil {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	stream, err := v.device.Acquire(ctx, KindVideo)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.stream = stream
	v.preview = true
	v.mu.Unlock()
	return nil
}

// Previewing reports whether a live stream is open without recording.
func (v *VideoRecorder) Previewing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream != nil && !v.recording
}

// StartRecording begins buffering the live stream, acquiring it first if no
// preview is open. Auto-stops at MaxDuration exactly as a manual stop would.
func (v *VideoRecorder) StartRecording(ctx context.Context) error {
	if err := v.OpenPreview(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	if v.recording {
		v.mu.Unlock()
		return ErrAlreadyRecording
	}
	if v.artifact != nil {
		v.artifact.Release()
		v.artifact = nil
	}
	stream := v.stream
	v.mu.Unlock()

	if err := stream.StartRecording(); err != nil {
		v.Cancel()
		return err
	}

	v.mu.Lock()
	v.recording = true
	v.startedAt = v.clock()
	v.gen++
	gen := v.gen
	v.autoStop = time.AfterFunc(v.cfg.MaxDuration, func() {
		v.finalize(gen)
	})
	v.mu.Unlock()
	return nil
}

// StopRecording finalizes the buffered video and releases the stream.
func (v *VideoRecorder) StopRecording() (*Artifact, error) {
	v.mu.Lock()
	if !v.recording {
		v.mu.Unlock()
		return nil, ErrNotRecording
	}
	gen := v.gen
	v.mu.Unlock()

	v.finalize(gen)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.artifact == nil {
		return nil, ErrNotRecording
	}
	return v.artifact, nil
}

func (v *VideoRecorder) finalize(gen uint64) {
	v.mu.Lock()
	if !v.recording || v.gen != gen {
		v.mu.Unlock()
		return
	}
	stream := v.stream
	startedAt := v.startedAt
	v.stream = nil
	v.recording = false
	v.preview = false
	if v.autoStop != nil {
		v.autoStop.Stop()
		v.autoStop = nil
	}
	v.gen++
	v.mu.Unlock()

	clip, err := stream.StopRecording()
	stream.Release()
	if err != nil {
		return
	}

	elapsed := int(v.clock().Sub(startedAt) / time.Second)
	maxSec := int(v.cfg.MaxDuration / time.Second)
	if elapsed > maxSec {
		elapsed = maxSec
	}
	duration := clip.DurationSeconds
	if duration == 0 {
		duration = elapsed
	}
	mime := clip.MIMEType
	if mime == "" {
		mime = "video/webm"
	}

	a := newArtifact(KindVideo, clip.Bytes, mime, duration, SourceCamera)
	v.checkDuration(a)

	v.mu.Lock()
	v.artifact = a
	v.mu.Unlock()
}

// AcceptNativeCapture installs a clip produced by the platform's native
// camera flow. No stream is ever opened on this path.
func (v *VideoRecorder) AcceptNativeCapture(clip Clip) (*Artifact, error) {
	if len(clip.Bytes) == 0 {
		return nil, ErrUnsupportedMedia
	}
	if !strings.HasPrefix(clip.MIMEType, "video/") {
		return nil, ErrUnsupportedMedia
	}

	a := newArtifact(KindVideo, clip.Bytes, clip.MIMEType, clip.DurationSeconds, SourceCamera)
	v.checkDuration(a)

	v.mu.Lock()
	if v.artifact != nil {
		v.artifact.Release()
	}
	v.artifact = a
	v.mu.Unlock()
	return a, nil
}

// ImportFile validates and installs a pre-recorded file. Rejections have no
// side effects: nothing is buffered and no stream is opened.
func (v *VideoRecorder) ImportFile(filename string, data []byte, mimeType string) (*Artifact, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := importExtensions[ext]; !ok {
		return nil, ErrUnsupportedMedia
	}
	if mimeType != "" && !strings.HasPrefix(mimeType, "video/") {
		return nil, ErrUnsupportedMedia
	}
	if int64(len(data)) > v.cfg.MaxImportBytes {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedMedia
	}
	if mimeType == "" {
		mimeType = mimeForExtension(ext)
	}

	a := newArtifact(KindVideo, data, mimeType, 0, SourceFileImport)
	v.checkDuration(a)

	v.mu.Lock()
	if v.artifact != nil {
		v.artifact.Release()
	}
	v.artifact = a
	v.mu.Unlock()
	return a, nil
}

// checkDuration fills the artifact duration from decoded metadata and flags
// over-cap clips invalid rather than silently uploading them.
func (v *VideoRecorder) checkDuration(a *Artifact) {
	if v.prober == nil {
		return
	}
	d, err := v.prober.Duration(a.Bytes(), a.MIMEType)
	if err != nil {
		a.markInvalid("could not read media duration")
		return
	}
	a.DurationSeconds = int(d / time.Second)
	if d > v.cfg.MaxDuration {
		a.markInvalid(fmt.Sprintf("video is %ds, limit is %ds; re-record a shorter clip",
			int(d/time.Second), int(v.cfg.MaxDuration/time.Second)))
	}
}

// Cancel aborts any preview or recording and releases the stream. No-op when
// nothing is open.
func (v *VideoRecorder) Cancel() {
	v.mu.Lock()
	stream := v.stream
	v.stream = nil
	v.recording = false
	v.preview = false
	if v.autoStop != nil {
		v.autoStop.Stop()
		v.autoStop = nil
	}
	v.gen++
	v.mu.Unlock()

	if stream != nil {
		stream.Release()
	}
}

// Close tears the recorder down: stream released, artifact discarded.
func (v *VideoRecorder) Close() {
	v.Cancel()
	v.mu.Lock()
	if v.artifact != nil {
		v.artifact.Release()
		v.artifact = nil
	}
	v.mu.Unlock()
}

// Recording reports whether a live capture is buffering.
func (v *VideoRecorder) Recording() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording
}

// Artifact returns the finalized video, or nil.
func (v *VideoRecorder) Artifact() *Artifact {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.artifact
}

func mimeForExtension(ext string) string {
	switch ext {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}
