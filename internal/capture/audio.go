package capture

import (
	"context"
	"sync"
	"time"
)

// AudioRecorder captures microphone audio into an uploadable Artifact.
//
// Contract:
//   - StartRecording acquires the microphone; refusal surfaces as
//     ErrPermissionDenied and leaves the recorder reusable.
//   - Recording stops automatically at MaxDuration, finalizing exactly as a
//     manual StopRecording would.
//   - The microphone is released the moment recording finalizes or is cancelled;
//     no open input stream survives.
type AudioRecorder struct {
	mu sync.Mutex

	device Device
	cfg    AudioConfig

	stream    Stream
	startedAt time.Time
	autoStop  *time.Timer
	gen       uint64

	artifact *Artifact

	clock func() time.Time
}

type AudioConfig struct {
	// MaxDuration caps a recording. Default 60s.
	MaxDuration time.Duration
}

func (c AudioConfig) withDefaults() AudioConfig {
	out := c
	if out.MaxDuration <= 0 {
		out.MaxDuration = 60 * time.Second
	}
	return out
}

func NewAudioRecorder(device Device, cfg AudioConfig) *AudioRecorder {
	return &AudioRecorder{
		device: device,
		cfg:    cfg.withDefaults(),
		clock:  time.Now,
	}
}

// SetClock overrides the time source. Test use only; call before recording.
func (r *AudioRecorder) SetClock(clock func() time.Time) { r.clock = clock }

// StartRecording acquires the microphone and begins buffering. A previous
// artifact is discarded, matching the dialog behavior of starting over.
func (r *AudioRecorder) StartRecording(ctx context.Context) error {
	r.mu.Lock()
	if r.stream != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	if r.artifact != nil {
		r.artifact.Release()
		r.artifact = nil
	}
	r.mu.Unlock()

	stream, err := r.device.Acquire(ctx, KindAudio)
	if err != nil {
		return err
	}
	if err := stream.StartRecording(); err != nil {
		stream.Release()
		return err
	}

	r.mu.Lock()
	r.stream = stream
	r.startedAt = r.clock()
	r.gen++
	gen := r.gen
	r.autoStop = time.AfterFunc(r.cfg.MaxDuration, func() {
		// Auto-stop is not an error; it finalizes like a manual stop.
		r.finalize(gen)
	})
	r.mu.Unlock()
	return nil
}

// StopRecording finalizes the buffered audio into an Artifact and releases
// the microphone.
func (r *AudioRecorder) StopRecording() (*Artifact, error) {
	r.mu.Lock()
	if r.stream == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	gen := r.gen
	r.mu.Unlock()

	r.finalize(gen)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.artifact == nil {
		return nil, ErrNotRecording
	}
	return r.artifact, nil
}

// finalize stops the stream and builds the artifact. gen guards against the
// auto-stop timer firing after a manual stop already finalized.
func (r *AudioRecorder) finalize(gen uint64) bool {
	r.mu.Lock()
	if r.stream == nil || r.gen != gen {
		r.mu.Unlock()
		return false
	}
	stream := r.stream
	startedAt := r.startedAt
	r.stream = nil
	if r.autoStop != nil {
		r.autoStop.Stop()
		r.autoStop = nil
	}
	r.gen++
	r.mu.Unlock()

	clip, err := stream.StopRecording()
	stream.Release()
	if err != nil {
		return false
	}

	elapsed := int(r.clock().Sub(startedAt) / time.Second)
	maxSec := int(r.cfg.MaxDuration / time.Second)
	if elapsed > maxSec {
		elapsed = maxSec
	}
	duration := clip.DurationSeconds
	if duration == 0 {
		duration = elapsed
	}
	mime := clip.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}

	a := newArtifact(KindAudio, clip.Bytes, mime, duration, SourceMicrophone)
	r.mu.Lock()
	r.artifact = a
	r.mu.Unlock()
	return true
}

// Cancel aborts an in-flight recording without producing an artifact and
// releases the microphone. No-op when not recording.
func (r *AudioRecorder) Cancel() {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	if r.autoStop != nil {
		r.autoStop.Stop()
		r.autoStop = nil
	}
	r.gen++
	r.mu.Unlock()

	if stream != nil {
		stream.Release()
	}
}

// Reset discards the finalized artifact and any buffered state. The recorder
// is ready for a fresh take afterwards.
func (r *AudioRecorder) Reset() {
	r.Cancel()
	r.mu.Lock()
	if r.artifact != nil {
		r.artifact.Release()
		r.artifact = nil
	}
	r.mu.Unlock()
}

// Recording reports whether a capture is in flight.
func (r *AudioRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Elapsed returns seconds since recording started, 0 when idle.
func (r *AudioRecorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return 0
	}
	return int(r.clock().Sub(r.startedAt) / time.Second)
}

// Artifact returns the finalized recording, or nil.
func (r *AudioRecorder) Artifact() *Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact
}
