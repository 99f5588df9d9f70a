package capture

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeDevice hands out fakeStreams and can refuse permission.
type fakeDevice struct {
	mu         sync.Mutex
	denied     bool
	streams    []*fakeStream
	chunkBytes []byte
	mime       string
}

func (d *fakeDevice) Acquire(ctx context.Context, kind Kind) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denied {
		return nil, ErrPermissionDenied
	}
	s := &fakeStream{state: TrackLive, bytes: d.chunkBytes, mime: d.mime}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) allStreams() []*fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeStream(nil), d.streams...)
}

type fakeStream struct {
	mu        sync.Mutex
	state     TrackState
	recording bool
	bytes     []byte
	mime      string
}

func (s *fakeStream) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = true
	return nil
}

func (s *fakeStream) StopRecording() (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = false
	s.state = TrackEnded
	b := s.bytes
	if b == nil {
		b = []byte("pcm")
	}
	return Clip{Bytes: b, MIMEType: s.mime}, nil
}

func (s *fakeStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = TrackEnded
}

func (s *fakeStream) TrackState() TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func TestAudioStartStopProducesArtifact(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{MaxDuration: time.Minute})

	now := time.Unix(1700000000, 0)
	r.SetClock(func() time.Time { return now })

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Recording() {
		t.Fatalf("expected recording state")
	}

	now = now.Add(12 * time.Second)
	a, err := r.StopRecording()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if a.Kind != KindAudio || a.SourceMode != SourceMicrophone {
		t.Fatalf("unexpected artifact: %+v", a)
	}
	if a.DurationSeconds != 12 {
		t.Fatalf("expected duration 12, got %d", a.DurationSeconds)
	}
	if !a.Uploadable() {
		t.Fatalf("expected uploadable artifact")
	}

	// Microphone released immediately.
	if st := dev.allStreams()[0].TrackState(); st != TrackEnded {
		t.Fatalf("expected mic released, track state %s", st)
	}
}

func TestAudioPermissionDeniedIsRecoverable(t *testing.T) {
	dev := &fakeDevice{denied: true}
	r := NewAudioRecorder(dev, AudioConfig{})

	if err := r.StartRecording(context.Background()); err != ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if r.Recording() {
		t.Fatalf("recorder must stay idle after denial")
	}

	// User grants access in settings; retry works.
	dev.mu.Lock()
	dev.denied = false
	dev.mu.Unlock()
	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("retry after grant: %v", err)
	}
	r.Cancel()
}

func TestAudioAutoStopMatchesManualStop(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{MaxDuration: 30 * time.Millisecond})

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !r.Recording() && r.Artifact() != nil {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	a := r.Artifact()
	if a == nil {
		t.Fatalf("auto-stop did not finalize an artifact")
	}
	if a.Kind != KindAudio || a.SourceMode != SourceMicrophone || a.MIMEType == "" {
		t.Fatalf("auto-stopped artifact differs from manual shape: %+v", a)
	}
	if !a.Uploadable() {
		t.Fatalf("auto-stopped artifact must be upload-ready")
	}
	if st := dev.allStreams()[0].TrackState(); st != TrackEnded {
		t.Fatalf("expected mic released after auto-stop, got %s", st)
	}

	// Manual stop after auto-stop reports not recording.
	if _, err := r.StopRecording(); err != ErrNotRecording {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestAudioResetDiscardsArtifact(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{})

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	a, err := r.StopRecording()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	r.Reset()
	if r.Artifact() != nil {
		t.Fatalf("expected artifact discarded")
	}
	if a.Bytes() != nil {
		t.Fatalf("expected buffer released on reset")
	}
}

func TestAudioCancelReleasesStream(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{})

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Cancel()

	if r.Recording() {
		t.Fatalf("expected idle after cancel")
	}
	if st := dev.allStreams()[0].TrackState(); st != TrackEnded {
		t.Fatalf("expected stream released on cancel, got %s", st)
	}
	if r.Artifact() != nil {
		t.Fatalf("cancel must not produce an artifact")
	}
}

func TestAudioStartWhileRecordingFails(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{})

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.StartRecording(context.Background()); err != ErrAlreadyRecording {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	r.Cancel()
}

func TestPlayerProgressDoesNotTouchRecorder(t *testing.T) {
	dev := &fakeDevice{}
	r := NewAudioRecorder(dev, AudioConfig{})
	now := time.Unix(1700000000, 0)
	r.SetClock(func() time.Time { return now })

	if err := r.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	now = now.Add(10 * time.Second)
	a, err := r.StopRecording()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	p, err := NewPlayer(a)
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	pnow := time.Unix(1800000000, 0)
	p.SetClock(func() time.Time { return pnow })

	p.Play()
	pnow = pnow.Add(5 * time.Second)
	if got := p.Progress(); got < 0.49 || got > 0.51 {
		t.Fatalf("expected ~0.5 progress, got %f", got)
	}
	p.Pause()
	pnow = pnow.Add(time.Hour)
	if got := p.Progress(); got < 0.49 || got > 0.51 {
		t.Fatalf("progress must freeze on pause, got %f", got)
	}

	// Player never flips recorder state.
	if r.Recording() {
		t.Fatalf("playback must not affect recording state")
	}
}
