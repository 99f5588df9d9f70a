package capture

import (
	"sync"
	"time"
)

// Player tracks play/pause/progress over a finalized artifact. It is pure
// state bookkeeping: actual decoding happens at the platform boundary, so
// playback never touches recorder state.
type Player struct {
	mu sync.Mutex

	artifact *Artifact
	playing  bool
	position time.Duration
	resumed  time.Time

	clock func() time.Time
}

func NewPlayer(a *Artifact) (*Player, error) {
	if a == nil || a.Bytes() == nil {
		return nil, ErrNoArtifact
	}
	return &Player{artifact: a, clock: time.Now}, nil
}

// SetClock overrides the time source. Test use only.
func (p *Player) SetClock(clock func() time.Time) { p.clock = clock }

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.playing = true
	p.resumed = p.clock()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.position = p.positionLocked()
	p.playing = false
}

// Progress returns the playback position as a fraction in [0, 1].
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := time.Duration(p.artifact.DurationSeconds) * time.Second
	if total <= 0 {
		return 0
	}
	frac := float64(p.positionLocked()) / float64(total)
	if frac > 1 {
		return 1
	}
	return frac
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) positionLocked() time.Duration {
	pos := p.position
	if p.playing {
		pos += p.clock().Sub(p.resumed)
	}
	total := time.Duration(p.artifact.DurationSeconds) * time.Second
	if total > 0 && pos > total {
		pos = total
	}
	return pos
}
