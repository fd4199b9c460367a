package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"npbridge/internal/domain"
)

type fakeConfig struct {
	intervalMs int
}

func (f fakeConfig) PlayerName() string  { return "" }
func (f fakeConfig) PollIntervalMs() int { return f.intervalMs }

type fakeSource struct {
	mu       sync.Mutex
	snapshot domain.TrackSnapshot
	state    domain.PlayerState
	pos      float64
}

func (f *fakeSource) PlayerRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.Valid
}

func (f *fakeSource) CurrentTrackInfo() domain.TrackSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeSource) PlayerState() domain.PlayerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) PlayerPosition() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeSource) ClearCache() {}

func (f *fakeSource) set(snapshot domain.TrackSnapshot, state domain.PlayerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snapshot
	f.state = state
}

func playingSnapshot(title string) domain.TrackSnapshot {
	return domain.TrackSnapshot{
		Valid:     true,
		Title:     title,
		Artist:    "Artist",
		Album:     "Album",
		IsPlaying: true,
	}
}

func newObservedPoller(source domain.NowPlayingSource, intervalMs int) (*Poller, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewPoller(zap.New(core), fakeConfig{intervalMs: intervalMs}, source)
	return p, logs
}

func countMessages(logs *observer.ObservedLogs, msg string) int {
	count := 0
	for _, entry := range logs.All() {
		if entry.Message == msg {
			count++
		}
	}
	return count
}

func TestPoll_LogsTrackOncePerIdentity(t *testing.T) {
	source := &fakeSource{snapshot: playingSnapshot("Song A"), state: domain.StatePlaying}
	p, logs := newObservedPoller(source, 1000)

	p.poll()
	p.poll()
	p.poll()

	if got := countMessages(logs, "Now playing"); got != 1 {
		t.Errorf("expected exactly 1 'Now playing' entry, got %d", got)
	}
}

func TestPoll_LogsIdentityChange(t *testing.T) {
	source := &fakeSource{snapshot: playingSnapshot("Song A"), state: domain.StatePlaying}
	p, logs := newObservedPoller(source, 1000)

	p.poll()
	source.set(playingSnapshot("Song B"), domain.StatePlaying)
	p.poll()

	if got := countMessages(logs, "Now playing"); got != 2 {
		t.Errorf("expected 2 'Now playing' entries, got %d", got)
	}
}

func TestPoll_LogsStateChangeForSameTrack(t *testing.T) {
	source := &fakeSource{snapshot: playingSnapshot("Song A"), state: domain.StatePlaying}
	p, logs := newObservedPoller(source, 1000)

	p.poll()

	paused := playingSnapshot("Song A")
	paused.IsPlaying = false
	paused.IsPaused = true
	source.set(paused, domain.StatePaused)
	p.poll()

	if got := countMessages(logs, "Playback state changed"); got != 1 {
		t.Errorf("expected 1 'Playback state changed' entry, got %d", got)
	}
	if got := countMessages(logs, "Now playing"); got != 1 {
		t.Errorf("expected 1 'Now playing' entry, got %d", got)
	}
}

func TestPoll_NothingPlaying(t *testing.T) {
	source := &fakeSource{state: domain.StateStopped}
	p, logs := newObservedPoller(source, 1000)

	p.poll()
	p.poll()

	if got := countMessages(logs, "Nothing playing"); got != 1 {
		t.Errorf("expected 1 'Nothing playing' entry, got %d", got)
	}
}

func TestStartStop(t *testing.T) {
	source := &fakeSource{snapshot: playingSnapshot("Song A"), state: domain.StatePlaying}
	p, logs := newObservedPoller(source, 10)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Second Start must be a no-op
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Second Stop must be a no-op
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}

	if got := countMessages(logs, "Now playing"); got != 1 {
		t.Errorf("expected 1 'Now playing' entry from the loop, got %d", got)
	}
}
