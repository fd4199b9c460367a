// Package bridge implements the snapshot cache & translator: it wraps the
// automation channel, normalizes its raw answers into TrackSnapshot values
// and memoizes the most recent successful snapshot keyed by track identity.
package bridge

import (
	"sync"

	"go.uber.org/zap"

	"npbridge/internal/domain"
)

// SnapshotBridge is the read-only telemetry surface over an external media
// player. Metadata round trips over the automation channel are orders of
// magnitude more expensive than state/position reads, so the bridge caches
// the last successful snapshot per track identity and re-executes only the
// cheap live queries on repeated calls for the same track.
//
// Caching is whole-snapshot, keyed by identity: on a cache hit only
// IsPlaying/IsPaused are re-derived from a live state read. Fields that can
// change without an identity change (rating, play count) therefore stay
// cached until ClearCache forces a full re-fetch.
//
// All methods are safe for concurrent use; the identity-compare/fetch/swap
// sequence runs under one mutex so a reader can never observe a torn or
// half-populated snapshot.
type SnapshotBridge struct {
	logger  *zap.Logger
	channel domain.AutomationChannel

	mu       sync.Mutex
	cached   domain.TrackSnapshot
	cachedID domain.TrackIdentity
	hasCache bool
}

// NewSnapshotBridge creates a bridge over the given automation channel
func NewSnapshotBridge(logger *zap.Logger, channel domain.AutomationChannel) *SnapshotBridge {
	return &SnapshotBridge{
		logger:  logger,
		channel: channel,
	}
}

// CurrentTrackInfo returns a snapshot of the current track. The returned
// value is caller-owned: it shares nothing with the bridge's retained copy,
// so later invalidation cannot affect it.
//
// "Player not running" and "no current track" are expected states, not
// failures: they yield a snapshot with Valid=false and every other field at
// its zero value.
func (b *SnapshotBridge) CurrentTrackInfo() domain.TrackSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.channel.IsPlayerRunning() {
		return domain.TrackSnapshot{}
	}

	// Transport state is volatile and cheap; read it live on every call
	state := b.channel.QueryPlayerState()

	id, ok := b.channel.QueryNowPlayingID()
	if !ok {
		return domain.TrackSnapshot{}
	}

	// Fast path: same persistent id as the cached snapshot. Players without
	// stable ids (id == "") always take the full fetch below and rely on
	// tuple identity, trading the amortization for correctness.
	if id != "" && b.hasCache && b.cachedID == domain.DeriveIdentity(id, "", "", "") {
		b.logger.Debug("Serving track metadata from cache",
			zap.String("persistentID", id))
		return applyState(b.cached, state)
	}

	raw, ok := b.channel.QueryRawTrackMetadata()
	if !ok {
		return domain.TrackSnapshot{}
	}

	snapshot := translate(raw, state)

	if identity := raw.Identity(); b.hasCache && identity == b.cachedID {
		b.logger.Debug("Refreshed cached snapshot for unchanged identity")
	} else if b.hasCache {
		b.logger.Debug("Track identity changed, replacing cached snapshot",
			zap.String("title", snapshot.Title),
			zap.String("artist", snapshot.Artist))
	}

	b.cached = snapshot
	b.cachedID = raw.Identity()
	b.hasCache = true

	return snapshot
}

// PlayerRunning is a live pass-through to the automation channel's
// liveness check
func (b *SnapshotBridge) PlayerRunning() bool {
	return b.channel.IsPlayerRunning()
}

// PlayerState is a live pass-through to the automation channel; it is never
// cached since transport state changes are exactly what callers poll for.
func (b *SnapshotBridge) PlayerState() domain.PlayerState {
	return b.channel.QueryPlayerState()
}

// PlayerPosition is a live pass-through, in seconds. 0.0 when unavailable.
func (b *SnapshotBridge) PlayerPosition() float64 {
	return b.channel.QueryPosition()
}

// ClearCache unconditionally discards the cached snapshot. The next
// CurrentTrackInfo call performs a full re-fetch even if the track identity
// is unchanged; this is the escape hatch for metadata (rating, play count)
// that changes without an identity change.
func (b *SnapshotBridge) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cached.Release()
	b.cachedID = ""
	b.hasCache = false
	b.logger.Debug("Snapshot cache cleared")
}

// translate normalizes a raw metadata bag into a snapshot. Absent fields in
// the bag are already zero values, which are exactly the documented
// sentinel defaults, so total-field initialization holds by construction.
func translate(raw *domain.RawTrackMetadata, state domain.PlayerState) domain.TrackSnapshot {
	return applyState(domain.TrackSnapshot{
		Valid:        true,
		Title:        raw.Title,
		Artist:       raw.Artist,
		Album:        raw.Album,
		AlbumArtist:  raw.AlbumArtist,
		Composer:     raw.Composer,
		Genre:        raw.Genre,
		PersistentID: raw.PersistentID,
		DatabaseID:   raw.DatabaseID,
		Year:         raw.Year,
		TrackNumber:  raw.TrackNumber,
		TrackCount:   raw.TrackCount,
		DiscNumber:   raw.DiscNumber,
		DiscCount:    raw.DiscCount,
		Duration:     raw.Duration,
		PlayedCount:  raw.PlayedCount,
		Rating:       raw.Rating,
		PlayedDate:   raw.PlayedDate,
	}, state)
}

// applyState derives the mutually exclusive playing/paused booleans from the
// live player state
func applyState(snapshot domain.TrackSnapshot, state domain.PlayerState) domain.TrackSnapshot {
	snapshot.IsPlaying = state == domain.StatePlaying
	snapshot.IsPaused = state == domain.StatePaused
	return snapshot
}
