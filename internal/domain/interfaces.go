package domain

import "context"

// AutomationChannel defines the interface to the OS automation mechanism
// used to query the external player process.
// Implementations should handle D-Bus/MPRIS communication; every method is
// total: transport failures surface as "not running" / "stopped" / absent
// values, never as errors, so callers get a single simple branching model.
//
// All calls are synchronous and may block for one automation round trip.
// They are not interruptible mid-round-trip; callers that need timeouts must
// impose them at the calling layer and discard the late result.
type AutomationChannel interface {
	// IsPlayerRunning reports whether the external player process is
	// reachable on the automation channel. "Unknown" reads as false.
	IsPlayerRunning() bool

	// QueryPlayerState returns the player's current transport mode.
	// StateStopped when the player is not running or the query fails.
	QueryPlayerState() PlayerState

	// QueryPosition returns the playback position in seconds,
	// 0.0 when unavailable.
	QueryPosition() float64

	// QueryNowPlayingID is a cheap probe for the current track's persistent
	// id. ok is false when the player is unreachable or has no current
	// track; an empty id with ok=true means the player does not publish
	// stable track ids.
	QueryNowPlayingID() (id string, ok bool)

	// QueryRawTrackMetadata fetches the full metadata bag for the current
	// track. Individual fields may be absent; the whole call reports false
	// only when there is no current track or the player is unreachable.
	QueryRawTrackMetadata() (*RawTrackMetadata, bool)
}

// NowPlayingSource is the bridge contract the polling loop consumes.
// Every accessor always returns a value, never an error: "player not
// running" and "no current track" are expected states, not failures.
type NowPlayingSource interface {
	// PlayerRunning reports whether the external player is reachable
	PlayerRunning() bool

	// CurrentTrackInfo returns a caller-owned snapshot of the current
	// track, with Valid=false when nothing is playing.
	CurrentTrackInfo() TrackSnapshot

	// PlayerState is a live pass-through to the automation channel.
	PlayerState() PlayerState

	// PlayerPosition is a live pass-through, in seconds.
	PlayerPosition() float64

	// ClearCache discards any cached snapshot so the next
	// CurrentTrackInfo call performs a full re-fetch.
	ClearCache()
}

// Poller drives the bridge on an interval and reacts to changes
type Poller interface {
	// Start launches the polling loop; it returns immediately.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop
	Stop(ctx context.Context) error
}

// Config defines the interface for application configuration
type Config interface {
	// PlayerName returns the MPRIS bus name of the player to query,
	// empty for auto-detection.
	PlayerName() string

	// PollIntervalMs returns the polling period in milliseconds
	PollIntervalMs() int
}
