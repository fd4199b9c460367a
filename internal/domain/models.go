package domain

// PlayerState represents the gross transport mode of the external player.
// The set is closed: anything the player reports that does not map onto one
// of these values is treated as Stopped.
type PlayerState int

const (
	// StateStopped indicates the player is stopped or unreachable
	StateStopped PlayerState = iota
	// StatePlaying indicates the player is playing at normal rate
	StatePlaying
	// StatePaused indicates playback is paused
	StatePaused
	// StateFastForwarding indicates playback at a fast positive rate
	StateFastForwarding
	// StateRewinding indicates playback at a negative rate
	StateRewinding
)

// String returns a human-readable name for the state
func (s PlayerState) String() string {
	switch s {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateFastForwarding:
		return "FastForwarding"
	case StateRewinding:
		return "Rewinding"
	default:
		return "Stopped"
	}
}

// TrackIdentity is the key used to decide whether cached metadata still
// describes the current track. It is the player's persistent id when one is
// published, otherwise a tuple of title, artist and album.
type TrackIdentity string

// TrackSnapshot is an immutable capture of everything known about the
// current (or most recent) track at one query instant. It is a plain value:
// a returned snapshot shares no storage with the cache's retained copy, so
// callers may hold it for as long as they like.
//
// If Valid is false every other field is the zero value and must not be
// interpreted as real data. Textual fields use "" for "not published by this
// player"; numeric fields use 0 / 0.0 sentinels.
type TrackSnapshot struct {
	Valid bool

	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Composer    string
	Genre       string

	// PersistentID is a stable cross-session identifier usable for
	// deep-linking back into the player's library. Empty when the player
	// does not expose one.
	PersistentID string
	// DatabaseID is the player's numeric library identifier, 0 when absent.
	DatabaseID int

	Year        int
	TrackNumber int
	TrackCount  int
	DiscNumber  int
	DiscCount   int
	// Duration of the track in seconds
	Duration float64
	// PlayedCount is the player's play counter for this track
	PlayedCount int
	// Rating on the player's 0-100 scale
	Rating int
	// PlayedDate is the last-played instant as a float Unix timestamp,
	// 0.0 when the track has never been played or the field is unsupported
	PlayedDate float64

	// IsPlaying and IsPaused are derived from the PlayerState read at the
	// same query; they are never both true.
	IsPlaying bool
	IsPaused  bool
}

// Identity derives the cache key for this snapshot
func (t TrackSnapshot) Identity() TrackIdentity {
	return DeriveIdentity(t.PersistentID, t.Title, t.Artist, t.Album)
}

// Release resets the snapshot to its zero value. It is idempotent and exists
// as the explicit teardown operation of the bridge surface; holding on to a
// released snapshot is safe but yields only zero values.
func (t *TrackSnapshot) Release() {
	*t = TrackSnapshot{}
}

// RawTrackMetadata is the best-effort bag of fields the automation channel
// could read from the player. Any field may be absent (zero value); the
// bridge normalizes it into a TrackSnapshot.
type RawTrackMetadata struct {
	Title        string
	Artist       string
	Album        string
	AlbumArtist  string
	Composer     string
	Genre        string
	PersistentID string
	DatabaseID   int
	Year         int
	TrackNumber  int
	TrackCount   int
	DiscNumber   int
	DiscCount    int
	Duration     float64
	PlayedCount  int
	Rating       int
	PlayedDate   float64
}

// Identity derives the cache key for this bag
func (r RawTrackMetadata) Identity() TrackIdentity {
	return DeriveIdentity(r.PersistentID, r.Title, r.Artist, r.Album)
}

// DeriveIdentity prefers the persistent id and falls back to the
// title/artist/album tuple, since some player configurations do not expose
// persistent identifiers. The "\x1f" separator keeps tuple components from
// colliding ("a|b","c" vs "a","b|c").
func DeriveIdentity(persistentID, title, artist, album string) TrackIdentity {
	if persistentID != "" {
		return TrackIdentity("id:" + persistentID)
	}
	return TrackIdentity("tuple:" + title + "\x1f" + artist + "\x1f" + album)
}
