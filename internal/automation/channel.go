package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"npbridge/internal/domain"
)

const (
	mprisPrefix  = "org.mpris.MediaPlayer2."
	mprisPath    = "/org/mpris/MediaPlayer2"
	propMetadata = "org.mpris.MediaPlayer2.Player.Metadata"
	propStatus   = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	propPosition = "org.mpris.MediaPlayer2.Player.Position"
	propRate     = "org.mpris.MediaPlayer2.Player.Rate"

	// noTrackPath is the MPRIS sentinel trackid for "nothing playing"
	noTrackPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

// MPRISChannel queries an external media player via the D-Bus MPRIS
// interface. Every query is one synchronous bus round trip; failures are
// folded into "not running" / "stopped" / absent answers so the caller never
// sees a transport error.
type MPRISChannel struct {
	logger *zap.Logger
	conn   DBusClient // Interface for testability
	player string     // Well-known bus name, empty for auto-detection
}

// NewMPRISChannel creates a channel bound to the given player bus name.
// A short name like "spotify" is expanded to the full well-known name; an
// empty name enables auto-detection of the first MPRIS player on the bus.
func NewMPRISChannel(logger *zap.Logger, conn DBusClient, player string) *MPRISChannel {
	if player != "" && !strings.HasPrefix(player, mprisPrefix) {
		player = mprisPrefix + player
	}
	return &MPRISChannel{
		logger: logger,
		conn:   conn,
		player: player,
	}
}

// playerName resolves the bus name to query. With a configured player this
// is a no-op; otherwise the bus is scanned for the first MPRIS name.
func (c *MPRISChannel) playerName() string {
	if c.player != "" {
		return c.player
	}

	names, err := c.conn.ListNames()
	if err != nil {
		c.logger.Debug("Failed to list bus names", zap.Error(err))
		return ""
	}
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			return name
		}
	}
	return ""
}

// IsPlayerRunning reports whether the player owns its bus name.
// "Unknown" (bus error, no player detected) reads as false.
func (c *MPRISChannel) IsPlayerRunning() bool {
	name := c.playerName()
	if name == "" {
		return false
	}

	owned, err := c.conn.NameHasOwner(name)
	if err != nil {
		c.logger.Debug("NameHasOwner failed, treating player as not running",
			zap.String("player", name),
			zap.Error(err))
		return false
	}
	return owned
}

// QueryPlayerState returns the player's transport mode, StateStopped on any
// failure. FastForwarding and Rewinding are derived from the Rate property
// since MPRIS only reports Playing/Paused/Stopped.
func (c *MPRISChannel) QueryPlayerState() domain.PlayerState {
	name := c.playerName()
	if name == "" {
		return domain.StateStopped
	}

	variant, err := c.conn.GetProperty(name, mprisPath, propStatus)
	if err != nil {
		c.logger.Debug("Failed to get playback status",
			zap.String("player", name),
			zap.Error(err))
		return domain.StateStopped
	}

	status, ok := variant.Value().(string)
	if !ok {
		c.logger.Debug("Playback status is not a string, treating as stopped",
			zap.String("player", name))
		return domain.StateStopped
	}

	switch status {
	case "Playing":
		return c.refinePlayingState(name)
	case "Paused":
		return domain.StatePaused
	default:
		return domain.StateStopped
	}
}

// refinePlayingState distinguishes normal playback from scanning by rate
func (c *MPRISChannel) refinePlayingState(name string) domain.PlayerState {
	variant, err := c.conn.GetProperty(name, mprisPath, propRate)
	if err != nil {
		// Rate is optional in practice; plain playback is the safe answer
		return domain.StatePlaying
	}

	rate, ok := asFloat(variant.Value())
	if !ok {
		return domain.StatePlaying
	}

	switch {
	case rate < 0:
		return domain.StateRewinding
	case rate > 1.01:
		return domain.StateFastForwarding
	default:
		return domain.StatePlaying
	}
}

// QueryPosition returns the playback position in seconds, 0.0 when the
// player is unreachable or stopped.
func (c *MPRISChannel) QueryPosition() float64 {
	name := c.playerName()
	if name == "" {
		return 0
	}

	variant, err := c.conn.GetProperty(name, mprisPath, propPosition)
	if err != nil {
		c.logger.Debug("Failed to get position",
			zap.String("player", name),
			zap.Error(err))
		return 0
	}

	// MPRIS positions are in microseconds
	us, ok := asInt64(variant.Value())
	if !ok {
		return 0
	}
	return float64(us) / 1e6
}

// QueryNowPlayingID probes the current track's persistent id (mpris:trackid).
// ok is false when the player is unreachable or nothing is playing; an empty
// id with ok=true means the player publishes no stable track ids.
func (c *MPRISChannel) QueryNowPlayingID() (string, bool) {
	metadata, ok := c.fetchMetadataMap()
	if !ok {
		return "", false
	}

	id, hasTrack := trackIDOf(metadata)
	if !hasTrack {
		return "", false
	}
	return id, true
}

// QueryRawTrackMetadata fetches and parses the full metadata bag.
// Reports false only when there is no current track or the player is
// unreachable; individual absent fields stay at their zero values.
func (c *MPRISChannel) QueryRawTrackMetadata() (*domain.RawTrackMetadata, bool) {
	metadata, ok := c.fetchMetadataMap()
	if !ok {
		return nil, false
	}

	if _, hasTrack := trackIDOf(metadata); !hasTrack {
		return nil, false
	}

	raw := c.parseMetadata(metadata)
	return raw, true
}

// fetchMetadataMap retrieves the Metadata property and safely casts it.
// Some players return nil or unexpected types when not playing anything.
func (c *MPRISChannel) fetchMetadataMap() (map[string]dbus.Variant, bool) {
	name := c.playerName()
	if name == "" {
		return nil, false
	}

	variant, err := c.conn.GetProperty(name, mprisPath, propMetadata)
	if err != nil {
		c.logger.Debug("Failed to get metadata",
			zap.String("player", name),
			zap.Error(err))
		return nil, false
	}

	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		c.logger.Debug("Metadata variant is not a map, skipping",
			zap.String("player", name))
		return nil, false
	}
	if len(metadata) == 0 {
		return nil, false
	}
	return metadata, true
}

// trackIDOf extracts mpris:trackid. hasTrack is false for the MPRIS NoTrack
// sentinel; an absent trackid still counts as a track (non-compliant players
// omit it entirely).
func trackIDOf(metadata map[string]dbus.Variant) (id string, hasTrack bool) {
	variant, ok := metadata["mpris:trackid"]
	if !ok {
		return "", true
	}

	switch v := variant.Value().(type) {
	case dbus.ObjectPath:
		id = string(v)
	case string:
		id = v
	default:
		return "", true
	}

	if id == noTrackPath {
		return "", false
	}
	return id, true
}

// parseMetadata converts an MPRIS metadata map to the domain bag
func (c *MPRISChannel) parseMetadata(metadata map[string]dbus.Variant) *domain.RawTrackMetadata {
	raw := &domain.RawTrackMetadata{}

	if id, hasTrack := trackIDOf(metadata); hasTrack {
		raw.PersistentID = id
		raw.DatabaseID = databaseIDFromTrackID(id)
	}

	raw.Title = stringField(metadata, "xesam:title")
	raw.Album = stringField(metadata, "xesam:album")

	// These are string lists per the MPRIS spec, but some non-compliant
	// players send plain strings
	raw.Artist = c.stringOrFirst(metadata, "xesam:artist")
	raw.AlbumArtist = c.stringOrFirst(metadata, "xesam:albumArtist")
	raw.Composer = c.stringOrFirst(metadata, "xesam:composer")
	raw.Genre = c.stringOrFirst(metadata, "xesam:genre")

	if v, ok := metadata["mpris:length"]; ok {
		if us, ok := asInt64(v.Value()); ok {
			raw.Duration = float64(us) / 1e6
		}
	}
	if v, ok := metadata["xesam:trackNumber"]; ok {
		if n, ok := asInt64(v.Value()); ok {
			raw.TrackNumber = int(n)
		}
	}
	if v, ok := metadata["xesam:discNumber"]; ok {
		if n, ok := asInt64(v.Value()); ok {
			raw.DiscNumber = int(n)
		}
	}
	if v, ok := metadata["xesam:useCount"]; ok {
		if n, ok := asInt64(v.Value()); ok {
			raw.PlayedCount = int(n)
		}
	}
	if v, ok := metadata["xesam:userRating"]; ok {
		// MPRIS ratings are 0.0-1.0; the bridge surface uses 0-100
		if f, ok := asFloat(v.Value()); ok && f >= 0 {
			raw.Rating = int(f*100 + 0.5)
		}
	}
	if v, ok := metadata["xesam:contentCreated"]; ok {
		if s, ok := v.Value().(string); ok {
			raw.Year = yearOf(s)
		}
	}
	if v, ok := metadata["xesam:lastUsed"]; ok {
		if s, ok := v.Value().(string); ok {
			if t, err := parseXesamTime(s); err == nil {
				raw.PlayedDate = float64(t.Unix()) + float64(t.Nanosecond())/1e9
			}
		}
	}

	return raw
}

// stringOrFirst reads a field that should be a string list but may be a
// plain string on non-compliant players
func (c *MPRISChannel) stringOrFirst(metadata map[string]dbus.Variant, key string) string {
	variant, ok := metadata[key]
	if !ok {
		return ""
	}

	switch v := variant.Value().(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case string:
		return v
	default:
		c.logger.Debug("Unexpected metadata value type",
			zap.String("key", key),
			zap.String("type", fmt.Sprintf("%T", variant.Value())))
	}
	return ""
}

func stringField(metadata map[string]dbus.Variant, key string) string {
	if variant, ok := metadata[key]; ok {
		if s, ok := variant.Value().(string); ok {
			return s
		}
	}
	return ""
}

// databaseIDFromTrackID extracts the numeric tail of a trackid object path,
// e.g. "/org/mpris/MediaPlayer2/Track/42" -> 42. Players that encode their
// library row id this way get a usable DatabaseID; others get the 0 sentinel.
func databaseIDFromTrackID(id string) int {
	idx := strings.LastIndex(id, "/")
	if idx < 0 || idx == len(id)-1 {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// yearOf extracts the year from an xesam date string
func yearOf(s string) int {
	t, err := parseXesamTime(s)
	if err != nil {
		// Some players send a bare year
		if len(s) == 4 {
			if y, err := strconv.Atoi(s); err == nil {
				return y
			}
		}
		return 0
	}
	return t.Year()
}

// parseXesamTime handles the date formats seen in the wild for xesam
// timestamp fields (full RFC 3339, seconds-precision without zone, date only)
func parseXesamTime(s string) (time.Time, error) {
	var t time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// asInt64 widens the integer types D-Bus may deliver for numeric properties
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int16:
		return int64(n), true
	case uint16:
		return int64(n), true
	case byte:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
