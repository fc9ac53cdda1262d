package browser

import (
	"fmt"
	"log/slog"
	"strings"
)

// MissingItemMode selects what a synchronized sequence shows when it has no
// item at the master's current index value.
type MissingItemMode int

const (
	// CreateFromPrevious shows the closest previous item. With save changes
	// enabled, a copy of it is materialized at the current index value.
	CreateFromPrevious MissingItemMode = iota
	// CreateFromDefault shows default content. With save changes enabled, a
	// default item is materialized at the current index value.
	CreateFromDefault
	// SetToDefault resets the proxy to default content and never creates an entry.
	SetToDefault
)

var missingItemModeNames = [...]string{
	CreateFromPrevious: "createFromPrevious",
	CreateFromDefault:  "createFromDefault",
	SetToDefault:       "setToDefault",
}

// String returns the persisted name of the mode, or "unknown".
func (m MissingItemMode) String() string {
	if m < 0 || int(m) >= len(missingItemModeNames) {
		return "unknown"
	}
	return missingItemModeNames[m]
}

// ParseMissingItemMode converts a persisted mode name.
func ParseMissingItemMode(s string) (MissingItemMode, bool) {
	for i, name := range missingItemModeNames {
		if name == s {
			return MissingItemMode(i), true
		}
	}
	return CreateFromPrevious, false
}

// SyncProperties are the per-sequence synchronization settings of a browser.
type SyncProperties struct {
	Playback           bool
	Recording          bool
	OverwriteProxyName bool
	SaveChanges        bool
	MissingItem        MissingItemMode
}

// DefaultSyncProperties returns the settings of a newly attached sequence.
func DefaultSyncProperties() SyncProperties {
	return SyncProperties{Playback: true}
}

// Token stream keys.
const (
	keyPlayback           = "playback"
	keyRecording          = "recording"
	keyOverwriteProxyName = "overwriteProxyName"
	keySaveChanges        = "saveChanges"
	keyMissingItemMode    = "missingItemMode"
)

// String encodes the properties as "key value key value ..." with a
// trailing space after every value.
func (p SyncProperties) String() string {
	var b strings.Builder
	for _, kv := range [][2]string{
		{keyPlayback, boolToken(p.Playback)},
		{keyRecording, boolToken(p.Recording)},
		{keyOverwriteProxyName, boolToken(p.OverwriteProxyName)},
		{keySaveChanges, boolToken(p.SaveChanges)},
		{keyMissingItemMode, p.MissingItem.String()},
	} {
		b.WriteString(kv[0])
		b.WriteByte(' ')
		b.WriteString(kv[1])
		b.WriteByte(' ')
	}
	return b.String()
}

func boolToken(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// ParseSyncProperties decodes a token stream written by String. Keys that
// are absent keep their default; unknown keys are ignored. A boolean is true
// only when its value is exactly "true". A dangling key or an unknown
// missing-item mode makes the whole string malformed.
func ParseSyncProperties(s string) (SyncProperties, error) {
	p := DefaultSyncProperties()
	tokens := strings.Fields(s)
	if len(tokens)%2 != 0 {
		return DefaultSyncProperties(), fmt.Errorf("%w: odd token count in %q", ErrMalformedProperties, s)
	}
	for i := 0; i < len(tokens); i += 2 {
		key, value := tokens[i], tokens[i+1]
		switch key {
		case keyPlayback:
			p.Playback = value == "true"
		case keyRecording:
			p.Recording = value == "true"
		case keyOverwriteProxyName:
			p.OverwriteProxyName = value == "true"
		case keySaveChanges:
			p.SaveChanges = value == "true"
		case keyMissingItemMode:
			mode, ok := ParseMissingItemMode(value)
			if !ok {
				return DefaultSyncProperties(), fmt.Errorf("%w: missing item mode %q", ErrMalformedProperties, value)
			}
			p.MissingItem = mode
		default:
			slog.Debug("ignoring unknown synchronization property", "key", key)
		}
	}
	return p, nil
}
