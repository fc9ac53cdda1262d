package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Persisted attribute names. Per-entry attributes end with the entry postfix.
const (
	AttrPlaybackActive       = "playbackActive"
	AttrPlaybackRateFps      = "playbackRateFps"
	AttrPlaybackItemSkipping = "playbackItemSkippingEnabled"
	AttrPlaybackLooped       = "playbackLooped"
	AttrSelectedItemNumber   = "selectedItemNumber"
	AttrRecordingActive      = "recordingActive"
	AttrRecordMasterOnly     = "recordOnMasterModifiedOnly"
	AttrRecordingSampling    = "recordingSamplingMode"
	AttrIndexDisplayMode     = "indexDisplayMode"
	AttrIndexDisplayFormat   = "indexDisplayFormat"
	AttrPostfixes            = "virtualNodePostfixes"

	AttrSyncPropertiesPrefix = "SynchronizationPropertiesMap"
	AttrSequenceRefPrefix    = "sequenceNodeRef"
	AttrProxyOwnershipPrefix = "proxyOwnership"
)

// Attributes returns the flat attribute list persisted for the browser.
// Proxy links are written under RoleProxy<postfix>.
func (b *Browser) Attributes() map[string]string {
	attrs := map[string]string{
		AttrPlaybackActive:       strconv.FormatBool(b.playback.Active),
		AttrPlaybackRateFps:      strconv.FormatFloat(b.playback.RateFps, 'g', -1, 64),
		AttrPlaybackItemSkipping: strconv.FormatBool(b.playback.ItemSkipping),
		AttrPlaybackLooped:       strconv.FormatBool(b.playback.Looped),
		AttrSelectedItemNumber:   strconv.Itoa(b.selected),
		AttrRecordingActive:      strconv.FormatBool(b.recording.Active),
		AttrRecordMasterOnly:     strconv.FormatBool(b.recording.MasterOnly),
		AttrRecordingSampling:    b.recording.Sampling.String(),
		AttrIndexDisplayMode:     b.display.Mode.String(),
		AttrIndexDisplayFormat:   b.display.Format,
	}
	postfixes := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		postfixes = append(postfixes, e.postfix)
		attrs[AttrSyncPropertiesPrefix+e.postfix] = e.props.String()
		attrs[AttrSequenceRefPrefix+e.postfix] = e.sequenceID
		if id, ok := b.scene.Reference(b.id, b.proxyRole(e)); ok {
			attrs[b.proxyRole(e)] = id
			attrs[AttrProxyOwnershipPrefix+e.postfix] = e.ownership.String()
		}
	}
	attrs[AttrPostfixes] = strings.Join(postfixes, " ")
	return attrs
}

// ReadAttributes restores state written by Attributes. Missing attributes
// keep their current value and unparsable ones log a warning and keep it
// too. A malformed synchronization properties string leaves that entry on
// default properties and is reported in the returned error, joined with any
// others; the rest of the state is still restored. Sequences come back
// unresolved; call Resolve once they are loaded. Proxy references are
// restored into the scene.
func (b *Browser) ReadAttributes(attrs map[string]string) error {
	was := b.StartModify()
	defer b.EndModify(was)

	readBool(attrs, AttrPlaybackActive, &b.playback.Active, b.name)
	readBool(attrs, AttrPlaybackItemSkipping, &b.playback.ItemSkipping, b.name)
	readBool(attrs, AttrPlaybackLooped, &b.playback.Looped, b.name)
	readBool(attrs, AttrRecordingActive, &b.recording.Active, b.name)
	readBool(attrs, AttrRecordMasterOnly, &b.recording.MasterOnly, b.name)
	if v, ok := attrs[AttrPlaybackRateFps]; ok {
		if fps, err := strconv.ParseFloat(v, 64); err == nil && fps >= 0 {
			b.playback.RateFps = fps
		} else {
			slog.Warn("invalid attribute", "browser", b.name, "attribute", AttrPlaybackRateFps, "value", v)
		}
	}
	if v, ok := attrs[AttrRecordingSampling]; ok {
		mode, known := ParseSamplingMode(v)
		if !known {
			slog.Warn("invalid recording sampling mode, assuming limited to playback rate", "browser", b.name, "value", v)
		}
		b.recording.Sampling = mode
	}
	if v, ok := attrs[AttrIndexDisplayMode]; ok {
		mode, known := ParseIndexDisplayMode(v)
		if !known {
			slog.Warn("invalid index display mode, assuming index value", "browser", b.name, "value", v)
		}
		b.display.Mode = mode
	}
	if v, ok := attrs[AttrIndexDisplayFormat]; ok {
		b.display.Format = v
	}
	var errs []error
	if v, ok := attrs[AttrPostfixes]; ok {
		errs = b.readEntries(attrs, strings.Fields(v))
	}
	if v, ok := attrs[AttrSelectedItemNumber]; ok {
		if n, err := strconv.Atoi(v); err == nil && n >= -1 {
			b.selected = n
		} else {
			slog.Warn("invalid attribute", "browser", b.name, "attribute", AttrSelectedItemNumber, "value", v)
		}
	}
	b.notify(EventModified)
	return errors.Join(errs...)
}

func (b *Browser) readEntries(attrs map[string]string, postfixes []string) []error {
	var errs []error
	for _, e := range b.entries {
		if e.cancelObserve != nil {
			e.cancelObserve()
		}
		b.scene.SetReference(b.id, b.proxyRole(e), "")
	}
	b.entries = nil
	for _, postfix := range postfixes {
		seqID := attrs[AttrSequenceRefPrefix+postfix]
		if seqID == "" {
			slog.Warn("entry without sequence reference", "browser", b.name, "postfix", postfix)
			continue
		}
		e := &SyncEntry{
			postfix:    postfix,
			sequenceID: seqID,
			props:      DefaultSyncProperties(),
		}
		if s, ok := attrs[AttrSyncPropertiesPrefix+postfix]; ok {
			props, err := ParseSyncProperties(s)
			if err != nil {
				slog.Debug("keeping default synchronization properties", "browser", b.name, "postfix", postfix, "error", err)
				errs = append(errs, fmt.Errorf("entry %s: %w", postfix, err))
			} else {
				e.props = props
			}
		}
		if id := attrs[b.proxyRole(e)]; id != "" {
			b.scene.SetReference(b.id, b.proxyRole(e), id)
			e.ownership = ParseOwnership(attrs[AttrProxyOwnershipPrefix+postfix])
		}
		b.entries = append(b.entries, e)
		if n, err := strconv.Atoi(postfix); err == nil && n >= b.lastPostfix {
			b.lastPostfix = n + 1
		}
	}
	return errs
}

func readBool(attrs map[string]string, name string, dst *bool, browser string) {
	v, ok := attrs[name]
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid attribute", "browser", browser, "attribute", name, "value", v)
		return
	}
	*dst = parsed
}
