package compiler

import (
	"cuelang.org/go/cue"

	"github.com/slicer/sequences/internal/ir"
)

// CompileBrowser parses a CUE value into a BrowserSpec.
//
// Unset playback settings take the browser defaults: looping and item
// skipping on. The synchronized struct is keyed by sequence name and kept
// in declaration order; each entry plays back unless "playback: false".
func CompileBrowser(v cue.Value) (*ir.BrowserSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.BrowserSpec{Name: label(v)}

	masterVal := v.LookupPath(cue.ParsePath("master"))
	if !masterVal.Exists() {
		return nil, &CompileError{
			Field:   "master",
			Message: "master is required",
			Pos:     v.Pos(),
		}
	}
	master, err := masterVal.String()
	if err != nil {
		return nil, &CompileError{Field: "master", Message: "must be a sequence name", Pos: masterVal.Pos()}
	}
	spec.Master = master

	if spec.Synchronized, err = parseSynchronized(v); err != nil {
		return nil, err
	}

	if spec.PlaybackRateFps, err = optionalDecimal(v, "playback_rate_fps"); err != nil {
		return nil, err
	}
	if spec.PlaybackLooped, err = optionalBool(v, "playback_looped", true); err != nil {
		return nil, err
	}
	if spec.ItemSkipping, err = optionalBool(v, "item_skipping", true); err != nil {
		return nil, err
	}
	if spec.RecordingSampling, err = optionalString(v, "recording_sampling"); err != nil {
		return nil, err
	}
	if spec.RecordMasterOnly, err = optionalBool(v, "record_master_only", false); err != nil {
		return nil, err
	}
	if spec.IndexDisplayMode, err = optionalString(v, "index_display_mode"); err != nil {
		return nil, err
	}
	if spec.IndexDisplayFormat, err = optionalString(v, "index_display_format"); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseSynchronized(v cue.Value) ([]ir.SyncSpec, error) {
	syncVal := v.LookupPath(cue.ParsePath("synchronized"))
	if !syncVal.Exists() {
		return nil, nil
	}
	iter, err := syncVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "synchronized", Message: "must be a struct keyed by sequence name", Pos: syncVal.Pos()}
	}

	var out []ir.SyncSpec
	for iter.Next() {
		entry := iter.Value()
		ss := ir.SyncSpec{Sequence: iter.Selector().Unquoted()}
		if ss.Proxy, err = optionalString(entry, "proxy"); err != nil {
			return nil, err
		}
		if ss.Playback, err = optionalBool(entry, "playback", true); err != nil {
			return nil, err
		}
		if ss.Recording, err = optionalBool(entry, "recording", false); err != nil {
			return nil, err
		}
		if ss.OverwriteProxyName, err = optionalBool(entry, "overwrite_proxy_name", false); err != nil {
			return nil, err
		}
		if ss.SaveChanges, err = optionalBool(entry, "save_changes", false); err != nil {
			return nil, err
		}
		if ss.MissingItem, err = optionalString(entry, "missing_item"); err != nil {
			return nil, err
		}
		out = append(out, ss)
	}
	return out, nil
}
