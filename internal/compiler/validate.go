package compiler

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/slicer/sequences/internal/browser"
	"github.com/slicer/sequences/internal/ir"
	"github.com/slicer/sequences/internal/node"
	"github.com/slicer/sequences/internal/sequence"
	"github.com/slicer/sequences/internal/timeline"
)

// Validation error codes (E100-E199)
const (
	// Sequence errors (E101-E109)
	ErrDuplicateName       = "E101" // duplicate sequence or browser name
	ErrInvalidIndexType    = "E102" // index type is not numeric or text
	ErrInvalidTolerance    = "E103" // tolerance is not a non-negative number
	ErrUnknownClass        = "E104" // item class missing or not a known node kind
	ErrDuplicateIndexValue = "E105" // two items at equal index values
	ErrInvalidIndexValue   = "E106" // numeric sequence item at a non-numeric value

	// Browser errors (E110-E119)
	ErrUndefinedSequence   = "E110" // master or synchronized sequence not declared
	ErrIncompatible        = "E111" // index name, unit or type differs from the master
	ErrInvalidMissingItem  = "E112" // unknown missing item mode
	ErrInvalidSampling     = "E113" // unknown recording sampling mode
	ErrInvalidDisplayMode  = "E114" // unknown index display mode
	ErrInvalidPlaybackRate = "E115" // playback rate is not a non-negative number
	ErrDuplicateEntry      = "E116" // sequence synchronized twice by one browser
	ErrInvalidFormat       = "E117" // display format has no usable verb
	ErrUnknownProxyClass   = "E118" // new proxy node for an empty sequence without a class
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled scene description for everything Build would
// reject or silently mangle. Returns all errors found (does not fail-fast).
func Validate(scene ir.Scene) []ValidationError {
	var errs []ValidationError

	seqs := make(map[string]ir.SequenceSpec, len(scene.Sequences))
	for _, spec := range scene.Sequences {
		field := "sequence." + spec.Name
		if _, dup := seqs[spec.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate sequence name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		seqs[spec.Name] = spec
		errs = append(errs, validateSequence(spec, field)...)
	}

	browsers := make(map[string]bool, len(scene.Browsers))
	for _, spec := range scene.Browsers {
		field := "browser." + spec.Name
		if browsers[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate browser name: %q", spec.Name),
				Code:    ErrDuplicateName,
			})
		}
		browsers[spec.Name] = true
		errs = append(errs, validateBrowser(spec, seqs, field)...)
	}
	errs = append(errs, validateProxies(scene, seqs)...)

	return errs
}

// validateProxies checks that Build can create every named proxy node. The
// first entry naming a proxy creates it with its sequence's item class;
// later entries borrow the node.
func validateProxies(scene ir.Scene, seqs map[string]ir.SequenceSpec) []ValidationError {
	var errs []ValidationError
	created := make(map[string]bool)
	for _, b := range scene.Browsers {
		for _, ss := range b.Synchronized {
			if ss.Proxy == "" || created[ss.Proxy] {
				continue
			}
			seq, ok := seqs[ss.Sequence]
			if !ok {
				continue
			}
			if itemClass(seq) == "" {
				errs = append(errs, ValidationError{
					Field:   "browser." + b.Name + ".synchronized." + ss.Sequence + ".proxy",
					Message: fmt.Sprintf("proxy %q cannot be created: sequence %q has no items and no class", ss.Proxy, seq.Name),
					Code:    ErrUnknownProxyClass,
				})
				continue
			}
			created[ss.Proxy] = true
		}
	}
	return errs
}

// itemClass is the class Build gives items and new proxies of spec.
func itemClass(spec ir.SequenceSpec) string {
	if len(spec.Items) > 0 && spec.Items[0].Class != "" {
		return spec.Items[0].Class
	}
	return spec.DataNodeClass
}

func validateSequence(spec ir.SequenceSpec, field string) []ValidationError {
	var errs []ValidationError

	indexType := timeline.Numeric
	if spec.IndexType != "" {
		t, ok := timeline.ParseIndexType(spec.IndexType)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".index_type",
				Message: fmt.Sprintf("invalid index type %q, must be \"numeric\" or \"text\"", spec.IndexType),
				Code:    ErrInvalidIndexType,
			})
		}
		indexType = t
	}

	tolerance := timeline.DefaultTolerance
	if spec.Tolerance != "" {
		tol, err := strconv.ParseFloat(spec.Tolerance, 64)
		if err != nil || tol < 0 || math.IsNaN(tol) {
			errs = append(errs, ValidationError{
				Field:   field + ".tolerance",
				Message: fmt.Sprintf("tolerance %q must be a non-negative number", spec.Tolerance),
				Code:    ErrInvalidTolerance,
			})
		} else {
			tolerance = tol
		}
	}

	if spec.DataNodeClass != "" && !isKnownClass(spec.DataNodeClass) {
		errs = append(errs, ValidationError{
			Field:   field + ".class",
			Message: fmt.Sprintf("unknown node class %q", spec.DataNodeClass),
			Code:    ErrUnknownClass,
		})
	}

	var numeric []float64
	seen := make(map[string]bool, len(spec.Items))
	for i, item := range spec.Items {
		itemField := fmt.Sprintf("%s.items[%d]", field, i)

		class := item.Class
		if class == "" {
			class = spec.DataNodeClass
		}
		switch {
		case class == "":
			errs = append(errs, ValidationError{
				Field:   itemField + ".class",
				Message: "item class is required when the sequence has no class",
				Code:    ErrUnknownClass,
			})
		case item.Class != "" && !isKnownClass(item.Class):
			errs = append(errs, ValidationError{
				Field:   itemField + ".class",
				Message: fmt.Sprintf("unknown node class %q", item.Class),
				Code:    ErrUnknownClass,
			})
		}

		if indexType == timeline.Text {
			if seen[item.IndexValue] {
				errs = append(errs, duplicateValue(itemField, item.IndexValue))
			}
			seen[item.IndexValue] = true
			continue
		}
		f, err := strconv.ParseFloat(item.IndexValue, 64)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   itemField + ".at",
				Message: fmt.Sprintf("index value %q is not a number", item.IndexValue),
				Code:    ErrInvalidIndexValue,
			})
			continue
		}
		for _, other := range numeric {
			if math.Abs(other-f) <= tolerance {
				errs = append(errs, duplicateValue(itemField, item.IndexValue))
				break
			}
		}
		numeric = append(numeric, f)
	}

	return errs
}

func duplicateValue(field, value string) ValidationError {
	return ValidationError{
		Field:   field + ".at",
		Message: fmt.Sprintf("another item is already at index value %q", value),
		Code:    ErrDuplicateIndexValue,
	}
}

func validateBrowser(spec ir.BrowserSpec, seqs map[string]ir.SequenceSpec, field string) []ValidationError {
	var errs []ValidationError

	master, hasMaster := seqs[spec.Master]
	if !hasMaster {
		errs = append(errs, ValidationError{
			Field:   field + ".master",
			Message: fmt.Sprintf("undefined sequence %q", spec.Master),
			Code:    ErrUndefinedSequence,
		})
	}

	entries := make(map[string]bool, len(spec.Synchronized))
	for _, ss := range spec.Synchronized {
		entryField := field + ".synchronized." + ss.Sequence
		if entries[ss.Sequence] {
			errs = append(errs, ValidationError{
				Field:   entryField,
				Message: fmt.Sprintf("sequence %q is synchronized twice", ss.Sequence),
				Code:    ErrDuplicateEntry,
			})
		}
		entries[ss.Sequence] = true

		seq, ok := seqs[ss.Sequence]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   entryField,
				Message: fmt.Sprintf("undefined sequence %q", ss.Sequence),
				Code:    ErrUndefinedSequence,
			})
		} else if hasMaster && knownIndexType(master) && knownIndexType(seq) && !compatible(master, seq) {
			errs = append(errs, ValidationError{
				Field:   entryField,
				Message: fmt.Sprintf("sequence %q is indexed by %s, master %q by %s", seq.Name, indexLabel(seq), master.Name, indexLabel(master)),
				Code:    ErrIncompatible,
			})
		}

		if ss.MissingItem != "" {
			if _, ok := browser.ParseMissingItemMode(ss.MissingItem); !ok {
				errs = append(errs, ValidationError{
					Field:   entryField + ".missing_item",
					Message: fmt.Sprintf("invalid missing item mode %q, must be \"createFromPrevious\", \"createFromDefault\" or \"setToDefault\"", ss.MissingItem),
					Code:    ErrInvalidMissingItem,
				})
			}
		}
	}

	if spec.PlaybackRateFps != "" {
		fps, err := strconv.ParseFloat(spec.PlaybackRateFps, 64)
		if err != nil || fps < 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
			errs = append(errs, ValidationError{
				Field:   field + ".playback_rate_fps",
				Message: fmt.Sprintf("playback rate %q must be a non-negative number", spec.PlaybackRateFps),
				Code:    ErrInvalidPlaybackRate,
			})
		}
	}
	if spec.RecordingSampling != "" {
		if _, ok := browser.ParseSamplingMode(spec.RecordingSampling); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".recording_sampling",
				Message: fmt.Sprintf("invalid recording sampling %q, must be \"all\" or \"limitedToPlaybackFrameRate\"", spec.RecordingSampling),
				Code:    ErrInvalidSampling,
			})
		}
	}
	if spec.IndexDisplayMode != "" {
		if _, ok := browser.ParseIndexDisplayMode(spec.IndexDisplayMode); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".index_display_mode",
				Message: fmt.Sprintf("invalid index display mode %q, must be \"index\" or \"indexValue\"", spec.IndexDisplayMode),
				Code:    ErrInvalidDisplayMode,
			})
		}
	}
	if spec.IndexDisplayFormat != "" {
		if _, _, _, ok := browser.FormatSpec(spec.IndexDisplayFormat); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".index_display_format",
				Message: fmt.Sprintf("format %q has no float or string verb", spec.IndexDisplayFormat),
				Code:    ErrInvalidFormat,
			})
		}
	}

	return errs
}

// compatible mirrors Sequence.IsCompatible on specs, filling in the
// defaults Build applies.
func compatible(a, b ir.SequenceSpec) bool {
	an, au, at := indexMetadata(a)
	bn, bu, bt := indexMetadata(b)
	return an == bn && au == bu && at == bt
}

func indexMetadata(spec ir.SequenceSpec) (name, unit, typ string) {
	name, unit, typ = sequence.DefaultIndexName, sequence.DefaultIndexUnit, "numeric"
	if spec.IndexName != "" {
		name = spec.IndexName
	}
	if spec.IndexUnit != "" {
		unit = spec.IndexUnit
	}
	if spec.IndexType != "" {
		typ = spec.IndexType
	}
	return name, unit, typ
}

// knownIndexType reports whether spec's index type parses. Unknown types
// are reported on the sequence alone.
func knownIndexType(spec ir.SequenceSpec) bool {
	if spec.IndexType == "" {
		return true
	}
	_, ok := timeline.ParseIndexType(spec.IndexType)
	return ok
}

func indexLabel(spec ir.SequenceSpec) string {
	name, unit, typ := indexMetadata(spec)
	return fmt.Sprintf("%s [%s, %s]", name, unit, typ)
}

func isKnownClass(class string) bool {
	return slices.Contains(node.DefaultFactory().Classes(), node.Class(class))
}
