package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/slicer/sequences/internal/ir"
)

// CompileScene parses a scene description into an ir.Scene.
//
// The CUE value is the root of the description, e.g.:
//
//	sequence: heart: {
//		index_name: "time"
//		items: [{at: 0, class: "Scalar", content: {value: 1.5}}]
//	}
//	browser: review: {
//		master: "heart"
//		synchronized: probe: {save_changes: true}
//	}
//
// Sequences and browsers are returned in declaration order. The first error
// stops compilation; use Validate on the result for cross-reference checks.
func CompileScene(v cue.Value) (ir.Scene, error) {
	var scene ir.Scene
	if err := v.Err(); err != nil {
		return scene, formatCUEError(err)
	}

	if seqs := v.LookupPath(cue.ParsePath("sequence")); seqs.Exists() {
		iter, err := seqs.Fields()
		if err != nil {
			return scene, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileSequence(iter.Value())
			if err != nil {
				return scene, err
			}
			scene.Sequences = append(scene.Sequences, *spec)
		}
	}

	if browsers := v.LookupPath(cue.ParsePath("browser")); browsers.Exists() {
		iter, err := browsers.Fields()
		if err != nil {
			return scene, formatCUEError(err)
		}
		for iter.Next() {
			spec, err := CompileBrowser(iter.Value())
			if err != nil {
				return scene, err
			}
			scene.Browsers = append(scene.Browsers, *spec)
		}
	}

	return scene, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error formats the error with its CUE position when known.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// label returns the last path selector of v, unquoted.
func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	last := sels[len(sels)-1]
	if last.LabelType() == cue.StringLabel {
		return last.Unquoted()
	}
	return last.String()
}

// optionalString reads an optional string field. Missing fields return "".
func optionalString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

// optionalBool reads an optional bool field, returning def when it is missing.
func optionalBool(v cue.Value, field string, def bool) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return def, &CompileError{Field: field, Message: "must be a bool", Pos: f.Pos()}
	}
	return b, nil
}

// optionalDecimal reads an optional number (or decimal string) field and
// returns it as a decimal string. Missing fields return "".
func optionalDecimal(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	return decimal(f, field)
}

// decimal renders a concrete number as a decimal string. Strings are
// accepted when they parse as numbers.
func decimal(v cue.Value, field string) (string, error) {
	switch v.Kind() {
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return "", &CompileError{Field: field, Message: "integer out of range", Pos: v.Pos()}
		}
		return strconv.FormatInt(i, 10), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return "", &CompileError{Field: field, Message: "number out of range", Pos: v.Pos()}
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case cue.StringKind:
		s, _ := v.String()
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", &CompileError{Field: field, Message: fmt.Sprintf("%q is not a number", s), Pos: v.Pos()}
		}
		return s, nil
	default:
		return "", &CompileError{Field: field, Message: "must be a number", Pos: v.Pos()}
	}
}

// toIR converts a concrete CUE value into an ir.Value. Floats become
// decimal strings; null and incomplete values are rejected.
func toIR(v cue.Value, field string) (ir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		return ir.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "integer out of range", Pos: v.Pos()}
		}
		return ir.Int(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "number out of range", Pos: v.Pos()}
		}
		return ir.Float(f), nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := ir.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIR(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, elem)
		}
		return list, nil
	case cue.StructKind:
		return toObject(v, field)
	case cue.NullKind:
		return nil, &CompileError{Field: field, Message: "null is not allowed", Pos: v.Pos()}
	default:
		return nil, &CompileError{Field: field, Message: "value must be concrete", Pos: v.Pos()}
	}
}

func toObject(v cue.Value, field string) (ir.Object, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	obj := ir.Object{}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		val, err := toIR(iter.Value(), field+"."+key)
		if err != nil {
			return nil, err
		}
		obj[key] = val
	}
	return obj, nil
}
