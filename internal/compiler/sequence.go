package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/slicer/sequences/internal/ir"
)

// CompileSequence parses a CUE value into a SequenceSpec.
//
// The CUE value should be the sequence struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`sequence: heart: { ... }`)
//	spec, err := CompileSequence(v.LookupPath(cue.ParsePath("sequence.heart")))
//
// Index metadata left out keeps the sequence defaults (time in seconds,
// numeric). Items are listed in declaration order; each needs an index
// value under "at".
func CompileSequence(v cue.Value) (*ir.SequenceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SequenceSpec{Name: label(v)}

	var err error
	if spec.IndexName, err = optionalString(v, "index_name"); err != nil {
		return nil, err
	}
	if spec.IndexUnit, err = optionalString(v, "index_unit"); err != nil {
		return nil, err
	}
	if spec.IndexType, err = optionalString(v, "index_type"); err != nil {
		return nil, err
	}
	if spec.Tolerance, err = optionalDecimal(v, "tolerance"); err != nil {
		return nil, err
	}
	if spec.DataNodeClass, err = optionalString(v, "class"); err != nil {
		return nil, err
	}

	spec.Items, err = parseItems(v, spec.IndexType == "text")
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseItems extracts the item list. Items without a class inherit the
// sequence class.
func parseItems(v cue.Value, textIndex bool) ([]ir.ItemSpec, error) {
	itemsVal := v.LookupPath(cue.ParsePath("items"))
	if !itemsVal.Exists() {
		return nil, nil
	}
	iter, err := itemsVal.List()
	if err != nil {
		return nil, &CompileError{Field: "items", Message: "must be a list", Pos: itemsVal.Pos()}
	}

	var items []ir.ItemSpec
	for i := 0; iter.Next(); i++ {
		itemVal := iter.Value()
		field := fmt.Sprintf("items[%d]", i)

		at := itemVal.LookupPath(cue.ParsePath("at"))
		if !at.Exists() {
			return nil, &CompileError{
				Field:   field + ".at",
				Message: "index value is required",
				Pos:     itemVal.Pos(),
			}
		}
		var item ir.ItemSpec
		if textIndex {
			s, err := at.String()
			if err != nil {
				return nil, &CompileError{Field: field + ".at", Message: "text index values must be strings", Pos: at.Pos()}
			}
			item.IndexValue = s
		} else if item.IndexValue, err = decimal(at, field+".at"); err != nil {
			return nil, err
		}

		if item.Class, err = optionalString(itemVal, "class"); err != nil {
			return nil, err
		}
		if item.Name, err = optionalString(itemVal, "name"); err != nil {
			return nil, err
		}
		if contentVal := itemVal.LookupPath(cue.ParsePath("content")); contentVal.Exists() {
			if contentVal.Kind() != cue.StructKind {
				return nil, &CompileError{Field: field + ".content", Message: "must be a struct", Pos: contentVal.Pos()}
			}
			if item.Content, err = toObject(contentVal, field+".content"); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}
