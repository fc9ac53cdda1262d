package store

import (
	"fmt"

	"github.com/slicer/sequences/internal/ir"
)

// marshalContent converts node content to canonical JSON TEXT for storage,
// so identical content is stored byte-identically.
func marshalContent(content ir.Object) (string, error) {
	if content == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}
	return string(data), nil
}

// unmarshalContent parses canonical JSON TEXT back into node content.
func unmarshalContent(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	obj, err := ir.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return obj, nil
}
