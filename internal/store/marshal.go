package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/prepop/internal/ir"
)

// marshalObject converts an IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalObject(obj ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject parses JSON TEXT to IRObject.
// Large integers survive via json.Number; floats are rejected.
func unmarshalObject(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return ir.IRObject{}, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}
