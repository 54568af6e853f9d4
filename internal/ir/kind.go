package ir

import "slices"

// KindSpec is a compiled fixture kind declaration.
type KindSpec struct {
	Name     string           `json:"name"`
	Identity []string         `json:"identity"`          // identifying fields, in declaration order
	Fields   []FieldSpec      `json:"fields,omitempty"`  // schema fields, empty when no schema declared
	Resolve  []FieldTransform `json:"resolve,omitempty"` // applied in declaration order
}

// FieldSpec describes one schema field.
type FieldSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Nullable bool   `json:"nullable,omitempty"`
}

// FieldTransform binds a named transform to a field.
type FieldTransform struct {
	Field     string `json:"field"`
	Transform string `json:"transform"`
}

// ValidTypes defines the allowed schema field types.
// NO "float" - floats are forbidden in IR.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
	"any":    true,
}

// ValidTransforms defines the field transform names a kind may declare.
var ValidTransforms = map[string]bool{
	"lower":  true,
	"upper":  true,
	"trim":   true,
	"nfc":    true,
	"blake3": true,
}

// Field returns the schema field with the given name.
func (k *KindSpec) Field(name string) (FieldSpec, bool) {
	i := slices.IndexFunc(k.Fields, func(f FieldSpec) bool { return f.Name == name })
	if i < 0 {
		return FieldSpec{}, false
	}
	return k.Fields[i], true
}
