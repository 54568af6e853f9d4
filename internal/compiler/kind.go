package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/prepop/internal/ir"
)

// Kind is a compiled kind declaration: the IR spec plus the CUE schema
// records are validated against on create.
type Kind struct {
	Spec ir.KindSpec

	// Schema is the declared schema struct. It does not exist when the kind
	// declares no schema.
	Schema cue.Value
}

// HasSchema reports whether the kind declared a schema.
func (k *Kind) HasSchema() bool {
	return k.Schema.Exists()
}

// CompileKind parses a CUE value into a Kind.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the kind struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`kind: user: { identity: ["username"] }`)
//	k, err := CompileKind(v.LookupPath(cue.ParsePath("kind.user")))
func CompileKind(v cue.Value) (*Kind, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	k := &Kind{}

	// Kind name is the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		k.Spec.Name = labels[len(labels)-1].String()
	}

	identity, err := parseIdentity(v)
	if err != nil {
		return nil, err
	}
	k.Spec.Identity = identity

	schemaVal := v.LookupPath(cue.ParsePath("schema"))
	if schemaVal.Exists() {
		fields, err := parseSchemaFields(schemaVal)
		if err != nil {
			return nil, err
		}
		k.Spec.Fields = fields
		k.Schema = schemaVal
	}

	resolve, err := parseResolve(v)
	if err != nil {
		return nil, err
	}
	k.Spec.Resolve = resolve

	// Fail on the first rule violation, with the kind's position.
	if errs := Validate(&k.Spec); len(errs) > 0 {
		return nil, &CompileError{
			Field:   errs[0].Field,
			Message: fmt.Sprintf("%s (%s)", errs[0].Message, errs[0].Code),
			Pos:     v.Pos(),
		}
	}

	return k, nil
}

// parseIdentity extracts the required identifying field list.
func parseIdentity(v cue.Value) ([]string, error) {
	identityVal := v.LookupPath(cue.ParsePath("identity"))
	if !identityVal.Exists() {
		return nil, &CompileError{
			Field:   "identity",
			Message: "identity is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := identityVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var identity []string
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		identity = append(identity, name)
	}
	return identity, nil
}

// parseSchemaFields extracts field types from the schema struct, in
// declaration order.
func parseSchemaFields(schemaVal cue.Value) ([]ir.FieldSpec, error) {
	iter, err := schemaVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []ir.FieldSpec
	for iter.Next() {
		fieldType, nullable, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, ir.FieldSpec{
			Name:     iter.Selector().Unquoted(),
			Type:     fieldType,
			Optional: iter.Selector().ConstraintType() == cue.OptionalConstraint,
			Nullable: nullable,
		})
	}
	return fields, nil
}

// parseResolve extracts field transforms, in declaration order.
func parseResolve(v cue.Value) ([]ir.FieldTransform, error) {
	resolveVal := v.LookupPath(cue.ParsePath("resolve"))
	if !resolveVal.Exists() {
		return nil, nil // resolve is optional
	}

	iter, err := resolveVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var resolve []ir.FieldTransform
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "resolve",
				Message: fmt.Sprintf("transform for field %q must be a string", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		resolve = append(resolve, ir.FieldTransform{Field: iter.Label(), Transform: name})
	}
	return resolve, nil
}

// extractTypeName converts CUE type to IR type string. A null disjunct
// (`*null | string`) marks the field nullable.
// Floats are forbidden.
func extractTypeName(v cue.Value) (string, bool, error) {
	kind := v.IncompleteKind()
	if kind == cue.TopKind {
		return "any", false, nil
	}

	nullable := kind&cue.NullKind != 0 && kind != cue.NullKind
	if nullable {
		kind &^= cue.NullKind
	}

	switch kind {
	case cue.StringKind:
		return "string", nullable, nil
	case cue.IntKind:
		return "int", nullable, nil
	case cue.BoolKind:
		return "bool", nullable, nil
	case cue.ListKind:
		return "array", nullable, nil
	case cue.StructKind:
		return "object", nullable, nil
	case cue.FloatKind, cue.NumberKind:
		return "", false, &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", false, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

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
