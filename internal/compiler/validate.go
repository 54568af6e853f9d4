package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/prepop/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// KindSpec errors (E101-E109)
	ErrKindNoIdentity          = "E101" // at least one identifying field required
	ErrUnknownTransform        = "E102" // resolve names an unknown transform
	ErrIdentityNotInSchema     = "E103" // identifying field missing or optional in schema
	ErrInvalidFieldType        = "E104" // invalid type string
	ErrDuplicateName           = "E105" // duplicate kind or identifying field name
	ErrFloatTypeForbidden      = "E106" // float types not allowed
	ErrInvalidKindName         = "E107" // kind name format
	ErrTransformFieldNotString = "E108" // transform on a non-string field
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

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports a single KindSpec or a kind set.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.KindSpec:
		return validateKindSpec(spec)
	case ir.KindSpec:
		return validateKindSpec(&spec)
	case []ir.KindSpec:
		return validateKindSet(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// kindNamePattern matches lower snake case kind names.
var kindNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validateKindSpec validates a kind declaration.
func validateKindSpec(spec *ir.KindSpec) []ValidationError {
	var errs []ValidationError

	// E107: kind name format
	if !kindNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid kind name %q, expected lower snake case", spec.Name),
			Code:    ErrInvalidKindName,
		})
	}

	// E101: identity is required
	if len(spec.Identity) == 0 {
		errs = append(errs, ValidationError{
			Field:   "identity",
			Message: "at least one identifying field is required",
			Code:    ErrKindNoIdentity,
		})
	}

	seen := make(map[string]bool)
	for i, name := range spec.Identity {
		// E105: duplicate identifying field
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("identity[%d]", i),
				Message: fmt.Sprintf("duplicate identifying field %q", name),
				Code:    ErrDuplicateName,
			})
		}
		seen[name] = true

		// E103: identity lookups need the field on every record
		if len(spec.Fields) > 0 {
			f, ok := spec.Field(name)
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("identity[%d]", i),
					Message: fmt.Sprintf("identifying field %q is not in schema", name),
					Code:    ErrIdentityNotInSchema,
				})
			case f.Optional:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("identity[%d]", i),
					Message: fmt.Sprintf("identifying field %q must not be optional", name),
					Code:    ErrIdentityNotInSchema,
				})
			}
		}
	}

	for i, f := range spec.Fields {
		errs = append(errs, validateFieldType(f.Type, fmt.Sprintf("fields[%d].type", i), f.Name)...)
	}

	for i, r := range spec.Resolve {
		// E102: unknown transform
		if !ir.ValidTransforms[r.Transform] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("resolve[%d]", i),
				Message: fmt.Sprintf("unknown transform %q for field %q", r.Transform, r.Field),
				Code:    ErrUnknownTransform,
			})
		}

		// E108: transforms operate on strings
		if f, ok := spec.Field(r.Field); ok && f.Type != "string" && f.Type != "any" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("resolve[%d]", i),
				Message: fmt.Sprintf("transform %q needs a string field, %q is %s", r.Transform, r.Field, f.Type),
				Code:    ErrTransformFieldNotString,
			})
		}
	}

	return errs
}

// validateKindSet validates every kind and checks names are unique.
func validateKindSet(specs []ir.KindSpec) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)

	for i := range specs {
		// E105: duplicate kind name
		if names[specs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("kinds[%d].name", i),
				Message: fmt.Sprintf("duplicate kind name: %q", specs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		names[specs[i].Name] = true

		for _, e := range validateKindSpec(&specs[i]) {
			e.Field = fmt.Sprintf("kinds[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}

	return errs
}

// validateFieldType validates a type string, returning errors for invalid types and floats.
func validateFieldType(fieldType, fieldPath, fieldName string) []ValidationError {
	var errs []ValidationError

	// E104: check for valid type
	if !ir.ValidTypes[fieldType] {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("invalid type %q for field %q", fieldType, fieldName),
			Code:    ErrInvalidFieldType,
		})
	}

	// E106: float forbidden (explicit check even if not in valid types)
	if isFloatType(fieldType) {
		errs = append(errs, ValidationError{
			Field:   fieldPath,
			Message: fmt.Sprintf("float type forbidden for field %q, use int instead", fieldName),
			Code:    ErrFloatTypeForbidden,
		})
	}

	return errs
}

// isFloatType checks if a type string represents a float type.
func isFloatType(t string) bool {
	floatTypes := map[string]bool{
		"float":   true,
		"float32": true,
		"float64": true,
		"number":  true,
		"double":  true,
	}
	return floatTypes[t]
}
