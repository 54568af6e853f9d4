package kind

import (
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/prepop/internal/fixture"
	"github.com/roach88/prepop/internal/ir"
)

// transformFunc rewrites one string value.
type transformFunc func(string) string

// transforms are the named field transforms a kind's resolve table can use.
// cases.Caser is stateful, so each call builds its own.
var transforms = map[string]transformFunc{
	"lower": func(s string) string { return cases.Lower(language.Und).String(s) },
	"upper": func(s string) string { return cases.Upper(language.Und).String(s) },
	"trim":  strings.TrimSpace,
	"nfc":   norm.NFC.String,
	"blake3": func(s string) string {
		sum := blake3.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	},
}

// Transforms returns the names of the built-in transforms, sorted.
func Transforms() []string {
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// fieldResolver wraps a named transform as a field resolver. Null passes
// through unchanged; any other non-string value is an error.
func fieldResolver(field, name string) (fixture.FieldResolver, error) {
	fn, ok := transforms[name]
	if !ok {
		return fixture.FieldResolver{}, fmt.Errorf("unknown transform %q for field %q", name, field)
	}

	return fixture.Field(field, func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		switch val := v.(type) {
		case ir.IRString:
			return ir.IRString(fn(string(val))), nil
		case ir.IRNull:
			return val, nil
		default:
			return nil, fmt.Errorf("transform %q needs a string, got %T", name, v)
		}
	}), nil
}
