package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prepop/internal/ir"
)

func compileKind(t *testing.T, src, path string) (*Kind, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("kinds.cue"))
	require.NoError(t, v.Err())
	return CompileKind(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileKindBasic(t *testing.T) {
	k, err := compileKind(t, `
		kind: user: {
			identity: ["username"]
			schema: {
				username: string
				email:    string
				age?:     int
				team?:    _
				manager:  *null | string
				tags:     [...string]
				meta:     {...}
				active:   bool
			}
			resolve: email: "lower"
		}
	`, "kind.user")
	require.NoError(t, err)

	assert.Equal(t, "user", k.Spec.Name)
	assert.Equal(t, []string{"username"}, k.Spec.Identity)
	assert.True(t, k.HasSchema())
	assert.Equal(t, []ir.FieldSpec{
		{Name: "username", Type: "string"},
		{Name: "email", Type: "string"},
		{Name: "age", Type: "int", Optional: true},
		{Name: "team", Type: "any", Optional: true},
		{Name: "manager", Type: "string", Nullable: true},
		{Name: "tags", Type: "array"},
		{Name: "meta", Type: "object"},
		{Name: "active", Type: "bool"},
	}, k.Spec.Fields)
	assert.Equal(t, []ir.FieldTransform{{Field: "email", Transform: "lower"}}, k.Spec.Resolve)
}

func TestCompileKindWithoutSchema(t *testing.T) {
	k, err := compileKind(t, `kind: team: identity: ["name"]`, "kind.team")
	require.NoError(t, err)

	assert.False(t, k.HasSchema())
	assert.Empty(t, k.Spec.Fields)
	assert.Empty(t, k.Spec.Resolve)
}

func TestCompileKindResolveKeepsDeclarationOrder(t *testing.T) {
	k, err := compileKind(t, `
		kind: user: {
			identity: ["username"]
			resolve: {
				username: "trim"
				email:    "lower"
				token:    "blake3"
			}
		}
	`, "kind.user")
	require.NoError(t, err)

	var fields []string
	for _, r := range k.Spec.Resolve {
		fields = append(fields, r.Field)
	}
	assert.Equal(t, []string{"username", "email", "token"}, fields)
}

func TestCompileKindErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing identity",
			src:       `kind: bad: schema: name: string`,
			wantField: "identity",
			wantMsg:   "identity is required",
		},
		{
			name:      "empty identity",
			src:       `kind: bad: identity: []`,
			wantField: "identity",
			wantMsg:   ErrKindNoIdentity,
		},
		{
			name:      "unknown transform",
			src:       `kind: bad: { identity: ["name"], resolve: name: "rot13" }`,
			wantField: "resolve[0]",
			wantMsg:   "unknown transform",
		},
		{
			name:      "non-string transform",
			src:       `kind: bad: { identity: ["name"], resolve: name: 3 }`,
			wantField: "resolve",
			wantMsg:   "must be a string",
		},
		{
			name:      "float field",
			src:       `kind: bad: { identity: ["name"], schema: { name: string, score: float } }`,
			wantField: "type",
			wantMsg:   "float types are forbidden",
		},
		{
			name:      "number field",
			src:       `kind: bad: { identity: ["name"], schema: { name: string, score: number } }`,
			wantField: "type",
			wantMsg:   "float types are forbidden",
		},
		{
			name:      "identity not in schema",
			src:       `kind: bad: { identity: ["id"], schema: name: string }`,
			wantField: "identity[0]",
			wantMsg:   ErrIdentityNotInSchema,
		},
		{
			name:      "mixed type",
			src:       `kind: bad: { identity: ["id"], schema: id: string | int }`,
			wantField: "type",
			wantMsg:   "unsupported type kind",
		},
		{
			name:      "bad kind name",
			src:       `kind: BadName: identity: ["id"]`,
			wantField: "name",
			wantMsg:   ErrInvalidKindName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := cuecontext.New()
			v := ctx.CompileString(tt.src, cue.Filename("kinds.cue"))
			require.NoError(t, v.Err())

			iter, err := v.LookupPath(cue.ParsePath("kind")).Fields()
			require.NoError(t, err)
			require.True(t, iter.Next())

			_, err = CompileKind(iter.Value())
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Contains(t, ce.Message, tt.wantMsg)
		})
	}
}

func TestCompileKindCUEError(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		kind: bad: {
			identity: ["a"]
			identity: ["b"]
		}
	`, cue.Filename("kinds.cue"))

	_, err := CompileKind(v.LookupPath(cue.ParsePath("kind.bad")))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "kinds.cue:")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{Field: "identity", Message: "identity is required"}
	assert.Equal(t, "identity: identity is required", err.Error())
}
