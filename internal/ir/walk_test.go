package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replaceRefs substitutes every reference with the referent's name.
func replaceRefs(v IRValue) (Step, error) {
	if ref, ok := v.(IRRef); ok {
		return Terminate(IRString(ref.Target.String())), nil
	}
	return Continue(), nil
}

func TestWalkIdentityWhenNothingMatches(t *testing.T) {
	data := NewIRObject(
		O("name", IRString("alice")),
		O("tags", NewIRArray(IRString("a"), NewIRObject(O("k", IRInt(1))))),
		O("empty", IRObject{}),
		O("none", IRArray(nil)),
	)

	out, err := Walk(data, replaceRefs)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestWalkSubstitutesAtAnyDepth(t *testing.T) {
	ref := IRRef{Target: named("department")}

	tests := []struct {
		name string
		in   IRValue
		want IRValue
	}{
		{"root", ref, IRString("department")},
		{"in array", NewIRArray(IRInt(1), ref), NewIRArray(IRInt(1), IRString("department"))},
		{
			"in object",
			NewIRObject(O("a", IRInt(1)), O("dept", ref)),
			NewIRObject(O("a", IRInt(1)), O("dept", IRString("department"))),
		},
		{
			"deep",
			NewIRObject(O("staff", NewIRArray(NewIRObject(O("id", IRInt(12)), O("dept", ref))))),
			NewIRObject(O("staff", NewIRArray(NewIRObject(O("id", IRInt(12)), O("dept", IRString("department")))))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Walk(tt.in, replaceRefs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestWalkDoesNotRecurseIntoTerminatedValue(t *testing.T) {
	inner := IRRef{Target: named("inner")}
	replacement := NewIRArray(inner, NewIRObject(O("x", inner)))

	var visits int
	out, err := Walk(NewIRObject(O("a", IRRef{Target: named("outer")})), func(v IRValue) (Step, error) {
		visits++
		if ref, ok := v.(IRRef); ok && ref.Target.String() == "outer" {
			return Terminate(replacement), nil
		}
		if IsRef(v) {
			t.Fatalf("walk recursed into terminated value")
		}
		return Continue(), nil
	})
	require.NoError(t, err)

	got, _ := out.(IRObject).Get("a")
	assert.Equal(t, replacement, got)
	assert.Equal(t, 2, visits) // the object and the outer reference
}

func TestWalkVisitsInDocumentOrder(t *testing.T) {
	data := NewIRObject(
		O("z", NewIRArray(IRString("z0"), IRString("z1"))),
		O("a", IRString("a")),
	)

	var seen []string
	_, err := Walk(data, func(v IRValue) (Step, error) {
		if s, ok := v.(IRString); ok {
			seen = append(seen, string(s))
		}
		return Continue(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z0", "z1", "a"}, seen)
}

func TestWalkDoesNotMutateInput(t *testing.T) {
	arr := NewIRArray(IRRef{Target: named("x")})
	data := NewIRObject(O("list", arr))

	_, err := Walk(data, replaceRefs)
	require.NoError(t, err)

	assert.Equal(t, IRRef{Target: named("x")}, arr[0])
	got, _ := data.Get("list")
	assert.Equal(t, arr, got)
}

func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var visits int

	_, err := Walk(NewIRArray(IRInt(1), IRInt(2), IRInt(3)), func(v IRValue) (Step, error) {
		visits++
		if v == IRInt(2) {
			return Step{}, boom
		}
		return Continue(), nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, visits) // array, 1, 2
}

func TestFindFirstMatchDepthFirst(t *testing.T) {
	bad1 := IRUnresolvable{Target: named("bad_ref")}
	bad2 := IRUnresolvable{Target: named("bad_ref2")}
	data := NewIRObject(
		O("x", NewIRArray(IRString("ok"), bad1)),
		O("y", bad2),
	)

	marker, ok := FirstUnresolvable(data)
	require.True(t, ok)
	assert.Equal(t, "bad_ref", marker.Target.String())
}

func TestFindNoMatch(t *testing.T) {
	_, ok := FirstUnresolvable(NewIRObject(O("a", IRInt(1))))
	assert.False(t, ok)

	_, ok = Find(IRArray{}, func(IRValue) bool { return false })
	assert.False(t, ok)
}
