package ir

// Referent is a declaration that can be embedded in another declaration's
// data and later replaced by a concrete value.
type Referent interface {
	String() string
}

// IRRef is an embedded reference to another declaration. References only
// appear in raw data; resolved data holds a concrete value or an
// IRUnresolvable in their place.
type IRRef struct {
	Target Referent
}

func (IRRef) irValue() {}

// IRUnresolvable marks a reference whose target could not be turned into a
// concrete value.
type IRUnresolvable struct {
	Target Referent
}

func (IRUnresolvable) irValue() {}

// IsUnresolvable reports whether v is an unresolvable marker.
func IsUnresolvable(v IRValue) bool {
	_, ok := v.(IRUnresolvable)
	return ok
}

// IsRef reports whether v is a reference.
func IsRef(v IRValue) bool {
	_, ok := v.(IRRef)
	return ok
}

func referentName(r Referent) string {
	if r == nil {
		return "<nil>"
	}
	return r.String()
}
