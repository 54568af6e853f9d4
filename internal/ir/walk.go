package ir

import "errors"

// Step is a visitor's decision for one node of a Walk.
type Step struct {
	value     IRValue
	terminate bool
}

// Continue lets Walk keep the node and recurse into it.
func Continue() Step {
	return Step{}
}

// Terminate substitutes v for the visited node. Walk does not recurse into
// v, even when v is an array or object.
func Terminate(v IRValue) Step {
	return Step{value: v, terminate: true}
}

// VisitFunc is called for every node of a Walk, parents before children.
// Returning an error stops the walk with that error.
type VisitFunc func(IRValue) (Step, error)

// Walk returns a copy of v in which every node has been passed to visit.
//
// Arrays are walked in index order and objects in key declaration order, so
// visits happen depth-first in document order. The input is never mutated.
// Walk does not detect cycles; v must be a finite tree.
func Walk(v IRValue, visit VisitFunc) (IRValue, error) {
	step, err := visit(v)
	if err != nil {
		return nil, err
	}
	if step.terminate {
		return step.value, nil
	}

	switch val := v.(type) {
	case IRArray:
		if val == nil {
			return val, nil
		}
		out := make(IRArray, len(val))
		for i, elem := range val {
			w, err := Walk(elem, visit)
			if err != nil {
				return nil, err
			}
			out[i] = w
		}
		return out, nil
	case IRObject:
		if val.Len() == 0 {
			return val, nil
		}
		pairs := make([]IRPair, len(val.keys))
		for i, k := range val.keys {
			w, err := Walk(val.fields[k], visit)
			if err != nil {
				return nil, err
			}
			pairs[i] = IRPair{Key: k, Value: w}
		}
		return NewIRObject(pairs...), nil
	default:
		return v, nil
	}
}

// errFound stops Find's walk at the first match.
var errFound = errors.New("ir: found")

// Find returns the first node of v, in Walk order, for which match is true.
func Find(v IRValue, match func(IRValue) bool) (IRValue, bool) {
	var found IRValue
	_, err := Walk(v, func(node IRValue) (Step, error) {
		if match(node) {
			found = node
			return Step{}, errFound
		}
		return Continue(), nil
	})
	return found, errors.Is(err, errFound)
}

// FirstUnresolvable returns the first unresolvable marker inside v.
func FirstUnresolvable(v IRValue) (IRUnresolvable, bool) {
	found, ok := Find(v, IsUnresolvable)
	if !ok {
		return IRUnresolvable{}, false
	}
	return found.(IRUnresolvable), true
}
