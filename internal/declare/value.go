package declare

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/prepop/internal/ir"
)

const (
	refTag = "!ref"
	refKey = "$ref"
)

// valueError is a conversion failure at a source line.
type valueError struct {
	line int
	msg  string
}

func (e *valueError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

func valueErrorf(n *yaml.Node, format string, args ...any) *valueError {
	return &valueError{line: n.Line, msg: fmt.Sprintf(format, args...)}
}

// refFunc returns the value a reference to label stands for.
type refFunc func(label string) (ir.IRValue, error)

// convert turns a YAML node into an IR value, calling ref for every
// reference. Mapping keys keep their source order.
func convert(n *yaml.Node, ref refFunc) (ir.IRValue, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ir.IRNull{}, nil
		}
		return convert(n.Content[0], ref)

	case yaml.AliasNode:
		return convert(n.Alias, ref)

	case yaml.SequenceNode:
		if n.Tag == refTag {
			return nil, valueErrorf(n, "!ref must tag a label, not a sequence")
		}
		arr := make(ir.IRArray, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c, ref)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil

	case yaml.MappingNode:
		if n.Tag == refTag {
			return nil, valueErrorf(n, "!ref must tag a label, not a mapping")
		}
		if label, ok, err := refLabel(n); err != nil {
			return nil, err
		} else if ok {
			return ref(label)
		}

		pairs := make([]ir.IRPair, 0, len(n.Content)/2)
		seen := make(map[string]bool, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, valueErrorf(k, "mapping keys must be strings")
			}
			if seen[k.Value] {
				return nil, valueErrorf(k, "duplicate key %q", k.Value)
			}
			seen[k.Value] = true

			val, err := convert(v, ref)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ir.O(k.Value, val))
		}
		return ir.NewIRObject(pairs...), nil

	case yaml.ScalarNode:
		return convertScalar(n, ref)
	}

	return nil, valueErrorf(n, "unsupported node")
}

func convertScalar(n *yaml.Node, ref refFunc) (ir.IRValue, error) {
	if n.Tag == refTag {
		if n.Value == "" {
			return nil, valueErrorf(n, "!ref needs a label")
		}
		return ref(n.Value)
	}

	switch n.ShortTag() {
	case "!!str", "!!timestamp":
		return ir.IRString(n.Value), nil
	case "!!null":
		return ir.IRNull{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, valueErrorf(n, "invalid bool %q", n.Value)
		}
		return ir.IRBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, valueErrorf(n, "integer %s out of range", n.Value)
		}
		return ir.IRInt(i), nil
	case "!!float":
		return nil, valueErrorf(n, "float value %s is not supported, use int or string", n.Value)
	default:
		return nil, valueErrorf(n, "unsupported tag %s", n.Tag)
	}
}

// refLabel recognizes the {$ref: label} form.
func refLabel(n *yaml.Node) (string, bool, error) {
	if !isRefNode(n) {
		return "", false, nil
	}
	if len(n.Content) != 2 {
		return "", false, valueErrorf(n, "%s must be the only key of its mapping", refKey)
	}
	v := n.Content[1]
	if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" || v.Value == "" {
		return "", false, valueErrorf(v, "%s needs a label", refKey)
	}
	return v.Value, true, nil
}

func isRefNode(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == refKey {
			return true
		}
	}
	return false
}
