package declare

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/roach88/prepop/internal/ir"
)

// Module is one parsed declaration file.
type Module struct {
	Name         string
	Declarations []Declaration
}

// Declaration is one fixture as written in a module. Data is validated but
// not yet linked: references stay as labels until Build.
type Declaration struct {
	Kind  string
	Label string
	Line  int
	Refs  []string // labels referenced from data, in walk order

	index int
	data  *yaml.Node
}

// file is the on-disk shape of a module.
type file struct {
	Fixtures []struct {
		Kind  string    `yaml:"kind"`
		Label string    `yaml:"label"`
		Data  yaml.Node `yaml:"data"`
	} `yaml:"fixtures"`
}

// ReadFile reads and parses a module. Files ending in .json or .jsonc are
// read as JSONC; anything else as YAML.
func ReadFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return ParseJSONC(path, data)
	default:
		return Parse(path, data)
	}
}

// ParseJSONC strips comments and trailing commas, then parses the result.
// JSON is a subset of YAML, so the same decoder handles both.
func ParseJSONC(name string, data []byte) (*Module, error) {
	return Parse(name, jsonc.ToJSON(data))
}

// Parse parses a YAML module. Unknown fields are rejected.
func Parse(name string, data []byte) (*Module, error) {
	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m := &Module{Name: name}
	for i, fx := range f.Fixtures {
		d := Declaration{
			Kind:  fx.Kind,
			Label: fx.Label,
			Line:  fx.Data.Line,
			index: i,
		}
		if fx.Kind == "" {
			return nil, m.errorf(d, "kind is required")
		}

		if fx.Data.Kind != 0 {
			d.data = &fx.Data
			if d.data.Kind == yaml.DocumentNode && len(d.data.Content) > 0 {
				d.data = d.data.Content[0]
			}
			if d.data.Kind != yaml.MappingNode || isRefNode(d.data) {
				return nil, m.errorf(d, "data must be a mapping")
			}

			// A dry conversion validates values and collects labels.
			_, err := convert(d.data, func(label string) (ir.IRValue, error) {
				d.Refs = append(d.Refs, label)
				return ir.IRNull{}, nil
			})
			if err != nil {
				var ve *valueError
				if errors.As(err, &ve) {
					d.Line = ve.line
					return nil, m.errorf(d, "%s", ve.msg)
				}
				return nil, m.errorf(d, "%v", err)
			}
		}

		m.Declarations = append(m.Declarations, d)
	}

	return m, nil
}

func (m *Module) errorf(d Declaration, format string, args ...any) *Error {
	return &Error{
		Module:  m.Name,
		Index:   d.index,
		Line:    d.Line,
		Message: fmt.Sprintf(format, args...),
	}
}
