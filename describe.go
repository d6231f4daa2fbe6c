package graceful

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Description is the self-documentation of a single field or parameter.
type Description map[string]any

// Described is a named description.
type Described struct {
	Name        string
	Description Description
}

// Descriptions keeps descriptions in registry order. It marshals to a JSON
// or YAML object whose keys follow that order.
type Descriptions []Described

// Get returns the description registered under name.
func (ds Descriptions) Get(name string) (Description, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d.Description, true
		}
	}
	return nil, false
}

// Names returns the described names in order.
func (ds Descriptions) Names() []string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}

// MarshalJSON writes an object with keys in registry order.
func (ds Descriptions) MarshalJSON() ([]byte, error) {
	if ds == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range ds {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML returns a mapping node with keys in registry order.
func (ds Descriptions) MarshalYAML() (any, error) {
	if ds == nil {
		return nil, nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, d := range ds {
		var val yaml.Node
		if err := val.Encode(d.Description); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Name},
			&val,
		)
	}
	return node, nil
}

// cleanDoc removes the indentation that multi-line details inherit from the
// surrounding source code, along with leading and trailing blank lines.
func cleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")

	indent := math.MaxInt
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		indent = min(indent, len(line)-len(stripped))
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if indent < math.MaxInt {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= indent {
				lines[i] = lines[i][indent:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
