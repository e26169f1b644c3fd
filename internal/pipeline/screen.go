package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadScreen reads a screen definition from a YAML (or JSON) file
func LoadScreen(path string) (Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Filter{}, fmt.Errorf("read screen: %w", err)
	}
	return DecodeScreen(data)
}

// DecodeScreen parses and validates a screen definition
// Unknown fields are rejected so that typos fail loudly.
func DecodeScreen(data []byte) (Filter, error) {
	var f Filter
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Filter{}, fmt.Errorf("decode screen: %w", err)
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// EncodeScreen renders a screen as YAML
func EncodeScreen(f Filter) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode screen: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
