package ruleset

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a complete ruleset from a YAML file. An empty path returns Default.
//
// Precondition: path, when set, must name a readable YAML file.
// Postcondition: Returns a validated Ruleset or a non-nil error.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ruleset %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a ruleset document. Unknown keys are rejected.
func Parse(data []byte) (*Ruleset, error) {
	var r Ruleset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing ruleset: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
