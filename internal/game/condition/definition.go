// Package condition holds the status effects a sheet can toggle on an actor,
// each scoped to the actor types it applies to.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// StatusDef is the static definition of a status effect, loaded from YAML.
type StatusDef struct {
	ID string `yaml:"id"`
	// Name is a catalog key, e.g. "KNW.Status.broken".
	Name        string `yaml:"name"`
	Img         string `yaml:"img"`
	Description string `yaml:"description"`
	// Types lists the actor types the status may be applied to.
	Types []string `yaml:"types"`
}

// AppliesTo reports whether the status is scoped to actorType.
func (d *StatusDef) AppliesTo(actorType string) bool {
	for _, t := range d.Types {
		if t == actorType {
			return true
		}
	}
	return false
}

// Validate checks that the definition is usable.
func (d *StatusDef) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if len(d.Types) == 0 {
		errs = append(errs, "types must list at least one actor type")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Registry holds all known StatusDefs keyed by ID.
type Registry struct {
	defs map[string]*StatusDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*StatusDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *StatusDef) {
	r.defs[def.ID] = def
}

// Get returns the StatusDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*StatusDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns every registered StatusDef ordered by ID.
func (r *Registry) All() []*StatusDef {
	out := make([]*StatusDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ForType returns the statuses scoped to actorType, ordered by ID.
func (r *Registry) ForType(actorType string) []*StatusDef {
	var out []*StatusDef
	for _, d := range r.All() {
		if d.AppliesTo(actorType) {
			out = append(out, d)
		}
	}
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a StatusDef,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def StatusDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		if _, dup := reg.Get(def.ID); dup {
			return nil, fmt.Errorf("%q: duplicate status id %q", path, def.ID)
		}
		reg.Register(&def)
	}
	return reg, nil
}
