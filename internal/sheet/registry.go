package sheet

import (
	"fmt"
	"sort"
)

// Registry maps actor types to their default sheet.
type Registry struct {
	byType map[string]Sheet
}

// NewRegistry creates a Registry populated with the given sheets.
//
// Precondition: No two sheets may share a type or an id.
// Postcondition: Returns a Registry or an error on collisions.
func NewRegistry(sheets ...Sheet) (*Registry, error) {
	r := &Registry{byType: make(map[string]Sheet, len(sheets))}
	ids := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if _, exists := r.byType[s.Type()]; exists {
			return nil, fmt.Errorf("duplicate default sheet for type %q", s.Type())
		}
		if ids[s.ID()] {
			return nil, fmt.Errorf("duplicate sheet id %q", s.ID())
		}
		r.byType[s.Type()] = s
		ids[s.ID()] = true
	}
	return r, nil
}

// ForType returns the default sheet of docType.
//
// Postcondition: Returns (sheet, true) if registered, or (nil, false).
func (r *Registry) ForType(docType string) (Sheet, bool) {
	s, ok := r.byType[docType]
	return s, ok
}

// Types returns the registered actor types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
