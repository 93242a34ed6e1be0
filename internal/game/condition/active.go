package condition

import "sort"

// ActiveSet is the set of statuses currently shown on one actor, collected
// from its enabled effects. It is not safe for concurrent use.
type ActiveSet struct {
	reg      *Registry
	statuses map[string]*StatusDef
	unknown  []string
}

// NewActiveSet creates an empty ActiveSet resolving ids against reg.
func NewActiveSet(reg *Registry) *ActiveSet {
	return &ActiveSet{reg: reg, statuses: make(map[string]*StatusDef)}
}

// Apply marks id active. Ids missing from the registry are kept in Unknown.
//
// Postcondition: Has(id) is true when id is registered.
func (s *ActiveSet) Apply(id string) {
	if def, ok := s.reg.Get(id); ok {
		s.statuses[id] = def
		return
	}
	for _, u := range s.unknown {
		if u == id {
			return
		}
	}
	s.unknown = append(s.unknown, id)
}

// Has reports whether the status with id is active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.statuses[id]
	return ok
}

// All returns the active statuses ordered by ID.
func (s *ActiveSet) All() []*StatusDef {
	out := make([]*StatusDef, 0, len(s.statuses))
	for _, d := range s.statuses {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Unknown returns applied ids that are not registered.
func (s *ActiveSet) Unknown() []string {
	return append([]string(nil), s.unknown...)
}
