package document

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/sjson"
)

// deletePrefix marks a final path segment as a key deletion.
const deletePrefix = "-="

// Op is a single dotted-path update.
type Op struct {
	Path   string
	Value  any
	Delete bool
}

// Patch is an ordered list of updates applied together.
type Patch []Op

// Set returns an Op assigning value at path.
func Set(path string, value any) Op { return Op{Path: path, Value: value} }

// Unset returns an Op deleting the key at path.
func Unset(path string) Op { return Op{Path: path, Delete: true} }

// Join builds a dotted path, escaping separators inside each segment.
func Join(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = escapeSegment(p)
	}
	return strings.Join(escaped, ".")
}

func escapeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitLast splits a path at its final unescaped dot.
func splitLast(path string) (parent, last string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] != '.' {
			continue
		}
		slashes := 0
		for j := i - 1; j >= 0 && path[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}

// FromMap converts an update object into a Patch. A key whose final segment
// starts with "-=" becomes a deletion of that key. Ops are ordered by path so
// the result is deterministic.
func FromMap(update map[string]any) (Patch, error) {
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := make(Patch, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("empty update path")
		}
		parent, last := splitLast(k)
		if strings.HasPrefix(last, deletePrefix) {
			name := strings.TrimPrefix(last, deletePrefix)
			if name == "" || parent == "" {
				return nil, fmt.Errorf("invalid delete path %q", k)
			}
			p = append(p, Unset(parent+"."+name))
			continue
		}
		p = append(p, Set(k, update[k]))
	}
	return p, nil
}

// Map renders the patch back into update-object form, using "-=" keys for deletions.
func (p Patch) Map() map[string]any {
	out := make(map[string]any, len(p))
	for _, op := range p {
		if op.Delete {
			parent, last := splitLast(op.Path)
			out[parent+"."+deletePrefix+last] = nil
			continue
		}
		out[op.Path] = op.Value
	}
	return out
}

// Paths returns the paths touched by the patch.
func (p Patch) Paths() []string {
	out := make([]string, len(p))
	for i, op := range p {
		out[i] = op.Path
	}
	return out
}

// Apply mutates d in place.
//
// Precondition: every path is "name", "img", or starts with "system.".
// Postcondition: on error d is unchanged.
func (p Patch) Apply(d *Document) error {
	name, img, system := d.Name, d.Img, []byte(d.System)
	if len(system) == 0 {
		system = []byte("{}")
	}
	for _, op := range p {
		switch op.Path {
		case "name", "img":
			s, ok := op.Value.(string)
			if !ok || op.Delete {
				return fmt.Errorf("path %q requires a string value", op.Path)
			}
			if op.Path == "name" {
				name = s
			} else {
				img = s
			}
			continue
		}
		rel, ok := systemPath(op.Path)
		if !ok {
			return fmt.Errorf("unsupported update path %q", op.Path)
		}
		var err error
		if op.Delete {
			system, err = sjson.DeleteBytes(system, rel)
		} else {
			system, err = sjson.SetBytes(system, rel, op.Value)
		}
		if err != nil {
			return fmt.Errorf("applying %q: %w", op.Path, err)
		}
	}
	d.Name, d.Img, d.System = name, img, system
	return nil
}

func systemPath(path string) (string, bool) {
	rel, ok := strings.CutPrefix(path, "system.")
	if !ok || rel == "" {
		return "", false
	}
	return rel, true
}
