package organization

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/knw/internal/document"
)

// Entry states of a power pool member.
type EntryState int

const (
	// Available members have not rolled since their last rest.
	Available EntryState = iota
	// Holding members have power left on their die.
	Holding
	// Exhausted members have spent their die and await a rest.
	Exhausted
)

func (s EntryState) String() string {
	switch s {
	case Available:
		return "available"
	case Holding:
		return "holding"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("EntryState(%d)", int(s))
}

var (
	// ErrNotMember is returned for actors missing from the pool.
	ErrNotMember = errors.New("not a power pool member")
	// ErrAlreadyMember is returned when adding an existing member.
	ErrAlreadyMember = errors.New("already a power pool member")
	// ErrNotRolled is returned when spending an Available entry.
	ErrNotRolled = errors.New("power die not rolled")
	// ErrAlreadyRolled is returned when rolling an entry that is not Available.
	ErrAlreadyRolled = errors.New("power die already rolled")
	// ErrOutOfRange is returned for values outside [0, powerDie].
	ErrOutOfRange = errors.New("power die value out of range")
)

// PoolPath is the document path of a member's pool entry.
func PoolPath(memberID string) string {
	return "system.powerPool." + document.Join(memberID)
}

// State returns the entry state and value of memberID.
func (p PowerPool) State(memberID string) (EntryState, int, error) {
	v, ok := p[memberID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotMember, memberID)
	}
	switch {
	case v == nil:
		return Available, 0, nil
	case *v == 0:
		return Exhausted, 0, nil
	default:
		return Holding, *v, nil
	}
}

func intPtr(v int) *int { return &v }

// Hold records a fresh roll: Available -> Holding(rolled).
//
// Precondition: 1 <= rolled <= die.
func (p PowerPool) Hold(memberID string, rolled, die int) (document.Patch, error) {
	state, _, err := p.State(memberID)
	if err != nil {
		return nil, err
	}
	if state != Available {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyRolled, memberID, state)
	}
	if rolled < 1 || rolled > die {
		return nil, fmt.Errorf("%w: rolled %d on d%d", ErrOutOfRange, rolled, die)
	}
	return document.Patch{document.Set(PoolPath(memberID), rolled)}, nil
}

// Decrement spends one point: Holding(v) -> Holding(v-1), landing in
// Exhausted at 0. Decrementing an Exhausted entry is a no-op.
//
// Postcondition: Returns ErrNotRolled for Available entries.
func (p PowerPool) Decrement(memberID string) (document.Patch, error) {
	state, v, err := p.State(memberID)
	if err != nil {
		return nil, err
	}
	switch state {
	case Available:
		return nil, fmt.Errorf("%w: %s", ErrNotRolled, memberID)
	case Exhausted:
		return nil, nil
	}
	return document.Patch{document.Set(PoolPath(memberID), v-1)}, nil
}

// Increment adds one point, capped at die.
func (p PowerPool) Increment(memberID string, die int) (document.Patch, error) {
	state, v, err := p.State(memberID)
	if err != nil {
		return nil, err
	}
	if state == Available {
		return nil, fmt.Errorf("%w: %s", ErrNotRolled, memberID)
	}
	return document.Patch{document.Set(PoolPath(memberID), min(v+1, die))}, nil
}

// Take spends the whole die: Holding(v) -> Exhausted, returning v.
func (p PowerPool) Take(memberID string) (int, document.Patch, error) {
	state, v, err := p.State(memberID)
	if err != nil {
		return 0, nil, err
	}
	if state != Holding {
		return 0, nil, fmt.Errorf("%w: %s is %s", ErrNotRolled, memberID, state)
	}
	return v, document.Patch{document.Set(PoolPath(memberID), 0)}, nil
}

// Reset returns a member to Available. Resetting an Available entry is a no-op.
func (p PowerPool) Reset(memberID string) (document.Patch, error) {
	state, _, err := p.State(memberID)
	if err != nil {
		return nil, err
	}
	if state == Available {
		return nil, nil
	}
	return document.Patch{document.Set(PoolPath(memberID), nil)}, nil
}

// Rest resets every member that is not already Available.
func (p PowerPool) Rest() document.Patch {
	var patch document.Patch
	for _, id := range p.Members() {
		if p[id] != nil {
			patch = append(patch, document.Set(PoolPath(id), nil))
		}
	}
	return patch
}

// Set assigns value directly; nil clears the entry to Available.
func (p PowerPool) Set(memberID string, value *int, die int) (document.Patch, error) {
	if _, ok := p[memberID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, memberID)
	}
	if value == nil {
		return document.Patch{document.Set(PoolPath(memberID), nil)}, nil
	}
	if *value < 0 || *value > die {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, *value, die)
	}
	return document.Patch{document.Set(PoolPath(memberID), *value)}, nil
}

// Add links a new member as Available.
func (p PowerPool) Add(memberID string) (document.Patch, error) {
	if _, ok := p[memberID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyMember, memberID)
	}
	return document.Patch{document.Set(PoolPath(memberID), nil)}, nil
}

// Remove deletes a member's entry.
func (p PowerPool) Remove(memberID string) (document.Patch, error) {
	if _, ok := p[memberID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, memberID)
	}
	return document.Patch{document.Unset(PoolPath(memberID))}, nil
}

// Clip lowers every entry above die to die, e.g. after the size shrinks.
func (p PowerPool) Clip(die int) document.Patch {
	var patch document.Patch
	for _, id := range p.Members() {
		if v := p[id]; v != nil && *v > die {
			patch = append(patch, document.Set(PoolPath(id), die))
		}
	}
	return patch
}

// Apply mirrors a patch produced by this pool onto the in-memory map.
func (p PowerPool) Apply(patch document.Patch) {
	prefix := "system.powerPool."
	for _, op := range patch {
		if len(op.Path) <= len(prefix) || op.Path[:len(prefix)] != prefix {
			continue
		}
		id := unescape(op.Path[len(prefix):])
		if op.Delete {
			delete(p, id)
			continue
		}
		switch v := op.Value.(type) {
		case nil:
			p[id] = nil
		case int:
			p[id] = intPtr(v)
		}
	}
}

func unescape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}
