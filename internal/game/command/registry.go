package command

import (
	"fmt"
	"slices"
	"strings"
)

// Registry resolves typed command words to Command definitions. Names and
// aliases share one namespace and match case-insensitively.
type Registry struct {
	ordered []*Command
	lookup  map[string]*Command
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: No word may be both a name and an alias, or be used twice.
// Postcondition: Returns a Registry or an error naming the first collision.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{lookup: make(map[string]*Command, len(cmds)*2)}
	for i := range cmds {
		cmd := &cmds[i]
		if err := r.claim(cmd.Name, cmd, "duplicate command name"); err != nil {
			return nil, err
		}
		for _, alias := range cmd.Aliases {
			if err := r.claim(alias, cmd, "duplicate alias"); err != nil {
				return nil, err
			}
		}
		r.ordered = append(r.ordered, cmd)
	}
	slices.SortFunc(r.ordered, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return r, nil
}

func (r *Registry) claim(word string, cmd *Command, what string) error {
	key := strings.ToLower(word)
	if other, taken := r.lookup[key]; taken {
		return fmt.Errorf("%s %q: used by %q and %q", what, word, other.Name, cmd.Name)
	}
	r.lookup[key] = cmd
	return nil
}

// DefaultRegistry creates a Registry with all built-in commands.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve finds the command named or aliased by input. When nothing matches
// exactly, an abbreviation of exactly one command name is accepted.
func (r *Registry) Resolve(input string) (*Command, bool) {
	key := strings.ToLower(input)
	if key == "" {
		return nil, false
	}
	if cmd, ok := r.lookup[key]; ok {
		return cmd, true
	}
	var match *Command
	for _, cmd := range r.ordered {
		if strings.HasPrefix(cmd.Name, key) {
			if match != nil {
				return nil, false
			}
			match = cmd
		}
	}
	return match, match != nil
}

// Commands returns all registered commands ordered by name.
func (r *Registry) Commands() []*Command {
	return slices.Clone(r.ordered)
}

// CommandsByCategory returns commands grouped by category, each group ordered by name.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	categories := make(map[string][]*Command)
	for _, cmd := range r.ordered {
		categories[cmd.Category] = append(categories[cmd.Category], cmd)
	}
	return categories
}
