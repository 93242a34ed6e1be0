package command

import (
	"fmt"
	"strings"
)

// ParseResult holds the parsed command name and arguments from a text line.
type ParseResult struct {
	// Command is the first word of the input, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command (preserving spacing for say).
	RawArgs string
}

// Parse splits a text line into a command and arguments.
//
// Postcondition: Returns a ParseResult. If line is blank, Command is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if line == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return ParseResult{Command: strings.ToLower(line)}
	}

	rest := strings.TrimSpace(line[spaceIdx+1:])
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	return ParseResult{
		Command: strings.ToLower(line[:spaceIdx]),
		Args:    args,
		RawArgs: rest,
	}
}

// Bind assigns args to params. An argument of the form name=value sets
// the parameter name directly; the others fill the unset parameters in
// order, and the last parameter takes any remaining words joined by spaces.
// Parameters without an argument are left out of the result.
//
// Postcondition: Returns an error when args are given to a command without
// parameters, or when a named argument repeats a parameter.
func Bind(params []string, args []string) (map[string]string, error) {
	out := make(map[string]string, len(params))
	if len(args) == 0 {
		return out, nil
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("takes no arguments")
	}

	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p] = true
	}

	var positional []string
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		if ok && known[name] {
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("%s given twice", name)
			}
			out[name] = value
			continue
		}
		positional = append(positional, a)
	}

	var free []string
	for _, p := range params {
		if _, set := out[p]; !set {
			free = append(free, p)
		}
	}
	for i, a := range positional {
		if len(free) == 0 {
			return nil, fmt.Errorf("unexpected argument %q", a)
		}
		if i >= len(free)-1 {
			last := free[len(free)-1]
			out[last] = strings.Join(positional[len(free)-1:], " ")
			break
		}
		out[free[i]] = a
	}
	return out, nil
}
