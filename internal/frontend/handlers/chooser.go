package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/game/actor"
)

// ErrChoiceCancelled is returned when the user answers a choice prompt with
// an empty line.
var ErrChoiceCancelled = errors.New("choice cancelled")

// promptChooser asks the connected user to pick among eligible members.
type promptChooser struct {
	conn *telnet.Conn
}

// Choose lists options numbered from 1 and reads the answer, accepting a
// number, a member id, or a member name (case-insensitive). Unrecognised
// answers re-prompt.
//
// Postcondition: Returns a chat.Notice wrapping ErrChoiceCancelled on an
// empty answer.
func (c promptChooser) Choose(ctx context.Context, prompt string, options []actor.Member) (actor.Member, error) {
	lines := []string{telnet.Colorize(telnet.BrightWhite, prompt)}
	for i, m := range options {
		lines = append(lines, fmt.Sprintf("  %s %s", telnet.Colorf(telnet.Green, "%d)", i+1), m.Name()))
	}
	if err := c.conn.WriteLines(lines); err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer, err := c.conn.Ask(fmt.Sprintf("Choose 1-%d (blank cancels): ", len(options)))
		if err != nil {
			return nil, err
		}
		if answer == "" {
			return nil, chat.Info("KNW.Warning.ChoiceCancelled", nil).Wrap(ErrChoiceCancelled)
		}
		if m := pick(answer, options); m != nil {
			return m, nil
		}
		_ = c.conn.WriteLine(telnet.Colorf(telnet.Red, "No option %q.", answer))
	}
}

func pick(answer string, options []actor.Member) actor.Member {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1]
		}
		return nil
	}
	for _, m := range options {
		if m.ID() == answer || strings.EqualFold(m.Name(), answer) {
			return m
		}
	}
	return nil
}
