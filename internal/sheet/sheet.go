// Package sheet is the presentation layer: one default sheet per actor type,
// the view context each sheet renders from, and the named actions a sheet
// accepts as (recordID, action, payload).
//
// Sheets never mutate more than one record per action. Policy notices raised
// by the services are localized and sent to the acting user by the
// Dispatcher; the record is left untouched.
package sheet

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/organization"
)

var (
	// ErrBadPayload is returned when an action payload is missing a field or
	// carries a value of the wrong shape.
	ErrBadPayload = errors.New("bad action payload")
	// ErrUnknownAction is returned for actions a sheet does not declare.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoSheet is returned when no sheet is registered for a record type.
	ErrNoSheet = errors.New("no sheet for type")
)

// Payload carries the named arguments of an action.
type Payload map[string]string

func badPayload(field, value string) error {
	return chat.Warn("KNW.Warning.BadPayload", map[string]string{"field": field, "value": value}).Wrap(ErrBadPayload)
}

// String returns a required field. Empty values are allowed.
func (p Payload) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", badPayload(key, "")
	}
	return v, nil
}

// Optional returns a field, or "" when absent.
func (p Payload) Optional(key string) string {
	return p[key]
}

// Int returns a required integer field.
func (p Payload) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, badPayload(key, "")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, badPayload(key, v)
	}
	return n, nil
}

// Bool returns a boolean field, or def when absent.
func (p Payload) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, badPayload(key, v)
}

// Result is the outcome of one action.
type Result struct {
	// Changed is set when the record was updated.
	Changed bool
	// Rejected is set when a policy notice refused the action; Notice holds it.
	Rejected bool
	Notice   *chat.Notice
	// Roll is the check resolved by a roll action.
	Roll *dice.CheckResult
	// Value is an action-specific result: the power die value rolled or taken,
	// or the id of a created effect.
	Value string
}

// Sheet is the default sheet of one actor type.
type Sheet interface {
	// ID is the sheet registration id, e.g. "knw-actors.organization".
	ID() string
	// Type is the document type the sheet renders.
	Type() string
	// Label is the catalog key naming the actor type.
	Label() string
	// Actions lists the named actions the sheet accepts.
	Actions() []string
	// View builds the view context of a record for u.
	View(ctx context.Context, u actor.User, recordID string) (any, error)
	// Do performs one action. chooser is consulted when an action needs the
	// user to pick an acting member; it may be nil.
	Do(ctx context.Context, u actor.User, recordID, action string, p Payload, chooser organization.Chooser) (Result, error)
}
