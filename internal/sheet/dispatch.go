package sheet

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/i18n"
)

// Dispatcher routes (recordID, action, payload) to the record's default sheet
// and turns policy notices into user notifications.
type Dispatcher struct {
	Sheets   *Registry
	Store    document.Store
	Notifier chat.Notifier
	Locale   i18n.Localizer
	Logger   *zap.Logger
}

// resolve loads the record's type and its sheet.
func (d *Dispatcher) resolve(ctx context.Context, recordID string) (*document.Document, Sheet, error) {
	doc, err := d.Store.Get(ctx, recordID)
	if errors.Is(err, document.ErrNotFound) {
		return nil, nil, chat.Warn("KNW.Warning.NotFound", map[string]string{"id": recordID}).Wrap(err)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", recordID, err)
	}
	s, ok := d.Sheets.ForType(doc.Type)
	if !ok {
		return nil, nil, chat.Warn("KNW.Warning.NoSheet", map[string]string{"type": doc.Type}).Wrap(ErrNoSheet)
	}
	return doc, s, nil
}

// Invoke performs action on recordID for u.
//
// Postcondition: A policy notice is sent to u and reported as a rejected
// Result with a nil error; any other failure is returned.
func (d *Dispatcher) Invoke(ctx context.Context, u actor.User, recordID, action string, p Payload, chooser organization.Chooser) (Result, error) {
	doc, s, err := d.resolve(ctx, recordID)
	if err == nil && !slices.Contains(s.Actions(), action) {
		err = chat.Warn("KNW.Warning.UnknownAction", map[string]string{"action": action}).Wrap(ErrUnknownAction)
	}
	var res Result
	if err == nil {
		res, err = s.Do(ctx, u, recordID, action, p, chooser)
		if errors.Is(err, document.ErrReadOnly) {
			err = chat.Warn("KNW.Warning.ReadOnly", map[string]string{"name": doc.Name}).Wrap(err)
		}
	}
	if err == nil {
		d.Logger.Debug("sheet action",
			zap.String("user", u.ID),
			zap.String("record", recordID),
			zap.String("action", action),
			zap.Bool("changed", res.Changed),
		)
		return res, nil
	}

	var n *chat.Notice
	if errors.As(err, &n) {
		d.notify(ctx, u, n)
		return Result{Rejected: true, Notice: n}, nil
	}
	d.Logger.Error("sheet action failed",
		zap.String("user", u.ID),
		zap.String("record", recordID),
		zap.String("action", action),
		zap.Error(err),
	)
	return Result{}, err
}

// View builds the view context of recordID for u. Notices are sent to u and
// returned.
func (d *Dispatcher) View(ctx context.Context, u actor.User, recordID string) (any, error) {
	_, s, err := d.resolve(ctx, recordID)
	if err == nil {
		var v any
		if v, err = s.View(ctx, u, recordID); err == nil {
			return v, nil
		}
	}
	var n *chat.Notice
	if errors.As(err, &n) {
		d.notify(ctx, u, n)
	}
	return nil, err
}

func (d *Dispatcher) notify(ctx context.Context, u actor.User, n *chat.Notice) {
	d.Logger.Debug("sheet notice",
		zap.String("user", u.ID),
		zap.String("key", n.Key),
	)
	d.Notifier.Notify(ctx, u.ID, n.Level, d.Locale.Format(n.Key, n.Args))
}
