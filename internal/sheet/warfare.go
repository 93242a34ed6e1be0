package sheet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/game/warfare"
)

// WarfareSheetID is the registration id of the warfare unit sheet.
const WarfareSheetID = "knw-actors.warfare"

// Warfare sheet actions.
const (
	ActionRollStat        = "roll-stat"
	ActionConfigureTraits = "configure-traits"
	ActionSetCommander    = "set-commander"
	ActionClearCommander  = "clear-commander"
	ActionEditStat        = "edit-stat"
	ActionCreateEffect    = "create-effect"
	ActionToggleEffect    = "toggle-effect"
	ActionDeleteEffect    = "delete-effect"
	ActionToggleStatus    = "toggle-status"
)

// WarfareActions lists the warfare sheet actions in help order.
var WarfareActions = []string{
	ActionRollStat, ActionConfigureTraits, ActionSetCommander, ActionClearCommander,
	ActionEditStat, ActionCreateEffect, ActionToggleEffect, ActionDeleteEffect, ActionToggleStatus,
}

// StatRow is one core statistic of the warfare view.
type StatRow struct {
	Key   string
	Abbr  string
	Label string
	Value int
	// Display is the value as shown: signed for bonuses, plain for defense and toughness.
	Display  string
	Rollable bool
}

// EffectRow is one active effect of the warfare view.
type EffectRow struct {
	ID       string
	Name     string
	Img      string
	Disabled bool
}

// StatusRow is one toggleable status of the warfare view.
type StatusRow struct {
	ID     string
	Label  string
	Img    string
	Active bool
}

// BarRow is one token bar binding.
type BarRow struct {
	Field string
	Label string
}

// WarfareView is the view context of the warfare unit sheet.
type WarfareView struct {
	ID       string
	Name     string
	Img      string
	Editable bool

	Stats []StatRow

	Attacks     int
	Dmg         int
	Mov         int
	Tier        int
	TierLabel   string
	Size        warfare.Size
	CasualtyDie int

	Ancestry   string
	Experience string
	Gear       string
	Type       string
	TypeImg    string

	// Traits is nil when the unit has none.
	Traits   []string
	Effects  []EffectRow
	Statuses []StatusRow

	CommanderID   string
	CommanderName string
}

// TokenBarView groups the token bar bindings by kind.
type TokenBarView struct {
	Attributes []BarRow
	Values     []BarRow
	Movement   []BarRow
}

// WarfareSheet is the default sheet of warfare unit records.
type WarfareSheet struct {
	svc *warfare.Service
}

// NewWarfareSheet creates the warfare sheet over svc.
func NewWarfareSheet(svc *warfare.Service) *WarfareSheet {
	return &WarfareSheet{svc: svc}
}

func (s *WarfareSheet) ID() string        { return WarfareSheetID }
func (s *WarfareSheet) Type() string      { return ruleset.TypeWarfare }
func (s *WarfareSheet) Label() string     { return "KNW.Actor.warfare" }
func (s *WarfareSheet) Actions() []string { return WarfareActions }

func optionLabel(opts []ruleset.Option, key string) string {
	for _, o := range opts {
		if o.Key == key {
			return o.Label
		}
	}
	return key
}

// View builds the warfare view context.
func (s *WarfareSheet) View(ctx context.Context, u actor.User, recordID string) (any, error) {
	rec, err := s.svc.Load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	rs := s.svc.Rules
	loc := s.svc.Locale
	unit := rec.Unit
	v := &WarfareView{
		ID:            rec.Doc.ID,
		Name:          rec.Doc.Name,
		Img:           rec.Doc.Img,
		Editable:      u.CanEdit(rec.Doc),
		Attacks:       unit.Attacks,
		Dmg:           unit.Dmg,
		Mov:           unit.Mov,
		Tier:          unit.Tier,
		Size:          unit.Size,
		CasualtyDie:   unit.CasualtyDie(),
		Ancestry:      unit.Ancestry,
		Experience:    loc.Localize(optionLabel(rs.Experience, unit.Experience)),
		Gear:          loc.Localize(optionLabel(rs.Gear, unit.Gear)),
		TypeImg:       unit.TypeImage(rs),
		Traits:        unit.Traits(),
		CommanderID:   unit.Commander,
		CommanderName: s.svc.CommanderName(ctx, rec),
	}
	v.TierLabel, _ = rs.TierLabel(unit.Tier)
	if t, ok := rs.UnitType(unit.Type); ok {
		v.Type = loc.Localize(t.Label)
	}
	for _, key := range warfare.StatKeys {
		value, _ := unit.Stat(key)
		row := StatRow{
			Key:     key,
			Abbr:    loc.Localize(warfare.StatAbbr(key)),
			Label:   loc.Localize(warfare.StatLabel(key)),
			Value:   value,
			Display: strconv.Itoa(value),
		}
		if warfare.Signed(key) {
			row.Display = fmt.Sprintf("%+d", value)
			row.Rollable = v.Editable
		}
		v.Stats = append(v.Stats, row)
	}
	for _, e := range unit.Effects {
		v.Effects = append(v.Effects, EffectRow{ID: e.ID, Name: e.Name, Img: e.Img, Disabled: e.Disabled})
	}
	active := s.svc.ActiveStatuses(rec)
	for _, def := range s.svc.Statuses.ForType(ruleset.TypeWarfare) {
		v.Statuses = append(v.Statuses, StatusRow{
			ID:     def.ID,
			Label:  loc.Localize(def.Name),
			Img:    def.Img,
			Active: active.Has(def.ID),
		})
	}
	return v, nil
}

// TokenBars returns the localized token bar bindings of warfare units.
func (s *WarfareSheet) TokenBars() TokenBarView {
	rows := func(fields []string) []BarRow {
		out := make([]BarRow, 0, len(fields))
		for _, f := range fields {
			out = append(out, BarRow{Field: f, Label: s.svc.Locale.Localize(warfare.BarLabel(f))})
		}
		return out
	}
	bars := warfare.TokenBarOptions()
	return TokenBarView{
		Attributes: rows(bars.Attributes),
		Values:     rows(bars.Values),
		Movement:   rows(bars.Movement),
	}
}

// Do performs one warfare action.
func (s *WarfareSheet) Do(ctx context.Context, u actor.User, recordID, action string, p Payload, _ organization.Chooser) (Result, error) {
	changed := func(_ *warfare.Record, err error) (Result, error) {
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil
	}

	switch action {
	case ActionRollStat:
		stat, err := p.String("stat")
		if err != nil {
			return Result{}, err
		}
		res, err := s.svc.RollStat(ctx, u, recordID, stat)
		if err != nil {
			return Result{}, err
		}
		return Result{Roll: &res}, nil

	case ActionConfigureTraits:
		traits, err := p.String("traits")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.ConfigureTraits(ctx, u, recordID, traits))

	case ActionSetCommander:
		actorID, err := p.String("actor")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.SetCommander(ctx, u, recordID, actorID))

	case ActionClearCommander:
		return changed(s.svc.ClearCommander(ctx, u, recordID))

	case ActionEditStat:
		field, err := p.String("field")
		if err != nil {
			return Result{}, err
		}
		value, err := p.String("value")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.EditStat(ctx, u, recordID, field, value))

	case ActionCreateEffect:
		_, id, err := s.svc.CreateEffect(ctx, u, recordID, p.Optional("name"))
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: true, Value: id}, nil

	case ActionToggleEffect, ActionDeleteEffect:
		effect, err := p.String("effect")
		if err != nil {
			return Result{}, err
		}
		if action == ActionToggleEffect {
			return changed(s.svc.ToggleEffect(ctx, u, recordID, effect))
		}
		return changed(s.svc.DeleteEffect(ctx, u, recordID, effect))

	case ActionToggleStatus:
		status, err := p.String("status")
		if err != nil {
			return Result{}, err
		}
		_, active, err := s.svc.ToggleStatus(ctx, u, recordID, status)
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: true, Value: strconv.FormatBool(active)}, nil
	}
	return Result{}, badPayload("action", action)
}
