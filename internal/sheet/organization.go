package sheet

import (
	"context"
	"strconv"
	"strings"

	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// OrganizationSheetID is the registration id of the organization sheet.
const OrganizationSheetID = "knw-actors.organization"

// Organization sheet actions.
const (
	ActionEditScore       = "edit-score"
	ActionEditDevelopment = "edit-development"
	ActionRollSkill       = "roll-skill"
	ActionCyclePowerDie   = "cycle-power-die"
	ActionDecrement       = "decrement"
	ActionIncrement       = "increment"
	ActionResetPower      = "reset-power"
	ActionSetPower        = "set-power"
	ActionRest            = "rest"
	ActionAddMember       = "add-member"
	ActionRemoveMember    = "remove-member"
	ActionEditText        = "edit-text"
	ActionSetSize         = "set-size"
)

// OrganizationActions lists the organization sheet actions in help order.
var OrganizationActions = []string{
	ActionEditScore, ActionEditDevelopment, ActionRollSkill, ActionCyclePowerDie,
	ActionDecrement, ActionIncrement, ActionResetPower, ActionSetPower, ActionRest,
	ActionAddMember, ActionRemoveMember, ActionEditText, ActionSetSize,
}

// SkillRow is one skill of the organization view.
type SkillRow struct {
	Key    string
	Label  string
	Bonus  int
	Points int
}

// ChoiceRow is one selectable defense level.
type ChoiceRow struct {
	Value    int
	Label    string
	Selected bool
}

// DefenseRow is one defense of the organization view.
type DefenseRow struct {
	Key     string
	Label   string
	Level   int
	Score   int
	Points  int
	Choices []ChoiceRow
}

// PoolRow is one power pool entry.
type PoolRow struct {
	MemberID string
	Name     string
	State    organization.EntryState
	Value    int
	// Display is the localized state, or the held value.
	Display string
	// Controllable is set when the user may act on this entry.
	Controllable bool
}

// OrganizationView is the view context of the organization sheet.
type OrganizationView struct {
	ID       string
	Name     string
	Img      string
	Editable bool

	Size        int
	SizeChoices []int
	PowerDie    int
	PowerDieImg string

	Skills   []SkillRow
	Defenses []DefenseRow
	Pool     []PoolRow
	Powers   string
	Features string
}

// DevStatRow is one row of the development editor.
type DevStatRow struct {
	organization.DevStat
	// Name is the localized label.
	Name string
}

// DevEditorView is the view context of the development editor.
type DevEditorView struct {
	ID             string
	Name           string
	Group          string
	Stats          []DevStatRow
	TotalDevPoints int
	Length         int
	Min            int
	Max            int
	// Range is the localized track summary.
	Range string
}

// OrganizationSheet is the default sheet of organization records.
type OrganizationSheet struct {
	svc *organization.Service
}

// NewOrganizationSheet creates the organization sheet over svc.
func NewOrganizationSheet(svc *organization.Service) *OrganizationSheet {
	return &OrganizationSheet{svc: svc}
}

func (s *OrganizationSheet) ID() string        { return OrganizationSheetID }
func (s *OrganizationSheet) Type() string      { return ruleset.TypeOrganization }
func (s *OrganizationSheet) Label() string     { return "KNW.Actor.organization" }
func (s *OrganizationSheet) Actions() []string { return OrganizationActions }

// View builds the organization view context.
func (s *OrganizationSheet) View(ctx context.Context, u actor.User, recordID string) (any, error) {
	rec, err := s.svc.Load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	rs := s.svc.Rules
	loc := s.svc.Locale
	v := &OrganizationView{
		ID:          rec.Doc.ID,
		Name:        rec.Doc.Name,
		Img:         rec.Doc.Img,
		Editable:    u.CanEdit(rec.Doc),
		Size:        rec.Org.Size,
		SizeChoices: rs.SizeKeys(),
		Powers:      rec.Org.Powers,
		Features:    rec.Org.Features,
	}
	if e, err := rs.Size(rec.Org.Size); err == nil {
		v.PowerDie = e.PowerDie
		v.PowerDieImg = e.DiePath
	}
	for _, key := range ruleset.SkillKeys {
		v.Skills = append(v.Skills, SkillRow{
			Key:    key,
			Label:  loc.Localize(organization.SkillLabel(key)),
			Bonus:  rec.Org.SkillBonus(rs, key),
			Points: rec.Org.Skills[key].Development.Points,
		})
	}
	for _, key := range ruleset.DefenseKeys {
		d := rec.Org.Defenses[key]
		row := DefenseRow{
			Key:    key,
			Label:  loc.Localize(organization.DefenseLabel(key)),
			Level:  d.Level,
			Score:  rec.Org.DefenseScore(rs, key),
			Points: d.Development.Points,
		}
		for _, c := range rs.DefenseLevels[key] {
			row.Choices = append(row.Choices, ChoiceRow{
				Value:    c.Value,
				Label:    loc.Localize(c.Label),
				Selected: c.Value == d.Level,
			})
		}
		v.Defenses = append(v.Defenses, row)
	}
	for _, id := range rec.Org.PowerPool.Members() {
		state, value, _ := rec.Org.PowerPool.State(id)
		row := PoolRow{MemberID: id, Name: id, State: state, Value: value, Controllable: v.Editable}
		if m, err := s.svc.Members.Member(ctx, id); err == nil {
			row.Name = m.Name()
			row.Controllable = row.Controllable || m.ControlledBy(u)
		}
		switch state {
		case organization.Available:
			row.Display = loc.Localize("KNW.Organization.Power.Available")
		case organization.Exhausted:
			row.Display = loc.Localize("KNW.Organization.Power.Exhausted")
		default:
			row.Display = strconv.Itoa(value)
		}
		v.Pool = append(v.Pool, row)
	}
	return v, nil
}

// DevelopmentView builds the development editor of group.
func (s *OrganizationSheet) DevelopmentView(ctx context.Context, recordID, group string) (*DevEditorView, error) {
	rec, err := s.svc.Load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	ed, err := rec.Org.DevelopmentEditor(s.svc.Rules, group)
	if err != nil {
		return nil, badPayload("group", group)
	}
	loc := s.svc.Locale
	v := &DevEditorView{
		ID:             rec.Doc.ID,
		Name:           rec.Doc.Name,
		Group:          ed.Group,
		TotalDevPoints: ed.TotalDevPoints,
		Length:         ed.Length,
		Min:            ed.Min,
		Max:            ed.Max,
		Range: loc.Format("KNW.Organization.Development.Range", map[string]string{
			"min":    strconv.Itoa(ed.Min),
			"max":    strconv.Itoa(ed.Max),
			"length": strconv.Itoa(ed.Length),
		}),
	}
	for _, st := range ed.Stats {
		v.Stats = append(v.Stats, DevStatRow{DevStat: st, Name: loc.Localize(st.Label)})
	}
	return v, nil
}

// Do performs one organization action.
func (s *OrganizationSheet) Do(ctx context.Context, u actor.User, recordID, action string, p Payload, chooser organization.Chooser) (Result, error) {
	changed := func(_ *organization.Record, err error) (Result, error) {
		if err != nil {
			return Result{}, err
		}
		return Result{Changed: true}, nil
	}

	switch action {
	case ActionEditScore:
		defense, err := p.String("defense")
		if err != nil {
			return Result{}, err
		}
		level, err := p.Int("level")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.EditLevel(ctx, u, recordID, defense, level))

	case ActionEditDevelopment:
		group, err := p.String("group")
		if err != nil {
			return Result{}, err
		}
		key, err := p.String("key")
		if err != nil {
			return Result{}, err
		}
		points, err := p.Int("points")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.EditDevelopment(ctx, u, recordID, group, key, points))

	case ActionRollSkill:
		skill, err := p.String("skill")
		if err != nil {
			return Result{}, err
		}
		useProf, err := p.Bool("prof", true)
		if err != nil {
			return Result{}, err
		}
		test, err := s.svc.RollSkill(ctx, u, recordID, skill, useProf, chooser)
		if err != nil {
			return Result{}, err
		}
		return Result{Roll: &test.Result, Value: test.Member.ID()}, nil

	case ActionCyclePowerDie:
		member, err := p.String("member")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.Cycle(ctx, u, recordID, member))

	case ActionDecrement, ActionIncrement, ActionResetPower, ActionRemoveMember:
		member, err := p.String("member")
		if err != nil {
			return Result{}, err
		}
		switch action {
		case ActionDecrement:
			return changed(s.svc.Decrement(ctx, u, recordID, member))
		case ActionIncrement:
			return changed(s.svc.Increment(ctx, u, recordID, member))
		case ActionResetPower:
			return changed(s.svc.Reset(ctx, u, recordID, member))
		default:
			return changed(s.svc.RemoveMember(ctx, u, recordID, member))
		}

	case ActionSetPower:
		member, err := p.String("member")
		if err != nil {
			return Result{}, err
		}
		var value *int
		raw := strings.TrimSpace(p.Optional("value"))
		if raw != "" && raw != "clear" {
			n, err := p.Int("value")
			if err != nil {
				return Result{}, err
			}
			value = &n
		}
		return changed(s.svc.SetPower(ctx, u, recordID, member, value))

	case ActionRest:
		return changed(s.svc.Rest(ctx, u, recordID))

	case ActionAddMember:
		candidate, err := p.String("actor")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.AddMember(ctx, u, recordID, candidate))

	case ActionEditText:
		field, err := p.String("field")
		if err != nil {
			return Result{}, err
		}
		value, err := p.String("value")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.EditText(ctx, u, recordID, field, value))

	case ActionSetSize:
		size, err := p.Int("size")
		if err != nil {
			return Result{}, err
		}
		return changed(s.svc.SetSize(ctx, u, recordID, size))
	}
	return Result{}, badPayload("action", action)
}
