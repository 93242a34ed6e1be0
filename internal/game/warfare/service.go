package warfare

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/condition"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/i18n"
)

var (
	// ErrForbidden is returned when the user may not edit the unit.
	ErrForbidden = errors.New("forbidden")
	// ErrWrongType is returned when a document is not a warfare unit.
	ErrWrongType = errors.New("not a warfare unit")
	// ErrInvalidValue is returned for edits the ruleset does not allow.
	ErrInvalidValue = errors.New("invalid value")
	// ErrRejectedCommander is returned when an actor may not command a unit.
	ErrRejectedCommander = errors.New("actor cannot command")
	// ErrUnknownEffect is returned for effect ids not on the unit.
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrUnknownStatus is returned for statuses not registered for warfare units.
	ErrUnknownStatus = errors.New("unknown status")
)

// DefaultEffectImg is the icon of effects created from the sheet.
const DefaultEffectImg = "icons/svg/aura.svg"

// StatRoll describes a completed statistic test.
type StatRoll struct {
	UnitID        string
	UnitName      string
	Stat          string
	CommanderName string
	Natural       int
	Total         int
}

// StatRollObserver is notified after every statistic test.
type StatRollObserver interface {
	StatRolled(ctx context.Context, r StatRoll) error
}

// Record is a loaded warfare document with its normalized payload.
type Record struct {
	Doc  *document.Document
	Unit Unit
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Rules    *ruleset.Ruleset
	Store    document.Store
	Members  actor.Directory
	Statuses *condition.Registry
	Roller   *dice.Roller
	Chat     chat.Messenger
	Notifier chat.Notifier
	Locale   i18n.Localizer
	Observer StatRollObserver
	Logger   *zap.Logger
}

// Service runs warfare unit operations against the document store.
type Service struct {
	Deps
}

// NewService creates a Service.
//
// Precondition: every field of d except Observer must be non-nil.
func NewService(d Deps) *Service {
	return &Service{Deps: d}
}

// Load reads and normalizes the unit with id.
func (s *Service) Load(ctx context.Context, id string) (*Record, error) {
	doc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(doc)
}

func (s *Service) decode(doc *document.Document) (*Record, error) {
	if doc.Type != ruleset.TypeWarfare {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongType, doc.ID, doc.Type)
	}
	u := New()
	if err := doc.Decode(&u); err != nil {
		return nil, err
	}
	u.Normalize(s.Rules)
	return &Record{Doc: doc, Unit: u}, nil
}

// Create stores a new unit owned by u.
func (s *Service) Create(ctx context.Context, u actor.User, name string) (*Record, error) {
	doc, err := document.New(ruleset.TypeWarfare, name, New())
	if err != nil {
		return nil, err
	}
	doc.Owners = []string{u.ID}
	created, err := s.Store.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("creating warfare unit: %w", err)
	}
	return s.decode(created)
}

func (s *Service) loadEditable(ctx context.Context, u actor.User, id string) (*Record, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.CanEdit(rec.Doc) {
		return nil, chat.Warn("KNW.Warning.Forbidden", map[string]string{"name": rec.Doc.Name}).Wrap(ErrForbidden)
	}
	return rec, nil
}

func (s *Service) update(ctx context.Context, rec *Record, patch document.Patch) (*Record, error) {
	if len(patch) == 0 {
		return rec, nil
	}
	doc, err := s.Store.Update(ctx, rec.Doc.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating warfare unit %s: %w", rec.Doc.ID, err)
	}
	s.Logger.Debug("warfare unit updated",
		zap.String("id", doc.ID),
		zap.Strings("paths", patch.Paths()),
	)
	return s.decode(doc)
}

func invalid(field, value string) error {
	return chat.Warn("KNW.Warning.BadPayload", map[string]string{"field": field, "value": value}).Wrap(ErrInvalidValue)
}

// commander resolves the unit's commander, or nil when unset or unresolvable.
func (s *Service) commander(ctx context.Context, rec *Record) actor.Member {
	if rec.Unit.Commander == "" {
		return nil
	}
	m, err := s.Members.Member(ctx, rec.Unit.Commander)
	if err != nil {
		s.Logger.Debug("commander not resolvable",
			zap.String("unit", rec.Doc.ID),
			zap.String("commander", rec.Unit.Commander),
			zap.Error(err),
		)
		return nil
	}
	return m
}

// CommanderName returns the commander's name, or the localized "None".
func (s *Service) CommanderName(ctx context.Context, rec *Record) string {
	if m := s.commander(ctx, rec); m != nil {
		return m.Name()
	}
	return s.Locale.Localize("KNW.Warfare.Commander.None")
}

// RollStat rolls 1d20 + the unit's stat. The flavor names the commander, or
// nobody when there is none.
func (s *Service) RollStat(ctx context.Context, u actor.User, unitID, stat string) (dice.CheckResult, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return dice.CheckResult{}, err
	}
	value, err := rec.Unit.Stat(stat)
	if err != nil {
		return dice.CheckResult{}, chat.Warn("KNW.Warfare.Statistics.Warning.Unknown", map[string]string{"stat": stat}).Wrap(err)
	}
	commanderName := ""
	if m := s.commander(ctx, rec); m != nil {
		commanderName = m.Name()
	}
	statName := s.Locale.Localize(StatLabel(stat))
	flavor := s.Locale.Format("KNW.Warfare.Statistics.Test", map[string]string{
		"stat":      statName,
		"actorName": commanderName,
	})
	res, err := s.Roller.Check(dice.Check{
		Title:     flavor,
		Modifiers: []dice.Modifier{{Label: statName, Value: value}},
	})
	if err != nil {
		return dice.CheckResult{}, fmt.Errorf("rolling %s: %w", stat, err)
	}
	if _, err := s.Chat.Post(ctx, chat.Message{
		SpeakerID:   rec.Doc.ID,
		SpeakerName: rec.Doc.Name,
		AuthorID:    u.ID,
		Flavor:      flavor,
		Roll:        &res.Roll,
	}); err != nil {
		return dice.CheckResult{}, fmt.Errorf("posting %s test: %w", stat, err)
	}
	if s.Observer != nil {
		if err := s.Observer.StatRolled(ctx, StatRoll{
			UnitID:        rec.Doc.ID,
			UnitName:      rec.Doc.Name,
			Stat:          stat,
			CommanderName: commanderName,
			Natural:       res.Natural(),
			Total:         res.Total(),
		}); err != nil {
			s.Logger.Warn("stat roll observer failed", zap.String("unit", rec.Doc.ID), zap.Error(err))
		}
	}
	return res, nil
}

// SetCommander assigns actorID as commander. Compendium actors and actors
// without a proficiency bonus are rejected with a warning notice.
func (s *Service) SetCommander(ctx context.Context, u actor.User, unitID, actorID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	m, err := s.Members.Member(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if m.Pack() != "" {
		return nil, chat.Warn("KNW.Warfare.Commander.Warning.Pack", nil).Wrap(ErrRejectedCommander)
	}
	if _, err := m.ProficiencyBonus(); err != nil {
		return nil, chat.Warn("KNW.Warfare.Commander.Warning.NoProf", nil).Wrap(ErrRejectedCommander)
	}
	return s.update(ctx, rec, document.Patch{document.Set("system.commander", m.ID())})
}

// ClearCommander removes the commander and tells the user who was removed.
func (s *Service) ClearCommander(ctx context.Context, u actor.User, unitID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	if rec.Unit.Commander == "" {
		return rec, nil
	}
	name := rec.Unit.Commander
	if m := s.commander(ctx, rec); m != nil {
		name = m.Name()
	}
	s.Notifier.Notify(ctx, u.ID, chat.LevelInfo, s.Locale.Format("KNW.Warfare.Commander.Warning.Remove", map[string]string{
		"commanderName": name,
		"warfareUnit":   rec.Doc.Name,
	}))
	return s.update(ctx, rec, document.Patch{document.Set("system.commander", "")})
}

// ConfigureTraits replaces the semicolon separated trait list.
func (s *Service) ConfigureTraits(ctx context.Context, u actor.User, unitID, traits string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, document.Patch{document.Set("system.traitList", traits)})
}

// EditStat sets one field of the unit from its text form.
func (s *Service) EditStat(ctx context.Context, u actor.User, unitID, field, value string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	op, err := s.fieldOp(field, value)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, document.Patch{op})
}

func (s *Service) fieldOp(field, value string) (document.Op, error) {
	switch field {
	case "name":
		return document.Set("name", value), nil
	case "ancestry":
		return document.Set("system.ancestry", value), nil
	case "experience":
		if !s.Rules.HasExperience(value) {
			return document.Op{}, invalid(field, value)
		}
	case "gear":
		if !s.Rules.HasGear(value) {
			return document.Op{}, invalid(field, value)
		}
	case "type":
		if _, ok := s.Rules.UnitType(value); !ok {
			return document.Op{}, invalid(field, value)
		}
	case StatAttack, StatDefense, StatPower, StatToughness, StatMorale, StatCommand,
		"attacks", "dmg", "mov", "tier", "size.value", "size.max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return document.Op{}, invalid(field, value)
		}
		if field == "tier" {
			if _, ok := s.Rules.TierLabel(n); !ok {
				return document.Op{}, invalid(field, value)
			}
		}
		if (field == "size.value" || field == "size.max") && n < 0 {
			return document.Op{}, invalid(field, value)
		}
		return document.Set("system."+field, n), nil
	default:
		return document.Op{}, invalid(field, value)
	}
	return document.Set("system."+field, value), nil
}

func effectsPatch(effects []Effect) document.Patch {
	return document.Patch{document.Set("system.effects", effects)}
}

// CreateEffect appends a new enabled effect and returns its id.
func (s *Service) CreateEffect(ctx context.Context, u actor.User, unitID, name string) (*Record, string, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = s.Locale.Localize("KNW.Warfare.Effects.New")
	}
	e := Effect{ID: uuid.NewString(), Name: name, Img: DefaultEffectImg}
	next, err := s.update(ctx, rec, effectsPatch(append(slices.Clone(rec.Unit.Effects), e)))
	if err != nil {
		return nil, "", err
	}
	return next, e.ID, nil
}

func (s *Service) unknownEffect(rec *Record, id string) error {
	return chat.Warn("KNW.Warfare.Effects.Warning.Unknown", map[string]string{"id": id, "name": rec.Doc.Name}).Wrap(ErrUnknownEffect)
}

// ToggleEffect flips an effect's disabled flag.
func (s *Service) ToggleEffect(ctx context.Context, u actor.User, unitID, effectID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	i := rec.Unit.Effect(effectID)
	if i < 0 {
		return nil, s.unknownEffect(rec, effectID)
	}
	path := "system.effects." + strconv.Itoa(i) + ".disabled"
	return s.update(ctx, rec, document.Patch{document.Set(path, !rec.Unit.Effects[i].Disabled)})
}

// DeleteEffect removes an effect.
func (s *Service) DeleteEffect(ctx context.Context, u actor.User, unitID, effectID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, err
	}
	i := rec.Unit.Effect(effectID)
	if i < 0 {
		return nil, s.unknownEffect(rec, effectID)
	}
	return s.update(ctx, rec, effectsPatch(slices.Delete(slices.Clone(rec.Unit.Effects), i, i+1)))
}

// ToggleStatus removes every effect carrying statusID, or adds one when none does.
// It reports whether the status is active afterwards.
func (s *Service) ToggleStatus(ctx context.Context, u actor.User, unitID, statusID string) (*Record, bool, error) {
	rec, err := s.loadEditable(ctx, u, unitID)
	if err != nil {
		return nil, false, err
	}
	def, ok := s.Statuses.Get(statusID)
	if !ok || !def.AppliesTo(ruleset.TypeWarfare) {
		return nil, false, chat.Warn("KNW.Warfare.Status.Warning.Unknown", map[string]string{"status": statusID}).Wrap(ErrUnknownStatus)
	}

	kept := make([]Effect, 0, len(rec.Unit.Effects))
	for _, e := range rec.Unit.Effects {
		if !slices.Contains(e.Statuses, statusID) {
			kept = append(kept, e)
		}
	}
	active := len(kept) == len(rec.Unit.Effects)
	if active {
		kept = append(kept, Effect{
			ID:       uuid.NewString(),
			Name:     s.Locale.Localize(def.Name),
			Img:      def.Img,
			Statuses: []string{def.ID},
		})
	}
	next, err := s.update(ctx, rec, effectsPatch(kept))
	if err != nil {
		return nil, false, err
	}
	return next, active, nil
}

// ActiveStatuses returns the registered statuses active on rec.
func (s *Service) ActiveStatuses(rec *Record) *condition.ActiveSet {
	set := condition.NewActiveSet(s.Statuses)
	for _, id := range rec.Unit.ActiveStatuses() {
		set.Apply(id)
	}
	return set
}
