package organization

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/i18n"
)

var (
	// ErrForbidden is returned when the user may not edit the organization.
	ErrForbidden = errors.New("forbidden")
	// ErrWrongType is returned when a document is not an organization.
	ErrWrongType = errors.New("not an organization")
	// ErrUnknownSkill is returned for skill keys outside ruleset.SkillKeys.
	ErrUnknownSkill = errors.New("unknown organization skill")
	// ErrNoEligibleMember is returned when the user controls no pool member.
	ErrNoEligibleMember = errors.New("no eligible member")
	// ErrInvalidValue is returned for edits the ruleset does not allow.
	ErrInvalidValue = errors.New("invalid value")
)

// Chooser picks the acting member when several are eligible.
type Chooser interface {
	Choose(ctx context.Context, prompt string, options []actor.Member) (actor.Member, error)
}

// PowerRoll describes a completed power die roll.
type PowerRoll struct {
	OrganizationID   string
	OrganizationName string
	MemberID         string
	MemberName       string
	Die              int
	Value            int
}

// PowerRollObserver is notified after every power die roll.
type PowerRollObserver interface {
	PowerRolled(ctx context.Context, r PowerRoll) error
}

// Record is a loaded organization document with its normalized payload.
type Record struct {
	Doc *document.Document
	Org Organization
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Rules    *ruleset.Ruleset
	Store    document.Store
	Members  actor.Directory
	Roller   *dice.Roller
	Chat     chat.Messenger
	Notifier chat.Notifier
	Locale   i18n.Localizer
	Observer PowerRollObserver
	Logger   *zap.Logger
}

// Service runs organization operations against the document store.
type Service struct {
	Deps
}

// NewService creates a Service.
//
// Precondition: every field of d except Observer must be non-nil.
func NewService(d Deps) *Service {
	return &Service{Deps: d}
}

// Load reads and normalizes the organization with id.
func (s *Service) Load(ctx context.Context, id string) (*Record, error) {
	doc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(doc)
}

func (s *Service) decode(doc *document.Document) (*Record, error) {
	if doc.Type != ruleset.TypeOrganization {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongType, doc.ID, doc.Type)
	}
	var org Organization
	if err := doc.Decode(&org); err != nil {
		return nil, err
	}
	org.Normalize(s.Rules)
	return &Record{Doc: doc, Org: org}, nil
}

// Create stores a new organization owned by u.
func (s *Service) Create(ctx context.Context, u actor.User, name string) (*Record, error) {
	doc, err := document.New(ruleset.TypeOrganization, name, New(s.Rules))
	if err != nil {
		return nil, err
	}
	doc.Owners = []string{u.ID}
	created, err := s.Store.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}
	return s.decode(created)
}

func (s *Service) update(ctx context.Context, rec *Record, patch document.Patch) (*Record, error) {
	if len(patch) == 0 {
		return rec, nil
	}
	doc, err := s.Store.Update(ctx, rec.Doc.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating organization %s: %w", rec.Doc.ID, err)
	}
	s.Logger.Debug("organization updated",
		zap.String("id", doc.ID),
		zap.Strings("paths", patch.Paths()),
	)
	return s.decode(doc)
}

// loadEditable loads id and requires u to be able to edit it.
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

// loadForMember loads id and requires u to control memberID or edit the organization.
func (s *Service) loadForMember(ctx context.Context, u actor.User, id, memberID string) (*Record, actor.Member, error) {
	rec, err := s.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := rec.Org.PowerPool[memberID]; !ok {
		return nil, nil, s.notMember(rec, memberID)
	}
	m, err := s.Members.Member(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}
	if !u.CanEdit(rec.Doc) && !m.ControlledBy(u) {
		return nil, nil, chat.Warn("KNW.Warning.Forbidden", map[string]string{"name": m.Name()}).Wrap(ErrForbidden)
	}
	return rec, m, nil
}

func (s *Service) notMember(rec *Record, memberID string) error {
	return chat.Warn("KNW.Organization.Power.Warning.NotMember", map[string]string{
		"name":         memberID,
		"organization": rec.Doc.Name,
	}).Wrap(ErrNotMember)
}

// memberName resolves a display name, falling back to the id.
func (s *Service) memberName(ctx context.Context, id string) string {
	m, err := s.Members.Member(ctx, id)
	if err != nil {
		return id
	}
	return m.Name()
}

// RollPowerDie rolls memberID's power die: Available -> Holding(v), v in [1, powerDie].
//
// Postcondition: On success the new value is persisted and one chat message
// carrying the roll is posted.
func (s *Service) RollPowerDie(ctx context.Context, u actor.User, orgID, memberID string) (*Record, int, error) {
	rec, m, err := s.loadForMember(ctx, u, orgID, memberID)
	if err != nil {
		return nil, 0, err
	}
	return s.rollPowerDie(ctx, u, rec, m)
}

func (s *Service) rollPowerDie(ctx context.Context, u actor.User, rec *Record, m actor.Member) (*Record, int, error) {
	die, err := rec.Org.PowerDie(s.Rules)
	if err != nil {
		return nil, 0, err
	}
	if state, _, _ := rec.Org.PowerPool.State(m.ID()); state != Available {
		return nil, 0, fmt.Errorf("%w: %s is %s", ErrAlreadyRolled, m.ID(), state)
	}
	roll, err := s.Roller.RollDie(die)
	if err != nil {
		return nil, 0, fmt.Errorf("rolling power die: %w", err)
	}
	value := roll.Total()
	patch, err := rec.Org.PowerPool.Hold(m.ID(), value, die)
	if err != nil {
		return nil, 0, err
	}
	next, err := s.update(ctx, rec, patch)
	if err != nil {
		return nil, 0, err
	}
	if _, err := s.Chat.Post(ctx, chat.Message{
		SpeakerID:   m.ID(),
		SpeakerName: m.Name(),
		AuthorID:    u.ID,
		Flavor: s.Locale.Format("KNW.Organization.Power.Roll", map[string]string{
			"member":       m.Name(),
			"organization": rec.Doc.Name,
		}),
		Roll: &roll,
	}); err != nil {
		return nil, 0, fmt.Errorf("posting power roll: %w", err)
	}
	if s.Observer != nil {
		if err := s.Observer.PowerRolled(ctx, PowerRoll{
			OrganizationID:   rec.Doc.ID,
			OrganizationName: rec.Doc.Name,
			MemberID:         m.ID(),
			MemberName:       m.Name(),
			Die:              die,
			Value:            value,
		}); err != nil {
			s.Logger.Warn("power roll observer failed", zap.String("organization", rec.Doc.ID), zap.Error(err))
		}
	}
	return next, value, nil
}

// Cycle advances memberID through the pool: Available rolls, Exhausted becomes
// Available, Holding(v) is taken to 0 with one chat message naming v.
func (s *Service) Cycle(ctx context.Context, u actor.User, orgID, memberID string) (*Record, error) {
	rec, m, err := s.loadForMember(ctx, u, orgID, memberID)
	if err != nil {
		return nil, err
	}
	state, _, err := rec.Org.PowerPool.State(memberID)
	if err != nil {
		return nil, err
	}
	switch state {
	case Available:
		next, _, err := s.rollPowerDie(ctx, u, rec, m)
		return next, err
	case Exhausted:
		patch, err := rec.Org.PowerPool.Reset(memberID)
		if err != nil {
			return nil, err
		}
		return s.update(ctx, rec, patch)
	}

	taken, patch, err := rec.Org.PowerPool.Take(memberID)
	if err != nil {
		return nil, err
	}
	next, err := s.update(ctx, rec, patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.Chat.Post(ctx, chat.Message{
		SpeakerID:   m.ID(),
		SpeakerName: m.Name(),
		AuthorID:    u.ID,
		Flavor: s.Locale.Format("KNW.Organization.Power.Take", map[string]string{
			"member":       m.Name(),
			"value":        strconv.Itoa(taken),
			"organization": rec.Doc.Name,
		}),
	}); err != nil {
		return nil, fmt.Errorf("posting power take: %w", err)
	}
	return next, nil
}

// Decrement spends one point of memberID's die.
//
// Postcondition: Available entries are rejected with a notice wrapping
// ErrNotRolled; Exhausted entries are left unchanged.
func (s *Service) Decrement(ctx context.Context, u actor.User, orgID, memberID string) (*Record, error) {
	rec, m, err := s.loadForMember(ctx, u, orgID, memberID)
	if err != nil {
		return nil, err
	}
	patch, err := rec.Org.PowerPool.Decrement(memberID)
	if errors.Is(err, ErrNotRolled) {
		return nil, chat.Warn("KNW.Organization.Power.Warning.NotRolled", map[string]string{"name": m.Name()}).Wrap(ErrNotRolled)
	}
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, patch)
}

// Increment adds one point to memberID's die, capped at the power die. Editors only.
func (s *Service) Increment(ctx context.Context, u actor.User, orgID, memberID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	die, err := rec.Org.PowerDie(s.Rules)
	if err != nil {
		return nil, err
	}
	patch, err := rec.Org.PowerPool.Increment(memberID, die)
	switch {
	case errors.Is(err, ErrNotMember):
		return nil, s.notMember(rec, memberID)
	case errors.Is(err, ErrNotRolled):
		return nil, chat.Warn("KNW.Organization.Power.Warning.NotRolled", map[string]string{
			"name": s.memberName(ctx, memberID),
		}).Wrap(ErrNotRolled)
	case err != nil:
		return nil, err
	}
	return s.update(ctx, rec, patch)
}

// Reset returns memberID to Available. Editors only.
func (s *Service) Reset(ctx context.Context, u actor.User, orgID, memberID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	patch, err := rec.Org.PowerPool.Reset(memberID)
	if errors.Is(err, ErrNotMember) {
		return nil, s.notMember(rec, memberID)
	}
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, patch)
}

// Rest resets every pool entry and announces the extended rest. Editors only.
func (s *Service) Rest(ctx context.Context, u actor.User, orgID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	next, err := s.update(ctx, rec, rec.Org.PowerPool.Rest())
	if err != nil {
		return nil, err
	}
	if _, err := s.Chat.Post(ctx, chat.Message{
		SpeakerID:   rec.Doc.ID,
		SpeakerName: rec.Doc.Name,
		AuthorID:    u.ID,
		Flavor:      s.Locale.Format("KNW.Organization.Power.Rest", map[string]string{"organization": rec.Doc.Name}),
	}); err != nil {
		return nil, fmt.Errorf("posting rest: %w", err)
	}
	return next, nil
}

// SetPower assigns memberID's value directly, or clears it when value is nil. Editors only.
func (s *Service) SetPower(ctx context.Context, u actor.User, orgID, memberID string, value *int) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	die, err := rec.Org.PowerDie(s.Rules)
	if err != nil {
		return nil, err
	}
	patch, err := rec.Org.PowerPool.Set(memberID, value, die)
	switch {
	case errors.Is(err, ErrNotMember):
		return nil, s.notMember(rec, memberID)
	case errors.Is(err, ErrOutOfRange):
		return nil, chat.Warn("KNW.Organization.Power.Warning.Range", map[string]string{"max": strconv.Itoa(die)}).Wrap(ErrOutOfRange)
	case err != nil:
		return nil, err
	}
	return s.update(ctx, rec, patch)
}

// AddMember links candidateID to the pool as Available. Candidates that are
// already members, come from a compendium pack, or lack a proficiency bonus
// are rejected with a warning notice and nothing is written. Editors only.
func (s *Service) AddMember(ctx context.Context, u actor.User, orgID, candidateID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	m, err := s.Members.Member(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.Org.PowerPool[m.ID()]; ok {
		return nil, chat.Warn("KNW.Organization.Power.Warning.Member", map[string]string{
			"name":         m.Name(),
			"organization": rec.Doc.Name,
		}).Wrap(ErrAlreadyMember)
	}
	if m.Pack() != "" {
		return nil, chat.Warn("KNW.Organization.Power.Warning.Pack", nil).Wrap(ErrInvalidValue)
	}
	if _, err := m.ProficiencyBonus(); err != nil {
		return nil, chat.Warn("KNW.Organization.Power.Warning.NoProf", nil).Wrap(err)
	}
	patch, err := rec.Org.PowerPool.Add(m.ID())
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, patch)
}

// RemoveMember deletes memberID's pool entry. Editors only.
func (s *Service) RemoveMember(ctx context.Context, u actor.User, orgID, memberID string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	patch, err := rec.Org.PowerPool.Remove(memberID)
	if errors.Is(err, ErrNotMember) {
		return nil, s.notMember(rec, memberID)
	}
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rec, patch)
}
