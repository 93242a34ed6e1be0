package organization

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// SkillTest is the outcome of an organization skill test.
type SkillTest struct {
	Member      actor.Member
	Proficiency int
	Result      dice.CheckResult
}

// eligibleMembers returns the pool members u controls, in pool order.
// Members whose documents cannot be resolved are skipped.
func (s *Service) eligibleMembers(ctx context.Context, u actor.User, rec *Record) []actor.Member {
	var out []actor.Member
	for _, id := range rec.Org.PowerPool.Members() {
		m, err := s.Members.Member(ctx, id)
		if err != nil {
			s.Logger.Warn("skipping unresolvable pool member",
				zap.String("organization", rec.Doc.ID),
				zap.String("member", id),
				zap.Error(err),
			)
			continue
		}
		if m.ControlledBy(u) {
			out = append(out, m)
		}
	}
	return out
}

// SkillProficiency returns the proficiency added to a skill test by m.
// The bonus applies only when useProf is set and m is proficient in at least
// one of the member skills associated with skill.
func SkillProficiency(rs *ruleset.Ruleset, skill string, m actor.Member, bonus int, useProf bool) int {
	if !useProf {
		return 0
	}
	for _, sub := range rs.AssocSkills[skill] {
		if m.Proficient(sub) {
			return bonus
		}
	}
	return 0
}

// RollSkill rolls 1d20 + skill bonus, adding the acting member's proficiency
// when useProf applies. With several eligible members chooser picks one; with
// none the test is refused with a warning notice and nothing is rolled.
//
// A member without a proficiency bonus is warned about and rolls with 0.
func (s *Service) RollSkill(ctx context.Context, u actor.User, orgID, skill string, useProf bool, chooser Chooser) (SkillTest, error) {
	rec, err := s.Load(ctx, orgID)
	if err != nil {
		return SkillTest{}, err
	}
	if _, ok := rec.Org.Skills[skill]; !ok {
		return SkillTest{}, chat.Warn("KNW.Organization.Skills.Warning.UnknownSkill", map[string]string{"skill": skill}).Wrap(ErrUnknownSkill)
	}

	eligible := s.eligibleMembers(ctx, u, rec)
	var m actor.Member
	switch len(eligible) {
	case 0:
		return SkillTest{}, chat.Warn("KNW.Organization.Skills.Warning.NoMember", map[string]string{
			"organization": rec.Doc.Name,
		}).Wrap(ErrNoEligibleMember)
	case 1:
		m = eligible[0]
	default:
		if chooser == nil {
			return SkillTest{}, fmt.Errorf("%d eligible members and no chooser", len(eligible))
		}
		m, err = chooser.Choose(ctx, s.Locale.Localize("KNW.Organization.Skills.Choose"), eligible)
		if err != nil {
			return SkillTest{}, err
		}
	}

	bonus, err := m.ProficiencyBonus()
	if errors.Is(err, actor.ErrMissingCapability) {
		s.Notifier.Notify(ctx, u.ID, chat.LevelWarn, s.Locale.Format("KNW.Organization.Skills.Warning.NoProf", map[string]string{"name": m.Name()}))
		bonus = 0
	} else if err != nil {
		return SkillTest{}, err
	}
	prof := SkillProficiency(s.Rules, skill, m, bonus, useProf)

	skillName := s.Locale.Localize(SkillLabel(skill))
	title := s.Locale.Format("KNW.Organization.Skills.Test", map[string]string{
		"skill":        skillName,
		"organization": rec.Doc.Name,
	})
	res, err := s.Roller.Check(dice.Check{
		Title: title,
		Modifiers: []dice.Modifier{
			{Label: skillName, Value: rec.Org.SkillBonus(s.Rules, skill)},
			{Label: s.Locale.Localize("KNW.Organization.Skills.Proficiency"), Value: prof},
		},
	})
	if err != nil {
		return SkillTest{}, fmt.Errorf("rolling %s test: %w", skill, err)
	}
	if _, err := s.Chat.Post(ctx, chat.Message{
		SpeakerID:   m.ID(),
		SpeakerName: m.Name(),
		AuthorID:    u.ID,
		Flavor:      title,
		Roll:        &res.Roll,
	}); err != nil {
		return SkillTest{}, fmt.Errorf("posting %s test: %w", skill, err)
	}
	return SkillTest{Member: m, Proficiency: prof, Result: res}, nil
}
