package organization

import (
	"context"
	"strconv"

	"github.com/cory-johannsen/knw/internal/chat"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/game/actor"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// Text fields editable with EditText.
const (
	FieldName     = "name"
	FieldPowers   = "powers"
	FieldFeatures = "features"
)

func invalid(field, value string) error {
	return chat.Warn("KNW.Warning.BadPayload", map[string]string{"field": field, "value": value}).Wrap(ErrInvalidValue)
}

// EditLevel sets a defense level. The level must be a configured choice.
func (s *Service) EditLevel(ctx context.Context, u actor.User, orgID, defense string, level int) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.Org.Defenses[defense]; !ok || !s.Rules.LevelAllowed(defense, level) {
		return nil, invalid(defense, strconv.Itoa(level))
	}
	return s.update(ctx, rec, document.Patch{
		document.Set("system.defenses."+defense+".level", level),
	})
}

// EditDevelopment sets the points spent on a skill or defense, clamped to its track.
func (s *Service) EditDevelopment(ctx context.Context, u actor.User, orgID, group, key string, points int) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	track := s.Rules.Track(group)
	known := false
	switch group {
	case ruleset.GroupSkills:
		_, known = rec.Org.Skills[key]
	case ruleset.GroupDefenses:
		_, known = rec.Org.Defenses[key]
	}
	if track == nil || !known {
		return nil, invalid(group+"."+key, strconv.Itoa(points))
	}
	return s.update(ctx, rec, document.Patch{
		document.Set(DevelopmentPath(group, key)+".points", track.Clamp(points)),
	})
}

// EditText replaces the name, powers or features text.
func (s *Service) EditText(ctx context.Context, u actor.User, orgID, field, value string) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	var op document.Op
	switch field {
	case FieldName:
		op = document.Set("name", value)
	case FieldPowers, FieldFeatures:
		op = document.Set("system."+field, value)
	default:
		return nil, invalid(field, value)
	}
	return s.update(ctx, rec, document.Patch{op})
}

// SetSize changes the organization size. Pool values above the new power die
// are lowered to it in the same update.
func (s *Service) SetSize(ctx context.Context, u actor.User, orgID string, size int) (*Record, error) {
	rec, err := s.loadEditable(ctx, u, orgID)
	if err != nil {
		return nil, err
	}
	e, err := s.Rules.Size(size)
	if err != nil {
		return nil, invalid("size", strconv.Itoa(size))
	}
	patch := append(document.Patch{document.Set("system.size", size)}, rec.Org.PowerPool.Clip(e.PowerDie)...)
	return s.update(ctx, rec, patch)
}
