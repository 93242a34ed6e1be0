// Package organization implements the Kingdoms & Warfare organization actor:
// skills and defenses derived from development tracks, the per-member power
// pool and the skill test.
//
// Derived values (skill bonus, defense score, power die) are computed from a
// normalized Organization on demand and never stored.
package organization

import (
	"sort"

	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// DevelopmentField records points spent on a stat. Start is the track value the
// stat begins at; Spec is a specialization offset that only shifts the
// display headstart.
type DevelopmentField struct {
	Points int `json:"points"`
	Start  int `json:"start"`
	Spec   int `json:"spec"`
}

// Clamp bounds Points to the track.
//
// Precondition: t is non-empty.
func (d DevelopmentField) Clamp(t ruleset.Track) DevelopmentField {
	d.Points = t.Clamp(d.Points)
	return d
}

// Headstart is the track index of Start+Spec, or -1 when that value is not on the track.
func (d DevelopmentField) Headstart(t ruleset.Track) int {
	return t.Index(d.Start + d.Spec)
}

// DisplayValue is the number of points bought beyond the headstart.
func (d DevelopmentField) DisplayValue(t ruleset.Track) int {
	return d.Points - d.Headstart(t)
}

// Skill is an organization skill.
type Skill struct {
	Development DevelopmentField `json:"development"`
}

// Defense is an organization defense with a level modifier.
type Defense struct {
	Level       int              `json:"level"`
	Development DevelopmentField `json:"development"`
}

// SkillBonus resolves a skill's bonus.
//
// Precondition: dev.Points is within t; see DevelopmentField.Clamp.
func SkillBonus(dev DevelopmentField, t ruleset.Track) int {
	return t.At(dev.Points)
}

// DefenseScore resolves a defense score.
//
// Precondition: dev.Points is within t.
func DefenseScore(level int, dev DevelopmentField, t ruleset.Track) int {
	return t.At(dev.Points) + level
}

// PowerPool maps member actor ids to their power die. A nil value means the
// member has not rolled yet, 0 means exhausted.
type PowerPool map[string]*int

// Organization is the system payload of an organization document.
type Organization struct {
	Skills    map[string]Skill   `json:"skills"`
	Defenses  map[string]Defense `json:"defenses"`
	Size      int                `json:"size"`
	PowerPool PowerPool          `json:"powerPool"`
	Powers    string             `json:"powers"`
	Features  string             `json:"features"`
}

// New returns an organization with every stat at its starting value.
func New(rs *ruleset.Ruleset) Organization {
	o := Organization{}
	o.Normalize(rs)
	return o
}

func defaultSkill(rs *ruleset.Ruleset) Skill {
	return Skill{Development: DevelopmentField{Start: rs.Tracks.Skills.Min()}}
}

func defaultDefense(rs *ruleset.Ruleset) Defense {
	return Defense{Development: DevelopmentField{Start: rs.Tracks.Defenses.Min()}}
}

// Normalize fills missing stats, clamps development points to their tracks,
// resets levels outside the configured choices to 0, bounds size to the
// configured sizes and pool values to [0, powerDie].
//
// Postcondition: every derived accessor is safe to call.
func (o *Organization) Normalize(rs *ruleset.Ruleset) {
	if o.Skills == nil {
		o.Skills = make(map[string]Skill, len(ruleset.SkillKeys))
	}
	for _, key := range ruleset.SkillKeys {
		s, ok := o.Skills[key]
		if !ok {
			s = defaultSkill(rs)
		}
		s.Development = s.Development.Clamp(rs.Tracks.Skills)
		o.Skills[key] = s
	}

	if o.Defenses == nil {
		o.Defenses = make(map[string]Defense, len(ruleset.DefenseKeys))
	}
	for _, key := range ruleset.DefenseKeys {
		d, ok := o.Defenses[key]
		if !ok {
			d = defaultDefense(rs)
		}
		d.Development = d.Development.Clamp(rs.Tracks.Defenses)
		if !rs.LevelAllowed(key, d.Level) {
			d.Level = 0
		}
		o.Defenses[key] = d
	}

	sizes := rs.SizeKeys()
	switch {
	case o.Size < sizes[0]:
		o.Size = sizes[0]
	case o.Size > sizes[len(sizes)-1]:
		o.Size = sizes[len(sizes)-1]
	}

	if o.PowerPool == nil {
		o.PowerPool = PowerPool{}
	}
	if e, err := rs.Size(o.Size); err == nil {
		for id, v := range o.PowerPool {
			if v == nil {
				continue
			}
			if c := clampValue(*v, e.PowerDie); c != *v {
				o.PowerPool[id] = &c
			}
		}
	}
}

func clampValue(v, die int) int {
	if v < 0 {
		return 0
	}
	if v > die {
		return die
	}
	return v
}

// SkillBonus returns the derived bonus for skill key.
//
// Precondition: o is normalized and key is one of ruleset.SkillKeys.
func (o Organization) SkillBonus(rs *ruleset.Ruleset, key string) int {
	return SkillBonus(o.Skills[key].Development, rs.Tracks.Skills)
}

// DefenseScore returns the derived score for defense key.
//
// Precondition: o is normalized and key is one of ruleset.DefenseKeys.
func (o Organization) DefenseScore(rs *ruleset.Ruleset, key string) int {
	d := o.Defenses[key]
	return DefenseScore(d.Level, d.Development, rs.Tracks.Defenses)
}

// PowerDie returns the number of sides of the organization's power die.
func (o Organization) PowerDie(rs *ruleset.Ruleset) (int, error) {
	e, err := rs.Size(o.Size)
	if err != nil {
		return 0, err
	}
	return e.PowerDie, nil
}

// Members returns the pool member ids in ascending order.
func (p PowerPool) Members() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
