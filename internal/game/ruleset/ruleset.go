// Package ruleset holds the static Kingdoms & Warfare configuration shared by
// organization and warfare records: choice enumerations, the size-to-power-die
// table, associated member skills and the development tracks.
//
// A Ruleset is built once at startup (Default or Load) and shared by pointer.
// It must not be mutated afterwards.
package ruleset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Actor type identifiers registered by this module.
const (
	TypeOrganization = "knw-actors.organization"
	TypeWarfare      = "knw-actors.warfare"
)

// Stat groups that own a development track.
const (
	GroupSkills   = "skills"
	GroupDefenses = "defenses"
)

// Organization skill keys.
const (
	SkillDiplomacy  = "dip"
	SkillEspionage  = "esp"
	SkillLore       = "lor"
	SkillOperations = "opr"
)

// Organization defense keys.
const (
	DefenseCommunications = "com"
	DefenseResolve        = "rlv"
	DefenseResources      = "rsc"
)

// SkillKeys lists the organization skills in display order.
var SkillKeys = []string{SkillDiplomacy, SkillEspionage, SkillLore, SkillOperations}

// DefenseKeys lists the organization defenses in display order.
var DefenseKeys = []string{DefenseCommunications, DefenseResolve, DefenseResources}

// Option is one keyed entry of a string choice set. Label is a catalog key.
type Option struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Choice is one entry of an integer choice set. Label is a catalog key.
type Choice struct {
	Value int    `yaml:"value"`
	Label string `yaml:"label"`
}

// UnitType is a warfare unit type with its display image.
type UnitType struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Img   string `yaml:"img"`
}

// SizeEntry maps an organization size to its power die.
type SizeEntry struct {
	PowerDie int    `yaml:"power_die"`
	DiePath  string `yaml:"die_path"`
}

// Tracks holds one development track per stat group.
type Tracks struct {
	Skills   Track `yaml:"skills"`
	Defenses Track `yaml:"defenses"`
}

// Ruleset is the immutable configuration table.
type Ruleset struct {
	SourceBooks   map[string]string   `yaml:"source_books"`
	Experience    []Option            `yaml:"experience"`
	Gear          []Option            `yaml:"gear"`
	UnitTypes     []UnitType          `yaml:"unit_types"`
	LevyImage     string              `yaml:"levy_image"`
	Tiers         map[int]string      `yaml:"tiers"`
	DefenseLevels map[string][]Choice `yaml:"defense_levels"`
	Sizes         map[int]SizeEntry   `yaml:"sizes"`
	AssocSkills   map[string][]string `yaml:"assoc_skills"`
	Tracks        Tracks              `yaml:"tracks"`
}

// ErrUnknownSize is returned when an organization size has no power die entry.
var ErrUnknownSize = errors.New("unknown organization size")

// Track returns the development track for group, or nil for an unknown group.
func (r *Ruleset) Track(group string) Track {
	switch group {
	case GroupSkills:
		return r.Tracks.Skills
	case GroupDefenses:
		return r.Tracks.Defenses
	}
	return nil
}

// Size returns the power die entry for an organization size.
//
// Postcondition: Returns ErrUnknownSize when size has no entry.
func (r *Ruleset) Size(size int) (SizeEntry, error) {
	e, ok := r.Sizes[size]
	if !ok {
		return SizeEntry{}, fmt.Errorf("%w: %d", ErrUnknownSize, size)
	}
	return e, nil
}

// SizeKeys returns the configured organization sizes in ascending order.
func (r *Ruleset) SizeKeys() []int {
	keys := make([]int, 0, len(r.Sizes))
	for k := range r.Sizes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// LevelAllowed reports whether level is one of the configured choices for defense.
func (r *Ruleset) LevelAllowed(defense string, level int) bool {
	for _, c := range r.DefenseLevels[defense] {
		if c.Value == level {
			return true
		}
	}
	return false
}

// HasExperience reports whether key is a configured experience level.
func (r *Ruleset) HasExperience(key string) bool { return hasOption(r.Experience, key) }

// HasGear reports whether key is a configured gear tier.
func (r *Ruleset) HasGear(key string) bool { return hasOption(r.Gear, key) }

// UnitType looks up a unit type by key.
func (r *Ruleset) UnitType(key string) (UnitType, bool) {
	for _, t := range r.UnitTypes {
		if t.Key == key {
			return t, true
		}
	}
	return UnitType{}, false
}

// TierLabel returns the display numeral for a unit tier.
func (r *Ruleset) TierLabel(tier int) (string, bool) {
	l, ok := r.Tiers[tier]
	return l, ok
}

func hasOption(opts []Option, key string) bool {
	for _, o := range opts {
		if o.Key == key {
			return true
		}
	}
	return false
}

// Validate checks the table's internal consistency.
//
// Postcondition: Returns nil, or an error listing every violation.
func (r *Ruleset) Validate() error {
	var errs []string
	for _, group := range []string{GroupSkills, GroupDefenses} {
		if err := r.Track(group).Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("tracks.%s: %v", group, err))
		}
	}
	for _, key := range SkillKeys {
		if len(r.AssocSkills[key]) == 0 {
			errs = append(errs, fmt.Sprintf("assoc_skills.%s must list at least one member skill", key))
		}
	}
	for _, key := range DefenseKeys {
		if len(r.DefenseLevels[key]) == 0 {
			errs = append(errs, fmt.Sprintf("defense_levels.%s must not be empty", key))
		}
	}
	if len(r.Sizes) == 0 {
		errs = append(errs, "sizes must not be empty")
	}
	for size, e := range r.Sizes {
		if size < 1 {
			errs = append(errs, fmt.Sprintf("sizes: size %d must be >= 1", size))
		}
		if e.PowerDie < 2 {
			errs = append(errs, fmt.Sprintf("sizes.%d.power_die must be >= 2, got %d", size, e.PowerDie))
		}
	}
	if len(r.Experience) == 0 || len(r.Gear) == 0 || len(r.UnitTypes) == 0 {
		errs = append(errs, "experience, gear and unit_types must not be empty")
	}
	if len(r.Tiers) == 0 {
		errs = append(errs, "tiers must not be empty")
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid ruleset: %s", strings.Join(errs, "; "))
	}
	return nil
}
