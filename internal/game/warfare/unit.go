// Package warfare implements the Kingdoms & Warfare unit actor: its combat
// statistics, commander, traits, casualty die and active effects.
package warfare

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// Statistic keys rolled with RollStat.
const (
	StatAttack    = "atk"
	StatDefense   = "def"
	StatPower     = "pow"
	StatToughness = "tou"
	StatMorale    = "mor"
	StatCommand   = "com"
)

// StatKeys lists the core statistics in sheet order.
var StatKeys = []string{StatAttack, StatDefense, StatPower, StatToughness, StatMorale, StatCommand}

// ErrUnknownStat is returned for statistic keys outside StatKeys.
var ErrUnknownStat = errors.New("unknown warfare statistic")

// Defaults for a new unit.
const (
	DefaultExperience = "regular"
	DefaultGear       = "light"
	DefaultType       = "infantry"
	levyExperience    = "levy"
)

// Size is the unit's current and maximum casualty capacity.
type Size struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Effect is an active effect embedded in a unit.
type Effect struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Img      string   `json:"img"`
	Disabled bool     `json:"disabled"`
	Statuses []string `json:"statuses,omitempty"`
}

// Unit is the system payload of a warfare document.
type Unit struct {
	// Commander is the id of the commanding actor; empty when unassigned.
	Commander  string `json:"commander"`
	Ancestry   string `json:"ancestry"`
	Experience string `json:"experience"`
	Gear       string `json:"gear"`
	Type       string `json:"type"`

	Atk int `json:"atk"`
	Def int `json:"def"`
	Pow int `json:"pow"`
	Tou int `json:"tou"`
	Mor int `json:"mor"`
	Com int `json:"com"`

	Attacks int  `json:"attacks"`
	Dmg     int  `json:"dmg"`
	Mov     int  `json:"mov"`
	Tier    int  `json:"tier"`
	Size    Size `json:"size"`

	TraitList string   `json:"traitList"`
	Effects   []Effect `json:"effects"`
}

// New returns a unit with the default statistics.
func New() Unit {
	return Unit{
		Experience: DefaultExperience,
		Gear:       DefaultGear,
		Type:       DefaultType,
		Def:        10,
		Tou:        10,
		Attacks:    1,
		Dmg:        1,
		Mov:        1,
		Tier:       1,
		Size:       Size{Value: 6, Max: 6},
		Effects:    []Effect{},
	}
}

// Normalize replaces unconfigured choices with defaults, bounds the tier to
// the configured tiers and clamps size.value to [0, size.max].
func (u *Unit) Normalize(rs *ruleset.Ruleset) {
	if !rs.HasExperience(u.Experience) {
		u.Experience = DefaultExperience
	}
	if !rs.HasGear(u.Gear) {
		u.Gear = DefaultGear
	}
	if _, ok := rs.UnitType(u.Type); !ok {
		u.Type = DefaultType
	}
	if _, ok := rs.TierLabel(u.Tier); !ok {
		u.Tier = 1
	}
	if u.Size.Max < 0 {
		u.Size.Max = 0
	}
	u.Size.Value = max(0, min(u.Size.Value, u.Size.Max))
	if u.Effects == nil {
		u.Effects = []Effect{}
	}
}

// Stat returns the value of a core statistic.
func (u Unit) Stat(key string) (int, error) {
	switch key {
	case StatAttack:
		return u.Atk, nil
	case StatDefense:
		return u.Def, nil
	case StatPower:
		return u.Pow, nil
	case StatToughness:
		return u.Tou, nil
	case StatMorale:
		return u.Mor, nil
	case StatCommand:
		return u.Com, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStat, key)
}

// Signed reports whether a statistic is a bonus shown with its sign and
// rolled from the sheet; defense and toughness are plain target numbers.
func Signed(key string) bool {
	return key != StatDefense && key != StatToughness
}

// Traits splits TraitList on ";" and trims each entry. It returns nil when
// the list is blank.
func (u Unit) Traits() []string {
	parts := strings.Split(u.TraitList, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 1 && parts[0] == "" {
		return nil
	}
	return parts
}

// TypeImage returns the unit's icon. Levy infantry uses the levy icon.
func (u Unit) TypeImage(rs *ruleset.Ruleset) string {
	if u.Type == DefaultType && u.Experience == levyExperience {
		return rs.LevyImage
	}
	t, _ := rs.UnitType(u.Type)
	return t.Img
}

// CasualtyDie is the unit's remaining strength.
func (u Unit) CasualtyDie() int { return u.Size.Value }

// ActiveStatuses returns the status ids carried by enabled effects, in effect order.
func (u Unit) ActiveStatuses() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range u.Effects {
		if e.Disabled {
			continue
		}
		for _, s := range e.Statuses {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Effect returns the index of the effect with id, or -1.
func (u Unit) Effect(id string) int {
	for i, e := range u.Effects {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// TokenBars lists the fields a token may bind to its resource bars.
type TokenBars struct {
	Attributes []string
	Values     []string
	Movement   []string
}

// TokenBarOptions returns the bar bindings allowed for warfare units.
func TokenBarOptions() TokenBars {
	return TokenBars{
		Attributes: []string{"size"},
		Values:     []string{"attacks", StatDefense, StatToughness, "tier"},
		Movement:   []string{"mov"},
	}
}

// BarLabel is the catalog key naming a token bar field.
func BarLabel(field string) string {
	if field == "tier" {
		return "KNW.Warfare.Tier"
	}
	return StatLabel(field)
}

// StatLabel is the catalog key with a statistic's long name.
func StatLabel(key string) string { return "KNW.Warfare.Statistics." + key + ".long" }

// StatAbbr is the catalog key with a statistic's abbreviation.
func StatAbbr(key string) string { return "KNW.Warfare.Statistics." + key + ".abbr" }
