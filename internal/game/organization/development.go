package organization

import (
	"fmt"

	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// DevStat is one row of the development editor.
type DevStat struct {
	Key string
	// Path is the document path of the development field.
	Path         string
	Label        string
	Points       int
	Start        int
	Spec         int
	Headstart    int
	DisplayValue int
}

// DevEditor is the development editor view of one stat group.
type DevEditor struct {
	Group          string
	Stats          []DevStat
	TotalDevPoints int
	Track          ruleset.Track
	// Length is the highest points index; Min and Max are the track bounds.
	Length int
	Min    int
	Max    int
}

// DevelopmentEditor builds the editor view for group.
//
// Precondition: o is normalized.
func (o Organization) DevelopmentEditor(rs *ruleset.Ruleset, group string) (DevEditor, error) {
	track := rs.Track(group)
	if track == nil {
		return DevEditor{}, fmt.Errorf("unknown stat group %q", group)
	}
	ed := DevEditor{
		Group:  group,
		Track:  track,
		Length: track.MaxPoints(),
		Min:    track.Min(),
		Max:    track.Max(),
	}
	add := func(key, label string, dev DevelopmentField) {
		s := DevStat{
			Key:          key,
			Path:         DevelopmentPath(group, key),
			Label:        label,
			Points:       dev.Points,
			Start:        dev.Start,
			Spec:         dev.Spec,
			Headstart:    dev.Headstart(track),
			DisplayValue: dev.DisplayValue(track),
		}
		ed.TotalDevPoints += s.DisplayValue
		ed.Stats = append(ed.Stats, s)
	}
	switch group {
	case ruleset.GroupSkills:
		for _, key := range ruleset.SkillKeys {
			add(key, SkillLabel(key), o.Skills[key].Development)
		}
	case ruleset.GroupDefenses:
		for _, key := range ruleset.DefenseKeys {
			add(key, DefenseLabel(key), o.Defenses[key].Development)
		}
	}
	return ed, nil
}

// DevelopmentPath is the document path of a stat's development field.
func DevelopmentPath(group, key string) string {
	return "system." + group + "." + key + ".development"
}

// SkillLabel is the catalog key naming a skill.
func SkillLabel(key string) string { return "KNW.Organization.skills." + key }

// DefenseLabel is the catalog key naming a defense.
func DefenseLabel(key string) string { return "KNW.Organization.defenses." + key + ".Label" }
