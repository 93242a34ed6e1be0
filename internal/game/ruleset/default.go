package ruleset

import "strconv"

// Default returns the built-in Kingdoms & Warfare table.
//
// Postcondition: The returned Ruleset passes Validate.
func Default() *Ruleset {
	return &Ruleset{
		SourceBooks: map[string]string{"K&W": "Kingdoms & Warfare"},
		Experience: []Option{
			{Key: "levy", Label: "KNW.Warfare.Experience.levy"},
			{Key: "regular", Label: "KNW.Warfare.Experience.regular"},
			{Key: "veteran", Label: "KNW.Warfare.Experience.veteran"},
			{Key: "elite", Label: "KNW.Warfare.Experience.elite"},
			{Key: "superElite", Label: "KNW.Warfare.Experience.super-elite"},
		},
		Gear: []Option{
			{Key: "light", Label: "KNW.Warfare.Gear.light"},
			{Key: "medium", Label: "KNW.Warfare.Gear.medium"},
			{Key: "heavy", Label: "KNW.Warfare.Gear.heavy"},
			{Key: "superHeavy", Label: "KNW.Warfare.Gear.super-heavy"},
		},
		UnitTypes: []UnitType{
			{Key: "aerial", Label: "KNW.Warfare.Type.aerial", Img: "modules/knw-actors/assets/icons/aerial.png"},
			{Key: "artillery", Label: "KNW.Warfare.Type.artillery", Img: "modules/knw-actors/assets/icons/artillery.png"},
			{Key: "artillerySiege", Label: "KNW.Warfare.Type.artillery-siege", Img: "modules/knw-actors/assets/icons/artillery-siege.png"},
			{Key: "cavalry", Label: "KNW.Warfare.Type.cavalry", Img: "modules/knw-actors/assets/icons/cavalry.png"},
			{Key: "infantry", Label: "KNW.Warfare.Type.infantry", Img: "modules/knw-actors/assets/icons/infantry.png"},
		},
		LevyImage: "modules/knw-actors/assets/icons/levy.png",
		Tiers:     map[int]string{1: "Ⅰ", 2: "Ⅱ", 3: "Ⅲ", 4: "Ⅳ", 5: "Ⅴ"},
		DefenseLevels: map[string][]Choice{
			DefenseCommunications: levelChoices(DefenseCommunications),
			DefenseResolve:        levelChoices(DefenseResolve),
			DefenseResources:      levelChoices(DefenseResources),
		},
		Sizes: map[int]SizeEntry{
			1: {PowerDie: 4, DiePath: "modules/knw-actors/assets/dice/d4.svg"},
			2: {PowerDie: 6, DiePath: "modules/knw-actors/assets/dice/d6.svg"},
			3: {PowerDie: 8, DiePath: "modules/knw-actors/assets/dice/d8.svg"},
			4: {PowerDie: 10, DiePath: "modules/knw-actors/assets/dice/d10.svg"},
			5: {PowerDie: 12, DiePath: "modules/knw-actors/assets/dice/d12.svg"},
		},
		AssocSkills: map[string][]string{
			SkillDiplomacy:  {"ins", "per"},
			SkillEspionage:  {"inv", "ste"},
			SkillLore:       {"arc", "his", "rel"},
			SkillOperations: {"ath", "ins"},
		},
		Tracks: Tracks{
			Skills:   Track{-1, 0, 1, 2, 2, 3, 3, 3, 4},
			Defenses: Track{10, 11, 12, 13, 14, 14, 15, 15, 16, 16, 17, 17, 17, 18},
		},
	}
}

// levelChoices builds the -3..3 level set for a defense.
func levelChoices(defense string) []Choice {
	out := make([]Choice, 0, 7)
	for v := -3; v <= 3; v++ {
		out = append(out, Choice{
			Value: v,
			Label: "KNW.Organization.defenses." + defense + "." + strconv.Itoa(v),
		})
	}
	return out
}

