package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/frontend/telnet"
	"github.com/cory-johannsen/knw/internal/game/command"
	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/i18n"
	"github.com/cory-johannsen/knw/internal/sheet"
)

const labelWidth = 16

func heading(title, kind string, editable bool) string {
	h := telnet.Colorize(telnet.Bold+telnet.BrightYellow, title)
	if kind != "" {
		h += telnet.Colorf(telnet.Dim, " (%s)", kind)
	}
	if !editable {
		h += telnet.Colorize(telnet.BrightBlack, " [read only]")
	}
	return h
}

func section(label string) string {
	return telnet.Colorize(telnet.Cyan, label)
}

func key(k string) string {
	return telnet.Colorf(telnet.BrightBlack, "[%s]", k)
}

// RenderView renders a sheet view context returned by the dispatcher.
//
// Postcondition: Returns a placeholder line for unknown view types.
func RenderView(view any, loc i18n.Localizer) string {
	switch v := view.(type) {
	case *sheet.OrganizationView:
		return RenderOrganization(v, loc)
	case *sheet.WarfareView:
		return RenderWarfare(v, loc)
	case *sheet.DevEditorView:
		return RenderDevEditor(v, loc)
	}
	return telnet.Colorf(telnet.Red, "no renderer for %T", view)
}

// RenderOrganization formats an organization sheet.
func RenderOrganization(v *sheet.OrganizationView, loc i18n.Localizer) string {
	var b strings.Builder
	b.WriteString(heading(v.Name, loc.Localize("KNW.Actor.organization"), v.Editable))
	fmt.Fprintf(&b, "  %s\r\n", key(v.ID))
	fmt.Fprintf(&b, "%s %d   %s d%d\r\n",
		loc.Localize("KNW.Organization.Size"), v.Size,
		loc.Localize("KNW.Organization.Power.Die"), v.PowerDie)

	b.WriteString(section(loc.Localize("KNW.Organization.Skills.Label")) + "\r\n")
	for _, s := range v.Skills {
		fmt.Fprintf(&b, "  %s %+3d  dev %-3d %s\r\n", telnet.PadRight(s.Label, labelWidth), s.Bonus, s.Points, key(s.Key))
	}

	b.WriteString(section(loc.Localize("KNW.Organization.Defenses.Label")) + "\r\n")
	for _, d := range v.Defenses {
		level := ""
		for _, c := range d.Choices {
			if c.Selected {
				level = c.Label
			}
		}
		fmt.Fprintf(&b, "  %s %3d  level %-3s dev %-3d %s\r\n", telnet.PadRight(d.Label, labelWidth), d.Score, level, d.Points, key(d.Key))
	}

	b.WriteString(section(loc.Localize("KNW.Organization.Power.Pool")) + "\r\n")
	if len(v.Pool) == 0 {
		b.WriteString(telnet.Colorize(telnet.Dim, "  (empty)") + "\r\n")
	}
	for _, p := range v.Pool {
		color := telnet.White
		switch p.State {
		case organization.Available:
			color = telnet.Green
		case organization.Exhausted:
			color = telnet.BrightBlack
		}
		fmt.Fprintf(&b, "  %s %s %s\r\n", telnet.PadRight(p.Name, labelWidth), telnet.PadRight(telnet.Colorize(color, p.Display), 10), key(p.MemberID))
	}

	writeText(&b, loc.Localize("KNW.Organization.Powers"), v.Powers)
	writeText(&b, loc.Localize("KNW.Organization.Features"), v.Features)
	return b.String()
}

func writeText(b *strings.Builder, label, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString(section(label) + "\r\n")
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		b.WriteString("  " + strings.TrimRight(line, "\r") + "\r\n")
	}
}

// RenderDevEditor formats the development editor of one stat group.
func RenderDevEditor(v *sheet.DevEditorView, loc i18n.Localizer) string {
	var b strings.Builder
	b.WriteString(heading(v.Name+": "+loc.Localize("KNW.Organization.Development.Configure"), v.Group, true) + "\r\n")
	b.WriteString(telnet.Colorize(telnet.Dim, v.Range) + "\r\n")
	for _, s := range v.Stats {
		fmt.Fprintf(&b, "  %s points %-3d value %-3d %s\r\n", telnet.PadRight(s.Name, labelWidth), s.Points, s.DisplayValue, key(s.Key))
	}
	fmt.Fprintf(&b, "%s: %d\r\n", loc.Localize("KNW.Organization.Development.Total"), v.TotalDevPoints)
	return b.String()
}

// RenderWarfare formats a warfare unit sheet.
func RenderWarfare(v *sheet.WarfareView, loc i18n.Localizer) string {
	var b strings.Builder
	b.WriteString(heading(v.Name, loc.Localize("KNW.Actor.warfare"), v.Editable))
	fmt.Fprintf(&b, "  %s\r\n", key(v.ID))
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s   %s %s\r\n",
		loc.Localize("KNW.Warfare.Tier"), v.TierLabel,
		loc.Localize("KNW.Warfare.Experience.Label"), v.Experience,
		loc.Localize("KNW.Warfare.Gear.Label"), v.Gear,
		loc.Localize("KNW.Warfare.Type.Label"), v.Type)
	if v.Ancestry != "" {
		fmt.Fprintf(&b, "%s %s\r\n", loc.Localize("KNW.Warfare.Ancestry"), v.Ancestry)
	}

	var stats []string
	for _, s := range v.Stats {
		cell := s.Abbr + " " + s.Display
		if s.Rollable {
			cell = telnet.Colorize(telnet.BrightGreen, cell)
		}
		stats = append(stats, telnet.PadRight(cell, 9))
	}
	b.WriteString(strings.Join(stats, " ") + "\r\n")

	fmt.Fprintf(&b, "%s %d   %s %d   %s %d   %s %d/%d   %s d%d\r\n",
		loc.Localize("KNW.Warfare.Statistics.attacks.long"), v.Attacks,
		loc.Localize("KNW.Warfare.Statistics.dmg.long"), v.Dmg,
		loc.Localize("KNW.Warfare.Statistics.mov.long"), v.Mov,
		loc.Localize("KNW.Warfare.Statistics.size.long"), v.Size.Value, v.Size.Max,
		loc.Localize("KNW.Warfare.CasualtyDie"), v.CasualtyDie)

	commander := v.CommanderName
	if v.CommanderID != "" {
		commander += " " + key(v.CommanderID)
	}
	fmt.Fprintf(&b, "%s: %s\r\n", loc.Localize("KNW.Warfare.Commander.Label"), commander)

	if len(v.Traits) > 0 {
		fmt.Fprintf(&b, "%s: %s\r\n", loc.Localize("KNW.Warfare.Traits.SheetLabel"), strings.Join(v.Traits, "; "))
	}

	if len(v.Effects) > 0 {
		b.WriteString(section(loc.Localize("KNW.Warfare.Effects.Label")) + "\r\n")
		for _, e := range v.Effects {
			name := e.Name
			if e.Disabled {
				name = telnet.Colorf(telnet.BrightBlack, "%s (%s)", e.Name, loc.Localize("KNW.Warfare.Effects.Disabled"))
			}
			fmt.Fprintf(&b, "  %s %s\r\n", telnet.PadRight(name, labelWidth), key(e.ID))
		}
	}

	var active []string
	for _, s := range v.Statuses {
		if s.Active {
			active = append(active, s.Label)
		}
	}
	if len(active) > 0 {
		fmt.Fprintf(&b, "%s: %s\r\n", loc.Localize("KNW.Warfare.Status.Label"), strings.Join(active, ", "))
	}
	return b.String()
}

// RenderTokenBars lists the token bar bindings of warfare units.
func RenderTokenBars(v sheet.TokenBarView) string {
	var b strings.Builder
	group := func(label string, rows []sheet.BarRow) {
		b.WriteString(section(label) + "\r\n")
		for _, r := range rows {
			fmt.Fprintf(&b, "  %s %s\r\n", telnet.PadRight(r.Label, labelWidth), key(r.Field))
		}
	}
	group("Attributes", v.Attributes)
	group("Values", v.Values)
	group("Movement", v.Movement)
	return b.String()
}

// RenderRecordList formats documents as one line each: id, type label, and name.
func RenderRecordList(docs []*document.Document, loc i18n.Localizer) string {
	if len(docs) == 0 {
		return telnet.Colorize(telnet.Dim, "No records.") + "\r\n"
	}
	var b strings.Builder
	for _, d := range docs {
		kind := d.Type
		label := "KNW.Actor." + strings.TrimPrefix(d.Type, "knw-actors.")
		if localized := loc.Localize(label); localized != label {
			kind = localized
		}
		line := fmt.Sprintf("  %s %s %s", telnet.PadRight(d.Name, 24), telnet.PadRight(kind, 14), key(d.ID))
		if d.Pack != "" {
			line += telnet.Colorf(telnet.Dim, " (%s)", d.Pack)
		}
		b.WriteString(line + "\r\n")
	}
	return b.String()
}

// RenderHelp formats the registry grouped by category.
func RenderHelp(r *command.Registry) string {
	cats := r.CommandsByCategory()
	names := make([]string, 0, len(cats))
	for c := range cats {
		names = append(names, c)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightWhite, "Available commands:") + "\r\n")
	for _, c := range names {
		b.WriteString(section(strings.ToUpper(c[:1])+c[1:]) + "\r\n")
		for _, cmd := range cats[c] {
			fmt.Fprintf(&b, "  %s %s\r\n", telnet.PadRight(telnet.Colorize(telnet.Green, cmd.Usage()), 36), cmd.Help)
		}
	}
	return b.String()
}
