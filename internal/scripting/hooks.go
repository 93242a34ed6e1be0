package scripting

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/warfare"
)

// Hook names looked up as Lua globals.
const (
	HookPowerRoll = "on_power_roll"
	HookStatRoll  = "on_stat_roll"
)

// PowerRolled calls on_power_roll with an event table:
// {organization_id, organization_name, member_id, member_name, die, value}.
func (m *Manager) PowerRolled(ctx context.Context, r organization.PowerRoll) error {
	_, err := m.CallHook(ctx, HookPowerRoll, m.event(map[string]lua.LValue{
		"organization_id":   lua.LString(r.OrganizationID),
		"organization_name": lua.LString(r.OrganizationName),
		"member_id":         lua.LString(r.MemberID),
		"member_name":       lua.LString(r.MemberName),
		"die":               lua.LNumber(r.Die),
		"value":             lua.LNumber(r.Value),
	}))
	return err
}

// StatRolled calls on_stat_roll with an event table:
// {unit_id, unit_name, stat, commander, natural, total}.
func (m *Manager) StatRolled(ctx context.Context, r warfare.StatRoll) error {
	_, err := m.CallHook(ctx, HookStatRoll, m.event(map[string]lua.LValue{
		"unit_id":   lua.LString(r.UnitID),
		"unit_name": lua.LString(r.UnitName),
		"stat":      lua.LString(r.Stat),
		"commander": lua.LString(r.CommanderName),
		"natural":   lua.LNumber(r.Natural),
		"total":     lua.LNumber(r.Total),
	}))
	return err
}

// event builds a hook argument table. Tables are not bound to an LState.
func (m *Manager) event(fields map[string]lua.LValue) lua.LValue {
	t := &lua.LTable{}
	for k, v := range fields {
		t.RawSetString(k, v)
	}
	return t
}
