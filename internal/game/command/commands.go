// Package command provides the command registry, parser, and built-in command definitions.
package command

import "github.com/cory-johannsen/knw/internal/sheet"

// Categories for organizing commands in help output.
const (
	CategoryOrganization  = "organization"
	CategoryWarfare       = "warfare"
	CategoryRecords       = "records"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
	CategoryAdmin         = "admin"
)

// Handler identifiers mapping commands to session handlers.
const (
	// HandlerAction invokes the sheet action named by the command.
	HandlerAction  = "action"
	HandlerList    = "list"
	HandlerOpen    = "open"
	HandlerClose   = "close"
	HandlerLook    = "look"
	HandlerDev     = "dev"
	HandlerBars    = "bars"
	HandlerCreate  = "create"
	HandlerSay     = "say"
	HandlerWho     = "who"
	HandlerQuit    = "quit"
	HandlerHelp    = "help"
	HandlerSetRole = "setrole"
	HandlerPasswd  = "password"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name. For sheet actions it is the action id.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text.
	Help string
	// Category groups the command.
	Category string
	// Handler selects the session handler.
	Handler string
	// Params names the arguments in positional order. The last one takes
	// any remaining words.
	Params []string
}

// Usage renders the command name followed by its parameters.
func (c *Command) Usage() string {
	u := c.Name
	for _, p := range c.Params {
		u += " <" + p + ">"
	}
	return u
}

func action(name, help, category string, params []string, aliases ...string) Command {
	return Command{Name: name, Aliases: aliases, Help: help, Category: category, Handler: HandlerAction, Params: params}
}

// BuiltinCommands returns every command of the actor server.
func BuiltinCommands() []Command {
	member := []string{"member"}
	return []Command{
		// Organization sheet
		action(sheet.ActionEditScore, "Set a defense level", CategoryOrganization, []string{"defense", "level"}),
		action(sheet.ActionEditDevelopment, "Set development points of a skill or defense", CategoryOrganization, []string{"group", "key", "points"}, "develop"),
		action(sheet.ActionRollSkill, "Roll an organization skill test", CategoryOrganization, []string{"skill", "prof"}, "rs"),
		action(sheet.ActionCyclePowerDie, "Cycle a member's power die", CategoryOrganization, member, "cyc"),
		action(sheet.ActionDecrement, "Lower a member's held power value", CategoryOrganization, member, "dec"),
		action(sheet.ActionIncrement, "Raise a member's held power value", CategoryOrganization, member, "inc"),
		action(sheet.ActionResetPower, "Make a member's power die available", CategoryOrganization, member),
		action(sheet.ActionSetPower, "Set a member's held power value, or clear it", CategoryOrganization, []string{"member", "value"}),
		action(sheet.ActionRest, "Make every power die available", CategoryOrganization, nil),
		action(sheet.ActionAddMember, "Add an actor to the power pool", CategoryOrganization, []string{"actor"}),
		action(sheet.ActionRemoveMember, "Remove a member from the power pool", CategoryOrganization, member),
		action(sheet.ActionEditText, "Replace the powers or features text", CategoryOrganization, []string{"field", "value"}),
		action(sheet.ActionSetSize, "Set the organization size", CategoryOrganization, []string{"size"}),

		// Warfare sheet
		action(sheet.ActionRollStat, "Roll a unit stat test", CategoryWarfare, []string{"stat"}, "rt"),
		action(sheet.ActionConfigureTraits, "Replace the unit traits (separated by semicolons)", CategoryWarfare, []string{"traits"}, "traits"),
		action(sheet.ActionSetCommander, "Assign a commander to the unit", CategoryWarfare, []string{"actor"}),
		action(sheet.ActionClearCommander, "Remove the unit's commander", CategoryWarfare, nil),
		action(sheet.ActionEditStat, "Set a unit stat or property", CategoryWarfare, []string{"field", "value"}, "set"),
		action(sheet.ActionCreateEffect, "Add an active effect", CategoryWarfare, []string{"name"}),
		action(sheet.ActionToggleEffect, "Enable or disable an active effect", CategoryWarfare, []string{"effect"}),
		action(sheet.ActionDeleteEffect, "Delete an active effect", CategoryWarfare, []string{"effect"}),
		action(sheet.ActionToggleStatus, "Toggle a status on the unit", CategoryWarfare, []string{"status"}, "status"),

		// Records
		{Name: "list", Aliases: []string{"ls"}, Help: "List records, optionally of one type", Category: CategoryRecords, Handler: HandlerList, Params: []string{"type"}},
		{Name: "open", Aliases: []string{"o"}, Help: "Open the sheet of a record", Category: CategoryRecords, Handler: HandlerOpen, Params: []string{"id"}},
		{Name: "close", Help: "Close the open sheet", Category: CategoryRecords, Handler: HandlerClose},
		{Name: "look", Aliases: []string{"l"}, Help: "Show the open sheet again", Category: CategoryRecords, Handler: HandlerLook},
		{Name: "dev", Help: "Show the development editor (skills or defenses)", Category: CategoryRecords, Handler: HandlerDev, Params: []string{"group"}},
		{Name: "bars", Help: "List the token bar attributes of warfare units", Category: CategoryRecords, Handler: HandlerBars},
		{Name: "create", Help: "Create an organization, warfare unit, or character", Category: CategoryRecords, Handler: HandlerCreate, Params: []string{"type", "name"}},

		// Communication
		{Name: "say", Aliases: []string{"'"}, Help: "Say something in chat", Category: CategoryCommunication, Handler: HandlerSay, Params: []string{"text"}},

		// System
		{Name: "who", Help: "List connected users", Category: CategorySystem, Handler: HandlerWho},
		{Name: "quit", Aliases: []string{"exit"}, Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "password", Aliases: []string{"passwd"}, Help: "Change your password", Category: CategorySystem, Handler: HandlerPasswd},

		// Admin
		{Name: "setrole", Help: "Set an account's role (admin only)", Category: CategoryAdmin, Handler: HandlerSetRole, Params: []string{"username", "role"}},
	}
}
