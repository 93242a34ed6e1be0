package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/game/condition"
	"github.com/cory-johannsen/knw/internal/game/dice"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
	"github.com/cory-johannsen/knw/internal/i18n"
	"github.com/cory-johannsen/knw/internal/scripting"
)

func newValidateCmd(cf *contentFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load all rules content and report problems",
		Long: `Loads the ruleset, status effects, message catalog and Lua scripts the
server would load, then reports catalog keys the locale does not translate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.OutOrStdout(), cf, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when catalog keys are untranslated")
	return cmd
}

func runValidate(out io.Writer, cf *contentFlags, strict bool) error {
	rs, err := cf.rules()
	if err != nil {
		return err
	}
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("ruleset: %w", err)
	}
	fmt.Fprintf(out, "ruleset: ok (%d sizes, %d unit types)\n", len(rs.Sizes), len(rs.UnitTypes))

	statuses, err := condition.LoadDirectory(cf.statusesDir())
	if err != nil {
		return fmt.Errorf("statuses: %w", err)
	}
	fmt.Fprintf(out, "statuses: ok (%d for %s)\n", len(statuses.ForType(ruleset.TypeWarfare)), ruleset.TypeWarfare)

	cat, err := i18n.Load(cf.locale())
	if err != nil {
		return fmt.Errorf("locale: %w", err)
	}
	fmt.Fprintf(out, "locale: ok (%s)\n", cat.Locale())

	if dir := cf.scriptsDir(); dir != "" {
		logger := zap.NewNop()
		m := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
		if err := m.Load(dir, 0); err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		m.Close()
		fmt.Fprintf(out, "scripts: ok (%s)\n", dir)
	}

	missing := untranslated(cat, rs, statuses)
	for _, key := range missing {
		fmt.Fprintf(out, "untranslated: %s\n", key)
	}
	if strict && len(missing) > 0 {
		return fmt.Errorf("%d untranslated catalog keys", len(missing))
	}
	return nil
}

// untranslated lists the catalog keys referenced by content that cat lacks, sorted.
func untranslated(cat *i18n.Catalog, rs *ruleset.Ruleset, statuses *condition.Registry) []string {
	var keys []string
	for _, o := range rs.Experience {
		keys = append(keys, o.Label)
	}
	for _, o := range rs.Gear {
		keys = append(keys, o.Label)
	}
	for _, t := range rs.UnitTypes {
		keys = append(keys, t.Label)
	}
	for _, choices := range rs.DefenseLevels {
		for _, c := range choices {
			keys = append(keys, c.Label)
		}
	}
	for _, s := range statuses.All() {
		keys = append(keys, s.Name)
	}

	seen := make(map[string]bool)
	var missing []string
	for _, k := range keys {
		if k == "" || seen[k] || cat.Has(k) {
			continue
		}
		seen[k] = true
		missing = append(missing, k)
	}
	sort.Strings(missing)
	return missing
}
