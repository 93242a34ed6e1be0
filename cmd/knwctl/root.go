package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cory-johannsen/knw/internal/config"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

// contentFlags are the content locations shared by every subcommand. They
// fall back to KNW_CONTENT_* environment variables, then the config file.
type contentFlags struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	cf := &contentFlags{v: viper.New()}

	root := &cobra.Command{
		Use:           "knwctl",
		Short:         "Inspect Kingdoms & Warfare rules content",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cf.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "server configuration file providing the content section")
	pf.String("ruleset", "", "ruleset YAML file; empty uses the built-in table")
	pf.String("statuses", "content/statuses", "status effect directory")
	pf.String("scripts", "", "Lua hook script directory; empty skips scripts")
	pf.String("locale", "en-US", "message catalog locale")

	for key, flag := range map[string]string{
		"content.ruleset":      "ruleset",
		"content.statuses_dir": "statuses",
		"content.scripts_dir":  "scripts",
		"content.locale":       "locale",
	} {
		_ = cf.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(newValidateCmd(cf), newTrackCmd(cf), newImportCmd(), newVersionCmd())
	return root
}

func (cf *contentFlags) init(cmd *cobra.Command) error {
	cf.v.SetEnvPrefix(config.EnvPrefix)
	cf.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cf.v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return nil
	}
	cf.v.SetConfigFile(path)
	if err := cf.v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

func (cf *contentFlags) rulesetPath() string { return cf.v.GetString("content.ruleset") }
func (cf *contentFlags) statusesDir() string { return cf.v.GetString("content.statuses_dir") }
func (cf *contentFlags) scriptsDir() string  { return cf.v.GetString("content.scripts_dir") }
func (cf *contentFlags) locale() string      { return cf.v.GetString("content.locale") }

// rules loads the configured ruleset, or the built-in one.
func (cf *contentFlags) rules() (*ruleset.Ruleset, error) {
	path := cf.rulesetPath()
	if path == "" {
		return ruleset.Default(), nil
	}
	rs, err := ruleset.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading ruleset %s: %w", path, err)
	}
	return rs, nil
}
