package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/knw/internal/game/organization"
	"github.com/cory-johannsen/knw/internal/game/ruleset"
)

func newTrackCmd(cf *contentFlags) *cobra.Command {
	var (
		start int
		spec  int
		level int
	)
	cmd := &cobra.Command{
		Use:   "track <skills|defenses> <points>",
		Short: "Resolve a development track entry",
		Long: `Prints the track of a stat group and resolves the skill bonus or defense
score bought with the given development points. Points are clamped to the
track like on the sheet.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := cf.rules()
			if err != nil {
				return err
			}
			group := args[0]
			t := rs.Track(group)
			if t == nil {
				return fmt.Errorf("unknown group %q: use %s or %s", group, ruleset.GroupSkills, ruleset.GroupDefenses)
			}
			points, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("points must be an integer: %w", err)
			}

			dev := organization.DevelopmentField{Points: points, Start: start, Spec: spec}.Clamp(t)
			out := cmd.OutOrStdout()
			cells := make([]string, len(t))
			for i, v := range t {
				cells[i] = strconv.Itoa(v)
				if i == dev.Points {
					cells[i] = "[" + cells[i] + "]"
				}
			}
			fmt.Fprintf(out, "track:    %s\n", strings.Join(cells, " "))
			fmt.Fprintf(out, "points:   %d\n", dev.Points)
			if group == ruleset.GroupSkills {
				fmt.Fprintf(out, "bonus:    %+d\n", organization.SkillBonus(dev, t))
			} else {
				fmt.Fprintf(out, "score:    %d\n", organization.DefenseScore(level, dev, t))
			}
			if cmd.Flags().Changed("start") {
				fmt.Fprintf(out, "headstart: %d\n", dev.Headstart(t))
				fmt.Fprintf(out, "display:  %d\n", dev.DisplayValue(t))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "track value the stat starts at")
	cmd.Flags().IntVar(&spec, "spec", 0, "specialization offset added to start")
	cmd.Flags().IntVar(&level, "level", 0, "defense level modifier")
	return cmd
}
