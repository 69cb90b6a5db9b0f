package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/gap"
	"github.com/ppiankov/controlgap/internal/model"
	"github.com/ppiankov/controlgap/internal/remediation"
)

var (
	gapTitle  string
	selectIDs []string
	selectAll bool
	asDraft   bool
)

var gapsCmd = &cobra.Command{
	Use:   "gaps <control-id>",
	Short: "List a control's gaps",
	Long: `Gaps lists the missing policies and procedures, evidence that is missing or
past its freshness threshold, non-compliant settings and untested operational
activities of a control. Item ids can be passed to 'describe --select'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, _ *model.Config) error {
			set, err := e.ExtractGaps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, set)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Control %s  priority: %s  gaps: %d\n", set.ControlID, set.Priority, set.Count())
			sections := []struct {
				label string
				items []model.GapItem
			}{
				{"Policies", set.MissingPolicies},
				{"Procedures", set.MissingProcedures},
				{"Evidence", gap.RankEvidence(set.MissingEvidence)},
				{"Settings", set.MissingSettings},
				{"Activities", set.OperationalActivities},
			}
			for _, s := range sections {
				if len(s.items) == 0 {
					continue
				}
				fmt.Fprintf(out, "\n%s:\n", s.label)
				for _, item := range s.items {
					fmt.Fprintf(out, "  %-28s %s\n", item.ID, remediation.Line(item))
				}
			}
			return nil
		})
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <control-id>",
	Short: "Render the gap description for selected gap items",
	Long: `Describe renders the default gap description of a remediation record from
the selected gap items. With --draft it prints the full remediation draft.

Example:
  controlgap describe 03.01.01 --select policy:p1,setting:idle-timeout
  controlgap describe 03.01.01 --all --draft --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, _ *model.Config) error {
			ctx := cmd.Context()
			controlID := args[0]

			selected := selectIDs
			if selectAll {
				set, err := e.ExtractGaps(ctx, controlID)
				if err != nil {
					return err
				}
				selected = allGapIDs(set)
			}

			if asDraft {
				draft, err := e.DraftRemediation(ctx, controlID, gapTitle, selected)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd, draft)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Draft %s  priority: %s\n\n", draft.ID, draft.Priority)
				fmt.Fprintf(out, "%s\n\n%s\n", draft.GapDescription, draft.RemediationPlan)
				return nil
			}

			text, err := e.GenerateGapDescription(ctx, controlID, gapTitle, selected)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]string{"description": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

// allGapIDs returns every item id of a gap set
func allGapIDs(set model.GapSet) []string {
	var ids []string
	for _, items := range [][]model.GapItem{
		set.MissingPolicies, set.MissingProcedures, set.MissingEvidence,
		set.MissingSettings, set.OperationalActivities,
	} {
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func init() {
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVar(&gapTitle, "title", "", "title for the description header (default: control title)")
	describeCmd.Flags().StringSliceVar(&selectIDs, "select", nil, "gap item ids to include, comma separated")
	describeCmd.Flags().BoolVar(&selectAll, "all", false, "include every gap item")
	describeCmd.Flags().BoolVar(&asDraft, "draft", false, "print a remediation draft instead of the description")
}
