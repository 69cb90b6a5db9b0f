package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/model"
)

var familyCmd = &cobra.Command{
	Use:   "family <code>",
	Short: "Average coverage of one control family",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, _ *model.Config) error {
			summary, err := e.ComputeFamilyCoverage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", summary.Family, summary.Name)
			fmt.Fprintf(out, "  Controls:          %d\n", summary.ControlCount)
			fmt.Fprintf(out, "  Average coverage:  %d%%\n", model.RoundPercent(summary.AverageCoverage))
			printFailures(summary.Failed)
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Organization-wide coverage summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, _ *model.Config) error {
			summary, err := e.ComputeOrganizationSummary(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			avg := summary.Averages
			fmt.Fprintf(out, "Controls:       %d\n", summary.TotalControls)
			fmt.Fprintf(out, "  Compliant:    %d\n", summary.CompliantControls)
			fmt.Fprintf(out, "  Moderate:     %d\n", summary.ModerateControls)
			fmt.Fprintf(out, "  Critical:     %d\n", summary.CriticalControls)
			fmt.Fprintf(out, "\nAverage coverage\n")
			fmt.Fprintf(out, "  Technical:      %d%%\n", model.RoundPercent(avg.Technical))
			fmt.Fprintf(out, "  Operational:    %d%%\n", model.RoundPercent(avg.Operational))
			fmt.Fprintf(out, "  Documentation:  %d%%\n", model.RoundPercent(avg.Documentation))
			fmt.Fprintf(out, "  Physical:       %d%%\n", model.RoundPercent(avg.Physical))
			fmt.Fprintf(out, "  Overall:        %d%%\n\n", model.RoundPercent(avg.Overall))

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tNAME\tCONTROLS\tAVERAGE")
			for _, f := range summary.Families {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d%%\n", f.Family, f.Name, f.ControlCount, model.RoundPercent(f.AverageCoverage))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			printFailures(summary.Failed)
			return nil
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Weighted compliance score",
	Long: `Score starts from the sum of control point weights and deducts each
non-compliant control's weight, floored at the configured minimum. Special
rules can deduct from controls that are otherwise compliant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, _ *model.Config) error {
			result, err := e.ComputeComplianceScore(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Score:  %d / %d  (%s)\n", result.CurrentScore, result.MaxScore, result.ScoreLabel)
			fmt.Fprintf(out, "  Floor:            %d\n", result.MinScore)
			fmt.Fprintf(out, "  Points deducted:  %d\n", result.PointsDeducted)
			fmt.Fprintf(out, "  Verified:         %d\n", result.VerifiedControls)
			fmt.Fprintf(out, "  Non-compliant:    %d\n", result.NonCompliantControls)
			fmt.Fprintf(out, "  Not applicable:   %d\n", result.NotApplicableControls)
			fmt.Fprintf(out, "  Compliance:       %.1f%%\n\n", result.CompliancePercentage)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WEIGHT\tCONTROLS\tCOMPLIANT\tDEDUCTED")
			for _, tier := range result.ScoreBreakdown {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", tier.Weight, tier.Total, tier.Compliant, tier.PointsDeducted)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(result.SpecialScoringControls) > 0 {
				fmt.Fprintf(out, "\nSpecial scoring\n")
				for _, s := range result.SpecialScoringControls {
					fmt.Fprintf(out, "  %s  -%d  %s\n", s.ControlID, s.Points, s.Reason)
				}
			}
			printFailures(result.Failed)
			return nil
		})
	},
}

// printFailures lists controls left out of an aggregate
func printFailures(failed []model.Failure) {
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\n%d controls could not be computed:\n", len(failed))
	for _, f := range failed {
		fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", f.ControlID, f.Error)
	}
}

func init() {
	rootCmd.AddCommand(familyCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(scoreCmd)
}
