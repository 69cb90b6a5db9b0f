package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/model"
	"github.com/ppiankov/controlgap/internal/worker"
)

var idsFile string

// coverageCmd represents the coverage command
var coverageCmd = &cobra.Command{
	Use:   "coverage [control-id...]",
	Short: "Compute coverage for one or more controls",
	Long: `Coverage computes per-control coverage across the technical, operational,
documentation and physical dimensions. Controls are computed in parallel;
controls that fail are reported and do not stop the others.

Example:
  controlgap coverage 03.01.01 03.01.05
  controlgap coverage --file controls.txt --json`,
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageCmd.Flags().StringVar(&idsFile, "file", "", "read control ids from a file (one per line, # comments)")
}

// coverageReport is the JSON shape of the coverage command
type coverageReport struct {
	Results []model.CoverageResult `json:"results"`
	Failed  []model.Failure        `json:"failed,omitempty"`
}

func runCoverage(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && idsFile == "" {
		return fmt.Errorf("no control ids given (pass ids or --file)")
	}

	ctx := cmd.Context()
	return withEngine(ctx, func(e *engine.Engine, cfg *model.Config) error {
		ids := append([]string{}, args...)
		if idsFile != "" {
			fromFile, err := worker.ReadControlIDsFromFile(idsFile)
			if err != nil {
				return err
			}
			ids = append(ids, fromFile...)
		}
		ids = worker.UniqueIDs(ids)

		batch := worker.NewBatchCalculator(e.ComputeCoverage, cfg.Concurrency.WorkerCount())
		results, failed := worker.Split(batch.Calculate(ctx, ids))

		if jsonOutput {
			if err := printJSON(cmd, coverageReport{Results: results, Failed: failed}); err != nil {
				return err
			}
		} else {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CONTROL\tFAMILY\tTECHNICAL\tOPERATIONAL\tDOCUMENTATION\tPHYSICAL\tOVERALL")
			for _, r := range results {
				rc := r.Rounded()
				fmt.Fprintf(w, "%s\t%s\t%d%%\t%d%%\t%d%%\t%d%%\t%d%%\n",
					r.ControlID, r.Family, rc.Technical, rc.Operational, rc.Documentation, rc.Physical, rc.Overall)
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		for _, f := range failed {
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", f.ControlID, f.Error)
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d controls failed", len(failed), len(ids))
		}
		return nil
	})
}
