package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/logging"
	"github.com/ppiankov/controlgap/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <dataset.yaml|url>",
	Short: "Seed a SQLite store from a dataset",
	Long: `Import validates a dataset and writes it into the SQLite database given by
--db (or store.sqlite_path). Existing rows are replaced.

Example:
  controlgap import controlgap.yaml --db compliance.db
  controlgap coverage 03.01.01 --store sqlite --db compliance.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Store.Dataset = args[0]

		ds, err := loadDataset(ctx, cfg)
		if err != nil {
			return err
		}

		sc := store.DefaultSQLiteConfig()
		sc.Path = cfg.Store.SQLitePath
		db, err := store.OpenSQLite(sc)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Import(ctx, ds); err != nil {
			return fmt.Errorf("import: %w", err)
		}

		logging.Info("Dataset imported",
			zap.String("dataset", args[0]),
			zap.String("db", sc.Path),
			zap.Int("requirements", len(ds.Requirements)),
			zap.Int("assessments", len(ds.Assessments)),
			zap.Int("settings", len(ds.Settings)))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", args[0], sc.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
