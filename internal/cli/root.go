package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/logging"
	"github.com/ppiankov/controlgap/internal/model"
	"github.com/ppiankov/controlgap/internal/store"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "controlgap",
	Short: "controlgap - compliance coverage, scoring and gap analysis",
	Long: `controlgap measures how well an organization's evidence, assessments and
configuration settings cover a catalog of security controls.

It reports per-control coverage across technical, operational, documentation
and physical dimensions, rolls coverage up by family and organization, computes
a weighted compliance score, and lists the gaps that seed remediation plans.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return logging.Init(cfg.Log.Level, cfg.Log.Format)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "controlgap v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.controlgap/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	flags.String("dataset", "", "dataset YAML file or http(s) URL (yaml store)")
	flags.String("store", "", "store driver: yaml or sqlite")
	flags.String("db", "", "SQLite database path (sqlite store)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("store.dataset", flags.Lookup("dataset"))
	_ = viper.BindPFlag("store.driver", flags.Lookup("store"))
	_ = viper.BindPFlag("store.sqlite_path", flags.Lookup("db"))

	setDefaults(model.DefaultConfig())

	rootCmd.AddCommand(versionCmd)
}

// setDefaults registers scalar defaults so environment variables can override them
func setDefaults(cfg *model.Config) {
	viper.SetDefault("store.driver", cfg.Store.Driver)
	viper.SetDefault("store.dataset", cfg.Store.Dataset)
	viper.SetDefault("store.sqlite_path", cfg.Store.SQLitePath)
	viper.SetDefault("store.fetch_timeout", cfg.Store.FetchTimeout)
	viper.SetDefault("store.http_proxy", cfg.Store.HTTPProxy)
	viper.SetDefault("store.https_proxy", cfg.Store.HTTPSProxy)
	viper.SetDefault("coverage.critical_below", cfg.Coverage.CriticalBelow)
	viper.SetDefault("coverage.compliant_at", cfg.Coverage.CompliantAt)
	viper.SetDefault("scoring.min_score", cfg.Scoring.MinScore)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.ttl", cfg.Cache.TTL)
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("server.addr", cfg.Server.Addr)
	viper.SetDefault("server.requests_per_second", cfg.Server.RequestsPerSecond)
	viper.SetDefault("server.burst", cfg.Server.Burst)
	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("log.format", cfg.Log.Format)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.controlgap")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CONTROLGAP_*, e.g. CONTROLGAP_STORE_DRIVER
	viper.SetEnvPrefix("CONTROLGAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if viper.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store
func openStore(ctx context.Context, cfg *model.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		sc := store.DefaultSQLiteConfig()
		sc.Path = cfg.Store.SQLitePath
		return store.OpenSQLite(sc)
	default:
		ds, err := loadDataset(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store.NewMemory(ds)
	}
}

func loadDataset(ctx context.Context, cfg *model.Config) (*store.Dataset, error) {
	location := cfg.Store.Dataset
	if !store.IsRemote(location) {
		return store.LoadDataset(location)
	}

	fc := store.DefaultFetchConfig()
	fc.Timeout = cfg.Store.FetchTimeout
	fc.UserAgent = "controlgap/" + Version
	fc.HTTPProxy = cfg.Store.HTTPProxy
	fc.HTTPSProxy = cfg.Store.HTTPSProxy

	logging.Debug("Fetching dataset", zap.String("url", location))
	return store.NewFetcher(fc).FetchDataset(ctx, location)
}

// withEngine opens the store, builds an engine and runs fn
func withEngine(ctx context.Context, fn func(*engine.Engine, *model.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	e, err := engine.New(st, cfg, engine.WithLogger(logging.Log))
	if err != nil {
		return err
	}
	return fn(e, cfg)
}

// printJSON writes v as indented JSON to stdout
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
