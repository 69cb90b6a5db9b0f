package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ppiankov/controlgap/internal/api"
	"github.com/ppiankov/controlgap/internal/engine"
	"github.com/ppiankov/controlgap/internal/model"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reports over HTTP",
	Long: `Serve starts the HTTP API under /api/v1. It stops gracefully on SIGINT or SIGTERM.

Example:
  controlgap serve --addr :8080 --store sqlite --db compliance.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine, cfg *model.Config) error {
			server := cfg.Server
			if serveAddr != "" {
				server.Addr = serveAddr
			}
			gin.SetMode(gin.ReleaseMode)
			return api.Serve(cmd.Context(), e, server)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}
