// FabricMon — SDN fabric telemetry collection & reconciliation engine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/infrapulse/fabricmon/internal/collector"
	"github.com/infrapulse/fabricmon/internal/config"
	"github.com/infrapulse/fabricmon/internal/nautobot"
	"github.com/infrapulse/fabricmon/internal/secrets"
	"github.com/infrapulse/fabricmon/internal/server"
)

const asciiLogo = `
 ███████╗ █████╗ ██████╗ ██████╗ ██╗ ██████╗███╗   ███╗ ██████╗ ███╗   ██╗
 ██╔════╝██╔══██╗██╔══██╗██╔══██╗██║██╔════╝████╗ ████║██╔═══██╗████╗  ██║
 █████╗  ███████║██████╔╝██████╔╝██║██║     ██╔████╔██║██║   ██║██╔██╗ ██║
 ██╔══╝  ██╔══██║██╔══██╗██╔══██╗██║██║     ██║╚██╔╝██║██║   ██║██║╚██╗██║
 ██║     ██║  ██║██████╔╝██║  ██║██║╚██████╗██║ ╚═╝ ██║╚██████╔╝██║ ╚████║
 ╚═╝     ╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝ ╚═════╝╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═══╝
`

const version = "v0.1.0"

func printBanner() {
	fmt.Print(asciiLogo + "\n")
	fmt.Printf("  ► FabricMon %s  |  fabric telemetry collection & reconciliation\n\n", version)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

func main() {
	root := &cobra.Command{
		Use:   "fabricmon",
		Short: "FabricMon — SDN fabric telemetry collection & reconciliation engine",
		Long: `FabricMon polls SDN fabric controllers (APIC-style) and NX-API devices,
correlates the raw telemetry into per-node snapshots, and reconciles them
into a persisted fabric topology served over a REST API.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the FabricMon server (REST API + background poller)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := newLogger(cfg.LogLevel)

			if err := server.InitDB(cfg); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			log.Info().Str("path", cfg.DBPath).Msg("database ready")

			box := secrets.NewBox(cfg.SecretKey)

			var locations *nautobot.Client
			if cfg.NautobotURL != "" {
				locations = nautobot.NewClient(cfg.NautobotURL, cfg.NautobotToken, log)
				log.Info().Str("url", cfg.NautobotURL).Msg("location enrichment enabled")
			}

			runner := collector.NewRunner(server.DB, box, locations, log)

			// Inject security settings into server package globals.
			server.SetJWTSecret(cfg.JWTSecret)
			server.SetAdminCredentials(cfg.AdminUser, cfg.AdminPass)
			server.SetCollector(runner, box, log)

			gin.SetMode(gin.ReleaseMode)
			engine := gin.New()
			engine.Use(gin.Recovery())
			server.RegisterRoutes(engine)

			var poller *collector.Poller
			if cfg.PollerEnabled {
				tick := time.Duration(cfg.PollerTickSeconds) * time.Second
				poller = collector.NewPoller(server.DB, runner, tick, log)
				poller.Start()
			}

			addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
			srv := &http.Server{Addr: addr, Handler: engine}
			log.Info().Str("addr", addr).Msg("API listening")

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt)

			select {
			case err := <-errCh:
				if poller != nil {
					poller.Stop()
				}
				return err
			case <-quit:
				log.Info().Msg("shutting down")
				if poller != nil {
					poller.Stop()
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print FabricMon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FabricMon %s\n", version)
		},
	}

	root.AddCommand(serverCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
