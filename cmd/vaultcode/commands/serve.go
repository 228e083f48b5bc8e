package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vaultcode-ai/vaultcode/internal/askuser"
	"github.com/vaultcode-ai/vaultcode/internal/config"
	"github.com/vaultcode-ai/vaultcode/internal/logging"
	"github.com/vaultcode-ai/vaultcode/internal/mcpserver"
	"github.com/vaultcode-ai/vaultcode/internal/permission"
	"github.com/vaultcode-ai/vaultcode/internal/server"
	"github.com/vaultcode-ai/vaultcode/internal/session"
	"github.com/vaultcode-ai/vaultcode/internal/storage"
	"github.com/vaultcode-ai/vaultcode/internal/transport"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the VaultCode session server",
	Long: `Start the session server the editor plugin connects to.

The server exposes the session API over HTTP on a loopback address and
streams progress over /event. Sessions, queues and settings persist under
the data directory and survive restarts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (host:port)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Vault directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir, err := workDir(serveDir)
	if err != nil {
		return err
	}

	// Developer convenience; a missing .env is not an error.
	godotenv.Load()

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(level),
		Pretty: prettyLog,
		File:   cfg.LogFile,
	})
	log := logging.ForService("main")

	log.Info().Str("version", Version).Str("vault", cfg.Workspace).Msg("starting vaultcode")

	if err := config.GetPaths().EnsurePaths(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.New(cfg.DataDir)

	settings, err := config.NewSettingsStore(ctx, store)
	if err != nil {
		return err
	}
	if err := settings.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("settings watcher unavailable; external edits require restart")
	}

	responder := permission.NewResponder()
	asker := askuser.New()
	workspace := mcpserver.NewLocalWorkspace(cfg.Workspace)

	tr := transport.NewAnthropic(transport.AnthropicConfig{
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		MaxTokens:    cfg.MaxTokens,
		Pricing: transport.Pricing{
			InputPerMTok:  cfg.InputCostPerMTok,
			OutputPerMTok: cfg.OutputCostPerMTok,
		},
		Tools:  mcpserver.ToolDefs(),
		Runner: mcpserver.NewRunner(workspace, asker),
	})

	controller := session.NewController(session.Options{
		Transport:       tr,
		Store:           store,
		Settings:        settings,
		Responder:       responder,
		BudgetIncrement: cfg.BudgetIncrement,
	})

	serverCfg := server.DefaultConfig()
	serverCfg.Addr = cfg.Addr

	srv := server.New(serverCfg, server.Deps{
		Controller: controller,
		Responder:  responder,
		Asker:      asker,
		Settings:   settings,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	return nil
}
