package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"importrag/internal/adapter/fs"
	"importrag/internal/api"
	applog "importrag/internal/platform/log"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
	serveDense bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the retrieval HTTP API",
	Long: `Rebuild the sparse index from the knowledge base and serve the HTTP API.

Endpoints:
  GET  /health     engine status
  GET  /kb_list    knowledge base files
  POST /ingest     multipart upload (field "file", optional "engine")
  POST /query      product query with citations
  POST /search     raw ranked chunks
  POST /reset      clear the in-memory sparse corpus
  POST /rebuild    reload the sparse corpus from disk

With --watch the sparse index is rebuilt whenever knowledge base files change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (default from config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild when knowledge base files change")
	serveCmd.Flags().BoolVar(&serveDense, "dense", false, "enable the dense engine (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := buildApp(cfg, GetRootDir(), cfg.Dense.Enabled || serveDense)
	if err != nil {
		return err
	}
	defer a.Close()

	kb := a.engines.Knowledge
	if err := os.MkdirAll(kb.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create knowledge base dir: %w", err)
	}
	if _, err := kb.Rebuild(nil); err != nil {
		return err
	}

	srvCfg := &api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		MaxUploadMB:  cfg.Server.MaxUploadMB,
		TopK:         cfg.Retrieve.TopK,
	}
	if serveHost != "" {
		srvCfg.Host = serveHost
	}
	if servePort > 0 {
		srvCfg.Port = servePort
	}
	server := api.NewServer(srvCfg, a.engines)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveWatch || cfg.Server.Watch {
		w := fs.NewWatcher(kb.Dir(), a.walker, 500*time.Millisecond, func() {
			if _, err := kb.Rebuild(nil); err != nil {
				applog.Error("rebuild after change failed", "error", err)
			}
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				applog.Error("knowledge base watcher stopped", "error", err)
			}
		}()
		applog.Info("watching knowledge base", "dir", kb.Dir())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		applog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	}
}
