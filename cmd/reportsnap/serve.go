package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sitegrid/reportsnap/internal/mcp"
	"github.com/sitegrid/reportsnap/internal/metrics"
	"github.com/sitegrid/reportsnap/internal/rebuild"
	"github.com/sitegrid/reportsnap/internal/transport"
	"github.com/sitegrid/reportsnap/internal/trigger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the snapshot service: HTTP API, MCP endpoint, and change listener",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	app, err := newApp(os.Stdout, m)
	if err != nil {
		return err
	}
	defer app.Close()

	scheduler := rebuild.NewScheduler(func(ctx context.Context, projectID string) error {
		_, err := app.builder.Build(ctx, projectID, nil)
		return err
	}, app.logger)
	defer scheduler.Close()

	if app.cfg.NATS.Enabled {
		conn, err := nats.Connect(app.cfg.NATS.URL, nats.Name("reportsnap"))
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer conn.Close()

		listener := trigger.NewListener(conn, scheduler, app.cfg.NATS.Subject, trigger.Delays{
			Project: app.cfg.Snapshot.DebounceProject(),
			Nested:  app.cfg.Snapshot.DebounceNested(),
			Entry:   app.cfg.Snapshot.DebounceEntry(),
		}, app.logger)
		if err := listener.Start(); err != nil {
			return err
		}
		defer func() {
			if err := listener.Close(); err != nil {
				app.logger.Error("closing change listener", "error", err)
			}
		}()
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Builder:       app.builder,
		Checker:       app.checker,
		Rebuilder:     app.rebuilder,
		AuthEnabled:   app.cfg.Auth.Enabled,
		Tokens:        app.cfg.Auth.Tokens,
		TransportMode: "http",
		Logger:        app.logger,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	var authMiddleware func(http.Handler) http.Handler
	if app.cfg.Auth.Enabled {
		authMiddleware = transport.AuthMiddleware(app.cfg.Auth.Tokens)
	}

	server := transport.NewServer(app.builder, app.checker, app.rebuilder, app.logger)
	router := transport.NewRouter(server, authMiddleware,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Handle("/mcp", mcpHandler)
	router.Handle("/mcp/", mcpHandler)

	addr := fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		app.logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(app, httpServer)
	return nil
}

func waitForShutdown(app *app, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	app.logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error("shutdown error", "error", err)
	}
}
