package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sitegrid/reportsnap/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Logs go to stderr to keep stdout clean for JSON-RPC.
	app, err := newApp(os.Stderr, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	mcpServer := mcp.NewServer(mcp.Config{
		Builder:       app.builder,
		Checker:       app.checker,
		Rebuilder:     app.rebuilder,
		TransportMode: "stdio",
		Logger:        app.logger,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		app.logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or the context is canceled.
	return mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}
