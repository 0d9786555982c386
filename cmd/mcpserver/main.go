package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/knowledge-server/internal/app"
	"github.com/yungbote/knowledge-server/internal/mcp"
)

func main() {
	// stdout carries the MCP protocol; keep gin's route dump off it.
	gin.SetMode(gin.ReleaseMode)

	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	srv, err := mcp.NewServer(mcp.Config{
		Name:    "knowledge-server",
		Version: a.Cfg.Version,
	}, a.Log, a.Services.Concepts, a.Services.Relationships, a.Services.Queries)
	if err != nil {
		a.Log.Error("Failed to init MCP server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Log.Info("MCP server serving on stdio")
	if err := srv.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		a.Log.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}
