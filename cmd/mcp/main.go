// Command mcp serves the label checker as MCP tools over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"label-checker/internal/api/mcp"
	"label-checker/internal/core/ai/cache"
	"label-checker/internal/core/ai/provider"
	"label-checker/internal/core/ai/queue"
	aiservice "label-checker/internal/core/ai/service"
	"label-checker/internal/core/allergen"
	"label-checker/internal/core/analysis"
	"label-checker/internal/core/service"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol.
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, true); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	table, err := allergen.LoadTable(cfg.Reference.Path)
	if err != nil {
		common.LogFatal("Failed to load reference data", zap.Error(err))
	}

	var model provider.Provider
	if cfg.OpenRouter.Available() {
		model = service.NewOpenRouterService(cfg.OpenRouter)
	}
	ai := aiservice.NewService(model, cache.NewManager(cfg.Cache), queue.NewManager(cfg.Queue))
	defer ai.Close()

	svc := analysis.NewService(analysis.Deps{
		Matcher: allergen.NewMatcher(table),
		Model:   ai,
	}, cfg.Analysis, analysis.ModeRules)

	srv := server.NewMCPServer(cfg.App.Name, cfg.App.Version, server.WithToolCapabilities(false))
	mcp.RegisterTools(srv, svc)

	common.LogInfo("mcp server starting",
		zap.String("version", cfg.App.Version),
		zap.Bool("ai_available", ai.Available()),
	)
	if err := server.ServeStdio(srv); err != nil {
		common.LogError("mcp server stopped", zap.Error(err))
		os.Exit(1)
	}
}
