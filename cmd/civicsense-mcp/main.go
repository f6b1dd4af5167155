// Command civicsense-mcp exposes the assistant as MCP tools over stdio so
// agent frontends can search policy documents and ask grounded questions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/civicsense/civicsense"
	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	assistant, err := civicsense.NewAssistant(cfg, nil)
	if err != nil {
		logger.Errorf("build assistant: %v", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(cfg.App.Name, cfg.App.Version,
		server.WithInstructions("Answers questions about government policies and benefits, grounded in an indexed policy document corpus."),
	)

	s.AddTool(
		mcp.NewTool("policy_search",
			mcp.WithDescription("Search the policy document corpus and return the matching chunks with their sources"),
			mcp.WithString("query", mcp.Required(), mcp.Description("natural language search query")),
		),
		handleSearch(assistant),
	)
	s.AddTool(
		mcp.NewTool("policy_query",
			mcp.WithDescription("Answer a question about government policies using retrieved document context, with source citations"),
			mcp.WithString("query", mcp.Required(), mcp.Description("the question to answer")),
		),
		handleQuery(assistant),
	)

	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("mcp server: %v", err)
		os.Exit(1)
	}
}

func handleSearch(assistant *civicsense.Assistant) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		results, _, err := assistant.RetrieveContext(ctx, query, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := json.Marshal(results)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func handleQuery(assistant *civicsense.Assistant) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := assistant.Query(ctx, "", query, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := json.Marshal(map[string]any{
			"answer":  res.Answer.Text,
			"sources": res.Answer.Sources,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
