// Package mcp exposes the label checker as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"label-checker/internal/core/allergen"
	"label-checker/internal/core/analysis"
	"label-checker/internal/core/label"
	"label-checker/internal/pkg/common"
)

// endpoint handles one decoded tool call.
type endpoint func(ctx context.Context, args map[string]any) (any, error)

// RegisterTools adds the checker tools to srv.
func RegisterTools(srv *server.MCPServer, svc *analysis.Service) {
	for _, t := range tools(svc) {
		srv.AddTool(t.tool, t.handler)
	}
}

type registeredTool struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func tools(svc *analysis.Service) []registeredTool {
	return []registeredTool{
		{
			tool: mcp.NewTool("check_ingredients",
				mcp.WithDescription("Check a Turkish food label or ingredient list against the user's allergies and dietary preferences."),
				mcp.WithString("text", mcp.Required(), mcp.Description("Label text; the ingredient section is located automatically")),
				mcp.WithString("allergies", mcp.Description("Comma-separated allergy ids (e.g. gluten,süt)")),
				mcp.WithString("preferences", mcp.Description("Comma-separated preference ids (e.g. vegan,helal)")),
				mcp.WithBoolean("use_ai", mcp.Description("Ask the language model for a second opinion when one is configured")),
			),
			handler: wrap(checkIngredients(svc)),
		},
		{
			tool: mcp.NewTool("extract_ingredient_section",
				mcp.WithDescription("Return only the ingredient list found in a label transcript."),
				mcp.WithString("text", mcp.Required(), mcp.Description("Label text")),
			),
			handler: wrap(extractSection),
		},
		{
			tool: mcp.NewTool("list_reference",
				mcp.WithDescription("List the known allergens, caution ingredients and dietary preferences."),
			),
			handler: wrap(listReference(svc.Matcher().Table())),
		},
	}
}

// wrap turns an endpoint into a tool handler. Endpoint errors become tool
// errors so the client sees them as results, not protocol failures.
func wrap(e endpoint) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := e(ctx, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func checkIngredients(svc *analysis.Service) endpoint {
	return func(ctx context.Context, args map[string]any) (any, error) {
		text, _ := args["text"].(string)
		opts := analysis.Options{
			Allergies:   splitIDs(args["allergies"]),
			Preferences: splitIDs(args["preferences"]),
			Mode:        analysis.ModeRules,
		}
		if useAI, _ := args["use_ai"].(bool); useAI {
			opts.Mode = analysis.ModeAuto
		}
		return svc.AnalyzeText(ctx, text, opts)
	}
}

func extractSection(_ context.Context, args map[string]any) (any, error) {
	text, _ := args["text"].(string)
	cleaned := label.CleanText(text)
	if cleaned == "" {
		return nil, common.ErrEmptyText
	}
	section := label.Locate(cleaned)
	return map[string]any{
		"section": section.Text,
		"found":   section.Found,
		"marker":  section.Marker,
	}, nil
}

func listReference(table *allergen.Table) endpoint {
	return func(context.Context, map[string]any) (any, error) {
		return map[string]any{
			"allergens":   table.Allergens(),
			"cautions":    table.Cautions(),
			"preferences": table.Preferences(),
		}, nil
	}
}

// splitIDs accepts a comma-separated string or a JSON array of strings.
func splitIDs(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
