package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"label-checker/internal/core/allergen"
	"label-checker/internal/core/analysis"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

func newTestService(t *testing.T) *analysis.Service {
	t.Helper()
	table, err := allergen.DefaultTable()
	if err != nil {
		t.Fatalf("DefaultTable: %v", err)
	}
	return analysis.NewService(analysis.Deps{Matcher: allergen.NewMatcher(table)},
		config.AnalysisConfig{MinOCRTextLength: 10, MaxTextLength: 5000}, analysis.ModeRules)
}

func call(t *testing.T, svc *analysis.Service, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, rt := range tools(svc) {
		if rt.tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		res, err := rt.handler(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return res
	}
	t.Fatalf("tool %q not registered", name)
	return nil
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %d items", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return tc.Text
}

func TestCheckIngredients(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name       string
		args       map[string]any
		wantStatus common.Status
		wantAI     analysis.AIStatus
		wantWarns  int
	}{
		{
			name:       "comma list",
			args:       map[string]any{"text": "İçindekiler: buğday unu, süt tozu, şeker.", "allergies": "gluten, süt"},
			wantStatus: common.StatusDanger,
			wantAI:     analysis.AIStatusSkipped,
			wantWarns:  2,
		},
		{
			name:       "array list",
			args:       map[string]any{"text": "İçindekiler: pirinç, tuz.", "allergies": []any{"gluten"}},
			wantStatus: common.StatusSafe,
			wantAI:     analysis.AIStatusSkipped,
		},
		{
			name:       "ai without model",
			args:       map[string]any{"text": "İçindekiler: pirinç, tuz.", "use_ai": true},
			wantStatus: common.StatusSafe,
			wantAI:     analysis.AIStatusUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, svc, "check_ingredients", tt.args)
			if res.IsError {
				t.Fatalf("tool error: %s", resultText(t, res))
			}
			var report analysis.Report
			if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if report.Analysis.OverallStatus != tt.wantStatus {
				t.Errorf("status = %q, want %q", report.Analysis.OverallStatus, tt.wantStatus)
			}
			if report.AIStatus != tt.wantAI {
				t.Errorf("ai status = %q, want %q", report.AIStatus, tt.wantAI)
			}
			if len(report.Analysis.AllergyWarnings) != tt.wantWarns {
				t.Errorf("warnings = %d, want %d", len(report.Analysis.AllergyWarnings), tt.wantWarns)
			}
		})
	}
}

func TestCheckIngredientsEmptyText(t *testing.T) {
	res := call(t, newTestService(t), "check_ingredients", map[string]any{"text": "   "})
	if !res.IsError {
		t.Fatalf("expected tool error, got %s", resultText(t, res))
	}
}

func TestExtractIngredientSection(t *testing.T) {
	svc := newTestService(t)

	res := call(t, svc, "extract_ingredient_section", map[string]any{
		"text": "İçindekiler: buğday unu, şeker. Besin değerleri: 100 g",
	})
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	var out struct {
		Section string `json:"section"`
		Found   bool   `json:"found"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Found || !strings.Contains(out.Section, "buğday unu") || strings.Contains(out.Section, "100 g") {
		t.Errorf("section = %+v", out)
	}

	res = call(t, svc, "extract_ingredient_section", map[string]any{})
	if !res.IsError {
		t.Errorf("missing text should be a tool error")
	}
}

func TestListReference(t *testing.T) {
	res := call(t, newTestService(t), "list_reference", nil)
	var out map[string][]allergen.Definition
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"allergens", "cautions", "preferences"} {
		if len(out[key]) == 0 {
			t.Errorf("%s is empty", key)
		}
	}
}

func TestToolNames(t *testing.T) {
	var names []string
	for _, rt := range tools(newTestService(t)) {
		names = append(names, rt.tool.Name)
	}
	want := "check_ingredients,extract_ingredient_section,list_reference"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("tools = %s, want %s", got, want)
	}
}
