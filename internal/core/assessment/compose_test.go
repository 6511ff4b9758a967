package assessment

import (
	"testing"

	"label-checker/internal/core/ai/salvage"
	"label-checker/internal/core/allergen"
	"label-checker/internal/pkg/common"
)

func ruleResult(t *testing.T, text string, allergies, prefs []string) allergen.Result {
	t.Helper()
	table, err := allergen.DefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	return allergen.NewMatcher(table).Match(text, allergies, prefs)
}

func checkInvariant(t *testing.T, a common.Assessment) {
	t.Helper()
	want := common.StatusFor(len(a.AllergyWarnings), len(a.CautionItems), len(a.DietaryViolations))
	if a.OverallStatus != want {
		t.Errorf("status %q does not match findings (want %q)", a.OverallStatus, want)
	}
	if a.AllergyWarnings == nil || a.CautionItems == nil || a.DietaryViolations == nil {
		t.Error("collections must be non-nil")
	}
}

func TestComposeRulesOnly(t *testing.T) {
	rule := ruleResult(t, "buğday unu, süt tozu, şeker.", []string{"gluten", "süt"}, nil)
	a := Compose(rule, nil)
	checkInvariant(t, a)
	if len(a.AllergyWarnings) != 2 || a.OverallStatus != common.StatusDanger {
		t.Errorf("unexpected assessment %+v", a)
	}
	if a.AIExplanation != "" {
		t.Errorf("explanation = %q, want empty", a.AIExplanation)
	}
	if a.OverallMessage != rule.OverallMessage {
		t.Errorf("message = %q", a.OverallMessage)
	}
}

func TestComposeParsedMergesFindings(t *testing.T) {
	rule := ruleResult(t, "süt tozu, aspartam", []string{"süt"}, nil)
	ext := &salvage.Parsed{Report: salvage.Report{
		OverallStatus:  common.StatusDanger,
		OverallMessage: "Süt ve tatlandırıcı içerir",
		AllergyWarnings: []common.AllergyWarning{
			{Level: common.LevelDanger, Allergen: "SÜT", Ingredient: "süt tozu"},
			{Level: common.LevelDanger, Allergen: "Soya", Ingredient: "lesitin"},
		},
		CautionItems: []common.CautionItem{
			{Level: common.LevelWarning, Ingredient: "aspartam"},
			{Level: common.LevelWarning, Ingredient: "Renklendirici"},
		},
		AIExplanation:       "Ürün süt tozu içerir.",
		DetectedIngredients: []string{"süt tozu", "aspartam"},
	}}

	a := Compose(rule, ext)
	checkInvariant(t, a)
	if len(a.AllergyWarnings) != 2 {
		t.Fatalf("allergy warnings = %+v", a.AllergyWarnings)
	}
	if a.AllergyWarnings[0].Allergen != "Süt" || a.AllergyWarnings[1].Allergen != "Soya" {
		t.Errorf("rule findings must come first: %+v", a.AllergyWarnings)
	}
	if len(a.CautionItems) != 2 {
		t.Errorf("caution items = %+v", a.CautionItems)
	}
	if a.OverallMessage != "Süt ve tatlandırıcı içerir" {
		t.Errorf("message = %q", a.OverallMessage)
	}
	if a.AIExplanation != "Ürün süt tozu içerir." || len(a.DetectedIngredients) != 2 {
		t.Errorf("model extras missing: %+v", a)
	}
}

func TestComposeParsedCannotDowngrade(t *testing.T) {
	rule := ruleResult(t, "yumurta", []string{"yumurta"}, nil)
	ext := &salvage.Parsed{Report: salvage.Report{
		OverallStatus:  common.StatusSafe,
		OverallMessage: "Güvenli",
		AIExplanation:  "Sorun yok.",
	}}
	a := Compose(rule, ext)
	checkInvariant(t, a)
	if a.OverallStatus != common.StatusDanger {
		t.Errorf("status = %q, want danger", a.OverallStatus)
	}
	if a.OverallMessage != common.StatusDanger.Message() {
		t.Errorf("message = %q", a.OverallMessage)
	}
	if a.AIExplanation != "Sorun yok." {
		t.Errorf("explanation = %q", a.AIExplanation)
	}
}

func TestComposeFallback(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		allergies   []string
		want        common.Status
		wantMessage string
	}{
		{
			name:        "rule findings survive",
			text:        "buğday unu, şeker",
			allergies:   []string{"gluten"},
			want:        common.StatusDanger,
			wantMessage: common.StatusDanger.Message() + " " + salvage.FallbackMessage,
		},
		{
			name:        "no findings",
			text:        "su, tuz",
			allergies:   []string{"gluten"},
			want:        common.StatusSafe,
			wantMessage: salvage.FallbackMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := ruleResult(t, tt.text, tt.allergies, nil)
			fb := salvage.NewFallback(tt.text, "test")
			a := Compose(rule, fb)
			checkInvariant(t, a)
			if a.OverallStatus != tt.want {
				t.Errorf("status = %q, want %q", a.OverallStatus, tt.want)
			}
			if a.OverallMessage != tt.wantMessage {
				t.Errorf("message = %q, want %q", a.OverallMessage, tt.wantMessage)
			}
			if a.AIExplanation != salvage.FallbackExplanation {
				t.Errorf("explanation = %q", a.AIExplanation)
			}
			if len(a.DetectedIngredients) == 0 {
				t.Error("detected ingredients missing")
			}
		})
	}
}

func TestComposeSalvagedOutput(t *testing.T) {
	rule := ruleResult(t, "buğday unu, süt tozu", []string{"gluten"}, []string{"vegan"})
	a := Compose(rule, salvage.Salvage("I cannot help with that.", "buğday unu, süt tozu"))
	checkInvariant(t, a)
	if len(a.AllergyWarnings) != 1 || len(a.DietaryViolations) != 1 {
		t.Errorf("rule findings lost: %+v", a)
	}
}
