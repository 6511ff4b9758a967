// Package salvage turns free-form model output into a structured report,
// falling back to a generic result when nothing usable can be recovered.
package salvage

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"label-checker/internal/pkg/common"
)

const (
	FallbackMessage     = "Analiz tamamlandı ancak sonuçlar manuel kontrol gerektirebilir."
	FallbackExplanation = "Etiket metni analiz edildi. Net bir değerlendirme için lütfen içerikleri manuel olarak kontrol edin."

	maxDetectedIngredients = 10
	minIngredientRunes     = 3
)

// Report is the model's answer as the prompt asks for it.
type Report struct {
	OverallStatus       common.Status             `json:"overallStatus"`
	OverallMessage      string                    `json:"overallMessage"`
	AllergyWarnings     []common.AllergyWarning   `json:"allergyWarnings"`
	CautionItems        []common.CautionItem      `json:"cautionItems"`
	DietaryViolations   []common.DietaryViolation `json:"dietaryViolations"`
	AIExplanation       string                    `json:"aiExplanation"`
	DetectedIngredients []string                  `json:"detectedIngredients"`
}

// Outcome is either *Parsed or *Fallback.
type Outcome interface {
	Assessment() common.Assessment
	outcome()
}

// Parsed holds a report recovered from the model output.
type Parsed struct {
	Report Report
}

func (*Parsed) outcome() {}

// Assessment returns the report with its status derived from its findings.
// The model's own message is kept only when it agrees with that status.
func (p *Parsed) Assessment() common.Assessment {
	r := p.Report
	a := common.Assessment{
		AllergyWarnings:     r.AllergyWarnings,
		CautionItems:        r.CautionItems,
		DietaryViolations:   r.DietaryViolations,
		DetectedIngredients: r.DetectedIngredients,
		AIExplanation:       r.AIExplanation,
	}.Normalized()
	if r.OverallMessage != "" && r.OverallStatus == a.OverallStatus {
		a.OverallMessage = r.OverallMessage
	}
	return a
}

// Fallback is the result used when the model output could not be parsed.
type Fallback struct {
	Message             string
	Explanation         string
	DetectedIngredients []string
	Reason              string
}

func (*Fallback) outcome() {}

// Assessment returns a warning with no findings.
func (f *Fallback) Assessment() common.Assessment {
	return common.Assessment{
		AllergyWarnings:     []common.AllergyWarning{},
		CautionItems:        []common.CautionItem{},
		DietaryViolations:   []common.DietaryViolation{},
		OverallStatus:       common.StatusWarning,
		OverallMessage:      f.Message,
		DetectedIngredients: f.DetectedIngredients,
		AIExplanation:       f.Explanation,
	}
}

// NewFallback builds the fallback for ingredientText.
func NewFallback(ingredientText, reason string) *Fallback {
	return &Fallback{
		Message:             FallbackMessage,
		Explanation:         FallbackExplanation,
		DetectedIngredients: SplitIngredients(ingredientText),
		Reason:              reason,
	}
}

var ingredientSeparators = regexp.MustCompile(`[,;]`)

// SplitIngredients splits a comma or semicolon separated list, dropping
// fragments of two runes or fewer and keeping at most ten.
func SplitIngredients(text string) []string {
	out := []string{}
	for _, piece := range ingredientSeparators.Split(text, -1) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < minIngredientRunes {
			continue
		}
		out = append(out, piece)
		if len(out) == maxDetectedIngredients {
			break
		}
	}
	return out
}

var (
	fencedBlock = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	braceSpan   = regexp.MustCompile(`(?s)\{.*\}`)
)

// candidate finds the JSON text inside raw: a ```json fence first, then
// the widest {...} span.
func candidate(raw string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if span := braceSpan.FindString(raw); span != "" {
		return span, true
	}
	return "", false
}

// Salvage recovers a Report from raw model output. It never fails: anything
// it cannot parse becomes a Fallback built from ingredientText.
func Salvage(raw, ingredientText string) Outcome {
	text, ok := candidate(raw)
	if !ok {
		common.LogWarn("model output has no JSON", zap.Int("length", len(raw)))
		return NewFallback(ingredientText, "no JSON found")
	}

	text = common.RepairJSON(text)
	report, err := parseReport(text)
	if err != nil {
		// bare keys are the one repair tried only after a strict failure
		quoted := common.QuoteJSONKeys(text)
		if quoted == text {
			common.LogWarn("model output is not valid JSON", zap.Error(err))
			return NewFallback(ingredientText, err.Error())
		}
		var retryErr error
		if report, retryErr = parseReport(quoted); retryErr != nil {
			common.LogWarn("model output is not valid JSON", zap.Error(err))
			return NewFallback(ingredientText, err.Error())
		}
	}
	return &Parsed{Report: report}
}

func parseReport(text string) (Report, error) {
	if err := validate(text); err != nil {
		return Report{}, err
	}
	var r Report
	if err := common.ParseJSON(text, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	r.sanitize()
	return r, nil
}

// reportSchema accepts null wherever encoding/json would decode it to a
// zero value.
const reportSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "overallStatus": {"type": ["string", "null"]},
    "overallMessage": {"type": ["string", "null"]},
    "aiExplanation": {"type": ["string", "null"]},
    "allergyWarnings": {"type": ["array", "null"], "items": {"$ref": "#/definitions/finding"}},
    "cautionItems": {"type": ["array", "null"], "items": {"$ref": "#/definitions/finding"}},
    "dietaryViolations": {"type": ["array", "null"], "items": {"$ref": "#/definitions/finding"}},
    "detectedIngredients": {"type": ["array", "null"], "items": {"type": ["string", "null"]}}
  },
  "definitions": {
    "finding": {
      "type": ["object", "null"],
      "properties": {
        "level": {"type": ["string", "null"]},
        "allergen": {"type": ["string", "null"]},
        "ingredient": {"type": ["string", "null"]},
        "detectedKeyword": {"type": ["string", "null"]},
        "preference": {"type": ["string", "null"]},
        "reason": {"type": ["string", "null"]},
        "message": {"type": ["string", "null"]},
        "description": {"type": ["string", "null"]},
        "severity": {"type": ["string", "null"]}
      }
    }
  }
}`

var schema = mustSchema(reportSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("salvage: bad report schema: %v", err))
	}
	return s
}

func validate(text string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("report does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// sanitize drops empty findings and fills in default levels.
func (r *Report) sanitize() {
	r.OverallStatus = common.Status(strings.ToLower(strings.TrimSpace(string(r.OverallStatus))))

	warnings := r.AllergyWarnings[:0]
	for _, w := range r.AllergyWarnings {
		if w.Allergen == "" && w.Ingredient == "" {
			continue
		}
		if w.Allergen == "" {
			w.Allergen = w.Ingredient
		}
		if w.Level == "" {
			w.Level = common.LevelDanger
		}
		warnings = append(warnings, w)
	}
	r.AllergyWarnings = warnings

	cautions := r.CautionItems[:0]
	for _, c := range r.CautionItems {
		if c.Ingredient == "" {
			continue
		}
		if c.Level == "" {
			c.Level = common.LevelWarning
		}
		cautions = append(cautions, c)
	}
	r.CautionItems = cautions

	violations := r.DietaryViolations[:0]
	for _, v := range r.DietaryViolations {
		if v.Preference == "" && v.Ingredient == "" {
			continue
		}
		if v.Level == "" {
			v.Level = common.LevelWarning
		}
		violations = append(violations, v)
	}
	r.DietaryViolations = violations

	ingredients := r.DetectedIngredients[:0]
	for _, ing := range r.DetectedIngredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	r.DetectedIngredients = ingredients
}
