// Package assessment merges rule findings with the model's answer.
package assessment

import (
	"label-checker/internal/core/ai/salvage"
	"label-checker/internal/core/allergen"
	"label-checker/internal/core/label"
	"label-checker/internal/pkg/common"
)

// Compose merges a rule result with an optional model outcome.
//
// Without an outcome the rule result is returned with no explanation. A
// parsed outcome adds its findings to the rule findings, rule findings
// first and duplicates dropped, and supplies the explanation and detected
// ingredients; its message is used when it agrees with the merged status.
// A fallback outcome keeps the rule findings and contributes its
// explanation and ingredient list; its message replaces the rule message
// only when the rules found nothing, and is appended to it otherwise. The overall status is always derived
// from the findings present in the result.
func Compose(rule allergen.Result, external salvage.Outcome) common.Assessment {
	base := rule.Assessment()

	switch ext := external.(type) {
	case *salvage.Parsed:
		if ext == nil {
			return base
		}
		r := ext.Report
		merged := common.Assessment{
			AllergyWarnings:     mergeAllergyWarnings(base.AllergyWarnings, r.AllergyWarnings),
			CautionItems:        mergeCautionItems(base.CautionItems, r.CautionItems),
			DietaryViolations:   mergeViolations(base.DietaryViolations, r.DietaryViolations),
			DetectedIngredients: r.DetectedIngredients,
			AIExplanation:       r.AIExplanation,
		}.Normalized()
		if r.OverallMessage != "" && r.OverallStatus == merged.OverallStatus {
			merged.OverallMessage = r.OverallMessage
		}
		return merged

	case *salvage.Fallback:
		if ext == nil {
			return base
		}
		switch {
		case ext.Message == "":
		case base.OverallStatus == common.StatusSafe:
			base.OverallMessage = ext.Message
		default:
			base.OverallMessage += " " + ext.Message
		}
		base.AIExplanation = ext.Explanation
		base.DetectedIngredients = ext.DetectedIngredients
		return base.Normalized()

	default:
		return base
	}
}

func key(s string) string {
	return label.Normalize(s)
}

func mergeAllergyWarnings(rule, model []common.AllergyWarning) []common.AllergyWarning {
	out := append([]common.AllergyWarning{}, rule...)
	seen := make(map[string]bool, len(out))
	for _, w := range out {
		seen[key(w.Allergen)] = true
	}
	for _, w := range model {
		k := key(w.Allergen)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, w)
	}
	return out
}

func mergeCautionItems(rule, model []common.CautionItem) []common.CautionItem {
	out := append([]common.CautionItem{}, rule...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[key(c.Ingredient)] = true
		if c.DetectedKeyword != "" {
			seen[key(c.DetectedKeyword)] = true
		}
	}
	for _, c := range model {
		k := key(c.Ingredient)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func mergeViolations(rule, model []common.DietaryViolation) []common.DietaryViolation {
	type vkey struct{ preference, ingredient string }
	out := append([]common.DietaryViolation{}, rule...)
	seen := make(map[vkey]bool, len(out))
	for _, v := range out {
		seen[vkey{key(v.Preference), key(v.Ingredient)}] = true
	}
	for _, v := range model {
		k := vkey{key(v.Preference), key(v.Ingredient)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
