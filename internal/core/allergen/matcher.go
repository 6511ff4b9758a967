package allergen

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"label-checker/internal/core/label"
	"label-checker/internal/pkg/common"
)

// RE2's \b only knows ASCII word characters, so boundaries are spelled out
// with Unicode classes. Normalized text carries no combining marks.
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:$|[^\p{L}\p{N}_])`
)

func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(boundaryBefore + regexp.QuoteMeta(label.Normalize(keyword)) + boundaryAfter)
}

// KeywordPresent reports whether keyword occurs in text as a whole word or
// phrase, comparing both sides after Normalize.
func KeywordPresent(text, keyword string) bool {
	if strings.TrimSpace(keyword) == "" {
		return false
	}
	return keywordPattern(keyword).MatchString(label.Normalize(text))
}

// Result is the outcome of rule matching.
type Result struct {
	AllergyWarnings   []common.AllergyWarning
	CautionItems      []common.CautionItem
	DietaryViolations []common.DietaryViolation
	OverallStatus     common.Status
	OverallMessage    string
}

// Assessment converts the result to the public shape with no explanation.
func (r Result) Assessment() common.Assessment {
	return common.Assessment{
		AllergyWarnings:   r.AllergyWarnings,
		CautionItems:      r.CautionItems,
		DietaryViolations: r.DietaryViolations,
		OverallStatus:     r.OverallStatus,
		OverallMessage:    r.OverallMessage,
	}.Normalized()
}

type compiledKeyword struct {
	keyword string
	pattern *regexp.Regexp
}

type compiledDefinition struct {
	def      Definition
	keywords []compiledKeyword
}

// Matcher checks ingredient text against a Table. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	table       *Table
	allergens   []compiledDefinition
	cautions    []compiledDefinition
	preferences []compiledDefinition
}

// NewMatcher precompiles every keyword in table.
func NewMatcher(table *Table) *Matcher {
	return &Matcher{
		table:       table,
		allergens:   compileAll(table.allergens),
		cautions:    compileAll(table.cautions),
		preferences: compileAll(table.preferences),
	}
}

func compileAll(defs []Definition) []compiledDefinition {
	out := make([]compiledDefinition, len(defs))
	for i, d := range defs {
		cd := compiledDefinition{def: d, keywords: make([]compiledKeyword, len(d.Keywords))}
		for j, kw := range d.Keywords {
			cd.keywords[j] = compiledKeyword{keyword: kw, pattern: keywordPattern(kw)}
		}
		out[i] = cd
	}
	return out
}

// Table returns the reference data the matcher was built from.
func (m *Matcher) Table() *Table {
	return m.table
}

// firstMatch returns the first keyword of d found in normalized text.
func (d compiledDefinition) firstMatch(normalized string) (string, bool) {
	for _, kw := range d.keywords {
		if kw.pattern.MatchString(normalized) {
			return kw.keyword, true
		}
	}
	return "", false
}

// Match checks text for the given allergies and dietary preferences.
// Cautions are always checked. Unknown ids are skipped.
func (m *Matcher) Match(text string, allergyIDs, preferenceIDs []string) Result {
	normalized := label.Normalize(text)
	res := Result{
		AllergyWarnings:   []common.AllergyWarning{},
		CautionItems:      []common.CautionItem{},
		DietaryViolations: []common.DietaryViolation{},
	}

	seenAllergens := make(map[string]bool)
	for _, id := range allergyIDs {
		i, ok := m.table.allergenIndex[label.Normalize(strings.TrimSpace(id))]
		if !ok {
			continue
		}
		cd := m.allergens[i]
		if seenAllergens[cd.def.Name] {
			continue
		}
		kw, found := cd.firstMatch(normalized)
		if !found {
			continue
		}
		seenAllergens[cd.def.Name] = true
		res.AllergyWarnings = append(res.AllergyWarnings, common.AllergyWarning{
			Level:       common.LevelDanger,
			Allergen:    cd.def.Name,
			Ingredient:  kw,
			Message:     fmt.Sprintf("Bu ürün %s içeriyor!", strings.ToLowerSpecial(unicode.TurkishCase, cd.def.Name)),
			Description: cd.def.Description,
			Severity:    cd.def.Severity,
		})
	}

	seenCautions := make(map[string]bool)
	for _, cd := range m.cautions {
		if seenCautions[cd.def.Name] {
			continue
		}
		kw, found := cd.firstMatch(normalized)
		if !found {
			continue
		}
		seenCautions[cd.def.Name] = true
		res.CautionItems = append(res.CautionItems, common.CautionItem{
			Level:           common.LevelWarning,
			Ingredient:      cd.def.Name,
			DetectedKeyword: kw,
			Reason:          cd.def.Description,
			Message:         fmt.Sprintf("Dikkat: %s tespit edildi", cd.def.Name),
			Description:     cd.def.Description,
		})
	}

	type violationKey struct{ preference, keyword string }
	seenViolations := make(map[violationKey]bool)
	for _, id := range preferenceIDs {
		i, ok := m.table.preferenceIndex[label.Normalize(strings.TrimSpace(id))]
		if !ok {
			continue
		}
		cd := m.preferences[i]
		for _, kw := range cd.keywords {
			key := violationKey{cd.def.Name, label.Normalize(kw.keyword)}
			if seenViolations[key] || !kw.pattern.MatchString(normalized) {
				continue
			}
			seenViolations[key] = true
			res.DietaryViolations = append(res.DietaryViolations, common.DietaryViolation{
				Level:      common.LevelWarning,
				Preference: cd.def.Name,
				Ingredient: kw.keyword,
				Message:    fmt.Sprintf("%s diyeti için uygun olmayabilir: %s içeriyor", cd.def.Name, kw.keyword),
			})
		}
	}

	res.OverallStatus = common.StatusFor(len(res.AllergyWarnings), len(res.CautionItems), len(res.DietaryViolations))
	res.OverallMessage = res.OverallStatus.Message()
	return res
}
