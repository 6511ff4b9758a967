package common

// Status is the overall verdict of an assessment.
type Status string

const (
	StatusSafe    Status = "safe"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

// Level of a single finding.
const (
	LevelDanger  = "danger"
	LevelWarning = "warning"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSafe, StatusWarning, StatusDanger:
		return true
	}
	return false
}

// Message is the canned Turkish message for a status.
func (s Status) Message() string {
	switch s {
	case StatusDanger:
		return "🚨 Alerji riski tespit edildi!"
	case StatusWarning:
		return "⚠️ Dikkat edilmesi gereken içerikler var"
	default:
		return "✅ Belirlenen hassasiyetler için uygun görünüyor"
	}
}

// StatusFor derives the overall status from finding counts: any allergy
// warning is danger, otherwise any caution or violation is warning.
func StatusFor(allergies, cautions, violations int) Status {
	switch {
	case allergies > 0:
		return StatusDanger
	case cautions > 0 || violations > 0:
		return StatusWarning
	default:
		return StatusSafe
	}
}

// AllergyWarning reports a declared allergen found in the ingredient text.
type AllergyWarning struct {
	Level       string `json:"level"`
	Allergen    string `json:"allergen"`
	Ingredient  string `json:"ingredient"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// CautionItem reports an ingredient worth attention regardless of allergies.
type CautionItem struct {
	Level           string `json:"level"`
	Ingredient      string `json:"ingredient"`
	DetectedKeyword string `json:"detectedKeyword,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Message         string `json:"message"`
	Description     string `json:"description,omitempty"`
}

// DietaryViolation reports an ingredient that conflicts with a dietary preference.
type DietaryViolation struct {
	Level      string `json:"level"`
	Preference string `json:"preference"`
	Ingredient string `json:"ingredient"`
	Message    string `json:"message"`
}

// Assessment is the structured safety result returned to callers.
// The collections are never nil so they always encode as arrays.
type Assessment struct {
	AllergyWarnings     []AllergyWarning   `json:"allergyWarnings"`
	CautionItems        []CautionItem      `json:"cautionItems"`
	DietaryViolations   []DietaryViolation `json:"dietaryViolations"`
	OverallStatus       Status             `json:"overallStatus"`
	OverallMessage      string             `json:"overallMessage"`
	DetectedIngredients []string           `json:"detectedIngredients,omitempty"`
	AIExplanation       string             `json:"aiExplanation,omitempty"`
}

// Normalized fills nil collections and recomputes the status from them.
func (a Assessment) Normalized() Assessment {
	if a.AllergyWarnings == nil {
		a.AllergyWarnings = []AllergyWarning{}
	}
	if a.CautionItems == nil {
		a.CautionItems = []CautionItem{}
	}
	if a.DietaryViolations == nil {
		a.DietaryViolations = []DietaryViolation{}
	}
	a.OverallStatus = StatusFor(len(a.AllergyWarnings), len(a.CautionItems), len(a.DietaryViolations))
	if a.OverallMessage == "" {
		a.OverallMessage = a.OverallStatus.Message()
	}
	return a
}
