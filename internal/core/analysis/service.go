// Package analysis runs a label check end to end: OCR or barcode lookup,
// section extraction, rule matching, the optional model pass and the
// final composition.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"label-checker/internal/core/ai/salvage"
	aiservice "label-checker/internal/core/ai/service"
	"label-checker/internal/core/allergen"
	"label-checker/internal/core/assessment"
	"label-checker/internal/core/label"
	"label-checker/internal/core/ocr"
	"label-checker/internal/core/product"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

// Mode selects whether the model takes part in an analysis.
type Mode string

const (
	ModeRules Mode = "rules"
	ModeAuto  Mode = "auto"
	ModeAI    Mode = "ai"
)

// ParseMode parses s, returning def for an empty string.
func ParseMode(s string, def Mode) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return def, nil
	case ModeRules, ModeAuto, ModeAI:
		return m, nil
	default:
		return "", common.ErrInvalidRequest.WithErr(fmt.Errorf("unknown mode %q", s))
	}
}

// AIStatus records what happened to the model pass.
type AIStatus string

const (
	AIStatusOK          AIStatus = "ok"
	AIStatusFallback    AIStatus = "fallback"
	AIStatusUnavailable AIStatus = "unavailable"
	AIStatusError       AIStatus = "error"
	AIStatusSkipped     AIStatus = "skipped"
)

// Options are the caller's selections for one analysis.
type Options struct {
	Allergies   []string
	Preferences []string
	Mode        Mode
}

// Report is the outcome of one analysis.
type Report struct {
	ExtractedText  string            `json:"extractedText"`
	OCRConfidence  *int              `json:"ocrConfidence,omitempty"`
	Product        *product.Product  `json:"product,omitempty"`
	KnownAllergens []string          `json:"knownAllergens,omitempty"`
	Analysis       common.Assessment `json:"analysis"`
	AIExplanation  string            `json:"aiExplanation"`
	AIStatus       AIStatus          `json:"aiStatus"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Image is an upload given either as raw bytes or as a data URI / base64.
type Image struct {
	Data    []byte
	Encoded string
}

// Model is the language model used for the second opinion.
type Model interface {
	Available() bool
	ProcessRequest(ctx context.Context, prompt string) (*aiservice.Response, error)
}

// TextRecognizer turns a prepared image into text.
type TextRecognizer interface {
	Available() bool
	ExtractText(ctx context.Context, image string) (*ocr.Result, error)
}

// ProductSource looks products up by barcode.
type ProductSource interface {
	Lookup(ctx context.Context, barcode string) (*product.Product, error)
}

// ImagePreparer validates uploads and encodes them for OCR.
type ImagePreparer interface {
	Prepare(data []byte) (string, error)
	PrepareEncoded(encoded string) (string, error)
}

// Service orchestrates analyses. Collaborators other than the matcher may
// be nil; the operations that need them then fail with an availability error.
type Service struct {
	matcher  *allergen.Matcher
	model    Model
	ocr      TextRecognizer
	products ProductSource
	images   ImagePreparer
	config   config.AnalysisConfig
	mode     Mode
	now      func() time.Time
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Matcher  *allergen.Matcher
	Model    Model
	OCR      TextRecognizer
	Products ProductSource
	Images   ImagePreparer
}

// NewService creates a Service. defaultMode is used when Options.Mode is empty.
func NewService(deps Deps, cfg config.AnalysisConfig, defaultMode Mode) *Service {
	if defaultMode == "" {
		defaultMode = ModeAuto
	}
	return &Service{
		matcher:  deps.Matcher,
		model:    deps.Model,
		ocr:      deps.OCR,
		products: deps.Products,
		images:   deps.Images,
		config:   cfg,
		mode:     defaultMode,
		now:      time.Now,
	}
}

// Matcher returns the rule matcher and its reference table.
func (s *Service) Matcher() *allergen.Matcher {
	return s.matcher
}

// ModelAvailable reports whether a model is configured.
func (s *Service) ModelAvailable() bool {
	return s.model != nil && s.model.Available()
}

// OCRAvailable reports whether image analysis can run.
func (s *Service) OCRAvailable() bool {
	return s.ocr != nil && s.ocr.Available()
}

// AnalyzeText checks a pasted or transcribed label.
func (s *Service) AnalyzeText(ctx context.Context, text string, opts Options) (*Report, error) {
	cleaned := label.CleanText(text)
	if cleaned == "" {
		return nil, common.ErrEmptyText
	}
	if s.config.MaxTextLength > 0 && utf8.RuneCountInString(cleaned) > s.config.MaxTextLength {
		return nil, common.ErrInvalidRequest.WithErr(
			fmt.Errorf("text exceeds %d characters", s.config.MaxTextLength))
	}

	section := label.ExtractSection(cleaned)
	return s.analyze(ctx, section, section, opts)
}

// AnalyzeImage runs OCR on img and then analyzes the transcript.
func (s *Service) AnalyzeImage(ctx context.Context, img Image, opts Options) (*Report, error) {
	if !s.OCRAvailable() {
		return nil, common.ErrOCRUnavailable
	}
	if s.images == nil {
		return nil, common.ErrInternalError.WithErr(errors.New("image preparer not configured"))
	}

	var (
		prepared string
		err      error
	)
	if len(img.Data) > 0 {
		prepared, err = s.images.Prepare(img.Data)
	} else {
		prepared, err = s.images.PrepareEncoded(img.Encoded)
	}
	if err != nil {
		return nil, err
	}

	result, err := s.ocr.ExtractText(ctx, prepared)
	if err != nil {
		return nil, err
	}

	cleaned := label.CleanText(result.Text)
	if utf8.RuneCountInString(cleaned) < s.config.MinOCRTextLength {
		common.LogWarn("ocr text too short",
			zap.Int("length", utf8.RuneCountInString(cleaned)),
			zap.Int("confidence", result.Confidence),
		)
		return nil, common.ErrTextTooShort
	}

	section := label.ExtractSection(cleaned)
	report, err := s.analyze(ctx, section, section, opts)
	if err != nil {
		return nil, err
	}
	confidence := result.Confidence
	report.OCRConfidence = &confidence
	return report, nil
}

// AnalyzeBarcode looks the product up and analyzes its ingredient list.
// The product's declared allergens are matched together with the
// ingredients, so a declared allergen counts even when the list omits it.
func (s *Service) AnalyzeBarcode(ctx context.Context, barcode string, opts Options) (*Report, error) {
	barcode = strings.TrimSpace(barcode)
	if !product.ValidBarcode(barcode) {
		return nil, common.ErrInvalidBarcode
	}
	if s.products == nil {
		return nil, common.ErrServiceUnavailable.WithErr(errors.New("product lookup not configured"))
	}

	p, err := s.products.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}

	ingredients := label.CleanText(p.Ingredients)
	if ingredients == "" && len(p.Allergens) == 0 {
		return nil, common.ErrNoIngredientData
	}

	matchText := ingredients
	if len(p.Allergens) > 0 {
		matchText = strings.TrimSpace(ingredients + "\n" + strings.Join(p.Allergens, ", "))
	}

	// The model only sees real ingredient lists.
	promptText := ingredients
	if promptText == "" {
		opts.Mode = ModeRules
	}

	report, err := s.analyze(ctx, matchText, promptText, opts)
	if err != nil {
		return nil, err
	}
	report.ExtractedText = ingredients
	report.Product = p
	report.KnownAllergens = p.Allergens
	return report, nil
}

func (s *Service) analyze(ctx context.Context, matchText, promptText string, opts Options) (*Report, error) {
	mode := opts.Mode
	if mode == "" {
		mode = s.mode
	}

	rule := s.matcher.Match(matchText, opts.Allergies, opts.Preferences)

	outcome, status, err := s.runModel(ctx, promptText, opts, mode)
	if err != nil {
		return nil, err
	}

	composed := assessment.Compose(rule, outcome)
	explanation := composed.AIExplanation
	composed.AIExplanation = ""

	common.LogInfo("analysis completed",
		zap.String("status", string(composed.OverallStatus)),
		zap.String("ai_status", string(status)),
		zap.Int("allergy_warnings", len(composed.AllergyWarnings)),
		zap.Int("caution_items", len(composed.CautionItems)),
		zap.Int("dietary_violations", len(composed.DietaryViolations)),
	)

	return &Report{
		ExtractedText: matchText,
		Analysis:      composed,
		AIExplanation: explanation,
		AIStatus:      status,
		Timestamp:     s.now().UTC(),
	}, nil
}

func (s *Service) runModel(ctx context.Context, text string, opts Options, mode Mode) (salvage.Outcome, AIStatus, error) {
	if mode == ModeRules {
		return nil, AIStatusSkipped, nil
	}
	if !s.ModelAvailable() {
		if mode == ModeAI {
			return nil, AIStatusUnavailable, common.ErrAIUnavailable
		}
		return nil, AIStatusUnavailable, nil
	}

	prompt := BuildPrompt(text, s.allergyNames(opts.Allergies), s.preferenceNames(opts.Preferences))
	resp, err := s.model.ProcessRequest(ctx, prompt)
	if err != nil {
		if mode == ModeAI || errors.Is(err, context.Canceled) {
			return nil, AIStatusError, err
		}
		common.LogWarn("model analysis failed, using rules only", zap.Error(err))
		return nil, AIStatusError, nil
	}

	outcome := salvage.Salvage(resp.Content, text)
	if fb, ok := outcome.(*salvage.Fallback); ok {
		common.LogWarn("model reply not usable", zap.String("reason", fb.Reason))
		return outcome, AIStatusFallback, nil
	}
	return outcome, AIStatusOK, nil
}

func (s *Service) allergyNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if def, ok := s.matcher.Table().Allergen(id); ok {
			names = append(names, def.Name)
		}
	}
	return names
}

func (s *Service) preferenceNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if def, ok := s.matcher.Table().Preference(id); ok {
			names = append(names, def.Name)
		}
	}
	return names
}
