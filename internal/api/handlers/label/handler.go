// Package label serves the analysis, barcode and reference routes.
package label

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/api/handlers"
	"label-checker/internal/core/allergen"
	"label-checker/internal/core/analysis"
	"label-checker/internal/infrastructure/storage"
	"label-checker/internal/pkg/common"
)

// ProfileReader loads saved selections.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*storage.Profile, error)
}

// Handler serves the label routes.
type Handler struct {
	analysis *analysis.Service
	profiles ProfileReader
}

// NewHandler creates a Handler. profiles may be nil when profile storage
// is disabled.
func NewHandler(svc *analysis.Service, profiles ProfileReader) *Handler {
	return &Handler{analysis: svc, profiles: profiles}
}

// AnalyzeResponse is the success body of every analysis route.
type AnalyzeResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId,omitempty"`
	*analysis.Report
}

// analyzeRequest is the JSON body of the analyze routes. Allergies and
// Preferences stay nil when absent so a profile can fill them in.
type analyzeRequest struct {
	Image       string   `json:"image"`
	Text        string   `json:"text"`
	Allergies   []string `json:"allergies"`
	Preferences []string `json:"preferences"`
	Mode        string   `json:"mode"`
	ProfileID   string   `json:"profile_id"`
}

// HandleAnalyzeImage handles POST /api/v1/analyze. It accepts a multipart
// upload in the "image" field or a JSON body with a data URI.
func (h *Handler) HandleAnalyzeImage(c *gin.Context) {
	var (
		req analyzeRequest
		img analysis.Image
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			handlers.RespondError(c, common.ErrMissingImage)
			return
		}
		if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
			handlers.RespondError(c, common.ErrInvalidImageType)
			return
		}
		data, err := readUpload(file)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		img.Data = data

		if req, err = formRequest(c); err != nil {
			handlers.BadRequest(c, err)
			return
		}
	} else {
		if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
			handlers.BadRequest(c, err)
			return
		}
		if strings.TrimSpace(req.Image) == "" {
			handlers.RespondError(c, common.ErrMissingImage)
			return
		}
		img.Encoded = req.Image
	}

	opts, err := h.options(c, req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("image analysis started",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("allergies", len(opts.Allergies)),
		zap.Int("preferences", len(opts.Preferences)),
		zap.String("mode", string(opts.Mode)),
	)

	report, err := h.analysis.AnalyzeImage(c.Request.Context(), img, opts)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	h.respond(c, report)
}

// HandleAnalyzeText handles POST /api/v1/analyze/text.
func (h *Handler) HandleAnalyzeText(c *gin.Context) {
	var req analyzeRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	opts, err := h.options(c, req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	report, err := h.analysis.AnalyzeText(c.Request.Context(), req.Text, opts)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	h.respond(c, report)
}

// HandleBarcode handles GET /api/v1/barcode/:barcode.
func (h *Handler) HandleBarcode(c *gin.Context) {
	req := analyzeRequest{
		Allergies:   splitList(c.Query("allergies"), c.Request.URL.Query().Has("allergies")),
		Preferences: splitList(c.Query("preferences"), c.Request.URL.Query().Has("preferences")),
		Mode:        c.Query("mode"),
		ProfileID:   c.Query("profile_id"),
	}

	opts, err := h.options(c, req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	report, err := h.analysis.AnalyzeBarcode(c.Request.Context(), c.Param("barcode"), opts)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	h.respond(c, report)
}

// HandleListAllergens handles GET /api/v1/analyze/allergens.
func (h *Handler) HandleListAllergens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"allergens": h.table().Allergens(),
	})
}

// HandleListPreferences handles GET /api/v1/analyze/preferences.
func (h *Handler) HandleListPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"preferences": h.table().Preferences(),
	})
}

// HandleListCautions handles GET /api/v1/analyze/cautions.
func (h *Handler) HandleListCautions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"cautions": h.table().Cautions(),
	})
}

func (h *Handler) table() *allergen.Table {
	return h.analysis.Matcher().Table()
}

func (h *Handler) respond(c *gin.Context, report *analysis.Report) {
	c.JSON(http.StatusOK, AnalyzeResponse{
		Success:   true,
		RequestID: requestid.Get(c),
		Report:    report,
	})
}

// options resolves the selections, filling absent lists from the profile.
func (h *Handler) options(c *gin.Context, req analyzeRequest) (analysis.Options, error) {
	mode, err := analysis.ParseMode(req.Mode, "")
	if err != nil {
		return analysis.Options{}, err
	}
	opts := analysis.Options{
		Allergies:   req.Allergies,
		Preferences: req.Preferences,
		Mode:        mode,
	}

	profileID := strings.TrimSpace(req.ProfileID)
	if profileID == "" || (req.Allergies != nil && req.Preferences != nil) {
		return opts, nil
	}
	if h.profiles == nil {
		return opts, common.ErrServiceUnavailable.WithErr(errors.New("profile storage disabled"))
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), profileID)
	if err != nil {
		return opts, err
	}
	if opts.Allergies == nil {
		opts.Allergies = profile.Allergies
	}
	if opts.Preferences == nil {
		opts.Preferences = profile.Preferences
	}
	return opts, nil
}

// formRequest reads the non-file multipart fields. Lists may be JSON
// arrays or comma separated.
func formRequest(c *gin.Context) (analyzeRequest, error) {
	req := analyzeRequest{
		Mode:      c.PostForm("mode"),
		ProfileID: c.PostForm("profile_id"),
	}
	var err error
	if v, ok := c.GetPostForm("allergies"); ok {
		if req.Allergies, err = parseList(v); err != nil {
			return req, fmt.Errorf("allergies: %w", err)
		}
	}
	if v, ok := c.GetPostForm("preferences"); ok {
		if req.Preferences, err = parseList(v); err != nil {
			return req, fmt.Errorf("preferences: %w", err)
		}
	}
	return req, nil
}

func parseList(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") {
		var list []string
		if err := common.ParseJSON(v, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	return splitList(v, true), nil
}

// splitList splits a comma separated value. present distinguishes an
// explicitly empty list from an absent one.
func splitList(v string, present bool) []string {
	if !present {
		return nil
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, common.ErrInvalidRequest.WithErr(err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, common.ErrInvalidRequest.WithErr(err)
	}
	return data, nil
}
