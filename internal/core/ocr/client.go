// Package ocr extracts text from label photos through the OCR.space API.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

// OCR.space does not report confidence for engine 2; these are estimates
// depending on whether line overlays came back.
const (
	confidenceWithOverlay    = 85
	confidenceWithoutOverlay = 70
)

// Result is the text found in an image.
type Result struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
	Words      int    `json:"words"`
}

// Client is an OCR.space client.
type Client struct {
	config config.OCRConfig
	client *resty.Client
}

func NewClient(cfg config.OCRConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.APIKey)

	return &Client{config: cfg, client: client}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool {
	return c != nil && c.config.Available()
}

// messages accepts OCR.space's ErrorMessage, which is sometimes a string
// and sometimes an array of strings.
type messages []string

func (m *messages) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single != "" {
		*m = []string{single}
	}
	return nil
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText  string `json:"ParsedText"`
		TextOverlay *struct {
			Lines []json.RawMessage `json:"Lines"`
		} `json:"TextOverlay"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool     `json:"IsErroredOnProcessing"`
	ErrorMessage          messages `json:"ErrorMessage"`
}

// ExtractText runs OCR on a data URI (or bare base64 JPEG).
func (c *Client) ExtractText(ctx context.Context, image string) (*Result, error) {
	if !c.Available() {
		return nil, common.ErrOCRUnavailable
	}

	if !strings.HasPrefix(image, "data:image") {
		image = "data:image/jpeg;base64," + image
	}

	start := time.Now()
	var parsed parseResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"base64Image":       image,
			"language":          c.config.Language,
			"isOverlayRequired": "false",
			"detectOrientation": "true",
			"scale":             "true",
			"OCREngine":         strconv.Itoa(c.config.Engine),
		}).
		SetResult(&parsed).
		Post("/parse/image")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.WithErr(err)
		}
		return nil, common.ErrOCRServiceError.WithErr(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.ErrOCRServiceError.WithErr(fmt.Errorf("ocr.space returned %d", resp.StatusCode()))
	}

	if parsed.IsErroredOnProcessing {
		msg := "OCR işlemi başarısız oldu"
		if len(parsed.ErrorMessage) > 0 {
			msg = parsed.ErrorMessage[0]
		}
		common.LogWarn("ocr.space processing error", zap.String("error", msg))
		return nil, common.ErrOCRServiceError.WithErr(errors.New(msg))
	}

	if len(parsed.ParsedResults) == 0 {
		return nil, common.ErrOCRServiceError.WithErr(errors.New("Görüntüde metin bulunamadı"))
	}

	pages := make([]string, 0, len(parsed.ParsedResults))
	for _, r := range parsed.ParsedResults {
		pages = append(pages, r.ParsedText)
	}
	text := strings.TrimSpace(strings.Join(pages, "\n"))

	confidence := confidenceWithoutOverlay
	if overlay := parsed.ParsedResults[0].TextOverlay; overlay != nil && len(overlay.Lines) > 0 {
		confidence = confidenceWithOverlay
	}

	common.LogInfo("ocr completed",
		zap.Int("text_length", len(text)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		Text:       text,
		Confidence: confidence,
		Words:      len(strings.Fields(text)),
	}, nil
}
