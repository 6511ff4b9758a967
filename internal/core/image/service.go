// Package image validates uploaded label photos and re-encodes them as JPEG
// data URIs small enough for OCR.
package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

const jpegQuality = 85

// Service prepares images for OCR.
type Service struct {
	maxSizeBytes int64
	maxDimension int
}

func NewService(cfg config.ImageConfig) *Service {
	return &Service{
		maxSizeBytes: cfg.MaxSizeBytes,
		maxDimension: cfg.MaxDimension,
	}
}

// Prepare checks raw image bytes and returns them as a JPEG data URI,
// scaled so that neither side exceeds the configured maximum.
func (s *Service) Prepare(data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.ErrMissingImage
	}
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return "", common.ErrInvalidImageSize.WithErr(
			fmt.Errorf("image is %d bytes, limit is %d", len(data), s.maxSizeBytes))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", common.ErrInvalidImageType.WithErr(fmt.Errorf("failed to decode image: %w", err))
	}
	if !isSupportedFormat(format) {
		return "", common.ErrInvalidImageType.WithErr(fmt.Errorf("unsupported image format: %s", format))
	}

	img = s.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// PrepareEncoded accepts a data URI or bare base64 and behaves like Prepare.
func (s *Service) PrepareEncoded(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", common.ErrMissingImage
	}

	payload := encoded
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return "", common.ErrInvalidImageType.WithErr(fmt.Errorf("invalid data URI"))
		}
		if !strings.HasPrefix(encoded, "data:image/") {
			return "", common.ErrInvalidImageType
		}
		payload = encoded[idx+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", common.ErrInvalidImageType.WithErr(fmt.Errorf("failed to decode base64 data: %w", err))
	}
	return s.Prepare(decoded)
}

func (s *Service) downscale(src image.Image) image.Image {
	if s.maxDimension <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= s.maxDimension && h <= s.maxDimension {
		return src
	}

	if w >= h {
		h = h * s.maxDimension / w
		w = s.maxDimension
	} else {
		w = w * s.maxDimension / h
		h = s.maxDimension
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}
