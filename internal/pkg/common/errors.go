package common

import (
	"errors"
	"net/http"
)

// ErrorResponse is the error body returned by every API route.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"` // only in debug mode
}

// CustomError carries an API error code and the HTTP status it maps to.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is matches any CustomError with the same code, so wrapped copies made by
// WithErr still satisfy errors.Is against the predeclared value.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithErr returns a copy of e carrying err as its cause.
func (e *CustomError) WithErr(err error) *CustomError {
	return &CustomError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// NewError creates a CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError marks a request that failed validation.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsCustomError resolves err to a CustomError, defaulting to ErrInternalError.
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	if IsValidationError(err) {
		return ErrInvalidRequest.WithErr(err)
	}
	return ErrInternalError.WithErr(err)
}

const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeRequestTimeout   = "REQUEST_TIMEOUT"    // 408
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429
	ErrCodeUnprocessable    = "UNPROCESSABLE"      // 422
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405

	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeBadGateway         = "BAD_GATEWAY"         // 502
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "Geçersiz istek", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "Kaynak bulunamadı", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "İstek zaman aşımına uğradı", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "Çok fazla istek", http.StatusTooManyRequests, nil)
	ErrPayloadTooLarge = NewError("PAYLOAD_TOO_LARGE", "İstek gövdesi çok büyük", http.StatusRequestEntityTooLarge, nil)

	ErrInternalError      = NewError(ErrCodeInternalError, "Sunucu hatası", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Servis geçici olarak kullanılamıyor", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "Ağ geçidi zaman aşımı", http.StatusGatewayTimeout, nil)

	// input quality
	ErrEmptyText        = NewError("EMPTY_TEXT", "Analiz edilecek metin bulunamadı", http.StatusBadRequest, nil)
	ErrTextTooShort     = NewError("TEXT_TOO_SHORT", "Görüntüden yeterli metin çıkarılamadı. Lütfen daha net bir fotoğraf çekin.", http.StatusBadRequest, nil)
	ErrInvalidBarcode   = NewError("INVALID_BARCODE", "Geçersiz barkod formatı. 8-14 haneli sayı olmalı.", http.StatusBadRequest, nil)
	ErrMissingImage     = NewError("MISSING_IMAGE", "Resim verisi bulunamadı. Lütfen bir resim yükleyin.", http.StatusBadRequest, nil)
	ErrInvalidImageSize = NewError("INVALID_IMAGE_SIZE", "Dosya boyutu çok büyük", http.StatusBadRequest, nil)
	ErrInvalidImageType = NewError("INVALID_IMAGE_TYPE", "Sadece resim dosyaları kabul edilir", http.StatusBadRequest, nil)

	ErrProductNotFound  = NewError("PRODUCT_NOT_FOUND", "Ürün veritabanında bulunamadı. İçindekiler fotoğrafı ile taramayı deneyin.", http.StatusNotFound, nil)
	ErrNoIngredientData = NewError("NO_INGREDIENT_DATA", "Ürün için içerik bilgisi bulunmuyor", http.StatusUnprocessableEntity, nil)
	ErrProfileNotFound  = NewError("PROFILE_NOT_FOUND", "Profil bulunamadı", http.StatusNotFound, nil)

	// collaborators
	ErrAIUnavailable   = NewError("AI_UNAVAILABLE", "AI servisi hazır değil", http.StatusServiceUnavailable, nil)
	ErrAIServiceError  = NewError("AI_SERVICE_ERROR", "AI servisi hatası", http.StatusBadGateway, nil)
	ErrOCRUnavailable  = NewError("OCR_UNAVAILABLE", "OCR servisi yapılandırılmamış", http.StatusServiceUnavailable, nil)
	ErrOCRServiceError = NewError("OCR_SERVICE_ERROR", "Metin çıkarma başarısız", http.StatusBadGateway, nil)
	ErrProductLookup   = NewError("PRODUCT_LOOKUP_ERROR", "Barkod sorgusu başarısız", http.StatusBadGateway, nil)
	ErrQueueFull       = NewError("QUEUE_FULL", "İstek kuyruğu dolu", http.StatusServiceUnavailable, nil)
	ErrQueueClosed     = NewError("QUEUE_CLOSED", "İstek kuyruğu kapalı", http.StatusServiceUnavailable, nil)
	ErrCacheFull       = NewError("CACHE_FULL", "Önbellek dolu", http.StatusServiceUnavailable, nil)
	ErrCacheDisabled   = NewError("CACHE_DISABLED", "Önbellek devre dışı", http.StatusServiceUnavailable, nil)
	ErrCacheMiss       = NewError("CACHE_MISS", "Önbellekte bulunamadı", http.StatusNotFound, nil)
)
