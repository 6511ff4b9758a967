package ocr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OCRConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Language: "tur",
		Engine:   2,
		Timeout:  5 * time.Second,
	})
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestExtractText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse/image" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-key" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.PostForm.Get("language") != "tur" || r.PostForm.Get("OCREngine") != "2" {
			t.Errorf("form = %v", r.PostForm)
		}
		if !strings.HasPrefix(r.PostForm.Get("base64Image"), "data:image/jpeg;base64,") {
			t.Errorf("image not sent as a data URI")
		}
		writeJSON(w, `{"ParsedResults":[{"ParsedText":"İçindekiler: şeker","TextOverlay":{"Lines":[{"LineText":"x"}]}},{"ParsedText":"süt "}],"IsErroredOnProcessing":false}`)
	})

	res, err := c.ExtractText(context.Background(), "AAAA")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if res.Text != "İçindekiler: şeker\nsüt" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Confidence != 85 {
		t.Errorf("confidence = %d", res.Confidence)
	}
	if res.Words != 3 {
		t.Errorf("words = %d", res.Words)
	}
}

func TestExtractTextConfidenceWithoutOverlay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"ParsedResults":[{"ParsedText":"su, tuz"}]}`)
	})
	res, err := c.ExtractText(context.Background(), "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 70 {
		t.Errorf("confidence = %d", res.Confidence)
	}
}

func TestExtractTextErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"array message", `{"IsErroredOnProcessing":true,"ErrorMessage":["File too large"]}`, "File too large"},
		{"string message", `{"IsErroredOnProcessing":true,"ErrorMessage":"Invalid key"}`, "Invalid key"},
		{"no results", `{"ParsedResults":[]}`, "metin bulunamadı"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			_, err := c.ExtractText(context.Background(), "AAAA")
			if !errors.Is(err, common.ErrOCRServiceError) {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestExtractTextUnavailable(t *testing.T) {
	for _, key := range []string{"", config.PlaceholderOCRAPIKey} {
		c := NewClient(config.OCRConfig{APIKey: key})
		if c.Available() {
			t.Errorf("key %q should be unavailable", key)
		}
		if _, err := c.ExtractText(context.Background(), "AAAA"); !errors.Is(err, common.ErrOCRUnavailable) {
			t.Errorf("err = %v", err)
		}
	}
}
