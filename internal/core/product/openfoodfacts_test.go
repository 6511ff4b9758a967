package product

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

const nutellaJSON = `{
  "status": 1,
  "product": {
    "product_name": "",
    "product_name_tr": "Fındık Kreması",
    "brands": "Örnek",
    "ingredients_text_tr": "şeker, palm yağı, fındık (%13), yağsız süt tozu",
    "allergens_tags": ["en:milk", "en:nuts", "tr:soybeans", "en:unknown-thing"],
    "allergens_from_ingredients": "Süt, fındık",
    "nutrition_grades": "e",
    "nova_group": "4",
    "image_front_url": "https://images.example/1.jpg",
    "quantity": "400 g"
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OpenFoodFactsConfig{
		BaseURL:   srv.URL,
		UserAgent: "EtiketKontrol/1.0",
		Timeout:   5 * time.Second,
	}, nil)
}

func TestLookup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/product/8690000000001.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "EtiketKontrol/1.0" {
			t.Errorf("user agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(nutellaJSON))
	})

	p, err := c.Lookup(context.Background(), "8690000000001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Name != "Fındık Kreması" {
		t.Errorf("name = %q", p.Name)
	}
	if !strings.HasPrefix(p.Ingredients, "şeker, palm yağı") {
		t.Errorf("ingredients = %q", p.Ingredients)
	}
	want := []string{"Süt", "Kuruyemiş", "Soya", "unknown-thing", "fındık"}
	if strings.Join(p.Allergens, "|") != strings.Join(want, "|") {
		t.Errorf("allergens = %q, want %q", p.Allergens, want)
	}
	if p.NovaGroup != 4 || p.NutritionGrade != "e" {
		t.Errorf("grades = %q/%d", p.NutritionGrade, p.NovaGroup)
	}
	if p.ImageURL != "https://images.example/1.jpg" {
		t.Errorf("image = %q", p.ImageURL)
	}
}

func TestLookupNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	})
	if _, err := c.Lookup(context.Background(), "12345678"); !errors.Is(err, common.ErrProductNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestLookupUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if _, err := c.Lookup(context.Background(), "12345678"); !errors.Is(err, common.ErrProductLookup) {
		t.Errorf("err = %v", err)
	}
}

func TestLookupRejectsBadBarcode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	for _, bc := range []string{"", "1234567", "123456789012345", "12345abc", "../../etc"} {
		if _, err := c.Lookup(context.Background(), bc); !errors.Is(err, common.ErrInvalidBarcode) {
			t.Errorf("Lookup(%q) err = %v", bc, err)
		}
	}
}

func TestTranslateAllergen(t *testing.T) {
	tests := map[string]string{
		"en:milk":                          "Süt",
		"en:sesame-seeds":                  "Susam",
		"en:sulphur-dioxide-and-sulphites": "Sülfit",
		"tr:gluten":                        "Gluten",
		"en:Wheat":                         "Buğday",
		"fr:lait":                          "fr:lait",
	}
	for in, want := range tests {
		if got := TranslateAllergen(in); got != want {
			t.Errorf("TranslateAllergen(%q) = %q, want %q", in, got, want)
		}
	}
}
