// Package product looks packaged foods up by barcode in OpenFoodFacts.
package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"label-checker/internal/core/ai/cache"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// ValidBarcode reports whether barcode is 8 to 14 digits.
func ValidBarcode(barcode string) bool {
	return barcodePattern.MatchString(barcode)
}

// Product is the subset of an OpenFoodFacts record the checker uses.
type Product struct {
	Barcode        string   `json:"barcode"`
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	Ingredients    string   `json:"ingredients"`
	Allergens      []string `json:"allergens"`
	NutritionGrade string   `json:"nutritionGrade,omitempty"`
	NovaGroup      int      `json:"novaGroup,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Quantity       string   `json:"quantity,omitempty"`
	Categories     string   `json:"categories,omitempty"`
	Labels         string   `json:"labels,omitempty"`
}

var allergenNames = map[string]string{
	"milk":                          "Süt",
	"gluten":                        "Gluten",
	"eggs":                          "Yumurta",
	"nuts":                          "Kuruyemiş",
	"peanuts":                       "Yer Fıstığı",
	"soybeans":                      "Soya",
	"fish":                          "Balık",
	"crustaceans":                   "Kabuklu Deniz Ürünleri",
	"molluscs":                      "Yumuşakçalar",
	"celery":                        "Kereviz",
	"mustard":                       "Hardal",
	"sesame-seeds":                  "Susam",
	"sulphur-dioxide-and-sulphites": "Sülfit",
	"lupin":                         "Acı Bakla",
	"wheat":                         "Buğday",
}

// TranslateAllergen maps an OpenFoodFacts allergen tag such as "en:milk"
// to its Turkish name. Unknown tags come back without their prefix.
func TranslateAllergen(tag string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(tag), "en:"), "tr:")
	if tr, ok := allergenNames[strings.ToLower(name)]; ok {
		return tr
	}
	return name
}

// flexInt accepts a number, a numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName              string   `json:"product_name"`
		ProductNameTR            string   `json:"product_name_tr"`
		Brands                   string   `json:"brands"`
		IngredientsText          string   `json:"ingredients_text"`
		IngredientsTextTR        string   `json:"ingredients_text_tr"`
		AllergensTags            []string `json:"allergens_tags"`
		AllergensFromIngredients string   `json:"allergens_from_ingredients"`
		NutritionGrades          string   `json:"nutrition_grades"`
		NovaGroup                flexInt  `json:"nova_group"`
		ImageURL                 string   `json:"image_url"`
		ImageFrontURL            string   `json:"image_front_url"`
		Quantity                 string   `json:"quantity"`
		Categories               string   `json:"categories"`
		Labels                   string   `json:"labels"`
	} `json:"product"`
}

// Client is an OpenFoodFacts v0 API client with an optional shared cache.
type Client struct {
	config config.OpenFoodFactsConfig
	client *resty.Client
	cache  *cache.Service
}

// NewClient creates the client. store may be nil.
func NewClient(cfg config.OpenFoodFactsConfig, store *cache.Service) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	return &Client{config: cfg, client: client, cache: store}
}

// Lookup fetches the product for barcode. It returns ErrInvalidBarcode for
// malformed input and ErrProductNotFound when the database has no record.
func (c *Client) Lookup(ctx context.Context, barcode string) (*Product, error) {
	if !ValidBarcode(barcode) {
		return nil, common.ErrInvalidBarcode
	}

	cacheKey := "off:" + barcode
	var cached Product
	if hit, err := c.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		common.LogWarn("product cache read failed", zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("barcode", barcode).
		Get("/api/v0/product/{barcode}.json")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.WithErr(err)
		}
		return nil, common.ErrProductLookup.WithErr(err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, common.ErrProductNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.ErrProductLookup.WithErr(fmt.Errorf("openfoodfacts returned %d", resp.StatusCode()))
	}

	var data offResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, common.ErrProductLookup.WithErr(fmt.Errorf("decode product: %w", err))
	}
	if data.Status == 0 {
		return nil, common.ErrProductNotFound
	}

	p := data.Product
	product := &Product{
		Barcode:        barcode,
		Name:           firstNonEmpty(p.ProductName, p.ProductNameTR, "Bilinmeyen Ürün"),
		Brand:          p.Brands,
		Ingredients:    firstNonEmpty(p.IngredientsText, p.IngredientsTextTR),
		Allergens:      collectAllergens(p.AllergensTags, p.AllergensFromIngredients),
		NutritionGrade: p.NutritionGrades,
		NovaGroup:      int(p.NovaGroup),
		ImageURL:       firstNonEmpty(p.ImageURL, p.ImageFrontURL),
		Quantity:       p.Quantity,
		Categories:     p.Categories,
		Labels:         p.Labels,
	}

	if err := c.cache.SetJSON(ctx, cacheKey, product, c.config.CacheTTL); err != nil {
		common.LogWarn("product cache write failed", zap.Error(err))
	}

	common.LogInfo("product found", zap.String("barcode", barcode), zap.String("name", product.Name))
	return product, nil
}

func collectAllergens(tags []string, fromIngredients string) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, tag := range tags {
		add(TranslateAllergen(tag))
	}
	if fromIngredients != "" {
		for _, a := range strings.Split(fromIngredients, ",") {
			add(strings.TrimSpace(a))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
