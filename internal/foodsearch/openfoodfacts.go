// Package foodsearch queries the OpenFoodFacts product database.
package foodsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fitcoach-backend-go/internal/services"

	"github.com/coocood/freecache"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	cacheExpire    = 60 * 60 * 6
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *freecache.Cache
}

var _ services.FoodSearcher = (*Client)(nil)

func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cache:      freecache.NewCache(4 * 1024 * 1024),
	}
}

type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Code        string     `json:"code"`
	ProductName string     `json:"product_name"`
	Brands      string     `json:"brands"`
	Nutriments  nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal    *float64 `json:"energy-kcal_100g"`
	Proteins      *float64 `json:"proteins_100g"`
	Carbohydrates *float64 `json:"carbohydrates_100g"`
	Fat           *float64 `json:"fat_100g"`
	Fiber         *float64 `json:"fiber_100g"`
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]services.FoodItem, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	cacheKey := []byte(fmt.Sprintf("%s::%d", query, limit))
	if cached, err := c.cache.Get(cacheKey); err == nil {
		items := []services.FoodItem{}
		if err := json.Unmarshal(cached, &items); err == nil {
			return items, nil
		}
	}

	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("fields", "code,product_name,brands,nutriments")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cgi/search.pl?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "fitcoach-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food search: status %d", resp.StatusCode)
	}
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read food search response: %w", err)
	}
	var parsed searchResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal food search response: %w", err)
	}

	items := make([]services.FoodItem, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		name := strings.TrimSpace(p.ProductName)
		if name == "" || p.Nutriments.EnergyKcal == nil {
			continue
		}
		items = append(items, services.FoodItem{
			Name:     name,
			Brand:    strings.TrimSpace(strings.Split(p.Brands, ",")[0]),
			Barcode:  p.Code,
			Calories: int(math.Round(*p.Nutriments.EnergyKcal)),
			Protein:  grams(p.Nutriments.Proteins),
			Carbs:    grams(p.Nutriments.Carbohydrates),
			Fat:      grams(p.Nutriments.Fat),
			Fiber:    grams(p.Nutriments.Fiber),
			Per:      "100g",
		})
		if len(items) == limit {
			break
		}
	}

	if encoded, err := json.Marshal(items); err == nil {
		if err := c.cache.Set(cacheKey, encoded, cacheExpire); err != nil {
			log.Debugf("food search: cache set for %q: %s", query, err)
		}
	}
	return items, nil
}

func grams(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v).Round(1)
}
