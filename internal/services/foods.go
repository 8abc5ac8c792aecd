package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// FoodItem is a search hit with nutrients per 100 g.
type FoodItem struct {
	Name     string          `json:"name"`
	Brand    string          `json:"brand,omitempty"`
	Barcode  string          `json:"barcode,omitempty"`
	Calories int             `json:"calories"`
	Protein  decimal.Decimal `json:"protein"`
	Carbs    decimal.Decimal `json:"carbs"`
	Fat      decimal.Decimal `json:"fat"`
	Fiber    decimal.Decimal `json:"fiber"`
	Per      string          `json:"per"`
}

type FoodSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]FoodItem, error)
}

func staticFood(name string, calories int, protein, carbs, fat, fiber string) FoodItem {
	return FoodItem{
		Name:     name,
		Calories: calories,
		Protein:  decimal.RequireFromString(protein),
		Carbs:    decimal.RequireFromString(carbs),
		Fat:      decimal.RequireFromString(fat),
		Fiber:    decimal.RequireFromString(fiber),
		Per:      "100g",
	}
}

var fallbackFoods = []FoodItem{
	staticFood("Chicken Breast", 165, "31", "0", "3.6", "0"),
	staticFood("Brown Rice", 111, "2.6", "23", "0.9", "1.8"),
	staticFood("Broccoli", 34, "2.8", "7", "0.4", "2.6"),
	staticFood("Banana", 89, "1.1", "22.8", "0.3", "2.6"),
	staticFood("Egg", 155, "13", "1.1", "11", "0"),
	staticFood("Oats", 389, "16.9", "66.3", "6.9", "10.6"),
	staticFood("Salmon", 208, "20", "0", "13", "0"),
	staticFood("Greek Yogurt", 59, "10", "3.6", "0.4", "0"),
}

// SearchFoods asks the external food database and falls back to the built-in
// list when it is unset, failing or has nothing.
func SearchFoods(ctx context.Context, searcher FoodSearcher, query string, limit int) ([]FoodItem, error) {
	v := Violations{}
	LengthBetween("q", query, 2, 100, v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	if searcher != nil {
		items, err := searcher.Search(ctx, strings.TrimSpace(query), limit)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		if err != nil {
			log.Warnf("food search upstream failed, using fallback list: %s", err)
		}
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []FoodItem{}
	for _, f := range fallbackFoods {
		if strings.Contains(strings.ToLower(f.Name), needle) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = append(out, fallbackFoods[:3]...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
