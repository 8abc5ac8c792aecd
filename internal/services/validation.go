package services

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Violations collects field problems; an empty set means the input is valid.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func (v Violations) Add(field, message string) {
	if _, exists := v[field]; !exists {
		v[field] = message
	}
}

// Err returns a validation ServiceError listing every violation ordered by field, or nil.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	items := make([]FieldError, 0, len(fields))
	for _, field := range fields {
		items = append(items, FieldError{Field: field, Message: v[field]})
	}
	return ServiceError{Kind: KindValidation, Status: http.StatusBadRequest, Message: "Validation failed", Errors: items}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func LengthBetween(field, value string, minLen, maxLen int, v Violations) {
	n := len([]rune(strings.TrimSpace(value)))
	if n < minLen || n > maxLen {
		v.Add(field, fmt.Sprintf("must be between %d and %d characters", minLen, maxLen))
	}
}

func MaxLength(field, value string, maxLen int, v Violations) {
	if len([]rune(value)) > maxLen {
		v.Add(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
}

func MinInt(field string, val, minVal int, v Violations) {
	if val < minVal {
		v.Add(field, fmt.Sprintf("must be at least %d", minVal))
	}
}

func RangeInt(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must be >= 0")
	}
}

func PositiveDecimal(field string, val decimal.Decimal, v Violations) {
	if !val.IsPositive() {
		v.Add(field, "must be > 0")
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, candidate := range allowed {
		if value == candidate {
			return
		}
	}
	v.Add(field, "must be one of "+strings.Join(allowed, ", "))
}

// ParseDay validates a YYYY-MM-DD calendar date and returns it normalised.
func ParseDay(field, value string, v Violations) string {
	day, err := time.Parse(DayLayout, strings.TrimSpace(value))
	if err != nil {
		v.Add(field, "must be a date in YYYY-MM-DD format")
		return ""
	}
	return day.Format(DayLayout)
}

const DayLayout = "2006-01-02"
