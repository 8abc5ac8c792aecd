package services

import (
	"regexp"
	"strings"

	"fitcoach-backend-go/internal/models"
)

const maxListItems = 12

var whitespace = regexp.MustCompile(`\s+`)

// CleanList trims items, drops blanks and duplicates and keeps at most limit entries.
func CleanList(items []string, limit int) models.StringList {
	seen := make(map[string]bool)
	cleaned := make(models.StringList, 0, len(items))
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		cleaned = append(cleaned, value)
		if limit > 0 && len(cleaned) >= limit {
			break
		}
	}
	return cleaned
}

// CleanSearchTerm collapses runs of whitespace in a user supplied search.
func CleanSearchTerm(term string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(term), " ")
}
