// internal/service/aggregator/classify.go

package aggregator

import (
	"sort"
	"strings"

	"trendwise/internal/domain/trend"
)

var categoryKeywords = map[string][]string{
	"technology":    {"tech", "ai", "software", "app", "digital", "crypto", "blockchain"},
	"sports":        {"game", "match", "player", "team", "score", "championship", "olympics"},
	"entertainment": {"movie", "show", "celebrity", "music", "actor", "film", "series"},
	"politics":      {"election", "government", "policy", "president", "congress", "vote"},
	"health":        {"health", "medical", "vaccine", "virus", "covid", "disease", "hospital"},
}

// Categories returns the known category names, sorted
func Categories() []string {
	names := make([]string, 0, len(categoryKeywords))
	for name := range categoryKeywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryKeywords returns the keyword list for a category, or nil if unknown
func CategoryKeywords(category string) []string {
	return categoryKeywords[strings.ToLower(strings.TrimSpace(category))]
}

// Classify keeps the topics whose normalized name contains any keyword of
// the category. Keywords match as substrings, so "ai" also hits "said".
// An unknown category yields an empty list. Order and scores are unchanged.
func Classify(topics []trend.Topic, category string) []trend.Topic {
	keywords := CategoryKeywords(category)
	out := make([]trend.Topic, 0)
	if len(keywords) == 0 {
		return out
	}

	for _, t := range topics {
		name := Normalize(t.Name)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
