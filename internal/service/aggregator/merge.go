// internal/service/aggregator/merge.go

package aggregator

import (
	"sort"
	"strings"

	"trendwise/internal/domain/trend"
)

// Merge folds per-source records into ranked topics. Sources are visited in
// trend.AllSources order so the first-seen display name does not depend on
// which collector finished first. Failed sources and blank names are skipped.
func Merge(raw map[trend.SourceKind]trend.SourceResult) []trend.Topic {
	index := make(map[string]int)
	topics := make([]trend.Topic, 0)

	for _, kind := range trend.AllSources() {
		res, ok := raw[kind]
		if !ok || res.Failed() {
			continue
		}
		for _, rec := range res.Records {
			key := mergeKey(rec.Name)
			if key == "" {
				continue
			}
			rec.Source = kind
			score := Score(rec)
			c := trend.Contribution{Source: kind, Score: score, OriginalName: rec.Name}

			if i, ok := index[key]; ok {
				t := &topics[i]
				t.Score += score
				t.Contributions = append(t.Contributions, c)
				t.AddPlatform(kind)
				continue
			}

			index[key] = len(topics)
			topics = append(topics, trend.Topic{
				Key:           key,
				Name:          rec.Name,
				Score:         score,
				Platforms:     []trend.SourceKind{kind},
				Contributions: []trend.Contribution{c},
				Articles:      []trend.Article{},
			})
		}
	}

	sortTopics(topics)
	return topics
}

// mergeKey is Normalize, or the trimmed lowercase name when nothing survives
// normalization (emoji-only titles). Such keys hold no letters or digits and so
// never collide with a normalized one. Blank names have no key.
func mergeKey(name string) string {
	if key := Normalize(name); key != "" {
		return key
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// sortTopics orders by score descending; equal scores keep discovery order
func sortTopics(topics []trend.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Score > topics[j].Score
	})
}
