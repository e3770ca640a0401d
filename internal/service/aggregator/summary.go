// internal/service/aggregator/summary.go

package aggregator

import (
	"math"

	"trendwise/internal/domain/trend"
)

// Summarize condenses a result to its topK topics with rounded scores and
// per-platform record counts. Errors are carried through unchanged.
func Summarize(res *trend.Result, topK int) trend.Summary {
	if topK <= 0 {
		topK = trend.DefaultTopK
	}

	s := trend.Summary{
		Platforms: make([]trend.PlatformCount, 0, len(trend.AllSources())),
		TopTrends: make([]trend.SummaryTopic, 0, topK),
		Errors:    make([]trend.SourceError, 0),
	}
	if res == nil {
		return s
	}

	s.ID = res.ID
	s.Timestamp = res.Timestamp
	s.ProcessingTimeMs = res.ProcessingTimeMs
	s.Geo = res.Geo
	s.Period = res.Period
	s.Category = res.Category
	s.TotalTopics = len(res.Topics)
	s.Errors = append(s.Errors, res.Errors...)

	for _, kind := range trend.AllSources() {
		if r, ok := res.RawBySource[kind]; ok {
			s.Platforms = append(s.Platforms, trend.PlatformCount{Name: kind, Count: len(r.Records)})
		}
	}

	for i, t := range res.Topics {
		if i >= topK {
			break
		}
		s.TopTrends = append(s.TopTrends, trend.SummaryTopic{
			Name:         t.Name,
			Score:        int(math.Round(t.Score)),
			Platforms:    append([]trend.SourceKind(nil), t.Platforms...),
			ArticleCount: len(t.Articles),
		})
	}
	return s
}
