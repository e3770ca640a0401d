// internal/service/aggregator/score.go

package aggregator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"trendwise/internal/domain/trend"
)

// Base scores per source. Magnitude metrics are added on top as log10 terms.
const (
	baseGoogleTrends = 50.0
	baseTwitter      = 30.0
	baseReddit       = 20.0
	baseYouTube      = 25.0

	articleBonus = 2.0
)

var trafficPattern = regexp.MustCompile(`(?i)^\s*([0-9][0-9,]*(?:\.[0-9]+)?)\s*([KMB])?\s*\+?`)

var trafficMultipliers = map[string]float64{
	"":  1,
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
}

// ParseTraffic converts a formatted traffic string such as "50K+" or
// "2M+" into a number. The second return is false when s carries no number.
func ParseTraffic(s string) (float64, bool) {
	m := trafficPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return n * trafficMultipliers[strings.ToUpper(m[2])], true
}

// logTerm is log10(max(v, 1)) * weight; non-positive values contribute nothing
func logTerm(v, weight float64) float64 {
	if v <= 1 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Log10(v) * weight
}

// Score computes the comparable strength of a raw record
func Score(r trend.Record) float64 {
	switch r.Source {
	case trend.SourceGoogleTrends:
		s := baseGoogleTrends
		if traffic, ok := ParseTraffic(r.Traffic); ok {
			s += logTerm(traffic, 10)
		}
		if r.RelatedArticles > 0 {
			s += float64(r.RelatedArticles) * articleBonus
		}
		return s
	case trend.SourceTwitter:
		return baseTwitter + logTerm(r.Metric(trend.MetricVolume), 5)
	case trend.SourceReddit:
		return baseReddit +
			logTerm(r.Metric(trend.MetricScore), 3) +
			logTerm(r.Metric(trend.MetricComments), 2)
	case trend.SourceYouTube:
		return baseYouTube +
			logTerm(r.Metric(trend.MetricViews), 4) +
			logTerm(r.Metric(trend.MetricLikes), 2)
	}
	return 0
}
