// internal/service/aggregator/window.go

package aggregator

import (
	"time"

	"trendwise/internal/domain/trend"
)

var periodDurations = map[trend.Period]time.Duration{
	trend.PeriodHour:  time.Hour,
	trend.PeriodDay:   24 * time.Hour,
	trend.PeriodWeek:  7 * 24 * time.Hour,
	trend.PeriodMonth: 30 * 24 * time.Hour,
}

// WindowCutoff returns the earliest publish time still inside period.
// Unknown periods behave as 24h.
func WindowCutoff(period trend.Period, now time.Time) time.Time {
	d, ok := periodDurations[period]
	if !ok {
		d = periodDurations[trend.PeriodDay]
	}
	return now.Add(-d)
}

// FilterArticles drops articles published before cutoff. The topic itself
// is always returned, possibly with no articles left.
func FilterArticles(t trend.Topic, cutoff time.Time) trend.Topic {
	kept := make([]trend.Article, 0, len(t.Articles))
	for _, a := range t.Articles {
		if !a.PublishedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	t.Articles = kept
	return t
}

// ApplyWindow filters the articles of every topic in place
func ApplyWindow(topics []trend.Topic, period trend.Period, now time.Time) {
	cutoff := WindowCutoff(period, now)
	for i := range topics {
		topics[i] = FilterArticles(topics[i], cutoff)
	}
}
