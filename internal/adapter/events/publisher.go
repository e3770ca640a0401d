// internal/adapter/events/publisher.go

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"trendwise/internal/domain/trend"
)

// DefaultTopic prefixes every subject when none is configured
const DefaultTopic = "trends"

type busConn interface {
	Publish(subj string, data []byte) error
}

// TopicEvent announces a topic that crossed the detection threshold
type TopicEvent struct {
	RunID      string             `json:"runId"`
	Name       string             `json:"name"`
	Score      int                `json:"score"`
	Platforms  []trend.SourceKind `json:"platforms"`
	DetectedAt time.Time          `json:"detectedAt"`
}

// Publisher sends aggregation events to NATS. A publisher without a
// connection drops every event.
type Publisher struct {
	conn  busConn
	topic string
}

// NewPublisher creates a publisher; nc may be nil when NATS is disabled
func NewPublisher(nc *nats.Conn, topic string) *Publisher {
	if nc == nil {
		return newPublisher(nil, topic)
	}
	return newPublisher(nc, topic)
}

func newPublisher(conn busConn, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{conn: conn, topic: topic}
}

// SummarySubject is the subject summaries are published on
func SummarySubject(topic string) string {
	if topic == "" {
		topic = DefaultTopic
	}
	return fmt.Sprintf("%s.summary", topic)
}

// DetectedSubject is the subject threshold crossings are published on
func DetectedSubject(topic string) string {
	if topic == "" {
		topic = DefaultTopic
	}
	return fmt.Sprintf("%s.detected", topic)
}

// Enabled reports whether events actually leave the process
func (p *Publisher) Enabled() bool {
	return p != nil && p.conn != nil
}

// PublishSummary publishes the summary as JSON on {topic}.summary
func (p *Publisher) PublishSummary(ctx context.Context, s trend.Summary) error {
	if !p.Enabled() {
		return nil
	}
	return p.publish(ctx, SummarySubject(p.topic), s)
}

// PublishDetected publishes one event per summary topic scoring at least threshold.
// It stops at the first failure.
func (p *Publisher) PublishDetected(ctx context.Context, s trend.Summary, threshold int) (int, error) {
	if !p.Enabled() {
		return 0, nil
	}
	sent := 0
	for _, t := range s.TopTrends {
		if t.Score < threshold {
			continue
		}
		ev := TopicEvent{
			RunID:      s.ID,
			Name:       t.Name,
			Score:      t.Score,
			Platforms:  t.Platforms,
			DetectedAt: s.Timestamp,
		}
		if err := p.publish(ctx, DetectedSubject(p.topic), ev); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	if !p.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("error publishing to %s: %w", subject, err)
	}
	return nil
}
