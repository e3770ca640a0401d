// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"trendwise/internal/adapter/events"
	"trendwise/internal/logger"
)

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscriber delivers messages published on a subject until unsubscribed
type Subscriber interface {
	Subscribe(subject string, fn func(data []byte)) (unsubscribe func() error, err error)
}

// NATSSubscriber adapts a NATS connection to Subscriber
type NATSSubscriber struct {
	Conn *nats.Conn
}

// Subscribe implements Subscriber
func (s NATSSubscriber) Subscribe(subject string, fn func(data []byte)) (func() error, error) {
	sub, err := s.Conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

// streamMessage is one frame sent to stream clients
type streamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	Time time.Time       `json:"time"`
}

type streamClient struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	config WebSocketConfig
	logger *slog.Logger
}

// TrendStreamHandler upgrades to a WebSocket and relays summaries and
// detected-topic events published under topic. It responds 503 when sub is nil.
func TrendStreamHandler(sub Subscriber, topic string, l *slog.Logger) http.HandlerFunc {
	if l == nil {
		l = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if sub == nil {
			respondWithError(w, http.StatusServiceUnavailable, "Event stream is disabled", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			l.Warn("websocket_upgrade_failed", slog.String("error", err.Error()))
			return
		}

		client := &streamClient{
			conn:   conn,
			send:   make(chan []byte, 64),
			done:   make(chan struct{}),
			config: DefaultWebSocketConfig(),
			logger: l,
		}

		var unsubs []func() error
		for typ, subject := range map[string]string{
			"summary":  events.SummarySubject(topic),
			"detected": events.DetectedSubject(topic),
		} {
			unsub, err := sub.Subscribe(subject, client.relay(typ))
			if err != nil {
				l.Error("stream_subscribe_failed", slog.String("subject", subject), slog.String("error", err.Error()))
				for _, u := range unsubs {
					u()
				}
				conn.Close()
				return
			}
			unsubs = append(unsubs, unsub)
		}

		go client.writePump()
		client.enqueue(streamMessage{Type: "welcome", Time: time.Now().UTC()})
		l.Info("stream_client_connected", slog.String("remote", r.RemoteAddr))

		client.readPump()
		for _, u := range unsubs {
			u()
		}
		l.Info("stream_client_disconnected", slog.String("remote", r.RemoteAddr))
	}
}

// relay forwards bus messages of one type. Slow clients drop messages.
func (c *streamClient) relay(typ string) func([]byte) {
	return func(data []byte) {
		msg := streamMessage{Type: typ, Time: time.Now().UTC()}
		if json.Valid(data) {
			msg.Data = data
		}
		c.enqueue(msg)
	}
}

func (c *streamClient) enqueue(msg streamMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.logger.Warn("stream_message_dropped", slog.String("type", msg.Type))
	}
}

// readPump discards client frames and returns when the peer goes away
func (c *streamClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket_read_failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
