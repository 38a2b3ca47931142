// Package events publishes playout notifications to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
)

// TopicPlayoutBuilt is published after a build is persisted
const TopicPlayoutBuilt = "playout.built"

// Publisher delivers JSON payloads on a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// Noop discards everything
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher
func (Noop) Close() error { return nil }

// NATSConfig configures the NATS connection
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns connection defaults for a local server
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "hermes",
		Name:          "hermes-playout",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSPublisher publishes to core NATS subjects named <prefix>.<topic>
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	log := logger.WithComponent("events")

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Msg("Connected to NATS")
	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, log: log}, nil
}

// Publish marshals payload as JSON and publishes it
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}
	subject := Subject(p.prefix, topic)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.log.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("Event published")
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// Subject joins a prefix and topic into a NATS subject
func Subject(prefix, topic string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// Message is one payload captured by a Recorder
type Message struct {
	Topic   string
	Payload json.RawMessage
}

// Recorder keeps published payloads in memory. It backs local runs without a broker.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Topic: topic, Payload: data})
	return nil
}

// Close implements Publisher
func (r *Recorder) Close() error { return nil }

// Messages returns a copy of everything published so far
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
