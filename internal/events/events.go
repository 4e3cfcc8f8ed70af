// Package events announces completed packing runs to downstream consumers
// over NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/eugenenazirov/binpack3d/internal/packing"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "binpack.results"

// RequestIDHeader carries the originating HTTP request ID on published messages.
const RequestIDHeader = "Request-Id"

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// Event is the message body published for each completed run.
type Event struct {
	ID         string         `json:"id"`
	RequestID  string         `json:"request_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Result     packing.Result `json:"result"`
}

// Publisher sends packing results to a broker.
type Publisher interface {
	PublishResult(ctx context.Context, requestID string, res packing.Result) error
	Close() error
}

// NATSPublisher publishes events as JSON on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
	owned   bool
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("binpack3d"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p := NewNATSPublisher(conn, subject, logger)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. Close does not close conn.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// PublishResult publishes res with a fresh event ID.
func (p *NATSPublisher) PublishResult(ctx context.Context, requestID string, res packing.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn.IsClosed() {
		return ErrPublisherClosed
	}

	evt := Event{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
		Result:     res,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	if requestID != "" {
		msg.Header.Set(RequestIDHeader, requestID)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	p.logger.Debug("published packing result",
		zap.String("subject", p.subject),
		zap.String("event_id", evt.ID),
		zap.String("request_id", requestID),
	)
	return nil
}

// Close flushes pending messages and closes the connection if the
// publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned || p.conn.IsClosed() {
		return nil
	}
	err := p.conn.Flush()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

var _ Publisher = Nop{}

func (Nop) PublishResult(context.Context, string, packing.Result) error { return nil }

func (Nop) Close() error { return nil }
