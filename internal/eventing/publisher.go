// Package eventing publishes run lifecycle events to NATS so external
// consumers can observe runs without tailing trace files.
package eventing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/switchboard-ai/switchboard/internal/trace"
)

// Publisher emits trace records to a message subject.
type Publisher interface {
	Publish(rec trace.Record) error
	Close()
}

// NATSPublisher publishes trace records as JSON messages on
// switchboard.runs.<network>.<run_id>. Publishing is fire-and-forget: a
// broker outage degrades observability, never a run.
type NATSPublisher struct {
	conn    *nats.Conn
	network string
	runID   string
	logger  *slog.Logger
}

// Connect dials the NATS server and returns a publisher scoped to one run.
func Connect(url, network, runID string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("switchboard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSPublisher{
		conn:    conn,
		network: network,
		runID:   runID,
		logger:  slog.Default().With("component", "eventing"),
	}, nil
}

// Subject returns the subject this publisher emits on.
func (p *NATSPublisher) Subject() string {
	return fmt.Sprintf("switchboard.runs.%s.%s", p.network, p.runID)
}

// Publish emits one trace record.
func (p *NATSPublisher) Publish(rec trace.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close drains the connection, letting buffered messages flush first.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("drain failed", "error", err)
	}
}

var _ Publisher = (*NATSPublisher)(nil)

// Noop is a publisher that discards everything, used when eventing is not
// configured.
type Noop struct{}

func (Noop) Publish(trace.Record) error { return nil }
func (Noop) Close()                     {}
