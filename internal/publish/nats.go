// Package publish forwards tracker snapshots to external message buses.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yegors/flightwatch/internal/tracker"
	"github.com/yegors/flightwatch/pkg/logger"
)

// conn is the part of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes each snapshot as JSON on a fixed subject
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *logger.Logger
}

// ConnectNATS dials the server and returns a publisher for subject.
// The connection reconnects on its own for the lifetime of the process.
func ConnectNATS(url, subject string, log *logger.Logger) (*NATSPublisher, error) {
	log = log.Named("nats")

	nc, err := nats.Connect(url,
		nats.Name("flightwatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}

	log.Info("Connected to NATS",
		logger.String("url", nc.ConnectedUrl()),
		logger.String("subject", subject))

	return newNATSPublisher(nc, subject, log), nil
}

func newNATSPublisher(c conn, subject string, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, logger: log}
}

// Subject returns the subject snapshots are published on
func (p *NATSPublisher) Subject() string {
	return p.subject
}

// Publish implements tracker.Publisher
func (p *NATSPublisher) Publish(snapshot tracker.Snapshot) error {
	payload, err := Encode(snapshot)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	p.logger.Debug("Published snapshot",
		logger.String("subject", p.subject),
		logger.Int("flights", len(snapshot.Flights)),
		logger.Int("bytes", len(payload)))
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode renders a snapshot the same way the websocket channel does
func Encode(snapshot tracker.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(tracker.SnapshotMessage(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return payload, nil
}
