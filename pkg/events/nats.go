// Package events forwards job lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
)

// DefaultSubject is the subject prefix job events are published under
const DefaultSubject = "pathfinder.jobs"

// Publisher sends jobs.Event values as JSON to <subject>.<event type>
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  logging.Logger
}

// Connect dials NATS with unlimited reconnects
func Connect(url, subject string, logger logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("nats"))

	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("pathfinder"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", logging.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{nc: nc, subject: subject, logger: logger}, nil
}

// Subject returns the full subject for an event type
func (p *Publisher) Subject(typ jobs.EventType) string {
	return SubjectFor(p.subject, typ)
}

// SubjectFor joins a prefix and an event type
func SubjectFor(prefix string, typ jobs.EventType) string {
	return strings.TrimSuffix(prefix, ".") + "." + string(typ)
}

// PublishJobEvent implements jobs.EventPublisher
func (p *Publisher) PublishJobEvent(ctx context.Context, ev jobs.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}
	return p.nc.Publish(p.Subject(ev.Type), b)
}

// Ping reports whether the connection is usable. It backs the event_bus
// health check.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.nc.IsConnected() {
		return errors.New("NATS not connected: " + p.nc.Status().String())
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.logger.Warn("NATS drain failed", logging.Error(err))
		}
	}
}

// Subscribe decodes events published under prefix.> and calls handler for each.
// Undecodable messages are skipped.
func Subscribe(nc *nats.Conn, prefix string, handler func(jobs.Event)) (*nats.Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubject
	}
	return nc.Subscribe(strings.TrimSuffix(prefix, ".")+".>", func(msg *nats.Msg) {
		var ev jobs.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		handler(ev)
	})
}

var _ jobs.EventPublisher = (*Publisher)(nil)
