// Package notify publishes workflow events to a Redis channel so
// downstream notifiers (email, SMS, dashboards) can react without the
// API blocking on them.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event is one workflow occurrence worth telling somebody about.
type Event struct {
	Type      string    `json:"type"` // job.transition, audit.recorded, audit.reviewed, audit.resolved
	JobID     string    `json:"jobId"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	AuditID   string    `json:"auditId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends events to a Redis pub/sub channel. A nil Publisher
// is valid and drops everything, so callers never need to branch on
// whether notifications are configured.
type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewPublisher builds a Publisher over the given client and channel.
func NewPublisher(rdb *redis.Client, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends the event, best effort. Failures are logged and
// swallowed; a notification outage must never fail a transition that
// already committed.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil || p.rdb == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("notify marshal failed", "error", err)
		}
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		if p.logger != nil {
			p.logger.Warn("notify publish failed", "channel", p.channel, "error", err)
		}
	}
}
