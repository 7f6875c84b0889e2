// Package audit records security-relevant engine events: access decisions,
// session activations and administrative writes.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platformbuilds/sentra-core/internal/logging"
)

// Event is one audited occurrence. ID and Timestamp are filled by the sink
// when left empty so callers only describe what happened.
type Event struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity,omitempty"`
	Target    string    `json:"target,omitempty"`
	Granted   bool      `json:"granted"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Sink interface {
	Record(ctx context.Context, event Event)
}

// logSink writes audit events through the structured logger. Log shipping
// carries them to long-term storage alongside the rest of the service logs.
type logSink struct {
	logger logging.Logger
}

func NewLogSink(log logging.Logger) Sink {
	return &logSink{logger: log}
}

func (s *logSink) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.logger.Info("audit",
		"auditId", event.ID,
		"tenant", event.TenantID,
		"actor", event.Actor,
		"action", event.Action,
		"entity", event.Entity,
		"target", event.Target,
		"granted", event.Granted,
		"detail", event.Detail,
	)
}

type nopSink struct{}

func NewNopSink() Sink { return nopSink{} }

func (nopSink) Record(context.Context, Event) {}
