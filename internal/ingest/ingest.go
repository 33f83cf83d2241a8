// Package ingest routes authenticated inbound events: extract an
// incident from the raw text, write the event audit record, and decide
// whether the incident enters the pipeline queue.
package ingest

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/audit"
	"github.com/linnemanlabs/remedy/internal/dedup"
	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/queue"
)

// Disposition is what ingest decided to do with an event.
type Disposition string

const (
	// DispositionQueued means the incident entered the pipeline queue.
	DispositionQueued Disposition = "queued"

	// DispositionDuplicate means the dedup gate rejected the incident.
	DispositionDuplicate Disposition = "duplicate"

	// DispositionIgnored means the event carried no failure to act on.
	DispositionIgnored Disposition = "ignored"
)

// Service is the ingress-side decision point. Everything it does is
// fast and non-blocking so the webhook can acknowledge promptly.
type Service struct {
	dedup  dedup.Store
	queue  *queue.Queue
	audit  audit.Store
	logger log.Logger

	// Observer, when set, sees every disposition. Used for metrics.
	Observer func(Disposition)
}

// NewService creates an ingest service.
func NewService(store dedup.Store, q *queue.Queue, auditStore audit.Store, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		dedup:  store,
		queue:  q,
		audit:  auditStore,
		logger: logger,
	}
}

// Handle extracts an incident from the event, audits it, and routes it.
// Only status=failed incidents enter the queue; complete dedup keys pass
// through the atomic claim first, partial keys are always processed. The
// extracted incident is returned so callers can reference its fields in
// their acknowledgement.
func (s *Service) Handle(ctx context.Context, ev incident.Event) (Disposition, incident.Incident) {
	inc := incident.Parse(ev.Text)
	disposition := s.route(ctx, ev, inc)

	record := audit.EventRecord{
		ID:          ev.ID,
		User:        ev.User,
		Channel:     ev.Channel,
		Subtype:     ev.Subtype,
		Timestamp:   time.Now(),
		TextDetails: inc,
		Disposition: string(disposition),
	}
	if err := s.audit.Append(ctx, audit.EventLog, record); err != nil {
		s.logger.Error(ctx, err, "failed to write event audit record", "event_id", ev.ID)
	}

	if s.Observer != nil {
		s.Observer(disposition)
	}
	return disposition, inc
}

func (s *Service) route(ctx context.Context, ev incident.Event, inc incident.Incident) Disposition {
	L := s.logger.With("event_id", ev.ID, "dag", inc.DAGName, "status", inc.Status)

	if inc.Status != incident.StatusFailed {
		L.Info(ctx, "event carries no failure, recording only")
		return DispositionIgnored
	}

	key := inc.Key()
	if key.Complete() {
		won, err := s.dedup.Claim(ctx, key)
		if err != nil {
			// At-least-once beats silent loss: process on a broken gate.
			L.Error(ctx, err, "dedup claim failed, processing anyway", "key", key.String())
		} else if !won {
			L.Info(ctx, "duplicate incident suppressed", "key", key.String())
			return DispositionDuplicate
		}
	} else {
		L.Info(ctx, "partial dedup key, bypassing gate", "key", key.String())
	}

	if !s.queue.Enqueue(queue.Task{Event: ev, Incident: inc}) {
		L.Warn(ctx, "queue closed, dropping incident")
		return DispositionIgnored
	}
	L.Info(ctx, "incident queued", "key", key.String())
	return DispositionQueued
}
