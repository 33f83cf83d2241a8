// Package eventapi exposes the HTTP surface: the signed Slack events
// webhook, the direct query endpoint, and read access to the audit logs.
package eventapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/remedy/internal/audit"
	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/ingest"
	"github.com/linnemanlabs/remedy/internal/slacksig"
)

// IngestService defines the routing operation eventapi needs.
type IngestService interface {
	Handle(ctx context.Context, ev incident.Event) (ingest.Disposition, incident.Incident)
}

// QueryAgent defines the free-form query operation.
type QueryAgent interface {
	Query(ctx context.Context, query string) (string, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	verifier *slacksig.Verifier
	ingest   IngestService
	agent    QueryAgent
	audit    audit.Store
	auth     func(http.Handler) http.Handler
}

// New creates a new API handler.
func New(logger log.Logger, verifier *slacksig.Verifier, svc IngestService, agent QueryAgent, auditStore audit.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if verifier == nil {
		panic(xerrors.New("signature verifier is required"))
	}
	if svc == nil {
		panic(xerrors.New("ingest service is required"))
	}
	return &API{
		logger:   logger,
		verifier: verifier,
		ingest:   svc,
		agent:    agent,
		audit:    auditStore,
	}
}

// SetAuth installs middleware guarding the query and readback routes.
// The webhook stays open: it authenticates via request signatures.
func (a *API) SetAuth(mw func(http.Handler) http.Handler) { a.auth = mw }

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/events", a.handleEvents)
	r.Group(func(r chi.Router) {
		if a.auth != nil {
			r.Use(a.auth)
		}
		r.Post("/query", a.handleQuery)
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/events", a.handleListEvents)
			r.Get("/runs", a.handleListRuns)
		})
	})
}
