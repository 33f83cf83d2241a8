// Package pgstore provides a PostgreSQL implementation of dedup.Store.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/remedy/internal/incident"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/dedup/pgstore")

//go:embed schema.sql
var schema string

// Store persists deduplication claims in PostgreSQL. The primary key on
// (dag_name, run_date) makes the claim a database-level test-and-set, so it
// is safe across workers and across processes.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store. The pool is owned by the
// caller.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Claim implements dedup.Store via INSERT .. ON CONFLICT DO NOTHING: exactly
// one caller observes an affected row for a given key.
func (s *Store) Claim(ctx context.Context, key incident.Key) (bool, error) {
	if !key.Complete() {
		return true, nil
	}

	ctx, span := tracer.Start(ctx, "pgstore.Claim", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO processed_incidents (dag_name, run_date)
		 VALUES ($1, $2)
		 ON CONFLICT (dag_name, run_date) DO NOTHING`,
		key.DAGName, key.RunDate,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("claim key: %w", err)
	}

	won := tag.RowsAffected() == 1
	span.SetAttributes(attribute.Bool("remedy.dedup.won", won))
	return won, nil
}
