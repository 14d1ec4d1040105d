package ingest

import (
	"context"
	"errors"

	"parkdata-backend/internal/records"
	"parkdata-backend/lib/daterange"
)

// The error taxonomy of a run. Adapters wrap these sentinels so the
// orchestrator can classify failures without knowing source internals.
var (
	// ErrConfiguration marks a missing/blank credential, raised
	// before any network activity for the source.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuthentication marks a failed login flow.
	ErrAuthentication = errors.New("authentication failed")
	// ErrFetch marks an http or parse failure during data retrieval.
	ErrFetch = errors.New("fetch failed")
	// ErrPersistence marks a transaction failure during upsert.
	ErrPersistence = errors.New("persistence failed")
)

// FetchResult carries everything one source produced for a run.
type FetchResult struct {
	Batches []records.Batch
	// FailedChunks lists date chunks that could not be fetched by a
	// best-effort chunked fetcher. The batches then hold partial
	// data; the failure is surfaced instead of silently dropped.
	FailedChunks []daterange.Range
}

// Records returns the total record count across all batches.
func (r *FetchResult) Records() int {
	total := 0
	for _, b := range r.Batches {
		total += b.Len()
	}
	return total
}

// Source is one external operator system. Implementations own their
// authentication flow and chunking policy; the orchestrator only sees
// typed batches.
type Source interface {
	Name() string
	Fetch(ctx context.Context, dr daterange.Range) (*FetchResult, error)
}

// Store is the persistence boundary the orchestrator writes through.
type Store interface {
	// PersistRun upserts every batch inside a single transaction.
	PersistRun(ctx context.Context, batches []records.Batch) error
	// AppendRunLog durably records the run outcome in its own
	// transaction, independent of the batch transaction.
	AppendRunLog(ctx context.Context, log records.RunLog) error
}
