package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"parkdata-backend/internal/records"
	"parkdata-backend/lib/daterange"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name   string
	result *FetchResult
	err    error
	panics bool
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(ctx context.Context, dr daterange.Range) (*FetchResult, error) {
	if s.panics {
		panic("adapter bug")
	}
	return s.result, s.err
}

type fakeStore struct {
	persisted  [][]records.Batch
	persistErr error
	logs       []records.RunLog
	logErr     error
}

func (s *fakeStore) PersistRun(ctx context.Context, batches []records.Batch) error {
	if s.persistErr != nil {
		return s.persistErr
	}
	s.persisted = append(s.persisted, batches)
	return nil
}

func (s *fakeStore) AppendRunLog(ctx context.Context, log records.RunLog) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, log)
	return nil
}

func testRange() daterange.Range {
	return daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
	}
}

func orders(n int) records.GiantleapOrders {
	out := make(records.GiantleapOrders, n)
	for i := range out {
		out[i] = records.GiantleapOrder{PaymentTransaction: fmt.Sprintf("TXN-%d", i)}
	}
	return out
}

func newTestOrchestrator(store Store, sources ...Source) *Orchestrator {
	o := NewOrchestrator(store, sources...)
	o.now = func() time.Time { return time.Date(2025, 9, 22, 3, 0, 0, 0, time.UTC) }
	return o
}

func TestRunAllSourcesSucceed(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", result: &FetchResult{Batches: []records.Batch{orders(3)}}},
		&fakeSource{name: "B", result: &FetchResult{Batches: []records.Batch{records.ParkOneParkings{{ParkOneParkingID: 1}}}}},
	)

	report, err := o.Run(context.Background(), testRange())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, report.Status)
	require.Equal(t, 4, report.TotalRecords())
	require.Equal(t, 3, report.Counts[records.KindGiantleapOrder])

	require.Len(t, store.persisted, 1)
	require.Len(t, store.logs, 1)
	require.Equal(t, StatusSuccess, store.logs[0].Status)
	require.Equal(t, "Successfully fetched all data", store.logs[0].Message)
	require.Equal(t, 3, store.logs[0].GiantleapOrders)
	require.Equal(t, 1, store.logs[0].ParkOneEntries)
}

func TestRunPartialFailureStillPersists(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", err: fmt.Errorf("%w: login rejected", ErrAuthentication)},
		&fakeSource{name: "B", result: &FetchResult{Batches: []records.Batch{orders(2)}}},
	)

	report, err := o.Run(context.Background(), testRange())
	require.NoError(t, err, "a partial run is not an error for the caller")
	require.Equal(t, StatusPartialSuccess, report.Status)
	require.Len(t, report.Errors, 1)
	require.Equal(t, "A", report.Errors[0].Source)

	require.Len(t, store.persisted, 1, "surviving batches still persist")
	require.Len(t, store.logs, 1)
	require.Equal(t, StatusPartialSuccess, store.logs[0].Status)
	require.Contains(t, store.logs[0].Message, "A: ")
	require.Contains(t, store.logs[0].Message, "login rejected")
}

func TestRunAllSourcesFail(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", err: fmt.Errorf("%w: down", ErrFetch)},
		&fakeSource{name: "B", err: fmt.Errorf("%w: down", ErrFetch)},
	)

	report, err := o.Run(context.Background(), testRange())
	require.Error(t, err)
	require.Equal(t, StatusFailed, report.Status)
	require.Len(t, store.logs, 1, "a failed run still gets its log row")
	require.Equal(t, StatusFailed, store.logs[0].Status)
}

func TestRunPanickingSourceIsIsolated(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", panics: true},
		&fakeSource{name: "B", result: &FetchResult{Batches: []records.Batch{orders(1)}}},
	)

	report, err := o.Run(context.Background(), testRange())
	require.NoError(t, err)
	require.Equal(t, StatusPartialSuccess, report.Status)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0].Error(), "panic")
}

func TestRunPersistenceFailureStillWritesLog(t *testing.T) {
	store := &fakeStore{persistErr: fmt.Errorf("disk full")}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", result: &FetchResult{Batches: []records.Batch{orders(1)}}},
	)

	report, err := o.Run(context.Background(), testRange())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, StatusFailed, report.Status)

	require.Len(t, store.logs, 1, "the log row is written even when the batch tx failed")
	require.Equal(t, StatusFailed, store.logs[0].Status)
	require.Contains(t, store.logs[0].Message, "disk full")
}

func TestRunLogWriteFailurePropagatesOriginalError(t *testing.T) {
	store := &fakeStore{
		persistErr: fmt.Errorf("disk full"),
		logErr:     fmt.Errorf("also disk full"),
	}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", result: &FetchResult{Batches: []records.Batch{orders(1)}}},
	)

	_, err := o.Run(context.Background(), testRange())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrPersistence)
	require.Contains(t, err.Error(), "disk full")
}

func TestRunSurfacesFailedChunks(t *testing.T) {
	store := &fakeStore{}
	chunk := daterange.Range{
		Start: time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
	}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", result: &FetchResult{
			Batches:      []records.Batch{orders(5)},
			FailedChunks: []daterange.Range{chunk},
		}},
	)

	report, err := o.Run(context.Background(), testRange())
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, report.Status, "failed chunks alone do not fail the run")
	require.True(t, strings.Contains(store.logs[0].Message, "Failed chunks"), store.logs[0].Message)
	require.Contains(t, store.logs[0].Message, "A ")
}

func TestRunLogCarriesDateRangeAndRuntime(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store,
		&fakeSource{name: "A", result: &FetchResult{}},
	)

	dr := testRange()
	_, err := o.Run(context.Background(), dr)
	require.NoError(t, err)

	log := store.logs[0]
	require.Equal(t, dr.Start, log.DateRangeFrom)
	require.Equal(t, dr.End, log.DateRangeTo)
	require.GreaterOrEqual(t, log.RuntimeSeconds, 0.0)
}
