package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parkdata-backend/internal/records"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ingest")

const (
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
	StatusFailed         = "FAILED"
)

// SourceError is one source's failure, caught at the orchestrator
// boundary so the remaining sources still get attempted.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Err.Error())
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Report is the outcome of one orchestration run. The persisted
// RunLog row is the authoritative record; the report mirrors it for
// the caller.
type Report struct {
	Status string
	Errors []SourceError
	Counts map[records.Kind]int
	Log    records.RunLog
}

func (r *Report) TotalRecords() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

type Orchestrator struct {
	sources []Source
	store   Store
	now     func() time.Time
}

func NewOrchestrator(store Store, sources ...Source) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		store:   store,
		now:     timezone.Now,
	}
}

// Run fetches every source sequentially for the date range, persists
// all collected batches in one transaction and appends a run log row.
// A run log row is written even when every source fails or the batch
// transaction rolls back; only a failure to write that row is allowed
// to escape unrecorded.
func (o *Orchestrator) Run(ctx context.Context, dr daterange.Range) (*Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.String("date_range", dr.String()))

	runTime := o.now()
	report := &Report{Counts: map[records.Kind]int{}}

	var batches []records.Batch
	var failedChunks []string

	for _, source := range o.sources {
		result, err := o.fetchSource(ctx, source, dr)
		if err != nil {
			slog.ErrorContext(ctx, "source failed", "source", source.Name(), "err", err)
			report.Errors = append(report.Errors, SourceError{Source: source.Name(), Err: err})
			continue
		}

		for _, batch := range result.Batches {
			report.Counts[batch.Kind()] += batch.Len()
			batches = append(batches, batch)
		}
		for _, chunk := range result.FailedChunks {
			failedChunks = append(failedChunks, fmt.Sprintf("%s %s", source.Name(), chunk))
		}
		slog.InfoContext(ctx, "fetched source",
			"source", source.Name(),
			"records", result.Records(),
			"failed_chunks", len(result.FailedChunks),
		)
	}

	report.Status = runStatus(report)
	message := runMessage(report, failedChunks)

	persistErr := o.store.PersistRun(ctx, batches)
	if persistErr != nil {
		persistErr = fmt.Errorf("%w: %s", ErrPersistence, persistErr.Error())
		report.Status = StatusFailed
		message = persistErr.Error()
	}

	report.Log = o.buildLog(runTime, dr, report, message)
	if err := o.store.AppendRunLog(ctx, report.Log); err != nil {
		// no recovery beyond this: surface the original failure if
		// there was one, otherwise the log write failure itself
		span.SetStatus(codes.Error, err.Error())
		if persistErr != nil {
			return report, persistErr
		}
		return report, fmt.Errorf("%w: append run log: %s", ErrPersistence, err.Error())
	}

	if persistErr != nil {
		span.SetStatus(codes.Error, persistErr.Error())
		return report, persistErr
	}
	if report.Status == StatusFailed {
		err := fmt.Errorf("all sources failed: %s", message)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	slog.InfoContext(ctx, "run finished",
		"status", report.Status,
		"records", report.TotalRecords(),
		"runtime_seconds", report.Log.RuntimeSeconds,
	)
	return report, nil
}

func (o *Orchestrator) fetchSource(ctx context.Context, source Source, dr daterange.Range) (result *FetchResult, err error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("fetch:%s", source.Name()))
	defer span.End()

	// a panicking adapter must not take the other sources down with it
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFetch, r)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	result, err = source.Fetch(ctx, dr)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func runStatus(report *Report) string {
	if len(report.Errors) == 0 {
		return StatusSuccess
	}
	if report.TotalRecords() > 0 {
		return StatusPartialSuccess
	}
	return StatusFailed
}

func runMessage(report *Report, failedChunks []string) string {
	if len(report.Errors) == 0 && len(failedChunks) == 0 {
		return "Successfully fetched all data"
	}

	var parts []string
	for _, e := range report.Errors {
		parts = append(parts, e.Error())
	}
	msg := ""
	if len(parts) > 0 {
		msg = "Errors occurred: " + strings.Join(parts, "; ")
	}
	if len(failedChunks) > 0 {
		if msg != "" {
			msg += ". "
		}
		msg += "Failed chunks: " + strings.Join(failedChunks, ", ")
	}
	return msg
}

func (o *Orchestrator) buildLog(runTime time.Time, dr daterange.Range, report *Report, message string) records.RunLog {
	return records.RunLog{
		RunTime:          runTime,
		DateRangeFrom:    dr.Start,
		DateRangeTo:      dr.End,
		ScanviewPayments: report.Counts[records.KindPaymentOrder],
		ScanviewLogs:     report.Counts[records.KindParkingLog],
		SolvisionOrders:  report.Counts[records.KindSolvisionOrder],
		GiantleapOrders:  report.Counts[records.KindGiantleapOrder],
		ParkParkEntries:  report.Counts[records.KindParkParkParking],
		ParkOneEntries:   report.Counts[records.KindParkOneParking],
		EasyParkEntries:  report.Counts[records.KindEasyParkParking],
		Status:           report.Status,
		Message:          message,
		RuntimeSeconds:   o.now().Sub(runTime).Seconds(),
	}
}
