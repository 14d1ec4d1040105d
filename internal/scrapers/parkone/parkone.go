// Package parkone fetches parkings from the ParkOne api. The api
// caps queries at six months, so the date range is split into 30-day
// chunks; a failed chunk is recorded and skipped while the remaining
// chunks are still fetched.
package parkone

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/parkone")

const (
	DefaultBaseURL      = "https://api.parkone.dk"
	DefaultMunicipality = "vejle"

	parkingsPath = "/v1/Parkings/getAllParkings"

	chunkIntervalDays = 30
)

type Options struct {
	BaseURL      string
	APIKey       string
	Municipality string
}

type Client struct {
	http         *resty.Client
	municipality string
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: parkone api key is not set", ingest.ErrConfiguration)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	municipality := opts.Municipality
	if municipality == "" {
		municipality = DefaultMunicipality
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Second * 60)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("authorization", opts.APIKey)
	telemetry.InstrumentResty(client, "scrapers/parkone/http")

	return &Client{http: client, municipality: municipality}, nil
}

func (c *Client) Name() string { return "ParkOne" }

type parkingRow struct {
	ParkingID        int64   `json:"parkingId"`
	ParkingStartTime *string `json:"parkingStartTime"`
	ParkingStopAt    *string `json:"parkingStopAt"`
	VehicleRegID     string  `json:"vehicleRegId"`
	Municipality     string  `json:"municipality"`
	Zone             string  `json:"zone"`
}

func (c *Client) fetchChunk(ctx context.Context, dr daterange.Range) ([]parkingRow, error) {
	var rows []parkingRow
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"municipality": c.municipality,
			"startDate":    daterange.FormatMillisUTC(dr.Start),
			"endDate":      daterange.FormatMillisUTC(dr.End),
		}).
		SetResult(&rows).
		Get(parkingsPath)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("getAllParkings responded %s", res.Status())
	}
	return rows, nil
}

// Fetch retrieves the parkings chunk by chunk. Every chunk is
// attempted even when earlier ones fail; only a run where no chunk
// succeeds is treated as a source failure.
func (c *Client) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	chunks := dr.Split(chunkIntervalDays)
	var rows []parkingRow
	var failed []daterange.Range

	for _, chunk := range chunks {
		chunkRows, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			slog.WarnContext(ctx, "chunk fetch failed",
				"source", c.Name(), "chunk", chunk.String(), "err", err)
			failed = append(failed, chunk)
			continue
		}
		rows = append(rows, chunkRows...)
	}
	if len(chunks) > 0 && len(failed) == len(chunks) {
		return nil, fmt.Errorf("%w: every chunk of %s failed", ingest.ErrFetch, dr)
	}

	parkings, err := normalize(rows)
	if err != nil {
		return nil, err
	}
	return &ingest.FetchResult{
		Batches:      []records.Batch{parkings},
		FailedChunks: failed,
	}, nil
}

func normalize(rows []parkingRow) (records.ParkOneParkings, error) {
	out := make(records.ParkOneParkings, 0, len(rows))
	for i, row := range rows {
		if row.ParkingID == 0 {
			return nil, fmt.Errorf("%w: parking row %d has no parking id", ingest.ErrFetch, i)
		}
		out = append(out, records.ParkOneParking{
			ParkOneParkingID: row.ParkingID,
			StartTime:        parseTimePtr(row.ParkingStartTime),
			StopAt:           parseTimePtr(row.ParkingStopAt),
			VehicleRegID:     strings.ToUpper(strings.TrimSpace(row.VehicleRegID)),
			Municipality:     row.Municipality,
			Zone:             row.Zone,
		})
	}
	return out, nil
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return &ts
		}
	}
	return nil
}
