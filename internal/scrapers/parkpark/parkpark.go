// Package parkpark fetches parkings from the ParkPark operator report
// api. Plain REST with a static x-api-key header, no session to
// maintain.
package parkpark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/parkpark")

const DefaultBaseURL = "https://spark.parkpark.dk"

const reportPathPrefix = "/api/ignition/operator/report/"

type Options struct {
	BaseURL string
	APIKey  string
}

type Client struct {
	http *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: parkpark api key is not set", ingest.ErrConfiguration)
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Second * 60)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("x-api-key", opts.APIKey)
	telemetry.InstrumentResty(client, "scrapers/parkpark/http")

	return &Client{http: client}, nil
}

func (c *Client) Name() string { return "ParkPark" }

func (c *Client) getReport(ctx context.Context, report string, dr daterange.Range, out any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start": daterange.FormatDateTime(dr.Start),
			"end":   daterange.FormatDateTime(dr.End),
		}).
		SetResult(out).
		Get(reportPathPrefix + report)
	if err != nil {
		return fmt.Errorf("%w: %s report: %s", ingest.ErrFetch, report, err.Error())
	}
	if res.IsError() {
		return fmt.Errorf("%w: %s report responded %s", ingest.ErrFetch, report, res.Status())
	}
	return nil
}

type parkingRow struct {
	ParkingID    int64   `json:"parkingId"`
	CheckinAt    *string `json:"checkinAt"`
	CheckoutAt   *string `json:"checkoutAt"`
	Minutes      int64   `json:"minutes"`
	Amount       float64 `json:"amount"`
	Zone         string  `json:"zone"`
	LicensePlate string  `json:"licensePlate"`
}

// Overview is the aggregated revenue summary report.
type Overview struct {
	Parkings int64   `json:"parkings"`
	Minutes  int64   `json:"minutes"`
	Amount   float64 `json:"amount"`
}

// CreditNote is one refund issued against a parking.
type CreditNote struct {
	ParkingID int64   `json:"parkingId"`
	IssuedAt  *string `json:"issuedAt"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

// FetchOverview returns the aggregated summary for the range.
func (c *Client) FetchOverview(ctx context.Context, dr daterange.Range) (*Overview, error) {
	var out Overview
	if err := c.getReport(ctx, "overview", dr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCreditNotes returns the refunds issued in the range.
func (c *Client) FetchCreditNotes(ctx context.Context, dr daterange.Range) ([]CreditNote, error) {
	var out []CreditNote
	if err := c.getReport(ctx, "creditnotes", dr, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch returns the parkings report as canonical records.
func (c *Client) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	var rows []parkingRow
	if err := c.getReport(ctx, "parkings", dr, &rows); err != nil {
		return nil, err
	}

	parkings, err := normalize(rows)
	if err != nil {
		return nil, err
	}
	return &ingest.FetchResult{Batches: []records.Batch{parkings}}, nil
}

func normalize(rows []parkingRow) (records.ParkParkParkings, error) {
	out := make(records.ParkParkParkings, 0, len(rows))
	for i, row := range rows {
		if row.ParkingID == 0 {
			return nil, fmt.Errorf("%w: parking row %d has no parking id", ingest.ErrFetch, i)
		}
		out = append(out, records.ParkParkParking{
			ParkingID:    row.ParkingID,
			CheckinAt:    parseTimePtr(row.CheckinAt),
			CheckoutAt:   parseTimePtr(row.CheckoutAt),
			Minutes:      row.Minutes,
			Amount:       row.Amount,
			Zone:         row.Zone,
			LicensePlate: strings.ToUpper(strings.TrimSpace(row.LicensePlate)),
		})
	}
	return out, nil
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return &ts
		}
	}
	return nil
}
