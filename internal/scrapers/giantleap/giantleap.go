// Package giantleap fetches the payment transaction report from the
// Giantleap permit admin. The admin exposes a dynamic-report preview
// endpoint guarded by an X-Token header; the response is columnar, a
// header row of labels plus rows of cells zipped against it.
package giantleap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/rawrow"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"
)

var tracer = otel.Tracer("scrapers/giantleap")

const (
	DefaultBaseURL    = "https://vejle-permit.giantleap.no"
	DefaultOperatorID = "vejle"

	previewPath = "/api/admin/reports/payment-txn-report/preview.json"

	// the report is not paginated client-side; ask for everything
	previewPageSize = 100_000_000
)

// TokenSource yields the access token the report endpoint checks in
// its X-Token header.
type TokenSource interface {
	Token(ctx context.Context, http *resty.Client, creds credentials.Credentials) (string, error)
}

type Options struct {
	BaseURL    string
	OperatorID string
	Creds      credentials.Credentials
	// Session overrides the admin login, optional.
	Session TokenSource
}

type Client struct {
	http       *resty.Client
	operatorID string
	creds      credentials.Credentials
	session    TokenSource
	token      string
}

func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	operatorID := opts.OperatorID
	if operatorID == "" {
		operatorID = DefaultOperatorID
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(time.Second * 60)
	client.SetHeader("Accept", "application/json, text/plain, */*")
	client.SetHeader("Origin", baseURL)
	client.SetHeader("Referer", baseURL+"/admin.html")
	telemetry.InstrumentResty(client, "scrapers/giantleap/http")

	session := opts.Session
	if session == nil {
		session = adminLogin{}
	}

	return &Client{
		http:       client,
		operatorID: operatorID,
		creds:      opts.Creds,
		session:    session,
	}, nil
}

func (c *Client) Name() string { return "Giantleap" }

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	token, err := c.session.Token(ctx, c.http, c.creds)
	if err != nil {
		return fmt.Errorf("%w: %s", ingest.ErrAuthentication, err.Error())
	}
	if token == "" {
		return fmt.Errorf("%w: admin returned an empty access token", ingest.ErrAuthentication)
	}
	c.token = token
	return nil
}

type previewParameter struct {
	ID          string  `json:"id"`
	Value       *string `json:"value,omitempty"`
	ValueObject string  `json:"valueObject,omitempty"`
}

type previewQuery struct {
	OperatorID string             `json:"operatorId"`
	PageIndex  int                `json:"pageIndex"`
	PageSize   int                `json:"pageSize"`
	Parameters []previewParameter `json:"parameters"`
}

type previewResponse struct {
	Headers struct {
		Columns []string `json:"columns"`
	} `json:"headers"`
	Rows []struct {
		Columns []string `json:"columns"`
	} `json:"rows"`
}

// timeRangeParam encodes the report's date filter: the frontend sends
// it as a JSON document inside a string-valued parameter.
func timeRangeParam(dr daterange.Range) (string, error) {
	doc, err := json.Marshal(map[string]string{
		"variant": "TIME_RANGE_FROM_TO",
		"from":    daterange.FormatISODate(dr.Start),
		"to":      daterange.FormatISODate(dr.End),
	})
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

// Fetch pulls the whole payment transaction report for the range.
func (c *Client) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	timeRange, err := timeRangeParam(dr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ingest.ErrFetch, err.Error())
	}

	var out previewResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Token", c.token).
		SetBody(previewQuery{
			OperatorID: c.operatorID,
			PageIndex:  0,
			PageSize:   previewPageSize,
			Parameters: []previewParameter{
				{ID: "timeRange", ValueObject: timeRange},
				{ID: "payer"},
				{ID: "zone"},
				{ID: "paymentMethod"},
			},
		}).
		SetResult(&out).
		Post(previewPath)
	if err != nil {
		return nil, fmt.Errorf("%w: report preview: %s", ingest.ErrFetch, err.Error())
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: report preview responded %s", ingest.ErrFetch, res.Status())
	}

	orders, err := normalize(&out)
	if err != nil {
		return nil, err
	}
	return &ingest.FetchResult{Batches: []records.Batch{orders}}, nil
}

// columnName cleans one header label: the "label." i18n prefix goes,
// remaining dots become underscores.
func columnName(label string) string {
	name := strings.TrimPrefix(label, "label.")
	name = strings.ReplaceAll(name, ".", "_")
	return strings.TrimSpace(name)
}

// collapseSpaces squeezes runs of whitespace down to single spaces.
// The report pads payer names with doubled spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalize(res *previewResponse) (records.GiantleapOrders, error) {
	index := map[string]int{}
	for i, label := range res.Headers.Columns {
		index[columnName(label)] = i
	}
	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make(records.GiantleapOrders, 0, len(res.Rows))
	for i, row := range res.Rows {
		txn := cell(row.Columns, "payment_transaction")
		if txn == "" {
			return nil, fmt.Errorf("%w: report row %d has no payment transaction", ingest.ErrFetch, i)
		}

		amount, err := rawrow.ParseDanishNumber(cell(row.Columns, "amount"))
		if err != nil {
			return nil, fmt.Errorf("%w: report row %d: bad amount: %s", ingest.ErrFetch, i, err.Error())
		}
		vat, err := rawrow.ParseDanishNumber(cell(row.Columns, "vat"))
		if err != nil {
			return nil, fmt.Errorf("%w: report row %d: bad vat: %s", ingest.ErrFetch, i, err.Error())
		}

		var reportTime *time.Time
		if ts, ok := rawrow.ParseDayFirst(cell(row.Columns, "report_time")); ok {
			reportTime = &ts
		}

		out = append(out, records.GiantleapOrder{
			PaymentTransaction: txn,
			ReportTime:         reportTime,
			Payer:              collapseSpaces(cell(row.Columns, "payer")),
			Zone:               cell(row.Columns, "zone"),
			PaymentMethod:      cell(row.Columns, "payment_method"),
			Amount:             amount,
			VAT:                vat,
		})
	}
	return out, nil
}

// adminLogin posts the credentials to the admin login endpoint and
// reads the access token off the response, the exchange the admin
// frontend stores in local storage.
type adminLogin struct{}

func (adminLogin) Token(ctx context.Context, http *resty.Client, creds credentials.Credentials) (string, error) {
	var out struct {
		AccessToken struct {
			Value string `json:"value"`
		} `json:"accessToken"`
	}
	res, err := http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"username": creds.Username,
			"password": creds.Password,
		}).
		SetResult(&out).
		Post("/api/admin/login.json")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("admin login responded %s", res.Status())
	}
	return out.AccessToken.Value, nil
}
