// Package solvision fetches meter transactions from the Solvision
// portal. The portal frontend talks to a separate api host with a
// short-lived bearer token, so fetching is two-phase: establish a
// portal session, obtain the token, then query the transactions
// report on the api host.
package solvision

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"
)

var tracer = otel.Tracer("scrapers/solvision")

const (
	DefaultPortalURL = "https://portal.solvision.dk"
	DefaultAPIURL    = "https://api.solvision.dk"

	DefaultOperatorID = 72
)

// DefaultMeters is the full meter fleet queried when no subset is
// configured.
var DefaultMeters = []int64{
	17, 18, 14, 11, 1, 2, 3, 4, 5, 13, 25, 26, 27, 28,
	61, 62, 63, 64, 65, 66, 67, 68, 69, 70, 71,
	50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60,
	10, 16, 9, 15, 22, 29, 19, 8,
}

// TokenSource produces the bearer token the api host expects. The
// default implementation logs in to the portal over plain http;
// anything that can mint a valid token can stand in for it.
type TokenSource interface {
	Token(ctx context.Context, portal *resty.Client, creds credentials.Credentials) (string, error)
}

type Options struct {
	PortalURL  string
	APIURL     string
	Creds      credentials.Credentials
	OperatorID int64
	Meters     []int64
	// Session overrides the portal login, optional.
	Session TokenSource
}

type Client struct {
	portal     *resty.Client
	api        *resty.Client
	creds      credentials.Credentials
	operatorID int64
	meters     []int64
	session    TokenSource
	token      string
}

func NewClient(opts Options) (*Client, error) {
	portalURL := opts.PortalURL
	if portalURL == "" {
		portalURL = DefaultPortalURL
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	operatorID := opts.OperatorID
	if operatorID == 0 {
		operatorID = DefaultOperatorID
	}
	meters := opts.Meters
	if len(meters) == 0 {
		meters = DefaultMeters
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	portal := resty.New()
	portal.SetBaseURL(portalURL)
	portal.SetCookieJar(jar)
	portal.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(portal, "scrapers/solvision/portal")

	api := resty.New()
	api.SetBaseURL(apiURL)
	api.SetTimeout(time.Second * 60)
	api.SetHeader("Accept", "application/json, text/plain, */*")
	api.SetHeader("Origin", portalURL)
	api.SetHeader("Referer", portalURL)
	telemetry.InstrumentResty(api, "scrapers/solvision/api")

	session := opts.Session
	if session == nil {
		session = portalLogin{}
	}

	return &Client{
		portal:     portal,
		api:        api,
		creds:      opts.Creds,
		operatorID: operatorID,
		meters:     meters,
		session:    session,
	}, nil
}

func (c *Client) Name() string { return "Solvision" }

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	token, err := c.session.Token(ctx, c.portal, c.creds)
	if err != nil {
		return fmt.Errorf("%w: %s", ingest.ErrAuthentication, err.Error())
	}
	if token == "" {
		return fmt.Errorf("%w: portal returned an empty token", ingest.ErrAuthentication)
	}
	c.token = token
	return nil
}

type reportQuery struct {
	Start  string  `json:"Start"`
	End    string  `json:"End"`
	Meters []int64 `json:"Meters"`
}

type reportRow struct {
	ID           int64    `json:"id"`
	DeviceName   string   `json:"deviceName"`
	Card         string   `json:"card"`
	PaymentTime  string   `json:"paymentTime"`
	Plate        string   `json:"plate"`
	Start        *string  `json:"start"`
	End          *string  `json:"end"`
	RateType     string   `json:"rateType"`
	DiscountCode *string  `json:"discountCode"`
	DiscountType *string  `json:"discountType"`
	CardFirm     string   `json:"cardFirm"`
	CardCount    int64    `json:"cardCount"`
	Amount       float64  `json:"amount"`
	Fee          float64  `json:"fee"`
	ParkingTime  string   `json:"parkingTime"`
}

type reportResponse struct {
	Result struct {
		Data []reportRow `json:"data"`
	} `json:"result"`
}

// Fetch queries the transactions report for the whole date range in
// one request. The report returns every meter transaction plus an
// appended summary row, which is stripped before normalization.
func (c *Client) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var out reportResponse
	res, err := c.api.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token).
		SetBody(reportQuery{
			Start:  daterange.FormatMillisUTC(dr.Start),
			End:    daterange.FormatMillisUTC(dr.End),
			Meters: c.meters,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/mobilbase/api/v1/reports/transactions/%d/0", c.operatorID))
	if err != nil {
		return nil, fmt.Errorf("%w: transactions report: %s", ingest.ErrFetch, err.Error())
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: transactions report responded %s", ingest.ErrFetch, res.Status())
	}

	orders, err := normalize(out.Result.Data)
	if err != nil {
		return nil, err
	}
	return &ingest.FetchResult{Batches: []records.Batch{orders}}, nil
}

func normalize(rows []reportRow) (records.SolvisionOrders, error) {
	out := make(records.SolvisionOrders, 0, len(rows))
	for i, row := range rows {
		// the report appends a per-cardFirm summary block ending in a
		// grand total row; only real transactions are kept
		if strings.EqualFold(strings.TrimSpace(row.CardFirm), "Total") {
			continue
		}

		paymentTime, ok := parseTime(row.PaymentTime)
		if !ok {
			return nil, fmt.Errorf("%w: transaction row %d has no payment time", ingest.ErrFetch, i)
		}

		out = append(out, records.SolvisionOrder{
			LocationID:   row.ID,
			PaymentTime:  paymentTime,
			LicensePlate: strings.ToUpper(strings.TrimSpace(row.Plate)),
			Start:        parseTimePtr(row.Start),
			End:          parseTimePtr(row.End),
			RateType:     row.RateType,
			DiscountCode: row.DiscountCode,
			DiscountType: row.DiscountType,
			CardFirm:     row.CardFirm,
			CardCount:    row.CardCount,
			Price:        row.Amount,
			Fee:          row.Fee,
			ParkingTime:  row.ParkingTime,
		})
	}
	return out, nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	ts, ok := parseTime(*s)
	if !ok {
		return nil
	}
	return &ts
}

// portalLogin establishes a portal session with the credentials and
// asks it to mint an api token, the same exchange the frontend does
// on page load.
type portalLogin struct{}

func (portalLogin) Token(ctx context.Context, portal *resty.Client, creds credentials.Credentials) (string, error) {
	res, err := portal.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": creds.Username,
			"password": creds.Password,
		}).
		Post("/login")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("portal login responded %s", res.Status())
	}

	var out struct {
		Token string `json:"token"`
	}
	tokenRes, err := portal.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/token")
	if err != nil {
		return "", err
	}
	if tokenRes.IsError() {
		return "", fmt.Errorf("token request responded %s", tokenRes.Status())
	}
	return out.Token, nil
}
