// Package scanview fetches payment orders and parking logs from the
// ScanviewPay admin panel. The panel has no api credentials: a
// stateful login session is established first and its cookies are
// replayed on the DataTables endpoints the panel's own frontend uses.
package scanview

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"
	"parkdata-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/publicsuffix"
)

var tracer = otel.Tracer("scrapers/scanview")

const (
	DefaultBaseURL = "https://admin.scanviewpay.dk"

	// the DataTables endpoints cap a single page at this many rows;
	// anything bigger falls back to per-day chunked fetching
	pageLength = 4000

	chunkIntervalDays = 1
)

// SessionSource yields an authenticated session on the admin panel.
// The default implementation drives the login form over plain http;
// anything able to produce a logged-in cookie jar can stand in for it.
type SessionSource interface {
	Login(ctx context.Context, http *resty.Client, creds credentials.Credentials) error
}

type Options struct {
	BaseURL string
	Creds   credentials.Credentials
	// Session overrides the form login, optional.
	Session SessionSource
}

type Client struct {
	http     *resty.Client
	creds    credentials.Credentials
	session  SessionSource
	loggedIn bool
}

func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(time.Second * 30)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36")
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/scanview/http")

	session := opts.Session
	if session == nil {
		session = formLogin{}
	}

	return &Client{
		http:    client,
		creds:   opts.Creds,
		session: session,
	}, nil
}

func (c *Client) Name() string { return "Scanview" }

// ensureSession logs in once per client lifetime. The panel keeps the
// session alive far longer than one run takes.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if err := c.session.Login(ctx, c.http, c.creds); err != nil {
		return fmt.Errorf("%w: %s", ingest.ErrAuthentication, err.Error())
	}
	c.loggedIn = true
	return nil
}

// Fetch retrieves both tables the panel exposes for the date range.
func (c *Client) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	result := &ingest.FetchResult{}

	orders, failed, err := c.fetchTable(ctx, orderEndpoint, dr)
	if err != nil {
		return nil, err
	}
	result.FailedChunks = append(result.FailedChunks, failed...)
	payments, err := normalizePaymentOrders(orders)
	if err != nil {
		return nil, err
	}
	result.Batches = append(result.Batches, payments)

	logRows, failed, err := c.fetchTable(ctx, parkingLogEndpoint, dr)
	if err != nil {
		return nil, err
	}
	result.FailedChunks = append(result.FailedChunks, failed...)
	logs, err := normalizeParkingLogs(logRows)
	if err != nil {
		return nil, err
	}
	result.Batches = append(result.Batches, logs)

	return result, nil
}

// formLogin drives the panel's rendered login page: load the form,
// post the credentials with its anti-forgery token, expect to land
// away from the login page.
type formLogin struct{}

func (formLogin) Login(ctx context.Context, http *resty.Client, creds credentials.Credentials) error {
	res, err := http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		return err
	}

	finalURL := res.RawResponse.Request.URL
	if !strings.Contains(strings.ToLower(finalURL.Path), "login") {
		// already logged in from an earlier session cookie
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return err
	}
	token := doc.Find("input[name=__RequestVerificationToken]").AttrOr("value", "")
	action := doc.Find("form").AttrOr("action", finalURL.Path)

	res, err = http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"Email":                      creds.Username,
			"Password":                   creds.Password,
			"__RequestVerificationToken": token,
		}).
		Post(action)
	if err != nil {
		return err
	}

	landed := res.RawResponse.Request.URL
	if strings.Contains(strings.ToLower(landed.Path), "login") {
		return fmt.Errorf("still on login page after submitting credentials")
	}
	return nil
}
