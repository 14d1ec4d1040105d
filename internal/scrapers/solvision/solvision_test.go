package solvision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) Token(context.Context, *resty.Client, credentials.Credentials) (string, error) {
	return string(t), nil
}

type failingToken struct{}

func (failingToken) Token(context.Context, *resty.Client, credentials.Credentials) (string, error) {
	return "", fmt.Errorf("portal login responded 401 Unauthorized")
}

func testRange() daterange.Range {
	return daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
	}
}

func reportHandler(t *testing.T, rows []map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobilbase/api/v1/reports/transactions/72/0", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var query reportQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		require.Equal(t, "2025-09-20T00:00:00.000Z", query.Start)
		require.Equal(t, "2025-09-22T00:00:00.000Z", query.End)
		require.Equal(t, DefaultMeters, query.Meters)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"data": rows},
		})
	}
}

func TestFetchStripsSummaryRow(t *testing.T) {
	rows := []map[string]any{
		{
			"id": 17, "deviceName": "Havnen P1", "card": "xxxx-1234",
			"paymentTime": "2025-09-20T10:15:00", "plate": "ab12345",
			"start": "2025-09-20T10:00:00", "end": "2025-09-20T11:00:00",
			"rateType": "Standard", "cardFirm": "VISA", "cardCount": 1,
			"amount": 22.0, "fee": 0.7, "parkingTime": "01:00",
		},
		{
			"id": 0, "cardFirm": "Total", "paymentTime": "",
			"amount": 22.0, "fee": 0.7, "cardCount": 1,
		},
	}
	server := httptest.NewServer(reportHandler(t, rows))
	defer server.Close()

	c, err := NewClient(Options{
		APIURL:  server.URL,
		Session: staticToken("tok-123"),
	})
	require.NoError(t, err)

	result, err := c.Fetch(context.Background(), testRange())
	require.NoError(t, err)
	require.Len(t, result.Batches, 1)

	orders := result.Batches[0].(records.SolvisionOrders)
	require.Len(t, orders, 1, "the appended summary row must not become a record")
	require.Equal(t, int64(17), orders[0].LocationID)
	require.Equal(t, "AB12345", orders[0].LicensePlate)
	require.Equal(t, time.Date(2025, 9, 20, 10, 15, 0, 0, time.UTC), orders[0].PaymentTime)
	require.NotNil(t, orders[0].Start)
	require.Nil(t, orders[0].DiscountCode)
	require.Equal(t, 22.0, orders[0].Price)
}

func TestFetchWrapsLoginFailure(t *testing.T) {
	c, err := NewClient(Options{
		APIURL:  "http://127.0.0.1:0",
		Session: failingToken{},
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), testRange())
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrAuthentication), err)
}

func TestFetchRejectsEmptyToken(t *testing.T) {
	c, err := NewClient(Options{
		APIURL:  "http://127.0.0.1:0",
		Session: staticToken(""),
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), testRange())
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrAuthentication), err)
}

func TestFetchWrapsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := NewClient(Options{
		APIURL:  server.URL,
		Session: staticToken("tok-123"),
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), testRange())
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrFetch), err)
}
