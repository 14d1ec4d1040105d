package easypark

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"

	"github.com/stretchr/testify/require"
)

func ssoServer(t *testing.T, idToken string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["userName"] != "operator@example.dk" || body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"idToken":      idToken,
			"refreshToken": "refresh-1",
		})
	}))
}

func testRange() daterange.Range {
	return daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchExport(t *testing.T) {
	sso := ssoServer(t, "id-token-1")
	defer sso.Close()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, exportPath, r.URL.Path)
		require.Equal(t, "Bearer id-token-1", r.Header.Get("X-Authorization"))
		require.Equal(t, "2025-09-20", r.URL.Query().Get("from"))
		require.Equal(t, "2025-09-22", r.URL.Query().Get("to"))
		require.Equal(t, "3340", r.URL.Query().Get("operatorId"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"parkingId": 77, "startDate": "2025-09-20T08:00:00Z",
				"endDate": "2025-09-20T09:00:00Z", "area": "Banegården",
				"areaNumber": "4021", "licensePlate": "ab12345",
				"countryCode": "dk", "parkingFee": 15.0,
				"transactionFee": 1.5, "totalAmount": 16.5, "stopped": true,
			},
		})
	}))
	defer gateway.Close()

	c, err := NewClient(Options{
		SSOURL:     sso.URL,
		GatewayURL: gateway.URL,
		Creds:      credentials.Credentials{Username: "operator@example.dk", Password: "hunter2"},
	})
	require.NoError(t, err)

	result, err := c.Fetch(context.Background(), testRange())
	require.NoError(t, err)

	parkings := result.Batches[0].(records.EasyParkParkings)
	require.Len(t, parkings, 1)
	require.Equal(t, int64(77), parkings[0].ParkingID)
	require.Equal(t, "AB12345", parkings[0].LicensePlate)
	require.Equal(t, "DK", parkings[0].CountryCode)
	require.InDelta(t, 16.5, parkings[0].TotalAmount, 1e-9)
	require.True(t, parkings[0].Stopped)

	// the id token is reused across fetches: a second fetch succeeds
	// even with the sso gone
	sso.Close()
	_, err = c.Fetch(context.Background(), testRange())
	require.NoError(t, err)
}

func TestFetchWrapsBadCredentials(t *testing.T) {
	sso := ssoServer(t, "unused")
	defer sso.Close()

	c, err := NewClient(Options{
		SSOURL: sso.URL,
		Creds:  credentials.Credentials{Username: "operator@example.dk", Password: "wrong"},
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), testRange())
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrAuthentication), err)
}

func TestFetchRejectsEmptyIDToken(t *testing.T) {
	sso := ssoServer(t, "")
	defer sso.Close()

	c, err := NewClient(Options{
		SSOURL: sso.URL,
		Creds:  credentials.Credentials{Username: "operator@example.dk", Password: "hunter2"},
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), testRange())
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrAuthentication), err)
}
