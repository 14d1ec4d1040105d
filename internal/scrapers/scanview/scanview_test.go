package scanview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/records"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"

	"github.com/stretchr/testify/require"
)

const (
	fakeUser  = "kontor@example.dk"
	fakePass  = "hunter2"
	fakeToken = "antiforgery-123"
)

// fakePanel emulates the admin panel: cookie login via a rendered
// form, then DataTables endpoints that only answer with a session.
type fakePanel struct {
	mux *http.ServeMux

	// ordersFor answers one /Order/GetAll POST for a DateFrom value
	ordersFor func(dateFrom, dateTo string) (int, []map[string]any, int)
}

func newFakePanel() *fakePanel {
	p := &fakePanel{mux: http.NewServeMux()}

	p.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !p.hasSession(r) {
			http.Redirect(w, r, "/Account/Login", http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html>dashboard</html>")
	})
	p.mux.HandleFunc("/Account/Login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprintf(w, `<html><form action="/Account/Login" method="post">
				<input name="__RequestVerificationToken" value="%s"/>
			</form></html>`, fakeToken)
			return
		}
		if r.FormValue("Email") != fakeUser ||
			r.FormValue("Password") != fakePass ||
			r.FormValue("__RequestVerificationToken") != fakeToken {
			http.Redirect(w, r, "/Account/Login", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "panelsession", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
	})
	p.mux.HandleFunc("/Order/GetAll", func(w http.ResponseWriter, r *http.Request) {
		if !p.hasSession(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		total, rows, status := p.ordersFor(r.FormValue("DateFrom"), r.FormValue("DateTo"))
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		writeTable(w, total, rows)
	})
	p.mux.HandleFunc("/ParkingLog/GetAll", func(w http.ResponseWriter, r *http.Request) {
		if !p.hasSession(r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeTable(w, 0, nil)
	})
	return p
}

func (p *fakePanel) hasSession(r *http.Request) bool {
	c, err := r.Cookie("panelsession")
	return err == nil && c.Value == "ok"
}

func writeTable(w http.ResponseWriter, total int, rows []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if rows == nil {
		rows = []map[string]any{}
	}
	json.NewEncoder(w).Encode(map[string]any{
		"iTotalRecords": total,
		"aaData":        rows,
	})
}

func orderRow(plate, day string) map[string]any {
	return map[string]any{
		"OrderDate":         day + "T00:00:00",
		"Customer":          "Havnen",
		"Name":              "Dagsbillet",
		"LocationName":      "Havnen P1",
		"LocationId":        "17",
		"StartDate":         "/Date(1758326400000)/",
		"EndDate":           nil,
		"OrderStatus":       "Completed",
		"LicensePlates":     plate,
		"PaymentMethodName": "Card",
		"Price":             25.5,
		"AutoRenew":         "true",
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL: baseURL,
		Creds:   credentials.Credentials{Username: fakeUser, Password: fakePass},
	})
	require.NoError(t, err)
	return c
}

func TestFetchSinglePage(t *testing.T) {
	panel := newFakePanel()
	panel.ordersFor = func(_, _ string) (int, []map[string]any, int) {
		return 2, []map[string]any{
			orderRow("ab12345", "2025-09-20"),
			orderRow("CD67890", "2025-09-21"),
		}, 0
	}
	server := httptest.NewServer(panel.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	dr := daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
	}

	result, err := c.Fetch(context.Background(), dr)
	require.NoError(t, err)
	require.Empty(t, result.FailedChunks)
	require.Len(t, result.Batches, 2)

	orders, ok := result.Batches[0].(records.PaymentOrders)
	require.True(t, ok)
	require.Len(t, orders, 2)
	require.Equal(t, "AB12345", orders[0].LicensePlate, "plates normalize to upper case")
	require.Equal(t, int64(17), orders[0].LocationID)
	require.Equal(t, time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC), orders[0].Date)
	require.Equal(t, time.UnixMilli(1758326400000).UTC(), orders[0].StartDate)
	require.Nil(t, orders[0].EndDate)
	require.True(t, orders[0].AutoRenew)
}

func TestFetchChunksAndSkipsFailedDay(t *testing.T) {
	panel := newFakePanel()
	panel.ordersFor = func(dateFrom, dateTo string) (int, []map[string]any, int) {
		if dateFrom == "2025-09-20" && dateTo == "2025-09-23" {
			// the count probe over the whole range: too big for one page
			return pageLength + 1, nil, 0
		}
		if dateFrom == "2025-09-21" {
			return 0, nil, http.StatusInternalServerError
		}
		return 1, []map[string]any{orderRow("EF11111", dateFrom)}, 0
	}
	server := httptest.NewServer(panel.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	dr := daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 23, 0, 0, 0, 0, time.UTC),
	}

	result, err := c.Fetch(context.Background(), dr)
	require.NoError(t, err, "a failed chunk must not abort the source")
	require.Len(t, result.FailedChunks, 1)
	require.Equal(t, time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC), result.FailedChunks[0].Start)

	orders := result.Batches[0].(records.PaymentOrders)
	require.Len(t, orders, 2, "surviving chunks still yield their rows")
}

func TestFetchWrapsBadCredentials(t *testing.T) {
	panel := newFakePanel()
	server := httptest.NewServer(panel.mux)
	defer server.Close()

	c, err := NewClient(Options{
		BaseURL: server.URL,
		Creds:   credentials.Credentials{Username: fakeUser, Password: "wrong"},
	})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrAuthentication), err)
	require.True(t, strings.Contains(err.Error(), "login"), err)
}

func TestNormalizeRejectsRowMissingKeyFields(t *testing.T) {
	panel := newFakePanel()
	panel.ordersFor = func(_, _ string) (int, []map[string]any, int) {
		row := orderRow("GH22222", "2025-09-20")
		row["LicensePlates"] = "null"
		return 1, []map[string]any{row}, 0
	}
	server := httptest.NewServer(panel.mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Fetch(context.Background(), daterange.Range{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ingest.ErrFetch), err)
}
