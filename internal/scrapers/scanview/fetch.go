package scanview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/rawrow"
	"parkdata-backend/lib/daterange"
)

type endpoint struct {
	path    string
	columns []string
}

var orderEndpoint = endpoint{
	path: "/Order/GetAll",
	columns: []string{
		"OrderDate", "Customer", "Name", "LocationName", "StartDate",
		"EndDate", "OrderStatus", "LicensePlates", "PaymentMethodName",
		"Price", "",
	},
}

var parkingLogEndpoint = endpoint{
	path: "/ParkingLog/GetAll",
	columns: []string{
		"CreatedDateUtc", "EndDateUtc", "PaymentStartUtc", "PaymentEndUtc",
		"LicensePlate", "HandleByType", "Price", "AreaName", "",
	},
}

type tableResponse struct {
	TotalRecords int               `json:"iTotalRecords"`
	Rows         []json.RawMessage `json:"aaData"`
}

// formData builds the DataTables request body the panel frontend
// sends: one block of column descriptors plus the date filter.
func (e endpoint) formData(dr daterange.Range, length int) map[string]string {
	form := map[string]string{
		"draw":             "1",
		"order[0][column]": "0",
		"order[0][dir]":    "asc",
		"start":            "0",
		"length":           strconv.Itoa(length),
		"search[value]":    "",
		"search[regex]":    "false",
		"Location":         "",
		"DateFrom":         daterange.FormatISODate(dr.Start),
		"DateTo":           daterange.FormatISODate(dr.End),
	}
	for idx, col := range e.columns {
		prefix := fmt.Sprintf("columns[%d]", idx)
		form[prefix+"[data]"] = col
		form[prefix+"[name]"] = ""
		form[prefix+"[searchable]"] = "true"
		form[prefix+"[orderable]"] = "true"
		form[prefix+"[search][value]"] = ""
		form[prefix+"[search][regex]"] = "false"
	}
	return form
}

func (c *Client) postTable(ctx context.Context, e endpoint, dr daterange.Range) (*tableResponse, error) {
	var out tableResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Accept", "application/json").
		SetFormData(e.formData(dr, pageLength)).
		SetResult(&out).
		Post(e.path)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("%s responded %s", e.path, res.Status())
	}
	return &out, nil
}

// fetchTable pulls every row of one table for the date range. It asks
// for the total first: when everything fits in a single page one
// request suffices, otherwise it falls back to per-day chunks where a
// failed chunk is recorded and skipped rather than aborting the rest.
func (c *Client) fetchTable(ctx context.Context, e endpoint, dr daterange.Range) ([]rawrow.Row, []daterange.Range, error) {
	ctx, span := tracer.Start(ctx, "fetchTable:"+e.path)
	defer span.End()

	total, err := c.totalRecords(ctx, e, dr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %s", ingest.ErrFetch, e.path, err.Error())
	}

	var rows []rawrow.Row
	var failed []daterange.Range

	if total <= pageLength {
		res, err := c.postTable(ctx, e, dr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %s", ingest.ErrFetch, e.path, err.Error())
		}
		rows, err = decodeRows(res.Rows)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %s", ingest.ErrFetch, e.path, err.Error())
		}
	} else {
		for _, chunk := range dr.Split(chunkIntervalDays) {
			res, err := c.postTable(ctx, e, chunk)
			if err != nil {
				slog.WarnContext(ctx, "chunk fetch failed",
					"endpoint", e.path, "chunk", chunk.String(), "err", err)
				failed = append(failed, chunk)
				continue
			}
			chunkRows, err := decodeRows(res.Rows)
			if err != nil {
				slog.WarnContext(ctx, "chunk decode failed",
					"endpoint", e.path, "chunk", chunk.String(), "err", err)
				failed = append(failed, chunk)
				continue
			}
			rows = append(rows, chunkRows...)
		}
	}

	rawrow.Coerce(rows)
	return dedupe(rows), failed, nil
}

func (c *Client) totalRecords(ctx context.Context, e endpoint, dr daterange.Range) (int, error) {
	res, err := c.postTable(ctx, e, dr)
	if err != nil {
		return 0, err
	}
	return res.TotalRecords, nil
}

func decodeRows(raw []json.RawMessage) ([]rawrow.Row, error) {
	rows := make([]rawrow.Row, 0, len(raw))
	for _, msg := range raw {
		var row rawrow.Row
		if err := json.Unmarshal(msg, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dedupe drops exact duplicate rows. Chunk boundaries share an
// instant, so a row landing on one can arrive from both sides.
func dedupe(rows []rawrow.Row) []rawrow.Row {
	seen := map[string]bool{}
	out := rows[:0]
	for _, row := range rows {
		key, err := json.Marshal(map[string]any(row))
		if err != nil {
			out = append(out, row)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, row)
	}
	return out
}
