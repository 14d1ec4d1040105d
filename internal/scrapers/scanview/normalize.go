package scanview

import (
	"fmt"
	"strings"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/rawrow"
	"parkdata-backend/internal/records"
)

// normalizePaymentOrders builds canonical payment orders out of
// coerced raw rows. A row missing any natural-key field is rejected,
// a record must never be constructed half-validated.
func normalizePaymentOrders(rows []rawrow.Row) (records.PaymentOrders, error) {
	out := make(records.PaymentOrders, 0, len(rows))
	for i, row := range rows {
		date, okDate := row.Time("OrderDate")
		start, okStart := row.Time("StartDate")
		plate := strings.ToUpper(row.String("LicensePlates"))
		if !okDate || !okStart || plate == "" {
			return nil, fmt.Errorf("%w: order row %d is missing natural key fields", ingest.ErrFetch, i)
		}

		out = append(out, records.PaymentOrder{
			Date:          date,
			LicensePlate:  plate,
			StartDate:     start,
			LocationID:    row.Int64("LocationId"),
			EndDate:       row.TimePtr("EndDate"),
			Customer:      row.String("Customer"),
			Name:          row.String("Name"),
			Status:        row.String("OrderStatus"),
			PaymentMethod: row.String("PaymentMethodName"),
			Price:         row.Float64("Price"),
			AutoRenew:     row.Bool("AutoRenew"),
		})
	}
	return out, nil
}

func normalizeParkingLogs(rows []rawrow.Row) (records.ParkingLogs, error) {
	out := make(records.ParkingLogs, 0, len(rows))
	for i, row := range rows {
		created, okCreated := row.Time("CreatedDateUtc")
		plate := strings.ToUpper(row.String("LicensePlate"))
		if !okCreated || plate == "" {
			return nil, fmt.Errorf("%w: parking log row %d is missing natural key fields", ingest.ErrFetch, i)
		}

		out = append(out, records.ParkingLog{
			AreaID:          row.Int64("AreaId"),
			CreatedDateUTC:  created,
			LicensePlate:    plate,
			EndDateUTC:      row.TimePtr("EndDateUtc"),
			PaymentStartUTC: row.TimePtr("PaymentStartUtc"),
			PaymentEndUTC:   row.TimePtr("PaymentEndUtc"),
			HandledByType:   row.String("HandleByType"),
			AreaName:        row.String("AreaName"),
			Price:           row.Float64("Price"),
		})
	}
	return out, nil
}
