package store

import (
	"context"
	"database/sql"
	"fmt"

	"parkdata-backend/internal/records"
)

// PersistRun writes every batch inside a single transaction. Each
// record is upserted with its natural key as the conflict target, so
// the second ingestion of the same external record overwrites the
// non-key fields of the existing row instead of inserting a new one.
// On any failure the whole batch rolls back.
func (s *Store) PersistRun(ctx context.Context, batches []records.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, batch := range batches {
		if err := upsertBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("upsert %s: %w", batch.Kind(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertBatch(ctx context.Context, tx *sql.Tx, batch records.Batch) error {
	switch b := batch.(type) {
	case records.PaymentOrders:
		return upsertPaymentOrders(ctx, tx, b)
	case records.ParkingLogs:
		return upsertParkingLogs(ctx, tx, b)
	case records.SolvisionOrders:
		return upsertSolvisionOrders(ctx, tx, b)
	case records.GiantleapOrders:
		return upsertGiantleapOrders(ctx, tx, b)
	case records.ParkParkParkings:
		return upsertParkParkParkings(ctx, tx, b)
	case records.ParkOneParkings:
		return upsertParkOneParkings(ctx, tx, b)
	case records.EasyParkParkings:
		return upsertEasyParkParkings(ctx, tx, b)
	default:
		return fmt.Errorf("unknown batch type %T", batch)
	}
}

func upsertPaymentOrders(ctx context.Context, tx *sql.Tx, batch records.PaymentOrders) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scanview_payments
		(date, license_plate, start_date, location_id, end_date, customer,
		 name, status, payment_method, price, auto_renew)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(date, license_plate, start_date, location_id) DO UPDATE SET
			end_date=excluded.end_date,
			customer=excluded.customer,
			name=excluded.name,
			status=excluded.status,
			payment_method=excluded.payment_method,
			price=excluded.price,
			auto_renew=excluded.auto_renew`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			formatTime(r.Date), r.LicensePlate, formatTime(r.StartDate), r.LocationID,
			formatNullableTime(r.EndDate), r.Customer, r.Name, r.Status,
			r.PaymentMethod, r.Price, boolToInt(r.AutoRenew),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertParkingLogs(ctx context.Context, tx *sql.Tx, batch records.ParkingLogs) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scanview_logs
		(area_id, created_date_utc, license_plate, end_date_utc,
		 payment_start_utc, payment_end_utc, handled_by_type, area_name, price)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(area_id, created_date_utc, license_plate) DO UPDATE SET
			end_date_utc=excluded.end_date_utc,
			payment_start_utc=excluded.payment_start_utc,
			payment_end_utc=excluded.payment_end_utc,
			handled_by_type=excluded.handled_by_type,
			area_name=excluded.area_name,
			price=excluded.price`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.AreaID, formatTime(r.CreatedDateUTC), r.LicensePlate,
			formatNullableTime(r.EndDateUTC), formatNullableTime(r.PaymentStartUTC),
			formatNullableTime(r.PaymentEndUTC), r.HandledByType, r.AreaName, r.Price,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertSolvisionOrders(ctx context.Context, tx *sql.Tx, batch records.SolvisionOrders) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO solvision_orders
		(location_id, payment_time, license_plate, start_time, end_time,
		 rate_type, discount_code, discount_type, card_firm, card_count,
		 price, fee, parking_time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(location_id, payment_time, license_plate) DO UPDATE SET
			start_time=excluded.start_time,
			end_time=excluded.end_time,
			rate_type=excluded.rate_type,
			discount_code=excluded.discount_code,
			discount_type=excluded.discount_type,
			card_firm=excluded.card_firm,
			card_count=excluded.card_count,
			price=excluded.price,
			fee=excluded.fee,
			parking_time=excluded.parking_time`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.LocationID, formatTime(r.PaymentTime), r.LicensePlate,
			formatNullableTime(r.Start), formatNullableTime(r.End),
			r.RateType, r.DiscountCode, r.DiscountType, r.CardFirm,
			r.CardCount, r.Price, r.Fee, r.ParkingTime,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertGiantleapOrders(ctx context.Context, tx *sql.Tx, batch records.GiantleapOrders) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO giantleap_orders
		(payment_transaction, report_time, payer, zone, payment_method, amount, vat)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(payment_transaction) DO UPDATE SET
			report_time=excluded.report_time,
			payer=excluded.payer,
			zone=excluded.zone,
			payment_method=excluded.payment_method,
			amount=excluded.amount,
			vat=excluded.vat`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.PaymentTransaction, formatNullableTime(r.ReportTime), r.Payer,
			r.Zone, r.PaymentMethod, r.Amount, r.VAT,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertParkParkParkings(ctx context.Context, tx *sql.Tx, batch records.ParkParkParkings) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parkpark_parkings
		(parking_id, checkin_at, checkout_at, minutes, amount, zone, license_plate)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(parking_id) DO UPDATE SET
			checkin_at=excluded.checkin_at,
			checkout_at=excluded.checkout_at,
			minutes=excluded.minutes,
			amount=excluded.amount,
			zone=excluded.zone,
			license_plate=excluded.license_plate`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.ParkingID, formatNullableTime(r.CheckinAt), formatNullableTime(r.CheckoutAt),
			r.Minutes, r.Amount, r.Zone, r.LicensePlate,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertParkOneParkings(ctx context.Context, tx *sql.Tx, batch records.ParkOneParkings) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parkone_parkings
		(parkone_parking_id, start_time, stop_at, vehicle_reg_id, municipality, zone)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(parkone_parking_id) DO UPDATE SET
			start_time=excluded.start_time,
			stop_at=excluded.stop_at,
			vehicle_reg_id=excluded.vehicle_reg_id,
			municipality=excluded.municipality,
			zone=excluded.zone`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.ParkOneParkingID, formatNullableTime(r.StartTime), formatNullableTime(r.StopAt),
			r.VehicleRegID, r.Municipality, r.Zone,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func upsertEasyParkParkings(ctx context.Context, tx *sql.Tx, batch records.EasyParkParkings) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO easypark_parkings
		(parking_id, start_date, end_date, area, area_number, license_plate,
		 country_code, parking_fee, transaction_fee, total_amount, stopped)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(parking_id) DO UPDATE SET
			start_date=excluded.start_date,
			end_date=excluded.end_date,
			area=excluded.area,
			area_number=excluded.area_number,
			license_plate=excluded.license_plate,
			country_code=excluded.country_code,
			parking_fee=excluded.parking_fee,
			transaction_fee=excluded.transaction_fee,
			total_amount=excluded.total_amount,
			stopped=excluded.stopped`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		_, err := stmt.ExecContext(ctx,
			r.ParkingID, formatNullableTime(r.StartDate), formatNullableTime(r.EndDate),
			r.Area, r.AreaNumber, r.LicensePlate, r.CountryCode,
			r.ParkingFee, r.TransactionFee, r.TotalAmount, boolToInt(r.Stopped),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
