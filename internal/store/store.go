// Package store persists canonical records into a relational database
// keyed by each record type's natural key, so re-ingesting the same
// external record updates the existing row instead of duplicating it.
package store

import (
	"database/sql"
	"time"
)

// Schema declares one table per canonical record type. Every table
// except run_logs carries a UNIQUE constraint over its natural key;
// the surrogate id exists only for foreign tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS scanview_payments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date DATETIME NOT NULL,
	license_plate TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	location_id INTEGER NOT NULL,
	end_date DATETIME,
	customer TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	auto_renew INTEGER NOT NULL DEFAULT 0,
	UNIQUE(date, license_plate, start_date, location_id)
);

CREATE TABLE IF NOT EXISTS scanview_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	area_id INTEGER NOT NULL,
	created_date_utc DATETIME NOT NULL,
	license_plate TEXT NOT NULL,
	end_date_utc DATETIME,
	payment_start_utc DATETIME,
	payment_end_utc DATETIME,
	handled_by_type TEXT NOT NULL DEFAULT '',
	area_name TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	UNIQUE(area_id, created_date_utc, license_plate)
);

CREATE TABLE IF NOT EXISTS solvision_orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	location_id INTEGER NOT NULL,
	payment_time DATETIME NOT NULL,
	license_plate TEXT NOT NULL,
	start_time DATETIME,
	end_time DATETIME,
	rate_type TEXT NOT NULL DEFAULT '',
	discount_code TEXT,
	discount_type TEXT,
	card_firm TEXT NOT NULL DEFAULT '',
	card_count INTEGER NOT NULL DEFAULT 0,
	price REAL NOT NULL DEFAULT 0,
	fee REAL NOT NULL DEFAULT 0,
	parking_time TEXT NOT NULL DEFAULT '',
	UNIQUE(location_id, payment_time, license_plate)
);

CREATE TABLE IF NOT EXISTS giantleap_orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	payment_transaction TEXT NOT NULL,
	report_time DATETIME,
	payer TEXT NOT NULL DEFAULT '',
	zone TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	vat REAL NOT NULL DEFAULT 0,
	UNIQUE(payment_transaction)
);

CREATE TABLE IF NOT EXISTS parkpark_parkings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parking_id INTEGER NOT NULL,
	checkin_at DATETIME,
	checkout_at DATETIME,
	minutes INTEGER NOT NULL DEFAULT 0,
	amount REAL NOT NULL DEFAULT 0,
	zone TEXT NOT NULL DEFAULT '',
	license_plate TEXT NOT NULL DEFAULT '',
	UNIQUE(parking_id)
);

CREATE TABLE IF NOT EXISTS parkone_parkings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parkone_parking_id INTEGER NOT NULL,
	start_time DATETIME,
	stop_at DATETIME,
	vehicle_reg_id TEXT NOT NULL DEFAULT '',
	municipality TEXT NOT NULL DEFAULT '',
	zone TEXT NOT NULL DEFAULT '',
	UNIQUE(parkone_parking_id)
);

CREATE TABLE IF NOT EXISTS easypark_parkings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parking_id INTEGER NOT NULL,
	start_date DATETIME,
	end_date DATETIME,
	area TEXT NOT NULL DEFAULT '',
	area_number TEXT NOT NULL DEFAULT '',
	license_plate TEXT NOT NULL DEFAULT '',
	country_code TEXT NOT NULL DEFAULT '',
	parking_fee REAL NOT NULL DEFAULT 0,
	transaction_fee REAL NOT NULL DEFAULT 0,
	total_amount REAL NOT NULL DEFAULT 0,
	stopped INTEGER NOT NULL DEFAULT 0,
	UNIQUE(parking_id)
);

CREATE TABLE IF NOT EXISTS run_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_time DATETIME NOT NULL,
	date_range_from DATETIME NOT NULL,
	date_range_to DATETIME NOT NULL,
	scanview_payment_entries INTEGER NOT NULL DEFAULT 0,
	scanview_log_entries INTEGER NOT NULL DEFAULT 0,
	solvision_order_entries INTEGER NOT NULL DEFAULT 0,
	giantleap_order_entries INTEGER NOT NULL DEFAULT 0,
	parkpark_entries INTEGER NOT NULL DEFAULT 0,
	parkone_entries INTEGER NOT NULL DEFAULT 0,
	easypark_entries INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	runtime_seconds REAL NOT NULL DEFAULT 0
);
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
