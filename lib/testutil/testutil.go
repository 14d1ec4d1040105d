package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"parkdata-backend/lib/sqliteutil"
	"parkdata-backend/lib/telemetry"

	"github.com/mazen160/go-random"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	var db *sql.DB
	if params.DbSchema != "" {
		dbpath := params.DbPath
		if dbpath == "" {
			dbpath = ":memory:"
		}
		var err error
		db, err = sqliteutil.OpenDB(params.DbSchema, dbpath)
		if err != nil {
			t.Fatal(err)
		}
	}

	return ServiceResult{DB: db}, func() {
		if db != nil {
			db.Close()
		}
		cleanup()
	}
}

// RandomPlate generates a plausible Danish license plate for test rows.
func RandomPlate(t testing.TB) string {
	letters, err := random.String(2)
	if err != nil {
		t.Fatal(err)
	}
	digits, err := random.IntRange(10000, 99999)
	if err != nil {
		t.Fatal(err)
	}
	return strings.ToUpper(letters) + fmt.Sprint(digits)
}
