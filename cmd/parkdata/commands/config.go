package commands

import (
	"errors"
	"os"

	"parkdata-backend/lib/configutil"
	"parkdata-backend/lib/serviceutil"
)

// Config holds the non-secret settings. Credentials come from the
// environment only; base url overrides exist for pointing a source at
// a staging portal or a local stub.
type Config struct {
	Database   string `json:"database"`
	RuntimeLog string `json:"runtime_log"`
	// FromDate is the default start of the ingestion window,
	// "2006-01-02". Overridden by --from and --since-last-success.
	FromDate string `json:"from_date"`
	CronSpec string `json:"cron_spec"`

	Scanview struct {
		BaseURL string `json:"base_url"`
	} `json:"scanview"`
	Solvision struct {
		PortalURL  string  `json:"portal_url"`
		APIURL     string  `json:"api_url"`
		OperatorID int64   `json:"operator_id"`
		Meters     []int64 `json:"meters"`
	} `json:"solvision"`
	Giantleap struct {
		BaseURL    string `json:"base_url"`
		OperatorID string `json:"operator_id"`
	} `json:"giantleap"`
	ParkPark struct {
		BaseURL string `json:"base_url"`
	} `json:"parkpark"`
	ParkOne struct {
		BaseURL      string `json:"base_url"`
		Municipality string `json:"municipality"`
	} `json:"parkone"`
	EasyPark struct {
		SSOURL     string `json:"sso_url"`
		GatewayURL string `json:"gateway_url"`
		OperatorID int64  `json:"operator_id"`
	} `json:"easypark"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if errors.Is(err, os.ErrNotExist) {
		cfg = Config{}
	} else if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	if cfg.Database == "" {
		cfg.Database = "parkdata.db"
	}
	if cfg.RuntimeLog == "" {
		cfg.RuntimeLog = "runtime_log.csv"
	}
	if cfg.FromDate == "" {
		cfg.FromDate = "2025-09-20"
	}
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 3 * * *"
	}
	return cfg
}
