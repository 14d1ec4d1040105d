package commands

import (
	"context"
	"fmt"
	"log/slog"

	"parkdata-backend/internal/ingest"
	"parkdata-backend/internal/scrapers/easypark"
	"parkdata-backend/internal/scrapers/giantleap"
	"parkdata-backend/internal/scrapers/parkone"
	"parkdata-backend/internal/scrapers/parkpark"
	"parkdata-backend/internal/scrapers/scanview"
	"parkdata-backend/internal/scrapers/solvision"
	"parkdata-backend/lib/credentials"
	"parkdata-backend/lib/daterange"
)

// brokenSource stands in for a source whose configuration is invalid.
// Registering it keeps the misconfiguration visible in the run log as
// a per-source error instead of aborting the whole run at startup.
type brokenSource struct {
	name string
	err  error
}

func (s brokenSource) Name() string { return s.name }

func (s brokenSource) Fetch(ctx context.Context, dr daterange.Range) (*ingest.FetchResult, error) {
	return nil, s.err
}

// buildSources wires every operator adapter from config and
// environment credentials. A source with missing credentials still
// appears in the run, failing with its configuration error.
func buildSources(cfg Config) []ingest.Source {
	builders := []struct {
		name  string
		build func(Config) (ingest.Source, error)
	}{
		{"Scanview", newScanview},
		{"Solvision", newSolvision},
		{"Giantleap", newGiantleap},
		{"ParkPark", newParkPark},
		{"ParkOne", newParkOne},
		{"EasyPark", newEasyPark},
	}

	var sources []ingest.Source
	for _, b := range builders {
		src, err := b.build(cfg)
		if err != nil {
			slog.Warn("source not configured", "source", b.name, "err", err)
			src = brokenSource{name: b.name, err: err}
		}
		sources = append(sources, src)
	}
	return sources
}

func configErr(err error) error {
	return fmt.Errorf("%w: %s", ingest.ErrConfiguration, err.Error())
}

func newScanview(cfg Config) (ingest.Source, error) {
	creds, err := credentials.FromEnv("SCANVIEW_USERNAME", "SCANVIEW_PASSWORD")
	if err != nil {
		return nil, configErr(err)
	}
	return scanview.NewClient(scanview.Options{
		BaseURL: cfg.Scanview.BaseURL,
		Creds:   creds,
	})
}

func newSolvision(cfg Config) (ingest.Source, error) {
	creds, err := credentials.FromEnv("SOLVISION_USERNAME", "SOLVISION_PASSWORD")
	if err != nil {
		return nil, configErr(err)
	}
	return solvision.NewClient(solvision.Options{
		PortalURL:  cfg.Solvision.PortalURL,
		APIURL:     cfg.Solvision.APIURL,
		Creds:      creds,
		OperatorID: cfg.Solvision.OperatorID,
		Meters:     cfg.Solvision.Meters,
	})
}

func newGiantleap(cfg Config) (ingest.Source, error) {
	creds, err := credentials.FromEnv("GIANTLEAP_USERNAME", "GIANTLEAP_PASSWORD")
	if err != nil {
		return nil, configErr(err)
	}
	return giantleap.NewClient(giantleap.Options{
		BaseURL:    cfg.Giantleap.BaseURL,
		OperatorID: cfg.Giantleap.OperatorID,
		Creds:      creds,
	})
}

func newParkPark(cfg Config) (ingest.Source, error) {
	key, err := credentials.KeyFromEnv("PARKPARK_API_KEY")
	if err != nil {
		return nil, configErr(err)
	}
	return parkpark.NewClient(parkpark.Options{
		BaseURL: cfg.ParkPark.BaseURL,
		APIKey:  key,
	})
}

func newParkOne(cfg Config) (ingest.Source, error) {
	key, err := credentials.KeyFromEnv("PARKONE_API_KEY")
	if err != nil {
		return nil, configErr(err)
	}
	return parkone.NewClient(parkone.Options{
		BaseURL:      cfg.ParkOne.BaseURL,
		APIKey:       key,
		Municipality: cfg.ParkOne.Municipality,
	})
}

func newEasyPark(cfg Config) (ingest.Source, error) {
	creds, err := credentials.FromEnv("EASYPARK_USERNAME", "EASYPARK_PASSWORD")
	if err != nil {
		return nil, configErr(err)
	}
	return easypark.NewClient(easypark.Options{
		SSOURL:     cfg.EasyPark.SSOURL,
		GatewayURL: cfg.EasyPark.GatewayURL,
		Creds:      creds,
		OperatorID: cfg.EasyPark.OperatorID,
	})
}
