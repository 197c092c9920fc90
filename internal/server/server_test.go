package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipo-tracker/internal/alerts"
	"ipo-tracker/internal/classify"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/store"
)

func f64(v float64) *float64 { return &v }

type fixture struct {
	srv    *Server
	store  *store.SQLiteStore
	tech   *models.Sector
	acme   *models.IpoRecord
	watch  *models.IpoRecord
	prices map[string]float64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	f := &fixture{store: s, prices: map[string]float64{"Acme": 150, "Watch": 80}}
	f.tech, err = s.CreateSector(ctx, models.SectorInput{Name: "Tech"})
	require.NoError(t, err)

	f.acme, err = s.CreateIpo(ctx, "u1", models.IpoInput{
		CompanyName: "Acme", SectorID: f.tech.ID, InPortfolio: true,
		Shares: f64(10), BuyPrice: f64(100), IssuePrice: "₹100", ListingPrice: "₹120",
	})
	require.NoError(t, err)
	_, err = s.CreateIpo(ctx, "u1", models.IpoInput{
		CompanyName: "Beta", InPortfolio: true, Shares: f64(4), BuyPrice: f64(50), IssuePrice: "50",
	})
	require.NoError(t, err)
	f.watch, err = s.CreateIpo(ctx, "u1", models.IpoInput{CompanyName: "Watch", IssuePrice: "100", ListingPrice: "90"})
	require.NoError(t, err)

	fetcher := pricing.QuoteFetcherFunc(func(_ context.Context, name string) (models.PriceQuote, error) {
		if p, ok := f.prices[name]; ok {
			return models.PriceQuote{CompanyName: name, Price: f64(p), Success: true}, nil
		}
		return models.PriceQuote{}, errors.New("service unavailable")
	})

	f.srv = New(Config{Port: 0, Log: zerolog.Nop(), Store: s, Quotes: fetcher, Concurrency: 2, DevMode: true})
	return f
}

func (f *fixture) get(t *testing.T, path, user string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, f.get(t, "/health", "", &body))
	assert.Equal(t, "HEALTHY", body["status"])
}

func TestRequiresUser(t *testing.T) {
	f := newFixture(t)

	var body map[string]string
	assert.Equal(t, http.StatusUnauthorized, f.get(t, "/api/portfolio/summary", "", &body))
	assert.Contains(t, body["error"], UserHeader)
}

func TestPortfolioSummary(t *testing.T) {
	f := newFixture(t)

	var summary models.PortfolioSummary
	require.Equal(t, http.StatusOK, f.get(t, "/api/portfolio/summary", "u1", &summary))

	require.Len(t, summary.Holdings, 2)
	assert.Equal(t, 1200.0, summary.TotalInvested)
	// Beta has no quote and contributes nothing to the current value.
	assert.Equal(t, 1500.0, summary.TotalCurrentValue)
	assert.Equal(t, 25.0, summary.TotalPctChange)

	var other models.PortfolioSummary
	require.Equal(t, http.StatusOK, f.get(t, "/api/portfolio/summary", "u2", &other))
	assert.Empty(t, other.Holdings)
	assert.Zero(t, other.TotalPctChange)
}

func TestClassification(t *testing.T) {
	f := newFixture(t)

	var all classify.Result
	require.Equal(t, http.StatusOK, f.get(t, "/api/classification", "u1", &all))
	require.Len(t, all.Profited, 1)
	assert.Equal(t, "Acme", all.Profited[0].CompanyName)
	assert.Equal(t, 50.0, all.Profited[0].Pct)
	require.Len(t, all.Losted, 1)
	assert.Equal(t, "Watch", all.Losted[0].CompanyName)
	assert.Equal(t, -20.0, all.Losted[0].Pct)

	var tech classify.Result
	require.Equal(t, http.StatusOK, f.get(t, "/api/classification?sector="+f.tech.ID, "u1", &tech))
	assert.Len(t, tech.Profited, 1)
	assert.Empty(t, tech.Losted)

	var held classify.Result
	require.Equal(t, http.StatusOK, f.get(t, "/api/classification?portfolio=true", "u1", &held))
	require.Len(t, held.Profited, 1)
	assert.Equal(t, classify.BasisLive, held.Profited[0].Basis)
	assert.Empty(t, held.Losted)
}

func TestResolveRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var th ResolveResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/alert-rules/resolve?company=Acme", "u1", &th))
	assert.Equal(t, models.SourceDefault, th.Source)
	assert.Equal(t, 15.0, th.GainPct)

	_, err := f.store.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleSector, SectorID: f.tech.ID, GainPct: 30, LossPct: -20})
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, f.get(t, "/api/alert-rules/resolve?company=Acme&sector_id="+f.tech.ID, "u1", &th))
	assert.Equal(t, models.SourceSector, th.Source)
	assert.Equal(t, -20.0, th.LossPct)
}

func TestCompany(t *testing.T) {
	f := newFixture(t)

	var held models.CompanyView
	require.Equal(t, http.StatusOK, f.get(t, "/api/companies/"+f.acme.ID, "u1", &held))
	require.NotNil(t, held.CMP)
	assert.Equal(t, 150.0, *held.CMP)
	assert.Equal(t, 1500.0, *held.CurrentValue)
	assert.Equal(t, 50.0, *held.PctChange)
	assert.Equal(t, "Tech", held.SectorName)

	var watched models.CompanyView
	require.Equal(t, http.StatusOK, f.get(t, "/api/companies/"+f.watch.ID, "u1", &watched))
	require.NotNil(t, watched.CMP)
	assert.Equal(t, -20.0, *watched.PctChange)
	assert.Nil(t, watched.CurrentValue)

	delete(f.prices, "Watch")
	var failed models.CompanyView
	require.Equal(t, http.StatusOK, f.get(t, "/api/companies/"+f.watch.ID, "u1", &failed))
	assert.Nil(t, failed.CMP)
	assert.NotEmpty(t, failed.PriceError)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/companies/"+f.acme.ID, "u2", &body))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/companies/missing", "u1", &body))
}

func TestLastAlerts(t *testing.T) {
	f := newFixture(t)

	var body map[string]interface{}
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/alerts/last", "u1", &body))

	checker := &alerts.Checker{Store: f.store, Quotes: f.srv.quotes, Logger: zerolog.Nop(), PortfolioOnly: true}
	f.srv = New(Config{Log: zerolog.Nop(), Store: f.store, Quotes: f.srv.quotes, Checker: checker, DevMode: true})
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/alerts/last", "u1", &body))

	_, err := checker.Run(context.Background())
	require.NoError(t, err)

	var resp struct {
		Alerts []alerts.Alert `json:"alerts"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/api/alerts/last", "u1", &resp))
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, "Acme", resp.Alerts[0].CompanyName)

	require.Equal(t, http.StatusOK, f.get(t, "/api/alerts/last", "u2", &resp))
	assert.Empty(t, resp.Alerts)
}
