package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ipo-tracker/internal/logging"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/pricing"
	"ipo-tracker/internal/rules"
	"ipo-tracker/internal/store"
)

// Report summarizes one alert check.
type Report struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Users         int       `json:"users"`
	Checked       int       `json:"checked"`
	Companies     int       `json:"companies"`
	QuotesFetched int       `json:"quotes_fetched"`
	Alerts        []Alert   `json:"alerts"`
	Skipped       []string  `json:"skipped,omitempty"`
	Integrity     []string  `json:"integrity,omitempty"`
}

// Checker loads IPOs and rules, fetches live prices, and evaluates alerts.
// Delivery of the alerts is left to the caller; each one is logged.
type Checker struct {
	Store         store.RecordStore
	Quotes        pricing.QuoteFetcher
	Logger        zerolog.Logger
	PortfolioOnly bool
	Concurrency   int

	// Users restricts the check to these users. Empty means every user
	// that owns an IPO.
	Users []string

	mu   sync.RWMutex
	last *Report
}

// Name identifies the job in scheduler logs.
func (c *Checker) Name() string {
	return "alert-check"
}

// Last returns the most recent completed report, or nil.
func (c *Checker) Last() *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Run performs one check. Rules and records are snapshotted per user before
// any quote is fetched, so every evaluation sees a consistent rule set.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	logger := logging.WithOperation(c.Logger, c.Name())
	report := &Report{StartedAt: time.Now(), Alerts: []Alert{}}

	users := c.Users
	if len(users) == 0 {
		var err error
		users, err = c.Store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load users: %w", err)
		}
	}
	report.Users = len(users)

	type snapshot struct {
		user    string
		records []models.IpoRecord
		index   *rules.Index
	}
	snapshots := make([]snapshot, 0, len(users))
	var all []models.IpoRecord

	for _, user := range users {
		records, err := c.Store.ListIpos(ctx, user, store.IpoFilter{PortfolioOnly: c.PortfolioOnly})
		if err != nil {
			return nil, fmt.Errorf("failed to load ipos for %s: %w", user, err)
		}
		ruleSet, err := c.Store.ListAlertRules(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to load alert rules for %s: %w", user, err)
		}

		idx := rules.NewIndex(ruleSet)
		if issues := idx.Issues(); len(issues) > 0 {
			logging.LogIntegrity(logging.WithUser(logger, user), issues)
			for _, issue := range issues {
				report.Integrity = append(report.Integrity, fmt.Sprintf("%s: %v", user, issue))
			}
		}

		snapshots = append(snapshots, snapshot{user: user, records: records, index: idx})
		all = append(all, records...)
	}
	report.Checked = len(all)

	quotes, err := pricing.FetchQuotes(ctx, c.Quotes, all, c.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	prices := pricing.PricesByName(quotes)
	report.QuotesFetched = len(prices)

	seen := make(map[string]bool)
	for _, rec := range all {
		seen[rec.CompanyName] = true
	}
	report.Companies = len(seen)

	for _, snap := range snapshots {
		triggered, skipped := Evaluate(snap.records, snap.index, prices)
		userLogger := logging.WithUser(logger, snap.user)
		for _, name := range skipped {
			userLogger.Warn().Str("company", name).Msg("No CMP found, skipping alert check")
		}
		for _, a := range triggered {
			logging.LogAlert(userLogger, a.CompanyName, string(a.Direction), a.CMP,
				a.Thresholds.GainPct, a.Thresholds.LossPct, a.ReasonTexts())
		}
		report.Alerts = append(report.Alerts, triggered...)
		report.Skipped = append(report.Skipped, skipped...)
	}

	report.FinishedAt = time.Now()
	logger.Info().
		Int("users", report.Users).
		Int("companies", report.Companies).
		Int("quotes", report.QuotesFetched).
		Int("alerts", len(report.Alerts)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Alert check complete")

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	return report, nil
}
