package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/models"
)

func f64(v float64) *float64 { return &v }

// newTestStore opens a store in a temp dir with a clock that advances one
// second per call, so creation order is deterministic.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2025, 2, 19, 9, 15, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

// insertRawRule stores a rule without upsert semantics, reproducing rule
// lists that already hold duplicate scope keys.
func insertRawRule(t *testing.T, s *SQLiteStore, rule models.AlertRule) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO alert_rules (id, user_id, type, sector_id, company_name, gain_pct, loss_pct, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.UserID, string(rule.Kind), nullString(rule.SectorID), nullString(rule.CompanyName),
		rule.GainPct, rule.LossPct, s.now())
	require.NoError(t, err)
}

func TestSectors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tech, err := s.CreateSector(ctx, models.SectorInput{Name: " Tech "})
	require.NoError(t, err)
	assert.Equal(t, "Tech", tech.Name)
	_, err = uuid.Parse(tech.ID)
	assert.NoError(t, err)

	_, err = s.CreateSector(ctx, models.SectorInput{Name: "tech"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = s.CreateSector(ctx, models.SectorInput{Name: "Banking"})
	require.NoError(t, err)

	sectors, err := s.ListSectors(ctx)
	require.NoError(t, err)
	require.Len(t, sectors, 2)
	assert.Equal(t, "Banking", sectors[0].Name)
	assert.Equal(t, "Tech", sectors[1].Name)

	got, err := s.GetSector(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, tech.Name, got.Name)

	_, err = s.CreateIpo(ctx, "u1", models.IpoInput{CompanyName: "Acme", SectorID: tech.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteSector(ctx, tech.ID), apperrors.ErrSectorInUse)
	assert.ErrorIs(t, s.DeleteSector(ctx, "missing"), apperrors.ErrNotFound)
}

func TestIpoLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tech, err := s.CreateSector(ctx, models.SectorInput{Name: "Tech"})
	require.NoError(t, err)

	acme, err := s.CreateIpo(ctx, "u1", models.IpoInput{
		CompanyName:  "Acme",
		SectorID:     tech.ID,
		InPortfolio:  true,
		Shares:       f64(10),
		BuyPrice:     f64(100),
		IssuePrice:   "₹95 to ₹100",
		Subscription: models.SubscriptionStats{Total: "45.2x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tech", acme.SectorName)
	assert.True(t, acme.InPortfolio)
	assert.Equal(t, 10.0, *acme.Shares)
	assert.Equal(t, "45.2x", acme.Subscription.Total)
	assert.Nil(t, acme.UpdatedAt)

	_, err = s.CreateIpo(ctx, "u1", models.IpoInput{CompanyName: "Beta"})
	require.NoError(t, err)
	_, err = s.CreateIpo(ctx, "u2", models.IpoInput{CompanyName: "Gamma", InPortfolio: true, Shares: f64(1), BuyPrice: f64(1)})
	require.NoError(t, err)

	all, err := s.ListIpos(ctx, "u1", IpoFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Beta", all[0].CompanyName, "newest first")

	held, err := s.ListIpos(ctx, "u1", IpoFilter{PortfolioOnly: true})
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "Acme", held[0].CompanyName)

	bySector, err := s.ListIpos(ctx, "u1", IpoFilter{SectorID: tech.ID})
	require.NoError(t, err)
	assert.Len(t, bySector, 1)

	_, err = s.GetIpo(ctx, "u2", acme.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "records are scoped to their owner")

	off := false
	updated, err := s.UpdateIpo(ctx, "u1", acme.ID, models.IpoPatch{InPortfolio: &off})
	require.NoError(t, err)
	assert.False(t, updated.InPortfolio)
	assert.Nil(t, updated.Shares)
	assert.Nil(t, updated.BuyPrice)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, "₹95 to ₹100", updated.IssuePrice)

	on := true
	_, err = s.UpdateIpo(ctx, "u1", acme.ID, models.IpoPatch{InPortfolio: &on})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)

	require.NoError(t, s.DeleteIpo(ctx, "u1", acme.ID))
	assert.ErrorIs(t, s.DeleteIpo(ctx, "u1", acme.ID), apperrors.ErrNotFound)
}

func TestCreateIpoValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateIpo(ctx, "", models.IpoInput{CompanyName: "Acme"})
	assert.ErrorIs(t, err, apperrors.ErrMissingUser)

	_, err = s.CreateIpo(ctx, "u1", models.IpoInput{CompanyName: "Acme", SectorID: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = s.CreateIpo(ctx, "u1", models.IpoInput{CompanyName: "Acme", InPortfolio: true})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestUpsertAlertRule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tech, err := s.CreateSector(ctx, models.SectorInput{Name: "Tech"})
	require.NoError(t, err)

	base, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleBase, GainPct: 20, LossPct: -10})
	require.NoError(t, err)

	again, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleBase, GainPct: 25, LossPct: -12})
	require.NoError(t, err)
	assert.Equal(t, base.ID, again.ID, "base rule is updated in place")
	assert.Equal(t, 25.0, again.GainPct)
	assert.NotNil(t, again.UpdatedAt)

	sector, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleSector, SectorID: tech.ID, GainPct: 30, LossPct: -20})
	require.NoError(t, err)
	assert.Equal(t, "Tech", sector.SectorName)

	company, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleCompany, CompanyName: "Acme", GainPct: 50, LossPct: -5})
	require.NoError(t, err)

	// Company keys are exact: a differently cased name is a separate rule.
	other, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleCompany, CompanyName: "acme", GainPct: 1, LossPct: -1})
	require.NoError(t, err)
	assert.NotEqual(t, company.ID, other.ID)

	_, err = s.UpsertAlertRule(ctx, "u2", models.RuleInput{Kind: models.RuleBase, GainPct: 5, LossPct: -5})
	require.NoError(t, err)

	rules, err := s.ListAlertRules(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rules, 4)
	assert.Equal(t, []string{base.ID, sector.ID, company.ID, other.ID},
		[]string{rules[0].ID, rules[1].ID, rules[2].ID, rules[3].ID})

	_, err = s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleSector, SectorID: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestUpdateAndDeleteAlertRule(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acme, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleCompany, CompanyName: "Acme", GainPct: 10, LossPct: -10})
	require.NoError(t, err)
	beta, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleCompany, CompanyName: "Beta", GainPct: 10, LossPct: -10})
	require.NoError(t, err)

	gain := 40.0
	updated, err := s.UpdateAlertRule(ctx, "u1", acme.ID, models.RulePatch{GainPct: &gain})
	require.NoError(t, err)
	assert.Equal(t, 40.0, updated.GainPct)
	assert.Equal(t, -10.0, updated.LossPct)

	name := "Acme"
	_, err = s.UpdateAlertRule(ctx, "u1", beta.ID, models.RulePatch{CompanyName: &name})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = s.UpdateAlertRule(ctx, "u2", acme.ID, models.RulePatch{GainPct: &gain})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.DeleteAlertRule(ctx, "u1", acme.ID))
	assert.ErrorIs(t, s.DeleteAlertRule(ctx, "u1", acme.ID), apperrors.ErrNotFound)
}

func TestListAlertRulesKeepsDuplicatesInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	insertRawRule(t, s, models.AlertRule{ID: "r1", UserID: "u1", Kind: models.RuleBase, GainPct: 10, LossPct: -10})
	insertRawRule(t, s, models.AlertRule{ID: "r2", UserID: "u1", Kind: models.RuleBase, GainPct: 99, LossPct: -99})

	rules, err := s.ListAlertRules(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, "r2", rules[1].ID)

	// Upsert targets the earliest rule of the scope.
	up, err := s.UpsertAlertRule(ctx, "u1", models.RuleInput{Kind: models.RuleBase, GainPct: 12, LossPct: -12})
	require.NoError(t, err)
	assert.Equal(t, "r1", up.ID)
}
