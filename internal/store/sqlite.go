// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/models"
)

// SQLiteStore implements RecordStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based record store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Sectors are shared by all users
	CREATE TABLE IF NOT EXISTS sectors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		created_at DATETIME NOT NULL
	);

	-- Tracked IPOs; shares and buy_price are set only for portfolio holdings
	CREATE TABLE IF NOT EXISTS ipos (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company_name TEXT NOT NULL,
		sector_id TEXT REFERENCES sectors(id),
		portfolio INTEGER NOT NULL DEFAULT 0,
		no_of_shares REAL,
		buy_price REAL,
		groww_link TEXT NOT NULL DEFAULT '',
		listed_on TEXT NOT NULL DEFAULT '',
		issue_price TEXT NOT NULL DEFAULT '',
		listing_price TEXT NOT NULL DEFAULT '',
		issue_size TEXT NOT NULL DEFAULT '',
		qib_subscription TEXT NOT NULL DEFAULT '',
		nii_subscription TEXT NOT NULL DEFAULT '',
		rii_subscription TEXT NOT NULL DEFAULT '',
		total_subscription TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME
	);

	-- Alert rules; type is one of base, sector, company
	CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		sector_id TEXT,
		company_name TEXT,
		gain_pct REAL NOT NULL,
		loss_pct REAL NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_ipos_user ON ipos(user_id);
	CREATE INDEX IF NOT EXISTS idx_ipos_sector ON ipos(sector_id);
	CREATE INDEX IF NOT EXISTS idx_rules_user ON alert_rules(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if apperrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// ============================================================================
// Sector Methods
// ============================================================================

// ListSectors returns all sectors ordered by name.
func (s *SQLiteStore) ListSectors(ctx context.Context) ([]models.Sector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM sectors ORDER BY name COLLATE NOCASE ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	var sectors []models.Sector
	for rows.Next() {
		var sec models.Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sectors: %w", err)
	}

	return sectors, nil
}

// GetSector returns a sector by id.
func (s *SQLiteStore) GetSector(ctx context.Context, id string) (*models.Sector, error) {
	var sec models.Sector
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM sectors WHERE id = ?
	`, id).Scan(&sec.ID, &sec.Name, &sec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStoreError("get", "sector", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector: %w", err)
	}
	return &sec, nil
}

// CreateSector adds a sector. Names are unique ignoring case.
func (s *SQLiteStore) CreateSector(ctx context.Context, in models.SectorInput) (*models.Sector, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sec := models.Sector{
		ID:        uuid.NewString(),
		Name:      in.Name,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sectors (id, name, created_at) VALUES (?, ?, ?)
	`, sec.ID, sec.Name, sec.CreatedAt)
	if isUniqueViolation(err) {
		return nil, apperrors.NewStoreError("create", "sector", apperrors.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sector: %w", err)
	}
	return &sec, nil
}

// DeleteSector removes a sector that no IPO references.
func (s *SQLiteStore) DeleteSector(ctx context.Context, id string) error {
	var inUse int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ipos WHERE sector_id = ?
	`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("failed to check sector usage: %w", err)
	}
	if inUse > 0 {
		return apperrors.NewStoreError("delete", "sector", apperrors.ErrSectorInUse)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM sectors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sector: %w", err)
	}
	return requireAffected(res, "delete", "sector")
}

func requireAffected(res sql.Result, op, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NewStoreError(op, entity, apperrors.ErrNotFound)
	}
	return nil
}

// sectorExists validates an optional sector reference.
func (s *SQLiteStore) sectorExists(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sectors WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("failed to check sector: %w", err)
	}
	if n == 0 {
		return apperrors.NewValidationError("SectorID", id, "unknown sector")
	}
	return nil
}

// ============================================================================
// IPO Methods
// ============================================================================

const ipoColumns = `
	i.id, i.user_id, i.company_name, COALESCE(i.sector_id, ''), COALESCE(s.name, ''),
	i.portfolio, i.no_of_shares, i.buy_price, i.groww_link, i.listed_on,
	i.issue_price, i.listing_price, i.issue_size,
	i.qib_subscription, i.nii_subscription, i.rii_subscription, i.total_subscription,
	i.created_at, i.updated_at
	FROM ipos i LEFT JOIN sectors s ON s.id = i.sector_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIpo(row rowScanner) (models.IpoRecord, error) {
	var rec models.IpoRecord
	var portfolio int
	var shares, buyPrice sql.NullFloat64
	var updatedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.UserID, &rec.CompanyName, &rec.SectorID, &rec.SectorName,
		&portfolio, &shares, &buyPrice, &rec.GrowwLink, &rec.ListedOn,
		&rec.IssuePrice, &rec.ListingPrice, &rec.IssueSize,
		&rec.Subscription.QIB, &rec.Subscription.NII, &rec.Subscription.RII, &rec.Subscription.Total,
		&rec.CreatedAt, &updatedAt)
	if err != nil {
		return rec, err
	}

	rec.InPortfolio = portfolio == 1
	rec.Shares = floatPtr(shares)
	rec.BuyPrice = floatPtr(buyPrice)
	rec.UpdatedAt = timePtr(updatedAt)
	return rec, nil
}

// ListIpos returns the user's IPOs, newest first.
func (s *SQLiteStore) ListIpos(ctx context.Context, userID string, filter IpoFilter) ([]models.IpoRecord, error) {
	query := "SELECT" + ipoColumns + " WHERE i.user_id = ?"
	args := []interface{}{userID}

	if filter.PortfolioOnly {
		query += " AND i.portfolio = 1"
	}
	if filter.SectorID != "" {
		query += " AND i.sector_id = ?"
		args = append(args, filter.SectorID)
	}

	query += " ORDER BY i.created_at DESC, i.rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ipos: %w", err)
	}
	defer rows.Close()

	var ipos []models.IpoRecord
	for rows.Next() {
		rec, err := scanIpo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ipo: %w", err)
		}
		ipos = append(ipos, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ipos: %w", err)
	}

	return ipos, nil
}

// GetIpo returns one of the user's IPOs.
func (s *SQLiteStore) GetIpo(ctx context.Context, userID, id string) (*models.IpoRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+ipoColumns+" WHERE i.id = ? AND i.user_id = ?", id, userID)
	rec, err := scanIpo(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStoreError("get", "ipo", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ipo: %w", err)
	}
	return &rec, nil
}

// CreateIpo validates and stores a new IPO for the user.
func (s *SQLiteStore) CreateIpo(ctx context.Context, userID string, in models.IpoInput) (*models.IpoRecord, error) {
	if userID == "" {
		return nil, apperrors.ErrMissingUser
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.sectorExists(ctx, in.SectorID); err != nil {
		return nil, err
	}

	rec := in.Record(uuid.NewString(), userID, s.now())
	portfolio := 0
	if rec.InPortfolio {
		portfolio = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ipos (id, user_id, company_name, sector_id, portfolio, no_of_shares, buy_price,
			groww_link, listed_on, issue_price, listing_price, issue_size,
			qib_subscription, nii_subscription, rii_subscription, total_subscription, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.CompanyName, nullString(rec.SectorID), portfolio,
		nullFloat(rec.Shares), nullFloat(rec.BuyPrice), rec.GrowwLink, rec.ListedOn,
		rec.IssuePrice, rec.ListingPrice, rec.IssueSize,
		rec.Subscription.QIB, rec.Subscription.NII, rec.Subscription.RII, rec.Subscription.Total,
		rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ipo: %w", err)
	}

	return s.GetIpo(ctx, userID, rec.ID)
}

// UpdateIpo applies a partial update to one of the user's IPOs.
func (s *SQLiteStore) UpdateIpo(ctx context.Context, userID, id string, patch models.IpoPatch) (*models.IpoRecord, error) {
	current, err := s.GetIpo(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rec, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}
	if err := s.sectorExists(ctx, rec.SectorID); err != nil {
		return nil, err
	}

	portfolio := 0
	if rec.InPortfolio {
		portfolio = 1
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE ipos SET company_name = ?, sector_id = ?, portfolio = ?, no_of_shares = ?, buy_price = ?,
			groww_link = ?, listed_on = ?, issue_price = ?, listing_price = ?, issue_size = ?,
			qib_subscription = ?, nii_subscription = ?, rii_subscription = ?, total_subscription = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, rec.CompanyName, nullString(rec.SectorID), portfolio, nullFloat(rec.Shares), nullFloat(rec.BuyPrice),
		rec.GrowwLink, rec.ListedOn, rec.IssuePrice, rec.ListingPrice, rec.IssueSize,
		rec.Subscription.QIB, rec.Subscription.NII, rec.Subscription.RII, rec.Subscription.Total,
		s.now(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update ipo: %w", err)
	}

	return s.GetIpo(ctx, userID, id)
}

// DeleteIpo removes one of the user's IPOs.
func (s *SQLiteStore) DeleteIpo(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ipos WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete ipo: %w", err)
	}
	return requireAffected(res, "delete", "ipo")
}

// ListUsers returns the distinct owners of IPO records.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM ipos ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ============================================================================
// Alert Rule Methods
// ============================================================================

const ruleColumns = `
	r.id, r.user_id, r.type, COALESCE(r.sector_id, ''), COALESCE(s.name, ''),
	COALESCE(r.company_name, ''), r.gain_pct, r.loss_pct, r.created_at, r.updated_at
	FROM alert_rules r LEFT JOIN sectors s ON s.id = r.sector_id`

func scanRule(row rowScanner) (models.AlertRule, error) {
	var rule models.AlertRule
	var kind string
	var updatedAt sql.NullTime

	err := row.Scan(&rule.ID, &rule.UserID, &kind, &rule.SectorID, &rule.SectorName,
		&rule.CompanyName, &rule.GainPct, &rule.LossPct, &rule.CreatedAt, &updatedAt)
	if err != nil {
		return rule, err
	}
	rule.Kind = models.RuleKind(kind)
	rule.UpdatedAt = timePtr(updatedAt)
	return rule, nil
}

// ListAlertRules returns the user's rules in creation order.
func (s *SQLiteStore) ListAlertRules(ctx context.Context, userID string) ([]models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT"+ruleColumns+" WHERE r.user_id = ? ORDER BY r.created_at ASC, r.rowid ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}

	return rules, nil
}

// GetAlertRule returns one of the user's rules.
func (s *SQLiteStore) GetAlertRule(ctx context.Context, userID, id string) (*models.AlertRule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+ruleColumns+" WHERE r.id = ? AND r.user_id = ?", id, userID)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewStoreError("get", "alert rule", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}
	return &rule, nil
}

// scopeQuery finds rules sharing the scope key of kind/sector/company.
func scopeQuery(kind models.RuleKind, sectorID, company string) (string, []interface{}) {
	switch kind {
	case models.RuleSector:
		return " AND type = 'sector' AND sector_id = ?", []interface{}{sectorID}
	case models.RuleCompany:
		return " AND type = 'company' AND company_name = ?", []interface{}{company}
	default:
		return " AND type = 'base'", nil
	}
}

// UpsertAlertRule creates a rule or updates the thresholds of the existing
// rule with the same scope key.
func (s *SQLiteStore) UpsertAlertRule(ctx context.Context, userID string, in models.RuleInput) (*models.AlertRule, error) {
	if userID == "" {
		return nil, apperrors.ErrMissingUser
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.sectorExists(ctx, in.SectorID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cond, condArgs := scopeQuery(in.Kind, in.SectorID, in.CompanyName)
	args := append([]interface{}{userID}, condArgs...)

	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM alert_rules WHERE user_id = ?"+cond+" ORDER BY created_at ASC, rowid ASC LIMIT 1",
		args...).Scan(&existingID)

	now := s.now()
	switch {
	case err == sql.ErrNoRows:
		existingID = uuid.NewString()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alert_rules (id, user_id, type, sector_id, company_name, gain_pct, loss_pct, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, existingID, userID, string(in.Kind), nullString(in.SectorID), nullString(in.CompanyName),
			in.GainPct, in.LossPct, now)
		if err != nil {
			return nil, fmt.Errorf("failed to create alert rule: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up alert rule: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE alert_rules SET gain_pct = ?, loss_pct = ?, updated_at = ? WHERE id = ?
		`, in.GainPct, in.LossPct, now, existingID)
		if err != nil {
			return nil, fmt.Errorf("failed to update alert rule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetAlertRule(ctx, userID, existingID)
}

// UpdateAlertRule applies a partial update. Moving a rule onto a scope key
// already held by another rule fails with ErrDuplicate.
func (s *SQLiteStore) UpdateAlertRule(ctx context.Context, userID, id string, patch models.RulePatch) (*models.AlertRule, error) {
	current, err := s.GetAlertRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rule, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}
	if err := s.sectorExists(ctx, rule.SectorID); err != nil {
		return nil, err
	}

	cond, condArgs := scopeQuery(rule.Kind, rule.SectorID, rule.CompanyName)
	args := append([]interface{}{userID, id}, condArgs...)
	var clash int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alert_rules WHERE user_id = ? AND id != ?"+cond, args...).Scan(&clash); err != nil {
		return nil, fmt.Errorf("failed to check alert rule scope: %w", err)
	}
	if clash > 0 {
		return nil, apperrors.NewStoreError("update", "alert rule", apperrors.ErrDuplicate)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE alert_rules SET sector_id = ?, company_name = ?, gain_pct = ?, loss_pct = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, nullString(rule.SectorID), nullString(rule.CompanyName), rule.GainPct, rule.LossPct, s.now(), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert rule: %w", err)
	}

	return s.GetAlertRule(ctx, userID, id)
}

// DeleteAlertRule removes one of the user's rules.
func (s *SQLiteStore) DeleteAlertRule(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	return requireAffected(res, "delete", "alert rule")
}
