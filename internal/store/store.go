// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"ipo-tracker/internal/models"
)

// RuleStore persists alert rules. Rules are scoped to one user.
type RuleStore interface {
	// ListAlertRules returns the user's rules in creation order. Rule
	// resolution depends on this order when duplicates exist.
	ListAlertRules(ctx context.Context, userID string) ([]models.AlertRule, error)
	GetAlertRule(ctx context.Context, userID, id string) (*models.AlertRule, error)
	// UpsertAlertRule updates the existing rule with the same scope key
	// (base, sector id or company name) or creates a new one.
	UpsertAlertRule(ctx context.Context, userID string, in models.RuleInput) (*models.AlertRule, error)
	UpdateAlertRule(ctx context.Context, userID, id string, patch models.RulePatch) (*models.AlertRule, error)
	DeleteAlertRule(ctx context.Context, userID, id string) error
}

// RecordStore defines the interface for IPO tracker persistence.
type RecordStore interface {
	// Sectors
	ListSectors(ctx context.Context) ([]models.Sector, error)
	GetSector(ctx context.Context, id string) (*models.Sector, error)
	CreateSector(ctx context.Context, in models.SectorInput) (*models.Sector, error)
	DeleteSector(ctx context.Context, id string) error

	// IPOs
	ListIpos(ctx context.Context, userID string, filter IpoFilter) ([]models.IpoRecord, error)
	GetIpo(ctx context.Context, userID, id string) (*models.IpoRecord, error)
	CreateIpo(ctx context.Context, userID string, in models.IpoInput) (*models.IpoRecord, error)
	UpdateIpo(ctx context.Context, userID, id string, patch models.IpoPatch) (*models.IpoRecord, error)
	DeleteIpo(ctx context.Context, userID, id string) error

	// ListUsers returns every user id that owns at least one IPO.
	ListUsers(ctx context.Context) ([]string, error)

	RuleStore

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// IpoFilter represents filters for querying IPO records.
type IpoFilter struct {
	PortfolioOnly bool
	SectorID      string
	Limit         int
}
