package models

import "time"

// RuleKind is the scope an alert rule applies to.
type RuleKind string

const (
	RuleBase    RuleKind = "base"
	RuleSector  RuleKind = "sector"
	RuleCompany RuleKind = "company"
)

// AlertRule holds gain/loss thresholds in percent. GainPct is conventionally
// positive and LossPct negative, but neither sign is enforced.
type AlertRule struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Kind        RuleKind   `json:"type"`
	SectorID    string     `json:"sector_id,omitempty"`
	SectorName  string     `json:"sector_name,omitempty"`
	CompanyName string     `json:"company_name,omitempty"`
	GainPct     float64    `json:"gain_pct"`
	LossPct     float64    `json:"loss_pct"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// RuleSource tells which tier supplied the effective thresholds.
type RuleSource string

const (
	SourceCompany RuleSource = "company"
	SourceSector  RuleSource = "sector"
	SourceBase    RuleSource = "base"
	SourceDefault RuleSource = "default"
)

// Thresholds is the effective gain/loss pair for one company.
type Thresholds struct {
	GainPct float64    `json:"gain_pct"`
	LossPct float64    `json:"loss_pct"`
	Source  RuleSource `json:"source"`
	RuleID  string     `json:"rule_id,omitempty"`
}

// CompanyRef identifies a company for rule resolution.
type CompanyRef struct {
	Name     string `json:"name"`
	SectorID string `json:"sector_id,omitempty"`
}

// Ref returns the rule-resolution identity of the record.
func (r *IpoRecord) Ref() CompanyRef {
	return CompanyRef{Name: r.CompanyName, SectorID: r.SectorID}
}
