// Package rules resolves the effective alert thresholds for a company from a
// user's tiered rule set.
package rules

import (
	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/models"
)

// Thresholds used when no rule applies.
const (
	DefaultGainPct = 15.0
	DefaultLossPct = -15.0
)

// Index is a read-only lookup over one snapshot of rules. Build it once and
// resolve any number of companies against it.
type Index struct {
	base      *models.AlertRule
	bySector  map[string]*models.AlertRule
	byCompany map[string]*models.AlertRule
	issues    []error
}

// NewIndex indexes a copy of rules by tier and key. When a key occurs more than once the
// earliest rule in list order wins and the clash is recorded in Issues.
// Rules of an unknown kind are ignored.
func NewIndex(rules []models.AlertRule) *Index {
	idx := &Index{
		bySector:  make(map[string]*models.AlertRule),
		byCompany: make(map[string]*models.AlertRule),
	}

	type scope struct{ tier, key string }
	dupes := make(map[scope][]string)
	var order []scope
	record := func(tier models.RuleKind, key string, winner *models.AlertRule, id string) {
		k := scope{string(tier), key}
		if _, seen := dupes[k]; !seen {
			order = append(order, k)
			dupes[k] = []string{winner.ID}
		}
		dupes[k] = append(dupes[k], id)
	}

	for i := range rules {
		r := rules[i]
		switch r.Kind {
		case models.RuleBase:
			if idx.base != nil {
				record(models.RuleBase, "", idx.base, r.ID)
				continue
			}
			idx.base = &r
		case models.RuleSector:
			if r.SectorID == "" {
				continue
			}
			if first, ok := idx.bySector[r.SectorID]; ok {
				record(models.RuleSector, r.SectorID, first, r.ID)
				continue
			}
			idx.bySector[r.SectorID] = &r
		case models.RuleCompany:
			if first, ok := idx.byCompany[r.CompanyName]; ok {
				record(models.RuleCompany, r.CompanyName, first, r.ID)
				continue
			}
			idx.byCompany[r.CompanyName] = &r
		}
	}

	for _, k := range order {
		idx.issues = append(idx.issues, apperrors.NewDataIntegrityError(k.tier, k.key, dupes[k]))
	}
	return idx
}

// Issues returns one DataIntegrityError per duplicated key, in the order the
// duplicates were first seen. Resolution is unaffected by them.
func (idx *Index) Issues() []error {
	return idx.issues
}

// Resolve returns the thresholds of exactly one tier: company rule (exact
// name match), then sector rule, then base rule, then the defaults.
func (idx *Index) Resolve(c models.CompanyRef) models.Thresholds {
	if r, ok := idx.byCompany[c.Name]; ok {
		return fromRule(r, models.SourceCompany)
	}
	if c.SectorID != "" {
		if r, ok := idx.bySector[c.SectorID]; ok {
			return fromRule(r, models.SourceSector)
		}
	}
	if idx.base != nil {
		return fromRule(idx.base, models.SourceBase)
	}
	return models.Thresholds{
		GainPct: DefaultGainPct,
		LossPct: DefaultLossPct,
		Source:  models.SourceDefault,
	}
}

func fromRule(r *models.AlertRule, src models.RuleSource) models.Thresholds {
	return models.Thresholds{
		GainPct: r.GainPct,
		LossPct: r.LossPct,
		Source:  src,
		RuleID:  r.ID,
	}
}

// Resolve is a convenience for resolving a single company. Use NewIndex when
// resolving many companies against the same rules.
func Resolve(c models.CompanyRef, rules []models.AlertRule) models.Thresholds {
	return NewIndex(rules).Resolve(c)
}

// ResolveAll resolves every record against one index, keyed by record id.
func ResolveAll(records []models.IpoRecord, rules []models.AlertRule) (map[string]models.Thresholds, []error) {
	idx := NewIndex(rules)
	out := make(map[string]models.Thresholds, len(records))
	for i := range records {
		out[records[i].ID] = idx.Resolve(records[i].Ref())
	}
	return out, idx.Issues()
}
