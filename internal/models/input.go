package models

import (
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "ipo-tracker/internal/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateStruct runs tag validation and reports the first failing field.
func validateStruct(s interface{}) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if apperrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), fe.Value(), "failed "+fe.Tag())
	}
	return apperrors.Wrap(apperrors.ErrInputValidation, err.Error())
}

// SectorInput is the payload for creating a sector.
type SectorInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Validate trims and validates the input.
func (in *SectorInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return validateStruct(in)
}

// IpoInput is the payload for creating an IPO record.
type IpoInput struct {
	CompanyName  string            `json:"company_name" validate:"required,max=200"`
	SectorID     string            `json:"sector_id,omitempty"`
	InPortfolio  bool              `json:"portfolio"`
	Shares       *float64          `json:"no_of_shares,omitempty" validate:"required_if=InPortfolio true,omitempty,gt=0"`
	BuyPrice     *float64          `json:"buy_price,omitempty" validate:"required_if=InPortfolio true,omitempty,gt=0"`
	GrowwLink    string            `json:"groww_link,omitempty" validate:"omitempty,url"`
	ListedOn     string            `json:"listed_on,omitempty"`
	IssuePrice   string            `json:"issue_price,omitempty"`
	ListingPrice string            `json:"listing_price,omitempty"`
	IssueSize    string            `json:"issue_size,omitempty"`
	Subscription SubscriptionStats `json:"subscription"`
}

// Validate normalizes the input and checks it. Holding fields are dropped
// for records outside the portfolio.
func (in *IpoInput) Validate() error {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.SectorID = strings.TrimSpace(in.SectorID)
	in.GrowwLink = strings.TrimSpace(in.GrowwLink)
	if !in.InPortfolio {
		in.Shares = nil
		in.BuyPrice = nil
	}
	return validateStruct(in)
}

// Record builds a new IpoRecord from the input.
func (in *IpoInput) Record(id, userID string, now time.Time) *IpoRecord {
	return &IpoRecord{
		ID:           id,
		UserID:       userID,
		CompanyName:  in.CompanyName,
		SectorID:     in.SectorID,
		InPortfolio:  in.InPortfolio,
		Shares:       in.Shares,
		BuyPrice:     in.BuyPrice,
		GrowwLink:    in.GrowwLink,
		ListedOn:     in.ListedOn,
		IssuePrice:   in.IssuePrice,
		ListingPrice: in.ListingPrice,
		IssueSize:    in.IssueSize,
		Subscription: in.Subscription,
		CreatedAt:    now,
	}
}

// IpoPatch is a partial update; nil fields are left unchanged.
type IpoPatch struct {
	CompanyName  *string            `json:"company_name,omitempty"`
	SectorID     *string            `json:"sector_id,omitempty"`
	InPortfolio  *bool              `json:"portfolio,omitempty"`
	Shares       *float64           `json:"no_of_shares,omitempty"`
	BuyPrice     *float64           `json:"buy_price,omitempty"`
	GrowwLink    *string            `json:"groww_link,omitempty"`
	ListedOn     *string            `json:"listed_on,omitempty"`
	IssuePrice   *string            `json:"issue_price,omitempty"`
	ListingPrice *string            `json:"listing_price,omitempty"`
	IssueSize    *string            `json:"issue_size,omitempty"`
	Subscription *SubscriptionStats `json:"subscription,omitempty"`
}

// Apply returns a copy of rec with the patch applied, validated against the
// same rules as creation.
func (p IpoPatch) Apply(rec IpoRecord) (IpoRecord, error) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&rec.CompanyName, p.CompanyName)
	set(&rec.SectorID, p.SectorID)
	set(&rec.GrowwLink, p.GrowwLink)
	set(&rec.ListedOn, p.ListedOn)
	set(&rec.IssuePrice, p.IssuePrice)
	set(&rec.ListingPrice, p.ListingPrice)
	set(&rec.IssueSize, p.IssueSize)
	if p.InPortfolio != nil {
		rec.InPortfolio = *p.InPortfolio
	}
	if p.Shares != nil {
		rec.Shares = p.Shares
	}
	if p.BuyPrice != nil {
		rec.BuyPrice = p.BuyPrice
	}
	if p.Subscription != nil {
		rec.Subscription = *p.Subscription
	}

	in := IpoInput{
		CompanyName:  rec.CompanyName,
		SectorID:     rec.SectorID,
		InPortfolio:  rec.InPortfolio,
		Shares:       rec.Shares,
		BuyPrice:     rec.BuyPrice,
		GrowwLink:    rec.GrowwLink,
		ListedOn:     rec.ListedOn,
		IssuePrice:   rec.IssuePrice,
		ListingPrice: rec.ListingPrice,
		IssueSize:    rec.IssueSize,
		Subscription: rec.Subscription,
	}
	if err := in.Validate(); err != nil {
		return rec, err
	}
	rec.CompanyName = in.CompanyName
	rec.SectorID = in.SectorID
	rec.GrowwLink = in.GrowwLink
	rec.Shares = in.Shares
	rec.BuyPrice = in.BuyPrice
	return rec, nil
}

// RuleInput is the payload for creating (or upserting) an alert rule.
type RuleInput struct {
	Kind        RuleKind `json:"type" validate:"required,oneof=base sector company"`
	SectorID    string   `json:"sector_id,omitempty" validate:"required_if=Kind sector"`
	CompanyName string   `json:"company_name,omitempty" validate:"required_if=Kind company"`
	GainPct     float64  `json:"gain_pct"`
	LossPct     float64  `json:"loss_pct"`
}

// Validate checks the input and clears keys that do not belong to its kind.
// Company names are trimmed at the edges only; matching stays exact.
func (in *RuleInput) Validate() error {
	in.SectorID = strings.TrimSpace(in.SectorID)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if err := validateStruct(in); err != nil {
		return err
	}
	switch in.Kind {
	case RuleBase:
		in.SectorID, in.CompanyName = "", ""
	case RuleSector:
		in.CompanyName = ""
	case RuleCompany:
		in.SectorID = ""
	}
	return nil
}

// RulePatch is a partial rule update; nil fields are left unchanged.
type RulePatch struct {
	GainPct     *float64 `json:"gain_pct,omitempty"`
	LossPct     *float64 `json:"loss_pct,omitempty"`
	SectorID    *string  `json:"sector_id,omitempty"`
	CompanyName *string  `json:"company_name,omitempty"`
}

// Apply returns a copy of rule with the patch applied.
func (p RulePatch) Apply(rule AlertRule) (AlertRule, error) {
	if p.GainPct != nil {
		rule.GainPct = *p.GainPct
	}
	if p.LossPct != nil {
		rule.LossPct = *p.LossPct
	}
	if p.SectorID != nil {
		rule.SectorID = *p.SectorID
	}
	if p.CompanyName != nil {
		rule.CompanyName = *p.CompanyName
	}

	in := RuleInput{
		Kind:        rule.Kind,
		SectorID:    rule.SectorID,
		CompanyName: rule.CompanyName,
		GainPct:     rule.GainPct,
		LossPct:     rule.LossPct,
	}
	if err := in.Validate(); err != nil {
		return rule, err
	}
	rule.SectorID = in.SectorID
	rule.CompanyName = in.CompanyName
	return rule, nil
}
