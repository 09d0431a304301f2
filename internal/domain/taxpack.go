package domain

import (
	"github.com/shopspring/decimal"
)

// TaxBracket is one slice of a progressive table. UpTo is the inclusive
// upper bound of the slice; nil marks the open-ended top bracket. Each
// bracket taxes only the amount within its bounds.
type TaxBracket struct {
	UpTo *decimal.Decimal `json:"upTo"`
	Rate decimal.Decimal  `json:"rate"`
}

// SavingsTables holds the progressive tables for savings income: a common
// national table plus regional (foral) overrides that take precedence when
// present for the simulated region.
type SavingsTables struct {
	Brackets []TaxBracket `json:"brackets"`
}

// ForalTables holds regional override bracket tables keyed by region.
type ForalTables struct {
	SavingsBracketsByRegion map[string][]TaxBracket `json:"savingsBracketsByRegion"`
}

// IncomeTaxTables groups the income tax sections of a pack.
type IncomeTaxTables struct {
	Savings SavingsTables `json:"savings"`
	Foral   ForalTables   `json:"foral"`
}

// WealthBonus is an optional regional reduction of the computed wealth tax.
type WealthBonus struct {
	Mode string          `json:"mode"`
	Pct  decimal.Decimal `json:"pct"`
}

// WealthRegionRules are the per-region wealth tax parameters.
type WealthRegionRules struct {
	MinExempt decimal.Decimal `json:"minExempt"`
	Brackets  []TaxBracket    `json:"brackets"`
	Bonus     *WealthBonus    `json:"bonus,omitempty"`
}

// SurchargeRules model the threshold-based solidarity surcharge: zero
// below the threshold, progressive above its own exemption, and net of
// the regular wealth tax already paid.
type SurchargeRules struct {
	Threshold decimal.Decimal `json:"threshold"`
	MinExempt decimal.Decimal `json:"minExempt"`
	Brackets  []TaxBracket    `json:"brackets"`
}

// WealthTaxTables groups regional wealth tax rules with the surcharge.
type WealthTaxTables struct {
	Regions   map[string]WealthRegionRules `json:"regions"`
	Surcharge SurchargeRules               `json:"isgf"`
}

// TaxPack is a versioned parameter bundle for one (country, year). The
// engine consumes it as a read-only lookup table; the loader validates
// structural completeness before a pack is trusted.
type TaxPack struct {
	Country      string   `json:"country"`
	Year         int      `json:"year"`
	Version      string   `json:"version"`
	GeneratedAt  string   `json:"generatedAt"`
	LastReviewed string   `json:"lastReviewed"`
	Sources      []string `json:"sources"`

	IncomeTax IncomeTaxTables `json:"irpf"`
	Wealth    WealthTaxTables `json:"wealth"`
}

// SavingsBrackets returns the bracket table for the region, preferring a
// foral override when one exists, falling back to the common table.
func (p *TaxPack) SavingsBrackets(region string) []TaxBracket {
	if b, ok := p.IncomeTax.Foral.SavingsBracketsByRegion[region]; ok && len(b) > 0 {
		return b
	}
	return p.IncomeTax.Savings.Brackets
}

// WealthRules returns the wealth tax rules for the region, if any.
func (p *TaxPack) WealthRules(region string) (WealthRegionRules, bool) {
	r, ok := p.Wealth.Regions[region]
	return r, ok
}
