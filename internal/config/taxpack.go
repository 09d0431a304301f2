package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// LoadTaxPack reads and validates a versioned tax pack. Validation is
// fail-closed: a pack missing required tables is rejected outright
// rather than patched with defaults, since a silently wrong tax table
// is worse than no run at all.
func LoadTaxPack(path string) (*domain.TaxPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tax pack %s: %w", path, err)
	}
	return ParseTaxPack(data)
}

// ParseTaxPack parses and validates tax pack JSON.
func ParseTaxPack(data []byte) (*domain.TaxPack, error) {
	var pack domain.TaxPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse tax pack: %w", err)
	}
	if err := ValidateTaxPack(&pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

// ValidateTaxPack checks structural completeness of a pack.
func ValidateTaxPack(pack *domain.TaxPack) error {
	if pack.Country == "" {
		return domain.NewConfigurationError("tax_pack.country", "country is required")
	}
	if pack.Year <= 0 {
		return domain.NewConfigurationError("tax_pack.year", "year is required, got %d", pack.Year)
	}
	if pack.Version == "" {
		return domain.NewConfigurationError("tax_pack.version", "version is required")
	}
	if len(pack.Sources) == 0 {
		return domain.NewConfigurationError("tax_pack.sources",
			"at least one source citation is required for %s-%d", pack.Country, pack.Year)
	}

	if err := validateBrackets("tax_pack.irpf.savings.brackets", pack.IncomeTax.Savings.Brackets, true); err != nil {
		return err
	}
	for region, brackets := range pack.IncomeTax.Foral.SavingsBracketsByRegion {
		field := fmt.Sprintf("tax_pack.irpf.foral.%s", region)
		if err := validateBrackets(field, brackets, true); err != nil {
			return err
		}
	}

	if len(pack.Wealth.Regions) == 0 {
		return domain.NewConfigurationError("tax_pack.wealth.regions",
			"at least one region is required for %s-%d", pack.Country, pack.Year)
	}
	for region, rules := range pack.Wealth.Regions {
		field := fmt.Sprintf("tax_pack.wealth.regions.%s", region)
		if rules.MinExempt.IsNegative() {
			return domain.NewConfigurationError(field+".minExempt", "cannot be negative, got %s", rules.MinExempt)
		}
		if err := validateBrackets(field+".brackets", rules.Brackets, false); err != nil {
			return err
		}
		if rules.Bonus != nil {
			if rules.Bonus.Mode != "fixedPct" {
				return domain.NewConfigurationError(field+".bonus.mode", "unknown bonus mode %q", rules.Bonus.Mode)
			}
			if rules.Bonus.Pct.IsNegative() || rules.Bonus.Pct.GreaterThan(decimal.NewFromInt(1)) {
				return domain.NewConfigurationError(field+".bonus.pct", "must be in [0, 1], got %s", rules.Bonus.Pct)
			}
		}
	}

	sr := pack.Wealth.Surcharge
	if len(sr.Brackets) > 0 {
		if sr.Threshold.LessThanOrEqual(decimal.Zero) {
			return domain.NewConfigurationError("tax_pack.wealth.isgf.threshold",
				"must be positive when surcharge brackets are defined, got %s", sr.Threshold)
		}
		if err := validateBrackets("tax_pack.wealth.isgf.brackets", sr.Brackets, false); err != nil {
			return err
		}
	}
	return nil
}

// validateBrackets checks that a progressive table is non-empty (when
// required), strictly ascending and closed by a single open top bracket.
func validateBrackets(field string, brackets []domain.TaxBracket, required bool) error {
	if len(brackets) == 0 {
		if required {
			return domain.NewConfigurationError(field, "bracket table is empty")
		}
		return nil
	}

	prev := decimal.Zero
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return domain.NewConfigurationError(field, "bracket %d rate must be in [0, 1], got %s", i, b.Rate)
		}
		if b.UpTo == nil {
			if i != len(brackets)-1 {
				return domain.NewConfigurationError(field, "bracket %d is open-ended but not last", i)
			}
			continue
		}
		if b.UpTo.LessThanOrEqual(prev) {
			return domain.NewConfigurationError(field,
				"bracket %d upper bound %s does not increase past %s", i, b.UpTo, prev)
		}
		prev = *b.UpTo
	}

	if last := brackets[len(brackets)-1]; last.UpTo != nil {
		return domain.NewConfigurationError(field, "last bracket must be open-ended")
	}
	return nil
}
