package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/firesim/fire-planner/internal/domain"
)

// WriteResultJSON writes the full aggregate result as indented JSON.
func WriteResultJSON(w io.Writer, result *domain.AggregateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// WriteLedgerJSON writes a retirement ledger as indented JSON.
func WriteLedgerJSON(w io.Writer, ledger *domain.RetirementLedger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ledger); err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return nil
}
