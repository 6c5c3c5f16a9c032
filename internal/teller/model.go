// Package teller implements the cash drawer lifecycle: creating tellers,
// opening and closing drawers against the vault, drawer authentication and
// end-of-shift denomination reconciliation.
package teller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// State enumerates the teller lifecycle.
type State string

const (
	StateClosed State = "CLOSED"
	StateOpen   State = "OPEN"
	StateActive State = "ACTIVE"
	StatePaused State = "PAUSED"
)

// ParseState validates a state string at the boundary.
func ParseState(value string) (State, error) {
	switch State(value) {
	case StateClosed, StateOpen, StateActive, StatePaused:
		return State(value), nil
	default:
		return "", shared.Validationf("teller: unknown state %q", value)
	}
}

// Adjustment selects the drawer adjustment done while opening or closing.
type Adjustment string

const (
	AdjustmentNone   Adjustment = "NONE"
	AdjustmentDebit  Adjustment = "DEBIT"
	AdjustmentCredit Adjustment = "CREDIT"
)

// ParseAdjustment validates an adjustment string at the boundary.
func ParseAdjustment(value string) (Adjustment, error) {
	if value == "" {
		return AdjustmentNone, nil
	}
	switch Adjustment(value) {
	case AdjustmentNone, AdjustmentDebit, AdjustmentCredit:
		return Adjustment(value), nil
	default:
		return "", shared.Validationf("teller: unknown adjustment %q", value)
	}
}

// Teller is one cash drawer of an office.
type Teller struct {
	Code                     string
	OfficeID                 string
	PasswordHash             []byte
	Salt                     []byte
	CashdrawLimit            decimal.Decimal
	TellerAccount            string
	VaultAccount             string
	ChequesReceivableAccount string
	CashOverShortAccount     string
	DenominationRequired     bool
	AssignedEmployee         *string
	State                    State
	CreatedBy                string
	CreatedOn                time.Time
	ModifiedBy               *string
	ModifiedOn               *time.Time
	LastOpenedBy             *string
	LastOpenedOn             *time.Time
}

// validateAccounts enforces that a teller always references four distinct
// accounting accounts.
func validateAccounts(tellerAccount, vaultAccount, chequesReceivable, cashOverShort string) error {
	accounts := map[string]string{
		"teller account":             tellerAccount,
		"vault account":              vaultAccount,
		"cheques receivable account": chequesReceivable,
		"cash over short account":    cashOverShort,
	}
	seen := make(map[string]string, len(accounts))
	for name, identifier := range accounts {
		if identifier == "" {
			return shared.Validationf("teller: %s required", name)
		}
		if other, ok := seen[identifier]; ok {
			return shared.Validationf("teller: %s and %s must be distinct", other, name)
		}
		seen[identifier] = name
	}
	return nil
}

// Denomination is one physical cash count reconciled against the ledger.
// Records are created once and never mutated.
type Denomination struct {
	ID                      string
	TellerCode              string
	CountedTotal            decimal.Decimal
	Note                    string
	AdjustingJournalEntryID *string
	CreatedBy               string
	CreatedOn               time.Time
}
