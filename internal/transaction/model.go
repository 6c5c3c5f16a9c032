// Package transaction implements the customer-facing teller transactions:
// initialization with cost estimation, confirmation as balanced ledger
// postings, and cancellation.
package transaction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// Kind is the closed enumeration of teller transaction types. The codes are
// the transaction type codes reported to the ledger.
type Kind string

const (
	KindOpenAccount     Kind = "ACCO"
	KindCloseAccount    Kind = "ACCC"
	KindAccountTransfer Kind = "ACCT"
	KindCashDeposit     Kind = "CDPT"
	KindCashWithdrawal  Kind = "CWDL"
	KindRepayment       Kind = "PPAY"
	KindCheque          Kind = "CCHQ"
)

// Kinds lists every transaction kind.
func Kinds() []Kind {
	return []Kind{
		KindOpenAccount, KindCloseAccount, KindAccountTransfer,
		KindCashDeposit, KindCashWithdrawal, KindRepayment, KindCheque,
	}
}

// ParseKind validates a kind string at the boundary.
func ParseKind(value string) (Kind, error) {
	for _, kind := range Kinds() {
		if Kind(value) == kind {
			return kind, nil
		}
	}
	return "", shared.Validationf("transaction: unknown kind %q", value)
}

// State is the teller transaction lifecycle.
type State string

const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateCanceled  State = "CANCELED"
)

// Transaction is one customer-facing teller transaction. It is owned by
// exactly one teller and immutable once confirmed or canceled.
type Transaction struct {
	ID                string
	TellerCode        string
	Kind              Kind
	TransactionDate   time.Time
	CustomerID        string
	ProductIdentifier string
	ProductCaseID     string
	CustomerAccount   string
	TargetAccount     *string
	Clerk             string
	Amount            decimal.Decimal
	State             State
}

// Cheque carries the MICR detail of a cheque transaction.
type Cheque struct {
	TransactionID  string
	ChequeNumber   string
	BranchSortCode string
	AccountNumber  string
	Drawee         string
	Drawer         string
	Payee          string
	Amount         decimal.Decimal
	DateIssued     time.Time
	OpenCheque     bool
}

// MICRIdentifier is the natural dedup key of a cheque.
func (c Cheque) MICRIdentifier() string {
	return fmt.Sprintf("%s~%s~%s", c.ChequeNumber, c.BranchSortCode, c.AccountNumber)
}

// Charge is one resolved fee owed on a transaction.
type Charge struct {
	Code          string
	Name          string
	IncomeAccount string
	Amount        decimal.Decimal
}

// Costs is the estimate returned from initialization: the principal plus
// every positive resolved charge.
type Costs struct {
	TransactionID string
	TotalAmount   decimal.Decimal
	Charges       []Charge
}

// ChargesTotal sums the resolved charges.
func (c Costs) ChargesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, charge := range c.Charges {
		total = total.Add(charge.Amount)
	}
	return total
}
