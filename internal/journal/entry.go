// Package journal holds the double-entry posting value types submitted to
// the external ledger. Entries are validated at construction and immutable
// afterwards; an unbalanced entry can never exist.
package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Debtor is one debit leg of an entry.
type Debtor struct {
	AccountNumber string
	Amount        decimal.Decimal
}

// Creditor is one credit leg of an entry.
type Creditor struct {
	AccountNumber string
	Amount        decimal.Decimal
}

// Entry captures a balanced posting bound for the ledger.
type Entry struct {
	TransactionID string
	Date          time.Time
	Kind          string
	Clerk         string
	Message       string
	Debtors       []Debtor
	Creditors     []Creditor
}

var (
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = errors.New("journal: debtor and creditor totals differ")
	// ErrNoLines indicates a side has no legs.
	ErrNoLines = errors.New("journal: entry requires at least one debtor and one creditor")
)

// NewEntry validates and returns an immutable entry.
func NewEntry(transactionID string, date time.Time, kind, clerk, message string, debtors []Debtor, creditors []Creditor) (Entry, error) {
	e := Entry{
		TransactionID: transactionID,
		Date:          date,
		Kind:          kind,
		Clerk:         clerk,
		Message:       message,
		Debtors:       append([]Debtor(nil), debtors...),
		Creditors:     append([]Creditor(nil), creditors...),
	}
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Transfer builds the common single-debtor single-creditor entry.
func Transfer(transactionID string, date time.Time, kind, clerk, message, debitAccount, creditAccount string, amount decimal.Decimal) (Entry, error) {
	return NewEntry(transactionID, date, kind, clerk, message,
		[]Debtor{{AccountNumber: debitAccount, Amount: amount}},
		[]Creditor{{AccountNumber: creditAccount, Amount: amount}})
}

func (e Entry) validate() error {
	if e.TransactionID == "" {
		return errors.New("journal: transaction id required")
	}
	if len(e.Debtors) == 0 || len(e.Creditors) == 0 {
		return ErrNoLines
	}
	for idx, d := range e.Debtors {
		if d.AccountNumber == "" {
			return fmt.Errorf("journal: debtor %d missing account", idx)
		}
		if !d.Amount.IsPositive() {
			return fmt.Errorf("journal: debtor %d amount must be positive", idx)
		}
	}
	for idx, c := range e.Creditors {
		if c.AccountNumber == "" {
			return fmt.Errorf("journal: creditor %d missing account", idx)
		}
		if !c.Amount.IsPositive() {
			return fmt.Errorf("journal: creditor %d amount must be positive", idx)
		}
	}
	if !e.DebtorTotal().Equal(e.CreditorTotal()) {
		return ErrUnbalanced
	}
	return nil
}

// DebtorTotal sums all debit legs.
func (e Entry) DebtorTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range e.Debtors {
		total = total.Add(d.Amount)
	}
	return total
}

// CreditorTotal sums all credit legs.
func (e Entry) CreditorTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range e.Creditors {
		total = total.Add(c.Amount)
	}
	return total
}
