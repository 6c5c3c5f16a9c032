// Package balancesheet derives the end-of-day cash position of a teller from
// ledger movements and confirmed cheque transactions.
package balancesheet

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
	"github.com/apache/fineract-cn-teller-sub000/internal/transaction"
)

const entryPageSize = 100

// Entry is one line of a balance sheet report.
type Entry struct {
	Type            string          `json:"type"`
	TransactionDate time.Time       `json:"transactionDate"`
	Message         string          `json:"message"`
	Amount          decimal.Decimal `json:"amount"`
}

// Report is the cash position of a teller since the drawer was last opened.
// Debit movements on the teller account are cash received into the drawer,
// credit movements cash disbursed from it.
type Report struct {
	Day                  string          `json:"day"`
	CashOnHand           decimal.Decimal `json:"cashOnHand"`
	CashReceivedTotal    decimal.Decimal `json:"cashReceivedTotal"`
	CashDisbursedTotal   decimal.Decimal `json:"cashDisbursedTotal"`
	ChequesReceivedTotal decimal.Decimal `json:"chequesReceivedTotal"`
	CashEntries          []Entry         `json:"cashEntries"`
	ChequeEntries        []Entry         `json:"chequeEntries"`
}

// TellerDirectory looks up the teller being reported on.
type TellerDirectory interface {
	FindByCode(ctx context.Context, code string) (teller.Teller, error)
}

// LedgerPort pages the movements on the teller account.
type LedgerPort interface {
	FetchAccountEntries(ctx context.Context, identifier string, from, to time.Time, page, size int) (client.EntryPage, error)
}

// TransactionsPort delivers the confirmed cheque transactions in the window.
type TransactionsPort interface {
	ConfirmedByKind(ctx context.Context, tellerCode string, kind transaction.Kind, from, to time.Time) ([]transaction.Transaction, error)
}

// Service aggregates balance sheet reports.
type Service struct {
	tellers      TellerDirectory
	ledger       LedgerPort
	transactions TransactionsPort
	logger       *slog.Logger
	now          func() time.Time
}

// NewService constructs the aggregator.
func NewService(logger *slog.Logger, tellers TellerDirectory, ledger LedgerPort, transactions TransactionsPort) *Service {
	return &Service{
		tellers:      tellers,
		ledger:       ledger,
		transactions: transactions,
		logger:       logger,
		now:          time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Build assembles the balance sheet of a teller. A teller that has never been
// opened reports an empty sheet with zero totals.
func (s *Service) Build(ctx context.Context, code string) (Report, error) {
	t, err := s.tellers.FindByCode(ctx, code)
	if err != nil {
		return Report{}, err
	}

	to := s.now()
	report := Report{
		Day:                  to.Format("2006-01-02"),
		CashOnHand:           decimal.Zero,
		CashReceivedTotal:    decimal.Zero,
		CashDisbursedTotal:   decimal.Zero,
		ChequesReceivedTotal: decimal.Zero,
	}
	if t.LastOpenedOn == nil {
		return report, nil
	}
	from := *t.LastOpenedOn

	for page := 0; ; page++ {
		entries, err := s.ledger.FetchAccountEntries(ctx, t.TellerAccount, from, to, page, entryPageSize)
		if err != nil {
			return Report{}, err
		}
		for _, entry := range entries.Entries {
			report.CashEntries = append(report.CashEntries, Entry{
				Type:            entry.Type,
				TransactionDate: entry.TransactionDate,
				Message:         entry.Message,
				Amount:          entry.Amount,
			})
			if entry.Type == client.EntryTypeDebit {
				report.CashReceivedTotal = report.CashReceivedTotal.Add(entry.Amount)
			} else {
				report.CashDisbursedTotal = report.CashDisbursedTotal.Add(entry.Amount)
			}
		}
		if page >= entries.TotalPages-1 || len(entries.Entries) == 0 {
			break
		}
	}
	report.CashOnHand = report.CashReceivedTotal.Sub(report.CashDisbursedTotal)

	cheques, err := s.transactions.ConfirmedByKind(ctx, code, transaction.KindCheque, from, to)
	if err != nil {
		return Report{}, err
	}
	for _, tx := range cheques {
		report.ChequeEntries = append(report.ChequeEntries, Entry{
			Type:            client.EntryTypeDebit,
			TransactionDate: tx.TransactionDate,
			Message:         string(tx.Kind),
			Amount:          tx.Amount,
		})
		report.ChequesReceivedTotal = report.ChequesReceivedTotal.Add(tx.Amount)
	}

	s.logger.Debug("balance sheet assembled",
		slog.String("teller", code),
		slog.String("cashOnHand", report.CashOnHand.String()),
		slog.Int("cashEntries", len(report.CashEntries)),
		slog.Int("chequeEntries", len(report.ChequeEntries)))
	return report, nil
}
