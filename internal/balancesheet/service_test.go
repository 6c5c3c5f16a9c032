package balancesheet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
	"github.com/apache/fineract-cn-teller-sub000/internal/transaction"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeTellers struct {
	teller teller.Teller
}

func (f *fakeTellers) FindByCode(_ context.Context, code string) (teller.Teller, error) {
	if code != f.teller.Code {
		return teller.Teller{}, shared.NotFoundf("teller %s", code)
	}
	return f.teller, nil
}

type fakeLedger struct {
	pages []client.EntryPage
}

func (f *fakeLedger) FetchAccountEntries(_ context.Context, _ string, _, _ time.Time, page, _ int) (client.EntryPage, error) {
	if page >= len(f.pages) {
		return client.EntryPage{TotalPages: len(f.pages)}, nil
	}
	result := f.pages[page]
	result.TotalPages = len(f.pages)
	return result, nil
}

type fakeTransactions struct {
	confirmed []transaction.Transaction
}

func (f *fakeTransactions) ConfirmedByKind(_ context.Context, _ string, kind transaction.Kind, _, _ time.Time) ([]transaction.Transaction, error) {
	var out []transaction.Transaction
	for _, tx := range f.confirmed {
		if tx.Kind == kind && tx.State == transaction.StateConfirmed {
			out = append(out, tx)
		}
	}
	return out, nil
}

func openedTeller(openedAt time.Time) teller.Teller {
	return teller.Teller{
		Code:          "teller-1",
		TellerAccount: "7310",
		LastOpenedOn:  &openedAt,
	}
}

func newTestService(tellers *fakeTellers, ledger *fakeLedger, transactions *fakeTransactions) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, tellers, ledger, transactions)
}

func TestBuildClassifiesDebitsAndCredits(t *testing.T) {
	opened := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{pages: []client.EntryPage{{
		Entries: []client.AccountEntry{
			{Type: client.EntryTypeDebit, TransactionDate: opened.Add(time.Hour), Message: "Cash deposit.", Amount: dec("500")},
			{Type: client.EntryTypeCredit, TransactionDate: opened.Add(2 * time.Hour), Message: "Cash withdrawal.", Amount: dec("120")},
			{Type: client.EntryTypeDebit, TransactionDate: opened.Add(3 * time.Hour), Message: "Cash deposit.", Amount: dec("80")},
		},
	}}}
	svc := newTestService(&fakeTellers{teller: openedTeller(opened)}, ledger, &fakeTransactions{})

	report, err := svc.Build(context.Background(), "teller-1")
	require.NoError(t, err)
	require.True(t, report.CashReceivedTotal.Equal(dec("580")))
	require.True(t, report.CashDisbursedTotal.Equal(dec("120")))
	require.True(t, report.CashOnHand.Equal(dec("460")))
	require.Len(t, report.CashEntries, 3)
	require.Empty(t, report.ChequeEntries)
}

func TestBuildPagesThroughAllEntries(t *testing.T) {
	opened := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	ledger := &fakeLedger{pages: []client.EntryPage{
		{Entries: []client.AccountEntry{{Type: client.EntryTypeDebit, Amount: dec("100")}}},
		{Entries: []client.AccountEntry{{Type: client.EntryTypeDebit, Amount: dec("200")}}},
		{Entries: []client.AccountEntry{{Type: client.EntryTypeCredit, Amount: dec("50")}}},
	}}
	svc := newTestService(&fakeTellers{teller: openedTeller(opened)}, ledger, &fakeTransactions{})

	report, err := svc.Build(context.Background(), "teller-1")
	require.NoError(t, err)
	require.Len(t, report.CashEntries, 3)
	require.True(t, report.CashOnHand.Equal(dec("250")))
}

func TestBuildSumsConfirmedCheques(t *testing.T) {
	opened := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	transactions := &fakeTransactions{confirmed: []transaction.Transaction{
		{ID: "tx-1", Kind: transaction.KindCheque, State: transaction.StateConfirmed, Amount: dec("250"), TransactionDate: opened.Add(time.Hour)},
		{ID: "tx-2", Kind: transaction.KindCheque, State: transaction.StateConfirmed, Amount: dec("100"), TransactionDate: opened.Add(2 * time.Hour)},
	}}
	svc := newTestService(&fakeTellers{teller: openedTeller(opened)}, &fakeLedger{}, transactions)

	report, err := svc.Build(context.Background(), "teller-1")
	require.NoError(t, err)
	require.Len(t, report.ChequeEntries, 2)
	require.True(t, report.ChequesReceivedTotal.Equal(dec("350")))
}

func TestBuildNeverOpenedTellerReportsZeros(t *testing.T) {
	till := teller.Teller{Code: "teller-1", TellerAccount: "7310"}
	svc := newTestService(&fakeTellers{teller: till}, &fakeLedger{}, &fakeTransactions{})

	report, err := svc.Build(context.Background(), "teller-1")
	require.NoError(t, err)
	require.True(t, report.CashOnHand.IsZero())
	require.True(t, report.CashReceivedTotal.IsZero())
	require.True(t, report.CashDisbursedTotal.IsZero())
	require.True(t, report.ChequesReceivedTotal.IsZero())
	require.Empty(t, report.CashEntries)
	require.Empty(t, report.ChequeEntries)
}

func TestBuildUnknownTeller(t *testing.T) {
	svc := newTestService(&fakeTellers{teller: teller.Teller{Code: "teller-1"}}, &fakeLedger{}, &fakeTransactions{})

	_, err := svc.Build(context.Background(), "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
