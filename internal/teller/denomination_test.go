package teller

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// openTeller prepares a teller whose drawer has seen the given ledger
// movements since opening.
func openTeller(t *testing.T, entries ...client.AccountEntry) (*Service, *fakeRepo, *fakeLedger) {
	t.Helper()
	svc, repo, ledger, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)
	ledger.entries = entries
	return svc, repo, ledger
}

func debitEntry(amount string) client.AccountEntry {
	return client.AccountEntry{Type: client.EntryTypeDebit, TransactionDate: time.Now(), Amount: dec(amount)}
}

func creditEntry(amount string) client.AccountEntry {
	return client.AccountEntry{Type: client.EntryTypeCredit, TransactionDate: time.Now(), Amount: dec(amount)}
}

func TestSaveDenominationMatchingCountHasNoAdjustment(t *testing.T) {
	svc, repo, ledger := openTeller(t, debitEntry("500"), creditEntry("120.50"))

	d, err := svc.SaveDenomination(context.Background(), "teller-1", dec("379.50"), "end of shift")
	require.NoError(t, err)
	require.Nil(t, d.AdjustingJournalEntryID)
	require.Empty(t, ledger.posted)
	require.Len(t, repo.denominations, 1)
}

func TestSaveDenominationOverCountDebitsTellerAccount(t *testing.T) {
	svc, _, ledger := openTeller(t, debitEntry("500"))

	// counted 520 > expected 500: drawer is over, variance is negative
	d, err := svc.SaveDenomination(context.Background(), "teller-1", dec("520"), "")
	require.NoError(t, err)
	require.NotNil(t, d.AdjustingJournalEntryID)
	require.Len(t, ledger.posted, 1)

	entry := ledger.posted[0]
	require.Equal(t, "7310", entry.Debtors[0].AccountNumber)
	require.Equal(t, "7313", entry.Creditors[0].AccountNumber)
	require.True(t, entry.DebtorTotal().Equal(dec("20")))
	require.Equal(t, entry.TransactionID, *d.AdjustingJournalEntryID)
}

func TestSaveDenominationShortCountCreditsTellerAccount(t *testing.T) {
	svc, _, ledger := openTeller(t, debitEntry("500"))

	// counted 470 < expected 500: drawer is short, variance is positive
	d, err := svc.SaveDenomination(context.Background(), "teller-1", dec("470"), "")
	require.NoError(t, err)
	require.NotNil(t, d.AdjustingJournalEntryID)
	require.Len(t, ledger.posted, 1)

	entry := ledger.posted[0]
	require.Equal(t, "7313", entry.Debtors[0].AccountNumber)
	require.Equal(t, "7310", entry.Creditors[0].AccountNumber)
	require.True(t, entry.CreditorTotal().Equal(dec("30")))
}

func TestSaveDenominationUnknownTeller(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.SaveDenomination(context.Background(), "teller-9", dec("100"), "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSaveDenominationNeverOpenedTeller(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.SaveDenomination(context.Background(), "teller-1", dec("100"), "")
	require.ErrorIs(t, err, shared.ErrValidation)
}
