package teller

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/journal"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

const entryPageSize = 100

// SaveDenomination reconciles a physical cash count against the expected
// drawer balance and records it. When the count differs from the ledger a
// corrective entry is posted against the cash-over-short account and its
// identifier is attached to the record.
//
// Sign convention: variance = expected - counted. A negative variance means
// the drawer holds more cash than the ledger expects ("over"), so the teller
// account is debited and cash-over-short credited. A positive variance
// ("short") debits cash-over-short and credits the teller account.
func (s *Service) SaveDenomination(ctx context.Context, code string, counted decimal.Decimal, note string) (Denomination, error) {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Denomination{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Denomination{}, err
	}
	if t.LastOpenedOn == nil {
		return Denomination{}, shared.Validationf("teller %s has never been opened", code)
	}

	expected, err := s.expectedBalance(ctx, t)
	if err != nil {
		return Denomination{}, err
	}

	d := Denomination{
		ID:           uuid.NewString(),
		TellerCode:   code,
		CountedTotal: counted,
		Note:         note,
		CreatedBy:    shared.UserFromContext(ctx),
		CreatedOn:    s.now(),
	}

	variance := expected.Sub(counted)
	if !variance.IsZero() {
		debit, credit := t.CashOverShortAccount, t.TellerAccount
		if variance.IsNegative() {
			debit, credit = t.TellerAccount, t.CashOverShortAccount
		}
		entry, err := journal.Transfer(uuid.NewString(), s.now(), kindCashOverShort,
			shared.UserFromContext(ctx), "Denomination adjustment.", debit, credit, variance.Abs())
		if err != nil {
			return Denomination{}, err
		}
		if err := s.ledger.PostJournalEntry(ctx, entry); err != nil {
			return Denomination{}, shared.Conflictf("denomination adjustment rejected by ledger: %v", err)
		}
		entryID := entry.TransactionID
		d.AdjustingJournalEntryID = &entryID
		s.logger.Info("denomination variance booked",
			slog.String("teller", code),
			slog.String("expected", expected.String()),
			slog.String("counted", counted.String()),
			slog.String("variance", variance.String()))
	}

	if err := s.repo.SaveDenomination(ctx, d); err != nil {
		return Denomination{}, err
	}
	s.record(ctx, "teller.denomination", code, map[string]any{"counted": counted.String(), "variance": variance.String()})
	return d, nil
}

// Denominations lists past cash counts of a teller, newest first.
func (s *Service) Denominations(ctx context.Context, code string, page, perPage int) ([]Denomination, int, error) {
	if _, err := s.repo.FindByCode(ctx, code); err != nil {
		return nil, 0, err
	}
	return s.repo.ListDenominations(ctx, code, page, perPage)
}

// expectedBalance sums the ledger movements on the teller account since the
// drawer was last opened: debits put cash into the drawer, credits take it out.
func (s *Service) expectedBalance(ctx context.Context, t Teller) (decimal.Decimal, error) {
	balance := decimal.Zero
	for page := 0; ; page++ {
		entries, err := s.ledger.FetchAccountEntries(ctx, t.TellerAccount, *t.LastOpenedOn, s.now(), page, entryPageSize)
		if err != nil {
			return decimal.Zero, err
		}
		for _, entry := range entries.Entries {
			if entry.Type == client.EntryTypeDebit {
				balance = balance.Add(entry.Amount)
			} else {
				balance = balance.Sub(entry.Amount)
			}
		}
		if page >= entries.TotalPages-1 || len(entries.Entries) == 0 {
			return balance, nil
		}
	}
}
