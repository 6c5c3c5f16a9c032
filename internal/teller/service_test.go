package teller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/journal"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeRepo struct {
	tellers       map[string]Teller
	denominations []Denomination
	pending       int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{tellers: make(map[string]Teller)}
}

func (r *fakeRepo) Create(_ context.Context, t Teller) error {
	r.tellers[t.Code] = t
	return nil
}

func (r *fakeRepo) FindByCode(_ context.Context, code string) (Teller, error) {
	t, ok := r.tellers[code]
	if !ok {
		return Teller{}, shared.NotFoundf("teller %s", code)
	}
	return t, nil
}

func (r *fakeRepo) FindByOffice(_ context.Context, officeID string) ([]Teller, error) {
	var out []Teller
	for _, t := range r.tellers {
		if t.OfficeID == officeID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, t Teller) error {
	if _, ok := r.tellers[t.Code]; !ok {
		return shared.NotFoundf("teller %s", t.Code)
	}
	r.tellers[t.Code] = t
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, code string) error {
	delete(r.tellers, code)
	return nil
}

func (r *fakeRepo) PendingTransactionCount(_ context.Context, _ string) (int, error) {
	return r.pending, nil
}

func (r *fakeRepo) SaveDenomination(_ context.Context, d Denomination) error {
	r.denominations = append(r.denominations, d)
	return nil
}

func (r *fakeRepo) ListDenominations(_ context.Context, _ string, _, _ int) ([]Denomination, int, error) {
	return r.denominations, len(r.denominations), nil
}

type fakeLedger struct {
	accounts map[string]client.Account
	posted   []journal.Entry
	entries  []client.AccountEntry
	postErr  error
}

func newFakeLedger(accounts ...string) *fakeLedger {
	l := &fakeLedger{accounts: make(map[string]client.Account)}
	for _, a := range accounts {
		l.accounts[a] = client.Account{Identifier: a, State: client.AccountStateOpen}
	}
	return l
}

func (l *fakeLedger) FindAccount(_ context.Context, identifier string) (client.Account, error) {
	account, ok := l.accounts[identifier]
	if !ok {
		return client.Account{}, shared.NotFoundf("account %s", identifier)
	}
	return account, nil
}

func (l *fakeLedger) PostJournalEntry(_ context.Context, entry journal.Entry) error {
	if l.postErr != nil {
		return l.postErr
	}
	l.posted = append(l.posted, entry)
	return nil
}

func (l *fakeLedger) FetchAccountEntries(_ context.Context, _ string, _, _ time.Time, page, _ int) (client.EntryPage, error) {
	if page > 0 {
		return client.EntryPage{TotalPages: 1}, nil
	}
	return client.EntryPage{Entries: l.entries, TotalPages: 1, TotalElements: int64(len(l.entries))}, nil
}

type fakeOrg struct {
	offices   map[string]bool
	employees map[string]bool
}

func newFakeOrg(office, employee string) *fakeOrg {
	return &fakeOrg{
		offices:   map[string]bool{office: true},
		employees: map[string]bool{employee: true},
	}
}

func (o *fakeOrg) OfficeExists(_ context.Context, id string) (bool, error)   { return o.offices[id], nil }
func (o *fakeOrg) EmployeeExists(_ context.Context, id string) (bool, error) { return o.employees[id], nil }
func (o *fakeOrg) RegisterTellerReference(_ context.Context, _ string) error { return nil }

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeLedger, *fakeOrg) {
	t.Helper()
	repo := newFakeRepo()
	ledger := newFakeLedger("7310", "7311", "7312", "7313")
	org := newFakeOrg("office-1", "employee-1")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, ledger, org, nil, nopLocker{}, DefaultDrawerCrypto())
	return svc, repo, ledger, org
}

func createInput() CreateInput {
	return CreateInput{
		Code:                     "teller-1",
		OfficeID:                 "office-1",
		Password:                 "drawer-secret",
		CashdrawLimit:            dec("10000"),
		TellerAccount:            "7310",
		VaultAccount:             "7311",
		ChequesReceivableAccount: "7312",
		CashOverShortAccount:     "7313",
	}
}

func TestCreateStartsClosed(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	require.Equal(t, StateClosed, created.State)
	require.Nil(t, created.AssignedEmployee)
	require.NotEmpty(t, created.Salt)
	require.NotEmpty(t, created.PasswordHash)
	require.Contains(t, repo.tellers, "teller-1")
}

func TestCreateRejectsDuplicateAccounts(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	in := createInput()
	in.VaultAccount = in.TellerAccount
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRejectsUnknownOffice(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	in := createInput()
	in.OfficeID = "nowhere"
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "office")
}

func TestOpenWithDebitAdjustmentPostsEntry(t *testing.T) {
	svc, _, ledger, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	opened, err := svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentDebit, dec("1100"))
	require.NoError(t, err)
	require.Equal(t, StateOpen, opened.State)
	require.NotNil(t, opened.AssignedEmployee)
	require.Equal(t, "employee-1", *opened.AssignedEmployee)
	require.NotNil(t, opened.LastOpenedOn)

	require.Len(t, ledger.posted, 1)
	entry := ledger.posted[0]
	require.Equal(t, "7310", entry.Debtors[0].AccountNumber)
	require.Equal(t, "7311", entry.Creditors[0].AccountNumber)
	require.True(t, entry.DebtorTotal().Equal(dec("1100")))
	require.True(t, entry.DebtorTotal().Equal(entry.CreditorTotal()))
}

func TestOpenExceedingCashdrawLimitRejectedBeforePosting(t *testing.T) {
	svc, _, ledger, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentDebit, dec("10000.01"))
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, ledger.posted)
}

func TestOpenAlreadyOpenRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCloseWithCreditAdjustment(t *testing.T) {
	svc, _, ledger, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), "teller-1", AdjustmentCredit, dec("250"))
	require.NoError(t, err)
	require.Equal(t, StateClosed, closed.State)
	require.Nil(t, closed.AssignedEmployee)

	require.Len(t, ledger.posted, 1)
	entry := ledger.posted[0]
	require.Equal(t, "7311", entry.Debtors[0].AccountNumber)
	require.Equal(t, "7310", entry.Creditors[0].AccountNumber)
}

func TestCloseAlreadyClosedRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), "teller-1", AdjustmentNone, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUnlockDrawer(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	unlocked, err := svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "drawer-secret")
	require.NoError(t, err)
	require.Equal(t, StateActive, unlocked.State)
}

func TestUnlockDrawerFailureModesAreIndistinguishable(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	_, wrongPassword := svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "nope")
	_, wrongEmployee := svc.UnlockDrawer(context.Background(), "teller-1", "employee-2", "drawer-secret")
	_, unknownTeller := svc.UnlockDrawer(context.Background(), "teller-9", "employee-1", "drawer-secret")

	require.ErrorIs(t, wrongPassword, shared.ErrNotFound)
	require.ErrorIs(t, wrongEmployee, shared.ErrNotFound)
	require.ErrorIs(t, unknownTeller, shared.ErrNotFound)
	require.Equal(t, wrongPassword.Error(), wrongEmployee.Error())

	// A closed drawer denies the same way.
	_, err = svc.Close(context.Background(), "teller-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)
	_, closedTeller := svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "drawer-secret")
	require.ErrorIs(t, closedTeller, shared.ErrNotFound)
	require.Equal(t, wrongPassword.Error(), closedTeller.Error())
}

func TestPauseOnlyFromActive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	_, err = svc.Pause(context.Background(), "teller-1", "employee-1")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "drawer-secret")
	require.NoError(t, err)

	_, err = svc.Pause(context.Background(), "teller-1", "employee-2")
	require.ErrorIs(t, err, shared.ErrValidation)

	paused, err := svc.Pause(context.Background(), "teller-1", "employee-1")
	require.NoError(t, err)
	require.Equal(t, StatePaused, paused.State)
}

func TestPausedDrawerCanBeUnlockedAgain(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)
	_, err = svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "drawer-secret")
	require.NoError(t, err)
	_, err = svc.Pause(context.Background(), "teller-1", "employee-1")
	require.NoError(t, err)

	unlocked, err := svc.UnlockDrawer(context.Background(), "teller-1", "employee-1", "drawer-secret")
	require.NoError(t, err)
	require.Equal(t, StateActive, unlocked.State)
}

func TestDeleteRequiresClosedAndNoPending(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "teller-1")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Close(context.Background(), "teller-1", AdjustmentNone, decimal.Zero)
	require.NoError(t, err)
	repo.pending = 1
	err = svc.Delete(context.Background(), "teller-1")
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.pending = 0
	require.NoError(t, svc.Delete(context.Background(), "teller-1"))
	require.NotContains(t, repo.tellers, "teller-1")
}

func TestLedgerFailureAbortsOpen(t *testing.T) {
	svc, repo, ledger, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createInput())
	require.NoError(t, err)
	ledger.postErr = shared.Conflictf("ledger unavailable")

	_, err = svc.Open(context.Background(), "teller-1", "employee-1", AdjustmentDebit, dec("100"))
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, StateClosed, repo.tellers["teller-1"].State)
}
