package teller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/journal"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// Transaction type codes reported to the ledger for drawer management postings.
const (
	kindDrawerAdjustment = "ATMX"
	kindCashOverShort    = "CSOS"
)

// LedgerPort is the slice of the accounting service the lifecycle needs.
type LedgerPort interface {
	FindAccount(ctx context.Context, identifier string) (client.Account, error)
	PostJournalEntry(ctx context.Context, entry journal.Entry) error
	FetchAccountEntries(ctx context.Context, identifier string, from, to time.Time, page, size int) (client.EntryPage, error)
}

// OrganizationPort checks offices and employees.
type OrganizationPort interface {
	OfficeExists(ctx context.Context, officeID string) (bool, error)
	EmployeeExists(ctx context.Context, employeeID string) (bool, error)
	RegisterTellerReference(ctx context.Context, officeID string) error
}

// AuditPort records state-changing commands.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serializes commands per teller.
type Locker interface {
	Acquire(ctx context.Context, tellerCode string) (func(context.Context) error, error)
}

// Service drives the teller lifecycle state machine.
type Service struct {
	repo   Repository
	ledger LedgerPort
	org    OrganizationPort
	audit  AuditPort
	locker Locker
	crypto DrawerCrypto
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the lifecycle service.
func NewService(logger *slog.Logger, repo Repository, ledger LedgerPort, org OrganizationPort, audit AuditPort, locker Locker, crypto DrawerCrypto) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		org:    org,
		audit:  audit,
		locker: locker,
		crypto: crypto,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput carries the fields needed to set up a teller.
type CreateInput struct {
	Code                     string
	OfficeID                 string
	Password                 string
	CashdrawLimit            decimal.Decimal
	TellerAccount            string
	VaultAccount             string
	ChequesReceivableAccount string
	CashOverShortAccount     string
	DenominationRequired     bool
}

// Create persists a new teller in CLOSED state after validating that the
// office and both drawer accounts exist.
func (s *Service) Create(ctx context.Context, in CreateInput) (Teller, error) {
	if in.Code == "" {
		return Teller{}, shared.Validationf("teller: code required")
	}
	if in.Password == "" {
		return Teller{}, shared.Validationf("teller: password required")
	}
	if in.CashdrawLimit.IsNegative() {
		return Teller{}, shared.Validationf("teller: cashdraw limit must not be negative")
	}
	if err := validateAccounts(in.TellerAccount, in.VaultAccount, in.ChequesReceivableAccount, in.CashOverShortAccount); err != nil {
		return Teller{}, err
	}
	if err := s.checkPreconditions(ctx, in.OfficeID, in.TellerAccount, in.VaultAccount); err != nil {
		return Teller{}, err
	}

	salt, err := s.crypto.GenerateSalt()
	if err != nil {
		return Teller{}, err
	}
	t := Teller{
		Code:                     in.Code,
		OfficeID:                 in.OfficeID,
		PasswordHash:             s.crypto.Hash(in.Password, salt),
		Salt:                     salt,
		CashdrawLimit:            in.CashdrawLimit,
		TellerAccount:            in.TellerAccount,
		VaultAccount:             in.VaultAccount,
		ChequesReceivableAccount: in.ChequesReceivableAccount,
		CashOverShortAccount:     in.CashOverShortAccount,
		DenominationRequired:     in.DenominationRequired,
		State:                    StateClosed,
		CreatedBy:                shared.UserFromContext(ctx),
		CreatedOn:                s.now(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Teller{}, err
	}
	if err := s.org.RegisterTellerReference(ctx, in.OfficeID); err != nil {
		s.logger.Warn("register teller reference", slog.String("office", in.OfficeID), slog.Any("error", err))
	}
	s.record(ctx, "teller.create", t.Code, nil)
	return t, nil
}

// ChangeInput carries the mutable teller attributes.
type ChangeInput struct {
	CashdrawLimit            decimal.Decimal
	TellerAccount            string
	VaultAccount             string
	ChequesReceivableAccount string
	CashOverShortAccount     string
	DenominationRequired     bool
	// Password is optional; when set the drawer credential is re-hashed.
	Password string
}

// Change updates teller attributes. It never touches the assigned employee
// or the lifecycle state.
func (s *Service) Change(ctx context.Context, code string, in ChangeInput) (Teller, error) {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	if in.CashdrawLimit.IsNegative() {
		return Teller{}, shared.Validationf("teller: cashdraw limit must not be negative")
	}
	if err := validateAccounts(in.TellerAccount, in.VaultAccount, in.ChequesReceivableAccount, in.CashOverShortAccount); err != nil {
		return Teller{}, err
	}
	t.CashdrawLimit = in.CashdrawLimit
	t.TellerAccount = in.TellerAccount
	t.VaultAccount = in.VaultAccount
	t.ChequesReceivableAccount = in.ChequesReceivableAccount
	t.CashOverShortAccount = in.CashOverShortAccount
	t.DenominationRequired = in.DenominationRequired
	if in.Password != "" {
		salt, err := s.crypto.GenerateSalt()
		if err != nil {
			return Teller{}, err
		}
		t.Salt = salt
		t.PasswordHash = s.crypto.Hash(in.Password, salt)
	}
	s.touch(ctx, &t)
	if err := s.repo.Update(ctx, t); err != nil {
		return Teller{}, err
	}
	s.record(ctx, "teller.change", t.Code, nil)
	return t, nil
}

// Open moves a CLOSED teller to OPEN, optionally posting a drawer adjustment
// between the teller account and the vault before any state changes.
func (s *Service) Open(ctx context.Context, code, employeeID string, adjustment Adjustment, amount decimal.Decimal) (Teller, error) {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	if t.State != StateClosed {
		return Teller{}, shared.Validationf("teller %s is already open", code)
	}
	if err := s.checkPreconditions(ctx, t.OfficeID, t.TellerAccount, t.VaultAccount); err != nil {
		return Teller{}, err
	}
	exists, err := s.org.EmployeeExists(ctx, employeeID)
	if err != nil {
		return Teller{}, err
	}
	if !exists {
		return Teller{}, shared.Validationf("employee %s not found", employeeID)
	}
	if adjustment != AdjustmentNone && amount.GreaterThan(t.CashdrawLimit) {
		return Teller{}, shared.Validationf("amount %s exceeds cashdraw limit %s", amount, t.CashdrawLimit)
	}
	if err := s.postAdjustment(ctx, t, adjustment, amount); err != nil {
		return Teller{}, err
	}

	now := s.now()
	t.AssignedEmployee = &employeeID
	t.State = StateOpen
	t.LastOpenedBy = &employeeID
	t.LastOpenedOn = &now
	s.touch(ctx, &t)
	if err := s.repo.Update(ctx, t); err != nil {
		return Teller{}, err
	}
	s.record(ctx, "teller.open", t.Code, map[string]any{"employee": employeeID, "adjustment": string(adjustment)})
	return t, nil
}

// Close moves an OPEN, ACTIVE or PAUSED teller back to CLOSED, optionally
// posting a symmetric drawer adjustment first.
func (s *Service) Close(ctx context.Context, code string, adjustment Adjustment, amount decimal.Decimal) (Teller, error) {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	if t.State == StateClosed {
		return Teller{}, shared.Validationf("teller %s is already closed", code)
	}
	if err := s.postAdjustment(ctx, t, adjustment, amount); err != nil {
		return Teller{}, err
	}

	t.AssignedEmployee = nil
	t.State = StateClosed
	s.touch(ctx, &t)
	if err := s.repo.Update(ctx, t); err != nil {
		return Teller{}, err
	}
	s.record(ctx, "teller.close", t.Code, map[string]any{"adjustment": string(adjustment)})
	return t, nil
}

// UnlockDrawer authenticates the assigned employee against the drawer
// credential and moves the teller to ACTIVE. Every failure mode returns the
// identical not-found error so callers cannot distinguish a wrong password
// from an unknown teller.
func (s *Service) UnlockDrawer(ctx context.Context, code, employeeID, password string) (Teller, error) {
	denied := shared.NotFoundf("teller %s", code)

	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Teller{}, denied
	}
	if t.State == StateClosed {
		return Teller{}, denied
	}
	if t.AssignedEmployee == nil || *t.AssignedEmployee != employeeID {
		return Teller{}, denied
	}
	if !s.crypto.Verify(password, t.Salt, t.PasswordHash) {
		return Teller{}, denied
	}

	t.State = StateActive
	s.touch(ctx, &t)
	if err := s.repo.Update(ctx, t); err != nil {
		return Teller{}, err
	}
	s.record(ctx, "teller.unlock", t.Code, map[string]any{"employee": employeeID})
	return t, nil
}

// Pause moves an ACTIVE teller to PAUSED for the assigned employee.
func (s *Service) Pause(ctx context.Context, code, employeeID string) (Teller, error) {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return Teller{}, err
	}
	if t.State != StateActive {
		s.logger.Warn("pause rejected, teller not active", slog.String("teller", code), slog.String("state", string(t.State)))
		return Teller{}, shared.Validationf("teller %s is not active", code)
	}
	if t.AssignedEmployee == nil || *t.AssignedEmployee != employeeID {
		s.logger.Warn("pause rejected, employee not assigned", slog.String("teller", code), slog.String("employee", employeeID))
		return Teller{}, shared.Validationf("employee %s is not assigned to teller %s", employeeID, code)
	}

	t.State = StatePaused
	s.touch(ctx, &t)
	if err := s.repo.Update(ctx, t); err != nil {
		return Teller{}, err
	}
	s.record(ctx, "teller.pause", t.Code, map[string]any{"employee": employeeID})
	return t, nil
}

// Delete removes a CLOSED teller that has no pending transactions.
func (s *Service) Delete(ctx context.Context, code string) error {
	release, err := s.locker.Acquire(ctx, code)
	if err != nil {
		return err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if t.State != StateClosed {
		return shared.Validationf("teller %s must be closed before deletion", code)
	}
	pending, err := s.repo.PendingTransactionCount(ctx, code)
	if err != nil {
		return err
	}
	if pending > 0 {
		return shared.Validationf("teller %s still owns %d pending transactions", code, pending)
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return err
	}
	s.record(ctx, "teller.delete", code, nil)
	return nil
}

// Find fetches one teller by code.
func (s *Service) Find(ctx context.Context, code string) (Teller, error) {
	return s.repo.FindByCode(ctx, code)
}

// FindByOffice lists the tellers of an office.
func (s *Service) FindByOffice(ctx context.Context, officeID string) ([]Teller, error) {
	return s.repo.FindByOffice(ctx, officeID)
}

// checkPreconditions re-validates the collaborator-backed invariants shared
// by create and open: the office and both drawer accounts must exist.
func (s *Service) checkPreconditions(ctx context.Context, officeID, tellerAccount, vaultAccount string) error {
	exists, err := s.org.OfficeExists(ctx, officeID)
	if err != nil {
		return err
	}
	if !exists {
		return shared.Validationf("office %s not found", officeID)
	}
	if _, err := s.ledger.FindAccount(ctx, tellerAccount); err != nil {
		return shared.Validationf("teller account %s not found", tellerAccount)
	}
	if _, err := s.ledger.FindAccount(ctx, vaultAccount); err != nil {
		return shared.Validationf("vault account %s not found", vaultAccount)
	}
	return nil
}

// postAdjustment builds and submits the drawer adjustment entry. A DEBIT
// adjustment moves cash from the vault into the drawer, a CREDIT adjustment
// returns it. Nothing is posted for NONE or a non-positive amount.
func (s *Service) postAdjustment(ctx context.Context, t Teller, adjustment Adjustment, amount decimal.Decimal) error {
	if adjustment == AdjustmentNone || !amount.IsPositive() {
		return nil
	}
	debit, credit := t.TellerAccount, t.VaultAccount
	if adjustment == AdjustmentCredit {
		debit, credit = t.VaultAccount, t.TellerAccount
	}
	entry, err := journal.Transfer(uuid.NewString(), s.now(), kindDrawerAdjustment,
		shared.UserFromContext(ctx), "Teller drawer adjustment.", debit, credit, amount)
	if err != nil {
		return err
	}
	if err := s.ledger.PostJournalEntry(ctx, entry); err != nil {
		return shared.Conflictf("drawer adjustment rejected by ledger: %v", err)
	}
	return nil
}

func (s *Service) touch(ctx context.Context, t *Teller) {
	user := shared.UserFromContext(ctx)
	now := s.now()
	t.ModifiedBy = &user
	t.ModifiedOn = &now
}

func (s *Service) record(ctx context.Context, action, tellerCode string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.UserFromContext(ctx),
		Action:   action,
		Entity:   "teller",
		EntityID: tellerCode,
		Meta:     meta,
		At:       s.now(),
	})
}
