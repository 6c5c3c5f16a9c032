package transaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
)

// TellerDirectory looks up the teller owning a transaction.
type TellerDirectory interface {
	FindByCode(ctx context.Context, code string) (teller.Teller, error)
}

// AuditPort records state-changing commands.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serializes commands per teller.
type Locker interface {
	Acquire(ctx context.Context, tellerCode string) (func(context.Context) error, error)
}

// Service drives teller transactions through PENDING, CONFIRMED and CANCELED.
type Service struct {
	repo      Repository
	tellers   TellerDirectory
	costs     *CostCalculator
	processor *processor
	audit     AuditPort
	locker    Locker
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the transaction service.
func NewService(logger *slog.Logger, repo Repository, tellers TellerDirectory, costs *CostCalculator,
	ledger LedgerPort, products ProductPort, portfolio RepaymentPort, cheques ChequePort,
	audit AuditPort, locker Locker) *Service {
	return &Service{
		repo:    repo,
		tellers: tellers,
		costs:   costs,
		processor: &processor{
			ledger:    ledger,
			products:  products,
			portfolio: portfolio,
			cheques:   cheques,
			repo:      repo,
			logger:    logger,
		},
		audit:  audit,
		locker: locker,
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

// ChequeInput carries the MICR detail handed over at initialization.
type ChequeInput struct {
	ChequeNumber   string
	BranchSortCode string
	AccountNumber  string
	Drawee         string
	Drawer         string
	Payee          string
	Amount         decimal.Decimal
	DateIssued     time.Time
}

// InitializeInput carries the fields of a new teller transaction.
type InitializeInput struct {
	Kind              Kind
	TransactionDate   time.Time
	CustomerID        string
	ProductIdentifier string
	ProductCaseID     string
	CustomerAccount   string
	TargetAccount     *string
	Clerk             string
	Amount            decimal.Decimal
	Cheque            *ChequeInput
}

// Initialize validates a transaction, computes its costs and stores it in
// PENDING state. Nothing is posted yet; the returned costs are the estimate
// presented to the customer before confirmation.
func (s *Service) Initialize(ctx context.Context, tellerCode string, in InitializeInput) (Costs, error) {
	release, err := s.locker.Acquire(ctx, tellerCode)
	if err != nil {
		return Costs{}, err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.tellers.FindByCode(ctx, tellerCode)
	if err != nil {
		return Costs{}, err
	}
	if t.State != teller.StateActive {
		return Costs{}, shared.Validationf("teller %s drawer is not active", tellerCode)
	}
	if in.Amount.IsNegative() {
		return Costs{}, shared.Validationf("transaction amount must not be negative")
	}
	if in.CustomerAccount == "" {
		return Costs{}, shared.Validationf("customer account required")
	}
	if in.Kind == KindAccountTransfer && in.TargetAccount == nil {
		return Costs{}, shared.Validationf("account transfer requires a target account")
	}
	if in.Kind == KindCashWithdrawal && in.Amount.GreaterThan(t.CashdrawLimit) {
		return Costs{}, shared.Validationf("amount %s exceeds cashdraw limit %s", in.Amount, t.CashdrawLimit)
	}

	date := in.TransactionDate
	if date.IsZero() {
		date = s.now()
	}

	tx := Transaction{
		ID:                uuid.NewString(),
		TellerCode:        tellerCode,
		Kind:              in.Kind,
		TransactionDate:   date,
		CustomerID:        in.CustomerID,
		ProductIdentifier: in.ProductIdentifier,
		ProductCaseID:     in.ProductCaseID,
		CustomerAccount:   in.CustomerAccount,
		TargetAccount:     in.TargetAccount,
		Clerk:             in.Clerk,
		Amount:            in.Amount,
		State:             StatePending,
	}

	var cheque *Cheque
	if in.Kind == KindCheque {
		if in.Cheque == nil {
			return Costs{}, shared.Validationf("cheque transaction requires cheque details")
		}
		cheque = &Cheque{
			TransactionID:  tx.ID,
			ChequeNumber:   in.Cheque.ChequeNumber,
			BranchSortCode: in.Cheque.BranchSortCode,
			AccountNumber:  in.Cheque.AccountNumber,
			Drawee:         in.Cheque.Drawee,
			Drawer:         in.Cheque.Drawer,
			Payee:          in.Cheque.Payee,
			Amount:         in.Cheque.Amount,
			DateIssued:     in.Cheque.DateIssued,
		}
		if !cheque.Amount.Equal(tx.Amount) {
			return Costs{}, shared.Validationf("cheque amount %s differs from transaction amount %s", cheque.Amount, tx.Amount)
		}
		if chequeTooOld(cheque.DateIssued, date) {
			return Costs{}, shared.Validationf("cheque %s is older than %d months", cheque.MICRIdentifier(), chequeMaxAge)
		}
		used, err := s.repo.MICRInUse(ctx, cheque.ChequeNumber, cheque.BranchSortCode, cheque.AccountNumber)
		if err != nil {
			return Costs{}, err
		}
		if used {
			return Costs{}, shared.Validationf("cheque %s already used", cheque.MICRIdentifier())
		}
	}

	costs, err := s.costs.Calculate(ctx, tx)
	if err != nil {
		return Costs{}, err
	}
	if err := s.repo.Create(ctx, tx, cheque); err != nil {
		return Costs{}, err
	}
	s.record(ctx, "transaction.initialize", tx, map[string]any{"kind": string(tx.Kind), "total": costs.TotalAmount.String()})
	return costs, nil
}

// Confirm executes a pending transaction: the kind-specific builder posts the
// balanced entry and runs side effects, and only after that succeeds does the
// local state flip to CONFIRMED. A posting failure leaves the transaction
// PENDING for a retry.
func (s *Service) Confirm(ctx context.Context, tellerCode, transactionID string, chargesIncluded bool) error {
	release, err := s.locker.Acquire(ctx, tellerCode)
	if err != nil {
		return err
	}
	defer func() { _ = release(ctx) }()

	t, err := s.tellers.FindByCode(ctx, tellerCode)
	if err != nil {
		return err
	}
	tx, cheque, err := s.repo.Find(ctx, tellerCode, transactionID)
	if err != nil {
		return err
	}
	if tx.State != StatePending {
		return shared.Validationf("transaction %s is %s and cannot be confirmed", transactionID, tx.State)
	}

	costs, err := s.costs.Calculate(ctx, tx)
	if err != nil {
		return err
	}
	if err := s.processor.process(ctx, t, tx, cheque, costs, chargesIncluded); err != nil {
		return err
	}
	if err := s.repo.UpdateState(ctx, transactionID, StateConfirmed); err != nil {
		return err
	}
	s.record(ctx, "transaction.confirm", tx, map[string]any{"chargesIncluded": chargesIncluded})
	return nil
}

// Cancel drops a pending transaction without posting or side effects. The
// cheque row, if any, is removed so its MICR can be presented again.
func (s *Service) Cancel(ctx context.Context, tellerCode, transactionID string) error {
	release, err := s.locker.Acquire(ctx, tellerCode)
	if err != nil {
		return err
	}
	defer func() { _ = release(ctx) }()

	if _, err := s.tellers.FindByCode(ctx, tellerCode); err != nil {
		return err
	}
	tx, cheque, err := s.repo.Find(ctx, tellerCode, transactionID)
	if err != nil {
		return err
	}
	if tx.State != StatePending {
		return shared.Validationf("transaction %s is %s and cannot be canceled", transactionID, tx.State)
	}
	if cheque != nil {
		if err := s.repo.DeleteCheque(ctx, transactionID); err != nil {
			return err
		}
	}
	if err := s.repo.UpdateState(ctx, transactionID, StateCanceled); err != nil {
		return err
	}
	s.record(ctx, "transaction.cancel", tx, nil)
	return nil
}

// List returns the transactions of a teller, optionally filtered by state.
func (s *Service) List(ctx context.Context, tellerCode string, state State) ([]Transaction, error) {
	if _, err := s.tellers.FindByCode(ctx, tellerCode); err != nil {
		return nil, err
	}
	return s.repo.ListByTeller(ctx, tellerCode, state)
}

func (s *Service) record(ctx context.Context, action string, tx Transaction, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.UserFromContext(ctx),
		Action:   action,
		Entity:   "teller_transaction",
		EntityID: tx.ID,
		Meta:     meta,
		At:       s.now(),
	})
}
