package transaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
	"github.com/apache/fineract-cn-teller-sub000/internal/journal"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
	"github.com/apache/fineract-cn-teller-sub000/internal/teller"
)

// chequeMaxAge is the staleness horizon for deposited cheques.
const chequeMaxAge = 6 // months

// LedgerPort is the slice of the accounting service the processor needs.
type LedgerPort interface {
	FindAccount(ctx context.Context, identifier string) (client.Account, error)
	PostJournalEntry(ctx context.Context, entry journal.Entry) error
	OpenAccount(ctx context.Context, identifier string) error
	CloseAccount(ctx context.Context, identifier string) error
	ResolveAccountIdentifier(ctx context.Context, reference string) (string, error)
}

// ProductPort manages deposit product instances.
type ProductPort interface {
	FindProductDefinition(ctx context.Context, identifier string) (client.ProductDefinition, error)
	FindProductInstance(ctx context.Context, accountIdentifier string) (client.ProductInstance, error)
	ActivateProductInstance(ctx context.Context, accountIdentifier string) error
	CloseProductInstance(ctx context.Context, accountIdentifier string) error
	MarkTransacted(ctx context.Context, accountIdentifier string) error
}

// RepaymentPort submits loan repayments.
type RepaymentPort interface {
	ProcessRepayment(ctx context.Context, productID, caseID, tellerAccount string, amount decimal.Decimal) error
}

// ChequePort hands cheques to clearance.
type ChequePort interface {
	Process(ctx context.Context, cheque client.ChequeTransaction) error
	ChequeExists(ctx context.Context, micrIdentifier string) (bool, error)
}

// processor routes a confirmed transaction to its kind-specific builder.
// Each builder validates collaborator state, constructs the balanced entry,
// submits it, and runs the kind's side effects. Local transaction state is
// never touched here; the caller flips PENDING to CONFIRMED only after the
// builder returns without error.
type processor struct {
	ledger    LedgerPort
	products  ProductPort
	portfolio RepaymentPort
	cheques   ChequePort
	repo      Repository
	logger    *slog.Logger
}

func (p *processor) process(ctx context.Context, t teller.Teller, tx Transaction, cheque *Cheque, costs Costs, chargesIncluded bool) error {
	switch tx.Kind {
	case KindCashDeposit:
		return p.confirmDeposit(ctx, t, tx, costs, chargesIncluded)
	case KindCashWithdrawal:
		return p.confirmWithdrawal(ctx, t, tx, costs, chargesIncluded)
	case KindAccountTransfer:
		return p.confirmTransfer(ctx, t, tx, costs, chargesIncluded)
	case KindOpenAccount:
		return p.confirmOpenAccount(ctx, t, tx, costs, chargesIncluded)
	case KindCloseAccount:
		return p.confirmCloseAccount(ctx, t, tx, costs, chargesIncluded)
	case KindRepayment:
		return p.confirmRepayment(ctx, t, tx)
	case KindCheque:
		return p.confirmCheque(ctx, t, tx, cheque)
	default:
		return shared.Validationf("transaction %s has unknown kind %q", tx.ID, tx.Kind)
	}
}

// chargeParty returns the account charged for fees under the selected policy:
// the teller's own account when charges are included, the customer account
// when they are excluded.
func chargeParty(t teller.Teller, tx Transaction, chargesIncluded bool) string {
	if chargesIncluded {
		return t.TellerAccount
	}
	return tx.CustomerAccount
}

// chargeLegs appends one debit leg on the paying party and one credit leg on
// the income account for every charge.
func chargeLegs(debtors []journal.Debtor, creditors []journal.Creditor, costs Costs, payingAccount string) ([]journal.Debtor, []journal.Creditor) {
	for _, charge := range costs.Charges {
		debtors = append(debtors, journal.Debtor{AccountNumber: payingAccount, Amount: charge.Amount})
		creditors = append(creditors, journal.Creditor{AccountNumber: charge.IncomeAccount, Amount: charge.Amount})
	}
	return debtors, creditors
}

func (p *processor) requireOpenAccount(ctx context.Context, identifier string) (client.Account, error) {
	account, err := p.ledger.FindAccount(ctx, identifier)
	if err != nil {
		return client.Account{}, err
	}
	if account.State != client.AccountStateOpen {
		return client.Account{}, shared.Conflictf("account %s is not open", identifier)
	}
	return account, nil
}

func (p *processor) post(ctx context.Context, tx Transaction, message string, debtors []journal.Debtor, creditors []journal.Creditor) error {
	entry, err := journal.NewEntry(tx.ID, tx.TransactionDate, string(tx.Kind), tx.Clerk, message, debtors, creditors)
	if err != nil {
		return err
	}
	if err := p.ledger.PostJournalEntry(ctx, entry); err != nil {
		return shared.Conflictf("ledger rejected transaction %s: %v", tx.ID, err)
	}
	return nil
}

// markTransacted is a post-posting notification; its failure must not undo a
// successful posting, so it is logged and swallowed.
func (p *processor) markTransacted(ctx context.Context, accountIdentifier string) {
	if err := p.products.MarkTransacted(ctx, accountIdentifier); err != nil {
		p.logger.Warn("mark product instance transacted", slog.String("account", accountIdentifier), slog.Any("error", err))
	}
}

func (p *processor) confirmDeposit(ctx context.Context, t teller.Teller, tx Transaction, costs Costs, chargesIncluded bool) error {
	if costs.TotalAmount.IsZero() {
		return nil
	}
	if _, err := p.requireOpenAccount(ctx, tx.CustomerAccount); err != nil {
		return err
	}
	debtors := []journal.Debtor{{AccountNumber: t.TellerAccount, Amount: tx.Amount}}
	creditors := []journal.Creditor{{AccountNumber: tx.CustomerAccount, Amount: tx.Amount}}
	debtors, creditors = chargeLegs(debtors, creditors, costs, chargeParty(t, tx, chargesIncluded))
	if err := p.post(ctx, tx, "Cash deposit.", debtors, creditors); err != nil {
		return err
	}
	p.markTransacted(ctx, tx.CustomerAccount)
	return nil
}

func (p *processor) confirmWithdrawal(ctx context.Context, t teller.Teller, tx Transaction, costs Costs, chargesIncluded bool) error {
	if costs.TotalAmount.IsZero() {
		return nil
	}
	account, err := p.requireOpenAccount(ctx, tx.CustomerAccount)
	if err != nil {
		return err
	}
	required := tx.Amount
	if !chargesIncluded {
		required = required.Add(costs.ChargesTotal())
	}
	if account.Balance.LessThan(required) {
		return shared.Conflictf("account %s balance %s does not cover %s", tx.CustomerAccount, account.Balance, required)
	}
	debtors := []journal.Debtor{{AccountNumber: tx.CustomerAccount, Amount: tx.Amount}}
	creditors := []journal.Creditor{{AccountNumber: t.TellerAccount, Amount: tx.Amount}}
	debtors, creditors = chargeLegs(debtors, creditors, costs, chargeParty(t, tx, chargesIncluded))
	if err := p.post(ctx, tx, "Cash withdrawal.", debtors, creditors); err != nil {
		return err
	}
	p.markTransacted(ctx, tx.CustomerAccount)
	return nil
}

func (p *processor) confirmTransfer(ctx context.Context, t teller.Teller, tx Transaction, costs Costs, chargesIncluded bool) error {
	if costs.TotalAmount.IsZero() {
		return nil
	}
	if tx.TargetAccount == nil {
		return shared.Validationf("transaction %s has no target account", tx.ID)
	}
	account, err := p.requireOpenAccount(ctx, tx.CustomerAccount)
	if err != nil {
		return err
	}
	if _, err := p.requireOpenAccount(ctx, *tx.TargetAccount); err != nil {
		return err
	}
	required := tx.Amount
	if !chargesIncluded {
		required = required.Add(costs.ChargesTotal())
	}
	if account.Balance.LessThan(required) {
		return shared.Conflictf("account %s balance %s does not cover %s", tx.CustomerAccount, account.Balance, required)
	}
	debtors := []journal.Debtor{{AccountNumber: tx.CustomerAccount, Amount: tx.Amount}}
	creditors := []journal.Creditor{{AccountNumber: *tx.TargetAccount, Amount: tx.Amount}}
	debtors, creditors = chargeLegs(debtors, creditors, costs, chargeParty(t, tx, chargesIncluded))
	if err := p.post(ctx, tx, "Account transfer.", debtors, creditors); err != nil {
		return err
	}
	p.markTransacted(ctx, tx.CustomerAccount)
	return nil
}

func (p *processor) confirmOpenAccount(ctx context.Context, t teller.Teller, tx Transaction, costs Costs, chargesIncluded bool) error {
	definition, err := p.products.FindProductDefinition(ctx, tx.ProductIdentifier)
	if err != nil {
		return err
	}
	if tx.Amount.LessThan(definition.MinimumBalance) {
		return shared.Validationf("initial deposit %s is below the product minimum balance %s", tx.Amount, definition.MinimumBalance)
	}
	// The onboarding flow must have provisioned an instance for the account
	// before the teller can fund and activate it.
	if _, err := p.products.FindProductInstance(ctx, tx.CustomerAccount); err != nil {
		return shared.Conflictf("no product instance for account %s: %v", tx.CustomerAccount, err)
	}
	if !costs.TotalAmount.IsZero() {
		debtors := []journal.Debtor{{AccountNumber: t.TellerAccount, Amount: tx.Amount}}
		creditors := []journal.Creditor{{AccountNumber: tx.CustomerAccount, Amount: tx.Amount}}
		debtors, creditors = chargeLegs(debtors, creditors, costs, chargeParty(t, tx, chargesIncluded))
		if err := p.post(ctx, tx, "Account opening.", debtors, creditors); err != nil {
			return err
		}
	}
	if err := p.ledger.OpenAccount(ctx, tx.CustomerAccount); err != nil {
		return shared.Conflictf("open ledger account %s: %v", tx.CustomerAccount, err)
	}
	if err := p.products.ActivateProductInstance(ctx, tx.CustomerAccount); err != nil {
		return shared.Conflictf("activate product instance %s: %v", tx.CustomerAccount, err)
	}
	return nil
}

func (p *processor) confirmCloseAccount(ctx context.Context, t teller.Teller, tx Transaction, costs Costs, chargesIncluded bool) error {
	account, err := p.requireOpenAccount(ctx, tx.CustomerAccount)
	if err != nil {
		return err
	}
	required := tx.Amount
	if !chargesIncluded {
		required = required.Add(costs.ChargesTotal())
	}
	if account.Balance.LessThan(required) {
		return shared.Conflictf("account %s balance %s does not cover %s", tx.CustomerAccount, account.Balance, required)
	}
	if account.Balance.GreaterThan(required) {
		return shared.Conflictf("account %s still carries a balance after closing payout", tx.CustomerAccount)
	}
	if !costs.TotalAmount.IsZero() {
		debtors := []journal.Debtor{{AccountNumber: tx.CustomerAccount, Amount: tx.Amount}}
		creditors := []journal.Creditor{{AccountNumber: t.TellerAccount, Amount: tx.Amount}}
		debtors, creditors = chargeLegs(debtors, creditors, costs, chargeParty(t, tx, chargesIncluded))
		if err := p.post(ctx, tx, "Account closing.", debtors, creditors); err != nil {
			return err
		}
	}
	if err := p.ledger.CloseAccount(ctx, tx.CustomerAccount); err != nil {
		return shared.Conflictf("close ledger account %s: %v", tx.CustomerAccount, err)
	}
	if err := p.products.CloseProductInstance(ctx, tx.CustomerAccount); err != nil {
		return shared.Conflictf("close product instance %s: %v", tx.CustomerAccount, err)
	}
	return nil
}

func (p *processor) confirmRepayment(ctx context.Context, t teller.Teller, tx Transaction) error {
	if err := p.portfolio.ProcessRepayment(ctx, tx.ProductIdentifier, tx.ProductCaseID, t.TellerAccount, tx.Amount); err != nil {
		return shared.Conflictf("portfolio rejected repayment for transaction %s: %v", tx.ID, err)
	}
	return nil
}

func (p *processor) confirmCheque(ctx context.Context, t teller.Teller, tx Transaction, cheque *Cheque) error {
	if cheque == nil {
		return shared.Validationf("transaction %s carries no cheque", tx.ID)
	}
	if chequeTooOld(cheque.DateIssued, tx.TransactionDate) {
		return shared.Validationf("cheque %s is older than %d months", cheque.MICRIdentifier(), chequeMaxAge)
	}

	// A cheque already known to clearance was issued by this institution.
	open, err := p.cheques.ChequeExists(ctx, cheque.MICRIdentifier())
	if err != nil {
		return err
	}
	if open != cheque.OpenCheque {
		if err := p.repo.SetChequeOpenFlag(ctx, tx.ID, open); err != nil {
			return err
		}
	}

	creditorAccount, err := p.ledger.ResolveAccountIdentifier(ctx, tx.CustomerAccount)
	if err != nil {
		return shared.Conflictf("resolve creditor account for transaction %s: %v", tx.ID, err)
	}
	clearance := client.ChequeTransaction{
		ChequeNumber:      cheque.ChequeNumber,
		BranchSortCode:    cheque.BranchSortCode,
		AccountNumber:     cheque.AccountNumber,
		Drawee:            cheque.Drawee,
		Drawer:            cheque.Drawer,
		Payee:             cheque.Payee,
		Amount:            cheque.Amount,
		DateIssued:        cheque.DateIssued.Format("2006-01-02"),
		CreditorAccount:   creditorAccount,
		ChequesReceivable: t.ChequesReceivableAccount,
	}
	if err := p.cheques.Process(ctx, clearance); err != nil {
		return shared.Conflictf("cheque clearance rejected transaction %s: %v", tx.ID, err)
	}
	p.markTransacted(ctx, tx.CustomerAccount)
	return nil
}

func chequeTooOld(issued, reference time.Time) bool {
	return issued.Before(reference.AddDate(0, -chequeMaxAge, 0))
}
