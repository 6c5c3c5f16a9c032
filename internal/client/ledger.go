package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/journal"
)

// Account is the ledger's view of an accounting account.
type Account struct {
	Identifier string          `json:"identifier"`
	State      string          `json:"state"`
	Balance    decimal.Decimal `json:"balance"`
}

// AccountStateOpen is the only state accepting postings.
const AccountStateOpen = "OPEN"

// AccountEntry is one ledger movement on an account.
type AccountEntry struct {
	Type            string          `json:"type"`
	TransactionDate time.Time       `json:"transactionDate"`
	Message         string          `json:"message"`
	Amount          decimal.Decimal `json:"amount"`
}

// Entry sides as reported by the ledger.
const (
	EntryTypeDebit  = "DEBIT"
	EntryTypeCredit = "CREDIT"
)

// EntryPage is one page of account entries.
type EntryPage struct {
	Entries       []AccountEntry `json:"accountEntries"`
	TotalPages    int            `json:"totalPages"`
	TotalElements int64          `json:"totalElements"`
}

// LedgerClient talks to the accounting service.
type LedgerClient struct {
	baseClient
}

// NewLedgerClient returns the production ledger client.
func NewLedgerClient(baseURL string, timeout time.Duration) *LedgerClient {
	return &LedgerClient{baseClient: newBaseClient(baseURL, timeout)}
}

// FindAccount looks up an account by identifier.
func (c *LedgerClient) FindAccount(ctx context.Context, identifier string) (Account, error) {
	var account Account
	err := c.get(ctx, "/accounts/"+url.PathEscape(identifier), &account)
	return account, err
}

type journalEntryPayload struct {
	TransactionIdentifier string           `json:"transactionIdentifier"`
	TransactionDate       string           `json:"transactionDate"`
	TransactionType       string           `json:"transactionType"`
	Clerk                 string           `json:"clerk"`
	Note                  string           `json:"note,omitempty"`
	Debtors               []journalLeg     `json:"debtors"`
	Creditors             []journalLeg     `json:"creditors"`
}

type journalLeg struct {
	AccountNumber string          `json:"accountNumber"`
	Amount        decimal.Decimal `json:"amount"`
}

// PostJournalEntry submits a balanced entry to the ledger.
func (c *LedgerClient) PostJournalEntry(ctx context.Context, entry journal.Entry) error {
	payload := journalEntryPayload{
		TransactionIdentifier: entry.TransactionID,
		TransactionDate:       entry.Date.UTC().Format(time.RFC3339),
		TransactionType:       entry.Kind,
		Clerk:                 entry.Clerk,
		Note:                  entry.Message,
	}
	for _, d := range entry.Debtors {
		payload.Debtors = append(payload.Debtors, journalLeg{AccountNumber: d.AccountNumber, Amount: d.Amount})
	}
	for _, cr := range entry.Creditors {
		payload.Creditors = append(payload.Creditors, journalLeg{AccountNumber: cr.AccountNumber, Amount: cr.Amount})
	}
	return c.post(ctx, "/journal", payload, nil)
}

// OpenAccount moves an account into the OPEN state.
func (c *LedgerClient) OpenAccount(ctx context.Context, identifier string) error {
	return c.post(ctx, "/accounts/"+url.PathEscape(identifier)+"/commands", map[string]string{"action": "OPEN"}, nil)
}

// CloseAccount moves an account into the CLOSED state.
func (c *LedgerClient) CloseAccount(ctx context.Context, identifier string) error {
	return c.post(ctx, "/accounts/"+url.PathEscape(identifier)+"/commands", map[string]string{"action": "CLOSE"}, nil)
}

// ResolveAccountIdentifier resolves an external account reference, such as a
// MICR account number, to the ledger's account identifier.
func (c *LedgerClient) ResolveAccountIdentifier(ctx context.Context, reference string) (string, error) {
	var account Account
	if err := c.get(ctx, "/accounts/resolve/"+url.PathEscape(reference), &account); err != nil {
		return "", err
	}
	return account.Identifier, nil
}

// FetchAccountEntries pages through the movements on an account in a date range.
func (c *LedgerClient) FetchAccountEntries(ctx context.Context, identifier string, from, to time.Time, page, size int) (EntryPage, error) {
	query := url.Values{}
	query.Set("dateRange", fmt.Sprintf("%s..%s", from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02")))
	query.Set("pageIndex", fmt.Sprintf("%d", page))
	query.Set("size", fmt.Sprintf("%d", size))
	var result EntryPage
	err := c.get(ctx, "/accounts/"+url.PathEscape(identifier)+"/entries?"+query.Encode(), &result)
	return result, err
}
