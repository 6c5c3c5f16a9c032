package client

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// ChequeTransaction is the clearance request for a deposited cheque.
type ChequeTransaction struct {
	ChequeNumber      string          `json:"chequeNumber"`
	BranchSortCode    string          `json:"branchSortCode"`
	AccountNumber     string          `json:"accountNumber"`
	Drawee            string          `json:"drawee"`
	Drawer            string          `json:"drawer"`
	Payee             string          `json:"payee"`
	Amount            decimal.Decimal `json:"amount"`
	DateIssued        string          `json:"dateIssued"`
	CreditorAccount   string          `json:"creditorAccountNumber"`
	ChequesReceivable string          `json:"chequesReceivableAccount"`
}

// ChequeClient talks to the cheque clearance service.
type ChequeClient struct {
	baseClient
}

// NewChequeClient returns the production cheque clearance client.
func NewChequeClient(baseURL string, timeout time.Duration) *ChequeClient {
	return &ChequeClient{baseClient: newBaseClient(baseURL, timeout)}
}

// Process hands a cheque over for clearance.
func (c *ChequeClient) Process(ctx context.Context, cheque ChequeTransaction) error {
	return c.post(ctx, "/cheques", cheque, nil)
}

// ChequeExists reports whether the MICR identifier is already known to clearance.
func (c *ChequeClient) ChequeExists(ctx context.Context, micrIdentifier string) (bool, error) {
	err := c.get(ctx, "/cheques/"+url.PathEscape(micrIdentifier), nil)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
