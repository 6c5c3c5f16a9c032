package client

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioClient talks to the loan portfolio service.
type PortfolioClient struct {
	baseClient
}

// NewPortfolioClient returns the production portfolio client.
func NewPortfolioClient(baseURL string, timeout time.Duration) *PortfolioClient {
	return &PortfolioClient{baseClient: newBaseClient(baseURL, timeout)}
}

// GetCharges fetches the fees due for a repayment on a loan case.
func (c *PortfolioClient) GetCharges(ctx context.Context, productID, caseID string, amount decimal.Decimal) ([]Charge, error) {
	var charges []Charge
	path := "/products/" + url.PathEscape(productID) + "/cases/" + url.PathEscape(caseID) + "/costs?amount=" + amount.String()
	if err := c.get(ctx, path, &charges); err != nil {
		return nil, err
	}
	return charges, nil
}

type repaymentPayload struct {
	TellerAccount string          `json:"payableAccountIdentifier"`
	Amount        decimal.Decimal `json:"paymentSize"`
}

// ProcessRepayment submits a loan repayment taken at the teller.
func (c *PortfolioClient) ProcessRepayment(ctx context.Context, productID, caseID, tellerAccount string, amount decimal.Decimal) error {
	path := "/products/" + url.PathEscape(productID) + "/cases/" + url.PathEscape(caseID) + "/commands/ACCEPT_PAYMENT"
	return c.post(ctx, path, repaymentPayload{TellerAccount: tellerAccount, Amount: amount}, nil)
}
