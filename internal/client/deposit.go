package client

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Charge is one fee from a product's charge schedule. Proportional charges
// carry a percentage rate in Amount and are resolved against the transaction
// amount by the cost calculator.
type Charge struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	IncomeAccount string          `json:"incomeAccountIdentifier"`
	Proportional  bool            `json:"proportional"`
	Amount        decimal.Decimal `json:"amount"`
}

// ProductDefinition holds the product parameters the teller cares about.
type ProductDefinition struct {
	Identifier     string          `json:"identifier"`
	MinimumBalance decimal.Decimal `json:"minimumBalance"`
}

// ProductInstance is one customer's instance of a deposit product.
type ProductInstance struct {
	Identifier        string `json:"identifier"`
	ProductIdentifier string `json:"productIdentifier"`
	AccountIdentifier string `json:"accountIdentifier"`
	State             string `json:"state"`
}

// ChargeRequest describes the transaction a charge schedule applies to.
type ChargeRequest struct {
	TransactionID     string          `json:"transactionIdentifier"`
	Kind              string          `json:"transactionType"`
	ProductIdentifier string          `json:"productIdentifier"`
	CustomerAccount   string          `json:"customerAccountIdentifier"`
	Amount            decimal.Decimal `json:"amount"`
}

// DepositClient talks to the deposit-account-management service.
type DepositClient struct {
	baseClient
}

// NewDepositClient returns the production deposit products client.
func NewDepositClient(baseURL string, timeout time.Duration) *DepositClient {
	return &DepositClient{baseClient: newBaseClient(baseURL, timeout)}
}

// GetCharges fetches the charge schedule applicable to a transaction.
func (c *DepositClient) GetCharges(ctx context.Context, request ChargeRequest) ([]Charge, error) {
	var charges []Charge
	if err := c.post(ctx, "/charges/lookup", request, &charges); err != nil {
		return nil, err
	}
	return charges, nil
}

// FindProductDefinition fetches a product definition.
func (c *DepositClient) FindProductDefinition(ctx context.Context, identifier string) (ProductDefinition, error) {
	var definition ProductDefinition
	err := c.get(ctx, "/definitions/"+url.PathEscape(identifier), &definition)
	return definition, err
}

// FindProductInstance fetches a customer's product instance by account identifier.
func (c *DepositClient) FindProductInstance(ctx context.Context, accountIdentifier string) (ProductInstance, error) {
	var instance ProductInstance
	err := c.get(ctx, "/instances/"+url.PathEscape(accountIdentifier), &instance)
	return instance, err
}

// ActivateProductInstance activates a product instance after account opening.
func (c *DepositClient) ActivateProductInstance(ctx context.Context, accountIdentifier string) error {
	return c.post(ctx, "/instances/"+url.PathEscape(accountIdentifier)+"/commands", map[string]string{"action": "ACTIVATE"}, nil)
}

// CloseProductInstance closes a product instance after account closing.
func (c *DepositClient) CloseProductInstance(ctx context.Context, accountIdentifier string) error {
	return c.post(ctx, "/instances/"+url.PathEscape(accountIdentifier)+"/commands", map[string]string{"action": "CLOSE"}, nil)
}

// MarkTransacted notifies the product service that a teller transaction hit the account.
func (c *DepositClient) MarkTransacted(ctx context.Context, accountIdentifier string) error {
	return c.post(ctx, "/instances/"+url.PathEscape(accountIdentifier)+"/commands", map[string]string{"action": "TRANSACTED"}, nil)
}
