package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/client"
)

// DepositChargesPort resolves charge schedules for deposit-product transactions.
type DepositChargesPort interface {
	GetCharges(ctx context.Context, request client.ChargeRequest) ([]client.Charge, error)
}

// PortfolioChargesPort resolves charge schedules for loan repayments.
type PortfolioChargesPort interface {
	GetCharges(ctx context.Context, productID, caseID string, amount decimal.Decimal) ([]client.Charge, error)
}

// CostCalculator resolves the charges applicable to a transaction. The
// schedule source is selected by transaction kind: repayments ask the
// portfolio, everything else asks deposit products.
type CostCalculator struct {
	deposits  DepositChargesPort
	portfolio PortfolioChargesPort
}

// NewCostCalculator constructs a calculator.
func NewCostCalculator(deposits DepositChargesPort, portfolio PortfolioChargesPort) *CostCalculator {
	return &CostCalculator{deposits: deposits, portfolio: portfolio}
}

var oneHundred = decimal.NewFromInt(100)

// Calculate resolves the charge schedule for tx. Proportional charges are
// evaluated as amount * rate / 100 with banker's rounding at two fraction
// digits; charges resolving to a non-positive amount are dropped.
func (c *CostCalculator) Calculate(ctx context.Context, tx Transaction) (Costs, error) {
	var schedule []client.Charge
	var err error
	if tx.Kind == KindRepayment {
		schedule, err = c.portfolio.GetCharges(ctx, tx.ProductIdentifier, tx.ProductCaseID, tx.Amount)
	} else {
		schedule, err = c.deposits.GetCharges(ctx, client.ChargeRequest{
			TransactionID:     tx.ID,
			Kind:              string(tx.Kind),
			ProductIdentifier: tx.ProductIdentifier,
			CustomerAccount:   tx.CustomerAccount,
			Amount:            tx.Amount,
		})
	}
	if err != nil {
		return Costs{}, err
	}

	costs := Costs{TransactionID: tx.ID, TotalAmount: tx.Amount}
	for _, entry := range schedule {
		resolved := entry.Amount
		if entry.Proportional {
			resolved = tx.Amount.Mul(entry.Amount).Div(oneHundred).RoundBank(2)
		}
		if !resolved.IsPositive() {
			continue
		}
		costs.Charges = append(costs.Charges, Charge{
			Code:          entry.Code,
			Name:          entry.Name,
			IncomeAccount: entry.IncomeAccount,
			Amount:        resolved,
		})
		costs.TotalAmount = costs.TotalAmount.Add(resolved)
	}
	return costs, nil
}
