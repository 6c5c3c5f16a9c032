package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/platform/db"
	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// Repository encapsulates DB operations for teller transactions and cheques.
//
// Schema:
//
//	teller_transactions(id PK, teller_code FK, kind, transaction_date,
//	        customer_id, product_identifier, product_case_id,
//	        customer_account, target_account, clerk, amount NUMERIC, state)
//	cheques(transaction_id PK FK, cheque_number, branch_sort_code,
//	        account_number, drawee, drawer, payee, amount NUMERIC,
//	        date_issued, open_cheque,
//	        UNIQUE (cheque_number, branch_sort_code, account_number))
type Repository interface {
	Create(ctx context.Context, tx Transaction, cheque *Cheque) error
	Find(ctx context.Context, tellerCode, id string) (Transaction, *Cheque, error)
	ListByTeller(ctx context.Context, tellerCode string, state State) ([]Transaction, error)
	UpdateState(ctx context.Context, id string, state State) error
	SetChequeOpenFlag(ctx context.Context, transactionID string, open bool) error
	DeleteCheque(ctx context.Context, transactionID string) error
	MICRInUse(ctx context.Context, chequeNumber, branchSortCode, accountNumber string) (bool, error)
	ConfirmedByKind(ctx context.Context, tellerCode string, kind Kind, from, to time.Time) ([]Transaction, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const txColumns = `id, teller_code, kind, transaction_date, customer_id, product_identifier,
product_case_id, customer_account, target_account, clerk, amount::text, state`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var tx Transaction
	var kind, state, amount string
	err := row.Scan(&tx.ID, &tx.TellerCode, &kind, &tx.TransactionDate, &tx.CustomerID,
		&tx.ProductIdentifier, &tx.ProductCaseID, &tx.CustomerAccount, &tx.TargetAccount,
		&tx.Clerk, &amount, &state)
	if err != nil {
		return Transaction{}, err
	}
	tx.Kind = Kind(kind)
	tx.State = State(state)
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (r *repository) Create(ctx context.Context, tx Transaction, cheque *Cheque) error {
	return db.WithTx(ctx, r.db, func(dbtx pgx.Tx) error {
		_, err := dbtx.Exec(ctx, `INSERT INTO teller_transactions (id, teller_code, kind, transaction_date,
customer_id, product_identifier, product_case_id, customer_account, target_account, clerk, amount, state)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			tx.ID, tx.TellerCode, string(tx.Kind), tx.TransactionDate, tx.CustomerID,
			tx.ProductIdentifier, tx.ProductCaseID, tx.CustomerAccount, tx.TargetAccount,
			tx.Clerk, tx.Amount.String(), string(tx.State))
		if err != nil {
			return err
		}
		if cheque == nil {
			return nil
		}
		_, err = dbtx.Exec(ctx, `INSERT INTO cheques (transaction_id, cheque_number, branch_sort_code,
account_number, drawee, drawer, payee, amount, date_issued, open_cheque)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			tx.ID, cheque.ChequeNumber, cheque.BranchSortCode, cheque.AccountNumber,
			cheque.Drawee, cheque.Drawer, cheque.Payee, cheque.Amount.String(),
			cheque.DateIssued, cheque.OpenCheque)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return shared.Validationf("cheque %s already used", cheque.MICRIdentifier())
			}
			return err
		}
		return nil
	})
}

func (r *repository) Find(ctx context.Context, tellerCode, id string) (Transaction, *Cheque, error) {
	row := r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM teller_transactions WHERE id = $1 AND teller_code = $2`, id, tellerCode)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, nil, shared.NotFoundf("transaction %s", id)
	}
	if err != nil {
		return Transaction{}, nil, err
	}

	chequeRow := r.db.QueryRow(ctx, `SELECT transaction_id, cheque_number, branch_sort_code, account_number,
drawee, drawer, payee, amount::text, date_issued, open_cheque FROM cheques WHERE transaction_id = $1`, id)
	var cheque Cheque
	var amount string
	err = chequeRow.Scan(&cheque.TransactionID, &cheque.ChequeNumber, &cheque.BranchSortCode,
		&cheque.AccountNumber, &cheque.Drawee, &cheque.Drawer, &cheque.Payee, &amount,
		&cheque.DateIssued, &cheque.OpenCheque)
	if errors.Is(err, pgx.ErrNoRows) {
		return tx, nil, nil
	}
	if err != nil {
		return Transaction{}, nil, err
	}
	if cheque.Amount, err = decimal.NewFromString(amount); err != nil {
		return Transaction{}, nil, err
	}
	return tx, &cheque, nil
}

func (r *repository) ListByTeller(ctx context.Context, tellerCode string, state State) ([]Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM teller_transactions WHERE teller_code = $1`
	args := []any{tellerCode}
	if state != "" {
		query += ` AND state = $2`
		args = append(args, string(state))
	}
	query += ` ORDER BY transaction_date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transactions []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (r *repository) UpdateState(ctx context.Context, id string, state State) error {
	tag, err := r.db.Exec(ctx, `UPDATE teller_transactions SET state = $2 WHERE id = $1`, id, string(state))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("transaction %s", id)
	}
	return nil
}

func (r *repository) SetChequeOpenFlag(ctx context.Context, transactionID string, open bool) error {
	_, err := r.db.Exec(ctx, `UPDATE cheques SET open_cheque = $2 WHERE transaction_id = $1`, transactionID, open)
	return err
}

func (r *repository) DeleteCheque(ctx context.Context, transactionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cheques WHERE transaction_id = $1`, transactionID)
	return err
}

func (r *repository) MICRInUse(ctx context.Context, chequeNumber, branchSortCode, accountNumber string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cheques c
JOIN teller_transactions t ON t.id = c.transaction_id
WHERE c.cheque_number = $1 AND c.branch_sort_code = $2 AND c.account_number = $3
AND t.state IN ('PENDING','CONFIRMED')`, chequeNumber, branchSortCode, accountNumber).Scan(&count)
	return count > 0, err
}

func (r *repository) ConfirmedByKind(ctx context.Context, tellerCode string, kind Kind, from, to time.Time) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txColumns+` FROM teller_transactions
WHERE teller_code = $1 AND kind = $2 AND state = 'CONFIRMED'
AND transaction_date BETWEEN $3 AND $4 ORDER BY transaction_date`,
		tellerCode, string(kind), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var transactions []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
