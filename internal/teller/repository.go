package teller

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/apache/fineract-cn-teller-sub000/internal/shared"
)

// Repository encapsulates DB operations for tellers and their denominations.
//
// Schema:
//
//	tellers(code PK, office_id, password_hash, salt, cashdraw_limit NUMERIC,
//	        teller_account, vault_account, cheques_receivable_account,
//	        cash_over_short_account, denomination_required, assigned_employee,
//	        state, created_by, created_on, modified_by, modified_on,
//	        last_opened_by, last_opened_on)
//	teller_denominations(id PK, teller_code FK, counted_total NUMERIC, note,
//	        adjusting_journal_entry_id, created_by, created_on)
type Repository interface {
	Create(ctx context.Context, t Teller) error
	FindByCode(ctx context.Context, code string) (Teller, error)
	FindByOffice(ctx context.Context, officeID string) ([]Teller, error)
	Update(ctx context.Context, t Teller) error
	Delete(ctx context.Context, code string) error
	PendingTransactionCount(ctx context.Context, code string) (int, error)
	SaveDenomination(ctx context.Context, d Denomination) error
	ListDenominations(ctx context.Context, code string, page, perPage int) ([]Denomination, int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const tellerColumns = `code, office_id, password_hash, salt, cashdraw_limit::text,
teller_account, vault_account, cheques_receivable_account, cash_over_short_account,
denomination_required, assigned_employee, state, created_by, created_on,
modified_by, modified_on, last_opened_by, last_opened_on`

func scanTeller(row pgx.Row) (Teller, error) {
	var t Teller
	var limit string
	var state string
	err := row.Scan(&t.Code, &t.OfficeID, &t.PasswordHash, &t.Salt, &limit,
		&t.TellerAccount, &t.VaultAccount, &t.ChequesReceivableAccount, &t.CashOverShortAccount,
		&t.DenominationRequired, &t.AssignedEmployee, &state, &t.CreatedBy, &t.CreatedOn,
		&t.ModifiedBy, &t.ModifiedOn, &t.LastOpenedBy, &t.LastOpenedOn)
	if err != nil {
		return Teller{}, err
	}
	t.State = State(state)
	t.CashdrawLimit, err = decimal.NewFromString(limit)
	if err != nil {
		return Teller{}, err
	}
	return t, nil
}

func (r *repository) Create(ctx context.Context, t Teller) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tellers (code, office_id, password_hash, salt, cashdraw_limit,
teller_account, vault_account, cheques_receivable_account, cash_over_short_account,
denomination_required, assigned_employee, state, created_by, created_on)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		t.Code, t.OfficeID, t.PasswordHash, t.Salt, t.CashdrawLimit.String(),
		t.TellerAccount, t.VaultAccount, t.ChequesReceivableAccount, t.CashOverShortAccount,
		t.DenominationRequired, t.AssignedEmployee, string(t.State), t.CreatedBy, t.CreatedOn)
	return err
}

func (r *repository) FindByCode(ctx context.Context, code string) (Teller, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tellerColumns+` FROM tellers WHERE code = $1`, code)
	t, err := scanTeller(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Teller{}, shared.NotFoundf("teller %s", code)
	}
	return t, err
}

func (r *repository) FindByOffice(ctx context.Context, officeID string) ([]Teller, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tellerColumns+` FROM tellers WHERE office_id = $1 ORDER BY code`, officeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tellers []Teller
	for rows.Next() {
		t, err := scanTeller(rows)
		if err != nil {
			return nil, err
		}
		tellers = append(tellers, t)
	}
	return tellers, rows.Err()
}

func (r *repository) Update(ctx context.Context, t Teller) error {
	tag, err := r.db.Exec(ctx, `UPDATE tellers SET password_hash=$2, salt=$3, cashdraw_limit=$4,
teller_account=$5, vault_account=$6, cheques_receivable_account=$7, cash_over_short_account=$8,
denomination_required=$9, assigned_employee=$10, state=$11, modified_by=$12, modified_on=$13,
last_opened_by=$14, last_opened_on=$15 WHERE code=$1`,
		t.Code, t.PasswordHash, t.Salt, t.CashdrawLimit.String(),
		t.TellerAccount, t.VaultAccount, t.ChequesReceivableAccount, t.CashOverShortAccount,
		t.DenominationRequired, t.AssignedEmployee, string(t.State), t.ModifiedBy, t.ModifiedOn,
		t.LastOpenedBy, t.LastOpenedOn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("teller %s", t.Code)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tellers WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("teller %s", code)
	}
	return nil
}

func (r *repository) PendingTransactionCount(ctx context.Context, code string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM teller_transactions WHERE teller_code = $1 AND state = 'PENDING'`, code).Scan(&count)
	return count, err
}

func (r *repository) SaveDenomination(ctx context.Context, d Denomination) error {
	_, err := r.db.Exec(ctx, `INSERT INTO teller_denominations (id, teller_code, counted_total, note,
adjusting_journal_entry_id, created_by, created_on) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.TellerCode, d.CountedTotal.String(), d.Note, d.AdjustingJournalEntryID, d.CreatedBy, d.CreatedOn)
	return err
}

func (r *repository) ListDenominations(ctx context.Context, code string, page, perPage int) ([]Denomination, int, error) {
	p := shared.NewPagination(page, perPage, 0)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM teller_denominations WHERE teller_code = $1`, code).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, teller_code, counted_total::text, note, adjusting_journal_entry_id, created_by, created_on
FROM teller_denominations WHERE teller_code = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`,
		code, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var denominations []Denomination
	for rows.Next() {
		var d Denomination
		var counted string
		if err := rows.Scan(&d.ID, &d.TellerCode, &counted, &d.Note, &d.AdjustingJournalEntryID, &d.CreatedBy, &d.CreatedOn); err != nil {
			return nil, 0, err
		}
		if d.CountedTotal, err = decimal.NewFromString(counted); err != nil {
			return nil, 0, err
		}
		denominations = append(denominations, d)
	}
	return denominations, total, rows.Err()
}
