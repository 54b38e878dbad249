package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simonvc/grandlivre/internal/ledger"
)

const accountColumns = `code, label, type, normal_side, lettrable, vat_rate`

func (s *Store) GetAccount(ctx context.Context, code string) (*ledger.Account, error) {
	row := s.reader.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = ?`, code)
	acct, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, code)
	}
	return acct, err
}

func (s *Store) ListAccounts(ctx context.Context, filter AccountFilter) ([]ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	args := []any{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Class > 0 {
		query += ` AND code LIKE ? || '%'`
		args = append(args, fmt.Sprint(filter.Class))
	}
	query += ` ORDER BY code`

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

func scanAccount(row scanner) (*ledger.Account, error) {
	var acct ledger.Account
	var lettrable int
	err := row.Scan(&acct.Code, &acct.Label, &acct.Type, &acct.NormalSide, &lettrable, &acct.VATRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	acct.Lettrable = lettrable == 1
	return &acct, nil
}

// AccountBalance is the validated debit and credit totals of an account and
// its balance on the normal side.
type AccountBalance struct {
	Account ledger.Account `json:"account"`
	Debit   int64          `json:"debit"`
	Credit  int64          `json:"credit"`
	Balance int64          `json:"balance"`
}

func (s *Store) AccountBalance(ctx context.Context, code string) (*AccountBalance, error) {
	acct, err := s.GetAccount(ctx, code)
	if err != nil {
		return nil, err
	}

	b := &AccountBalance{Account: *acct}
	err = s.reader.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_code = ? AND e.validated = 1`, code,
	).Scan(&b.Debit, &b.Credit)
	if err != nil {
		return nil, fmt.Errorf("account balance: %w", err)
	}
	b.Balance = acct.SignedBalance(b.Debit, b.Credit)
	return b, nil
}
