package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/simonvc/grandlivre/internal/ledger"
)

const openItemQuery = `SELECT l.id, l.entry_id, e.sequence, l.account_code, l.aux_account, e.accounting_date,
		l.label, l.debit - l.credit, l.lettrage_group
	FROM entry_lines l
	JOIN journal_entries e ON e.id = l.entry_id`

func scanOpenItems(rows *sql.Rows) ([]ledger.OpenItem, map[int64]bool, error) {
	var items []ledger.OpenItem
	lettered := map[int64]bool{}
	for rows.Next() {
		var it ledger.OpenItem
		var date string
		var group sql.NullString
		if err := rows.Scan(&it.LineID, &it.EntryID, &it.Sequence, &it.Account, &it.Counterparty, &date,
			&it.Label, &it.Amount, &group); err != nil {
			return nil, nil, fmt.Errorf("scan open item: %w", err)
		}
		it.Date = parseDate(date)
		if group.Valid {
			lettered[it.LineID] = true
		}
		items = append(items, it)
	}
	return items, lettered, rows.Err()
}

// UnmatchedLines returns the unlettered lines of validated entries on the
// accounts starting with any of the given codes.
func (s *Store) UnmatchedLines(ctx context.Context, accounts []string) ([]ledger.OpenItem, error) {
	if len(accounts) == 0 {
		return nil, nil
	}
	conds := make([]string, len(accounts))
	args := make([]any, len(accounts))
	for i, a := range accounts {
		conds[i] = `l.account_code LIKE ? || '%'`
		args[i] = a
	}
	rows, err := s.reader.QueryContext(ctx,
		openItemQuery+` WHERE e.validated = 1 AND l.lettrage_group IS NULL AND (`+strings.Join(conds, " OR ")+`)
		 ORDER BY e.accounting_date, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("unmatched lines: %w", err)
	}
	defer rows.Close()

	items, _, err := scanOpenItems(rows)
	return items, err
}

// OpenItems loads the given lines for manual lettrage. Unknown, draft or
// already lettered lines are refused.
func (s *Store) OpenItems(ctx context.Context, lineIDs []int64) ([]ledger.OpenItem, error) {
	args := make([]any, len(lineIDs))
	for i, id := range lineIDs {
		args[i] = id
	}
	rows, err := s.reader.QueryContext(ctx,
		openItemQuery+` WHERE e.validated = 1 AND l.id IN (`+placeholders(len(lineIDs))+`) ORDER BY l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("open items: %w", err)
	}
	defer rows.Close()

	items, lettered, err := scanOpenItems(rows)
	if err != nil {
		return nil, err
	}
	found := map[int64]bool{}
	for _, it := range items {
		found[it.LineID] = true
		if lettered[it.LineID] {
			return nil, fmt.Errorf("%w: line %d", ledger.ErrLineAlreadyMatch, it.LineID)
		}
	}
	for _, id := range lineIDs {
		if !found[id] {
			return nil, fmt.Errorf("%w: %d", ledger.ErrLineNotFound, id)
		}
	}
	return items, nil
}

// CommitLettrage stores groups and codes their lines in one transaction.
// Codes come from the persisted index so they never repeat across runs.
func (s *Store) CommitLettrage(ctx context.Context, groups []ledger.ReconciliationGroup) ([]ledger.ReconciliationGroup, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT next_index FROM lettrage_state WHERE id = 1`).Scan(&next); err != nil {
		return nil, fmt.Errorf("read lettrage index: %w", err)
	}

	for i := range groups {
		g := &groups[i]
		if len(g.LineIDs) < 2 {
			return nil, fmt.Errorf("%w: group needs at least 2 lines", ledger.ErrInvalidLettrage)
		}
		g.ID = uuid.Must(uuid.NewV7()).String()
		g.Code = ledger.LettrageCode(next)
		if g.Manual {
			g.Code = ledger.ManualCodePrefix + g.Code
		}
		next++

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lettrage_groups (id, code, account_code, counterparty, total, status, manual, match_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Code, g.Account, g.Counterparty, g.Total, string(g.Status), boolToInt(g.Manual), formatDate(g.MatchDate),
		); err != nil {
			return nil, fmt.Errorf("insert group: %w", mapConstraint(err))
		}

		args := []any{g.ID, g.Code, formatDate(g.MatchDate)}
		for _, id := range g.LineIDs {
			args = append(args, id)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE entry_lines SET lettrage_group = ?, lettrage_code = ?, lettrage_date = ?
			 WHERE lettrage_group IS NULL AND id IN (`+placeholders(len(g.LineIDs))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("code lines: %w", err)
		}
		if n, _ := res.RowsAffected(); n != int64(len(g.LineIDs)) {
			return nil, fmt.Errorf("%w: group %s", ledger.ErrLineAlreadyMatch, g.Code)
		}

		var sum int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(debit - credit), 0) FROM entry_lines WHERE lettrage_group = ?`, g.ID,
		).Scan(&sum); err != nil {
			return nil, fmt.Errorf("sum group: %w", err)
		}
		if sum != g.Total {
			return nil, fmt.Errorf("%w: group %s stored %d, computed %d", ledger.ErrGroupNotZero, g.Code, sum, g.Total)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE lettrage_state SET next_index = ? WHERE id = 1`, next); err != nil {
		return nil, fmt.Errorf("update lettrage index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return groups, nil
}

// DeleteGroup undoes a lettrage: the group goes and its lines are open again.
// The code is not reused.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE entry_lines SET lettrage_group = NULL, lettrage_code = NULL, lettrage_date = NULL WHERE lettrage_group = ?`, id,
	); err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM lettrage_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrGroupNotFound, id)
	}
	return tx.Commit()
}

const groupColumns = `g.id, g.code, g.account_code, g.counterparty, g.total, g.status, g.manual, g.match_date`

func (s *Store) GetGroup(ctx context.Context, id string) (*ledger.ReconciliationGroup, error) {
	groups, err := s.listGroups(ctx, `g.id = ?`, []any{id})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrGroupNotFound, id)
	}
	return &groups[0], nil
}

func (s *Store) ListGroups(ctx context.Context, filter GroupFilter) ([]ledger.ReconciliationGroup, error) {
	where := "1=1"
	var args []any
	if filter.Account != "" {
		where += ` AND g.account_code LIKE ? || '%'`
		args = append(args, filter.Account)
	}
	if filter.Counterparty != "" {
		where += ` AND g.counterparty = ?`
		args = append(args, filter.Counterparty)
	}
	return s.listGroups(ctx, where, args)
}

func (s *Store) listGroups(ctx context.Context, where string, args []any) ([]ledger.ReconciliationGroup, error) {
	tx, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM lettrage_groups g WHERE `+where+` ORDER BY g.match_date, g.created_at, g.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []ledger.ReconciliationGroup
	index := map[string]int{}
	for rows.Next() {
		var g ledger.ReconciliationGroup
		var manual int
		var date string
		if err := rows.Scan(&g.ID, &g.Code, &g.Account, &g.Counterparty, &g.Total, &g.Status, &manual, &date); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Manual = manual == 1
		g.MatchDate = parseDate(date)
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	lines, err := tx.QueryContext(ctx,
		`SELECT l.lettrage_group, l.id FROM entry_lines l
		 WHERE l.lettrage_group IN (SELECT g.id FROM lettrage_groups g WHERE `+where+`) ORDER BY l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list group lines: %w", err)
	}
	defer lines.Close()
	for lines.Next() {
		var gid string
		var id int64
		if err := lines.Scan(&gid, &id); err != nil {
			return nil, fmt.Errorf("scan group line: %w", err)
		}
		if i, ok := index[gid]; ok {
			groups[i].LineIDs = append(groups[i].LineIDs, id)
		}
	}
	return groups, lines.Err()
}
