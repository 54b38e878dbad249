package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/ledger"
)

// CreateAsset registers a fixed asset. Category defaults fill the accounts
// and useful life left empty.
func (s *Store) CreateAsset(ctx context.Context, a *ledger.FixedAsset) error {
	if a.ID == "" {
		a.ID = uuid.Must(uuid.NewV7()).String()
	}
	a.AcquisitionDate = ledger.Day(a.AcquisitionDate)
	a.ApplyDefaults()
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Rate == "" {
		if r, err := depreciation.New(depreciation.Policy{}).Rate(a); err == nil {
			a.Rate = r.String()
		}
	}
	a.CreatedAt = s.now().UTC()

	_, err := s.writer.ExecContext(ctx,
		`INSERT INTO fixed_assets (id, category, label, acquisition_date, acquisition_value, asset_account,
			depreciation_account, expense_account, useful_life, method, rate, accumulated_depreciation,
			net_book_value, periods_charged, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Category), a.Label, formatDate(a.AcquisitionDate), a.AcquisitionValue, a.AssetAccount,
		a.DepreciationAccount, a.ExpenseAccount, a.UsefulLife, string(a.Method), a.Rate, a.AccumulatedDepreciation,
		a.NetBookValue, a.PeriodsCharged, string(a.Status), a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", mapConstraint(err))
	}
	return nil
}

const assetColumns = `id, category, label, acquisition_date, acquisition_value, asset_account, depreciation_account,
	expense_account, useful_life, method, rate, accumulated_depreciation, net_book_value, periods_charged, status,
	disposal_date, disposal_proceeds, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*ledger.FixedAsset, error) {
	var a ledger.FixedAsset
	var acquired, createdAt string
	var disposed sql.NullString
	err := row.Scan(&a.ID, &a.Category, &a.Label, &acquired, &a.AcquisitionValue, &a.AssetAccount, &a.DepreciationAccount,
		&a.ExpenseAccount, &a.UsefulLife, &a.Method, &a.Rate, &a.AccumulatedDepreciation, &a.NetBookValue, &a.PeriodsCharged,
		&a.Status, &disposed, &a.DisposalProceeds, &createdAt)
	if err != nil {
		return nil, err
	}
	a.AcquisitionDate = parseDate(acquired)
	a.DisposalDate = parseNullDate(disposed)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (*ledger.FixedAsset, error) {
	return getAsset(ctx, s.reader, id)
}

func getAsset(ctx context.Context, q querier, id string) (*ledger.FixedAsset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAssetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssets(ctx context.Context, filter AssetFilter) ([]ledger.FixedAsset, error) {
	return listAssets(ctx, s.reader, filter)
}

func listAssets(ctx context.Context, q querier, filter AssetFilter) ([]ledger.FixedAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM fixed_assets WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY acquisition_date, id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []ledger.FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// DepreciationSnapshot reads the assets still depreciating and the period
// keys already charged for each, from one read transaction.
func (s *Store) DepreciationSnapshot(ctx context.Context) ([]ledger.FixedAsset, map[string]map[string]bool, error) {
	tx, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	assets, err := listAssets(ctx, tx, AssetFilter{Status: ledger.AssetInProgress})
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT c.asset_id, c.period_key FROM depreciation_charges c
		 JOIN fixed_assets a ON a.id = c.asset_id WHERE a.status = ?`, string(ledger.AssetInProgress))
	if err != nil {
		return nil, nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()

	charged := map[string]map[string]bool{}
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, nil, fmt.Errorf("scan charge: %w", err)
		}
		if charged[id] == nil {
			charged[id] = map[string]bool{}
		}
		charged[id][key] = true
	}
	return assets, charged, rows.Err()
}

// CommitDepreciation books a run's charges and their entries in one
// transaction. A charge already booked for its period, or an asset that
// moved since the snapshot, aborts the whole run.
func (s *Store) CommitDepreciation(ctx context.Context, charges []ledger.DepreciationCharge) ([]ledger.DepreciationCharge, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i := range charges {
		c := &charges[i]
		var entryID any
		if c.Entry != nil {
			c.Entry.Validated = true
			if err := s.insertEntry(ctx, tx, c.Entry); err != nil {
				return nil, fmt.Errorf("asset %s period %s: %w", c.AssetID, c.Period, err)
			}
			entryID = c.Entry.ID
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO depreciation_charges (asset_id, period_key, period_index, amount, entry_id) VALUES (?, ?, ?, ?, ?)`,
			c.AssetID, c.Period.Key(), c.Index, c.Amount, entryID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: asset %s period %s already charged: %v", ledger.ErrIntegrity, c.AssetID, c.Period, err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE fixed_assets SET accumulated_depreciation = ?, net_book_value = ?, periods_charged = ?, status = ?
			 WHERE id = ? AND status = ? AND periods_charged < ?`,
			c.Accumulated, c.NetBook, c.Index, string(c.Status), c.AssetID, string(ledger.AssetInProgress), c.Index,
		)
		if err != nil {
			return nil, fmt.Errorf("update asset %s: %w", c.AssetID, mapConstraint(err))
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: asset %s changed since the run started", ledger.ErrIntegrity, c.AssetID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return charges, nil
}

// DisposeAsset posts the cession entry and marks the asset disposed.
func (s *Store) DisposeAsset(ctx context.Context, id string, date time.Time, proceeds int64) (*ledger.FixedAsset, *ledger.JournalEntry, error) {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	a, err := getAsset(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if date.Before(a.AcquisitionDate) {
		return nil, nil, fmt.Errorf("%w: disposal before acquisition", ledger.ErrInvalidDate)
	}
	e, err := depreciation.DisposalEntry(a, date, proceeds)
	if err != nil {
		return nil, nil, err
	}
	e.Validated = true
	if err := s.insertEntry(ctx, tx, e); err != nil {
		return nil, nil, err
	}

	day := ledger.Day(date)
	if _, err := tx.ExecContext(ctx,
		`UPDATE fixed_assets SET status = ?, disposal_date = ?, disposal_proceeds = ? WHERE id = ?`,
		string(ledger.AssetDisposed), formatDate(day), proceeds, id,
	); err != nil {
		return nil, nil, fmt.Errorf("update asset: %w", mapConstraint(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	a.Status, a.DisposalDate, a.DisposalProceeds = ledger.AssetDisposed, &day, proceeds
	return a, e, nil
}

// AssetCharges lists the charges booked for an asset in period order.
func (s *Store) AssetCharges(ctx context.Context, id string) ([]ledger.DepreciationCharge, error) {
	rows, err := s.reader.QueryContext(ctx,
		`SELECT period_key, period_index, amount FROM depreciation_charges WHERE asset_id = ? ORDER BY period_index`, id)
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()

	var out []ledger.DepreciationCharge
	var acc int64
	for rows.Next() {
		c := ledger.DepreciationCharge{AssetID: id}
		var key string
		if err := rows.Scan(&key, &c.Index, &c.Amount); err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		if c.Period, err = ledger.ParsePeriod(key); err != nil {
			return nil, fmt.Errorf("%w: stored period %q", ledger.ErrIntegrity, key)
		}
		acc += c.Amount
		c.Accumulated = acc
		out = append(out, c)
	}
	return out, rows.Err()
}
