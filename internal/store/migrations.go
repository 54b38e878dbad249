package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/simonvc/grandlivre/internal/ledger"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	// Reference data follows the chart shipped with the binary.
	if err := seedChart(ctx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			code        TEXT PRIMARY KEY,
			label       TEXT NOT NULL,
			type        TEXT NOT NULL CHECK (type IN ('asset','liability','equity','revenue','expense')),
			normal_side TEXT NOT NULL CHECK (normal_side IN ('debit','credit')),
			lettrable   INTEGER NOT NULL DEFAULT 0,
			vat_rate    TEXT NOT NULL DEFAULT ''
		)`,

		// One gap-free counter per fiscal year; next_counter is the number the
		// next entry of that year receives.
		`CREATE TABLE IF NOT EXISTS accounting_parameters (
			fiscal_year  INTEGER PRIMARY KEY,
			next_counter INTEGER NOT NULL CHECK (next_counter >= 1)
		)`,

		`CREATE TABLE IF NOT EXISTS lettrage_state (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			next_index INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO lettrage_state (id, next_index) VALUES (1, 0)`,

		`CREATE TABLE IF NOT EXISTS journal_entries (
			id              TEXT PRIMARY KEY,
			fiscal_year     INTEGER NOT NULL,
			counter         INTEGER NOT NULL CHECK (counter >= 1),
			sequence        TEXT NOT NULL UNIQUE,
			journal         TEXT NOT NULL CHECK (journal IN ('SALES','PURCHASES','BANK','MISC','OPENING')),
			entry_date      TEXT NOT NULL,
			accounting_date TEXT NOT NULL,
			label           TEXT NOT NULL,
			reference       TEXT NOT NULL DEFAULT '',
			reference_date  TEXT,
			validated       INTEGER NOT NULL DEFAULT 0,
			validated_at    TEXT,
			reversal_of     TEXT UNIQUE REFERENCES journal_entries(id),
			source_ref      TEXT UNIQUE,
			created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			UNIQUE (fiscal_year, counter)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON journal_entries(accounting_date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_journal ON journal_entries(journal)`,

		`CREATE TABLE IF NOT EXISTS lettrage_groups (
			id           TEXT PRIMARY KEY,
			code         TEXT NOT NULL UNIQUE,
			account_code TEXT NOT NULL REFERENCES accounts(code),
			counterparty TEXT NOT NULL DEFAULT '',
			total        INTEGER NOT NULL,
			status       TEXT NOT NULL CHECK (status IN ('lettre','partiel')),
			manual       INTEGER NOT NULL DEFAULT 0,
			match_date   TEXT NOT NULL,
			created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		`CREATE TABLE IF NOT EXISTS entry_lines (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id         TEXT NOT NULL REFERENCES journal_entries(id),
			position         INTEGER NOT NULL,
			account_code     TEXT NOT NULL REFERENCES accounts(code),
			label            TEXT NOT NULL DEFAULT '',
			debit            INTEGER NOT NULL DEFAULT 0 CHECK (debit >= 0),
			credit           INTEGER NOT NULL DEFAULT 0 CHECK (credit >= 0),
			aux_account      TEXT NOT NULL DEFAULT '',
			aux_label        TEXT NOT NULL DEFAULT '',
			foreign_amount   INTEGER NOT NULL DEFAULT 0,
			foreign_currency TEXT NOT NULL DEFAULT '',
			lettrage_group   TEXT REFERENCES lettrage_groups(id),
			lettrage_code    TEXT,
			lettrage_date    TEXT,
			CHECK ((debit > 0) <> (credit > 0))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_entry ON entry_lines(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account ON entry_lines(account_code)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_group ON entry_lines(lettrage_group)`,

		`CREATE TABLE IF NOT EXISTS fixed_assets (
			id                       TEXT PRIMARY KEY,
			category                 TEXT NOT NULL DEFAULT '',
			label                    TEXT NOT NULL,
			acquisition_date         TEXT NOT NULL,
			acquisition_value        INTEGER NOT NULL CHECK (acquisition_value > 0),
			asset_account            TEXT NOT NULL REFERENCES accounts(code),
			depreciation_account     TEXT NOT NULL REFERENCES accounts(code),
			expense_account          TEXT NOT NULL REFERENCES accounts(code),
			useful_life              INTEGER NOT NULL CHECK (useful_life > 0),
			method                   TEXT NOT NULL CHECK (method IN ('linear','declining')),
			rate                     TEXT NOT NULL DEFAULT '',
			accumulated_depreciation INTEGER NOT NULL DEFAULT 0,
			net_book_value           INTEGER NOT NULL CHECK (net_book_value >= 0),
			periods_charged          INTEGER NOT NULL DEFAULT 0,
			status                   TEXT NOT NULL CHECK (status IN ('in_progress','fully_depreciated','disposed')),
			disposal_date            TEXT,
			disposal_proceeds        INTEGER NOT NULL DEFAULT 0,
			created_at               TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		`CREATE TABLE IF NOT EXISTS depreciation_charges (
			asset_id     TEXT NOT NULL REFERENCES fixed_assets(id),
			period_key   TEXT NOT NULL,
			period_index INTEGER NOT NULL,
			amount       INTEGER NOT NULL CHECK (amount >= 0),
			entry_id     TEXT REFERENCES journal_entries(id),
			created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (asset_id, period_key)
		)`,

		// Trigger: a draft can only be validated if its lines balance
		`CREATE TRIGGER IF NOT EXISTS trg_check_balance
		BEFORE UPDATE OF validated ON journal_entries
		WHEN NEW.validated = 1 AND OLD.validated = 0
		BEGIN
			SELECT CASE
				WHEN (SELECT COUNT(*) FROM entry_lines WHERE entry_id = NEW.id) < 2
					OR (SELECT SUM(debit) - SUM(credit) FROM entry_lines WHERE entry_id = NEW.id) != 0
				THEN RAISE(ABORT, 'entry lines do not balance')
			END;
		END`,

		// Trigger: validated entries are frozen
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_entry_update
		BEFORE UPDATE ON journal_entries
		WHEN OLD.validated = 1
		BEGIN
			SELECT RAISE(ABORT, 'cannot modify a validated entry');
		END`,

		// Trigger: numbered entries are never removed, drafts included
		`CREATE TRIGGER IF NOT EXISTS trg_no_entry_delete
		BEFORE DELETE ON journal_entries
		BEGIN
			SELECT RAISE(ABORT, 'entries cannot be deleted');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_insert
		BEFORE INSERT ON entry_lines
		WHEN (SELECT validated FROM journal_entries WHERE id = NEW.entry_id) = 1
		BEGIN
			SELECT RAISE(ABORT, 'cannot add lines to a validated entry');
		END`,

		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_delete
		BEFORE DELETE ON entry_lines
		WHEN (SELECT validated FROM journal_entries WHERE id = OLD.entry_id) = 1
		BEGIN
			SELECT RAISE(ABORT, 'cannot remove lines from a validated entry');
		END`,

		// Lettrage columns stay writable on validated lines.
		`CREATE TRIGGER IF NOT EXISTS trg_immutable_lines_update
		BEFORE UPDATE OF entry_id, position, account_code, label, debit, credit, aux_account, aux_label, foreign_amount, foreign_currency ON entry_lines
		WHEN (SELECT validated FROM journal_entries WHERE id = OLD.entry_id) = 1
		BEGIN
			SELECT RAISE(ABORT, 'cannot modify lines of a validated entry');
		END`,

		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			n := len(stmt)
			if n > 60 {
				n = 60
			}
			return fmt.Errorf("exec %q: %w", stmt[:n], err)
		}
	}
	return nil
}

func seedChart(ctx context.Context, tx *sql.Tx) error {
	for _, a := range ledger.Chart {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (code, label, type, normal_side, lettrable, vat_rate) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET label = excluded.label, type = excluded.type,
			   normal_side = excluded.normal_side, lettrable = excluded.lettrable, vat_rate = excluded.vat_rate`,
			a.Code, a.Label, string(a.Type), string(a.NormalSide), boolToInt(a.Lettrable), a.VATRate,
		)
		if err != nil {
			return fmt.Errorf("seed account %s: %w", a.Code, err)
		}
	}
	return nil
}
