/*
Package sqlite provides a SQLite-backed ledger.Persister.

PURPOSE:
  Stores the shop's transactions in a single SQLite file as an
  alternative to records.json. The ledger still holds everything in
  memory; this store only mirrors it.

WHOLE-LEDGER SAVES:
  Save replaces the table contents inside one SQL transaction:
  DELETE everything, INSERT every row, COMMIT. A failure anywhere rolls
  back, so the file never holds half a ledger.

KEY TABLES:
  transactions: one row per ledger.Record, items kept as JSON text

  Numeric columns are TEXT so decimal values survive exactly.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) so a reader (ledgerctl) does not
  block the server's writes.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l, err := ledger.New(ctx, store)

SEE ALSO:
  - ledger/store.go: Persister port
  - ledger/record.go: persisted record shape
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/textile-ledger/ledger"
)

// Store implements ledger.Persister using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		uid TEXT,
		date TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		items_json TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		original_record_id INTEGER,
		original_record_uid TEXT,
		created_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date
		ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_original
		ON transactions(original_record_id) WHERE original_record_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PERSISTER
// =============================================================================

// Load returns every stored transaction in id order.
func (s *Store) Load(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, uid, date, tx_type, quantity, unit_price, total_amount,
		       items_json, note, original_record_id, original_record_uid, created_at
		FROM transactions
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ledger.DecodeRecords(records)
}

// Save replaces the stored ledger with txs atomically.
func (s *Store) Save(ctx context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM transactions"); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO transactions
		(id, uid, date, tx_type, quantity, unit_price, total_amount,
		 items_json, note, original_record_id, original_record_uid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ledger.EncodeRecords(txs) {
		itemsJSON, err := json.Marshal(r.Items)
		if err != nil {
			return fmt.Errorf("failed to encode items of #%d: %w", r.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			r.ID,
			nullString(r.UID),
			r.Date,
			r.Type,
			r.Quantity.String(),
			r.UnitPrice.String(),
			r.TotalAmount.String(),
			string(itemsJSON),
			r.Note,
			nullInt(r.OriginalRecordID),
			nullString(r.OriginalRecordUID),
			r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction #%d: %w", r.ID, err)
		}
	}

	return sqlTx.Commit()
}

func scanRecord(rows *sql.Rows) (ledger.Record, error) {
	var (
		r           ledger.Record
		uid         sql.NullString
		quantity    string
		unitPrice   string
		totalAmount string
		itemsJSON   string
		originalID  sql.NullInt64
		originalUID sql.NullString
	)

	err := rows.Scan(
		&r.ID, &uid, &r.Date, &r.Type, &quantity, &unitPrice, &totalAmount,
		&itemsJSON, &r.Note, &originalID, &originalUID, &r.CreatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan transaction: %w", err)
	}

	r.UID = uid.String
	r.OriginalRecordUID = originalUID.String
	r.Quantity = json.Number(quantity)
	r.UnitPrice = json.Number(unitPrice)
	r.TotalAmount = json.Number(totalAmount)
	if originalID.Valid {
		id := int(originalID.Int64)
		r.OriginalRecordID = &id
	}
	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &r.Items); err != nil {
			return r, fmt.Errorf("failed to decode items of #%d: %w", r.ID, err)
		}
	}
	return r, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
