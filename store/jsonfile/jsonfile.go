/*
Package jsonfile persists the ledger as a single JSON array file.

PURPOSE:
  This is the shop's production store: the records.json file the
  desktop tool has always written, rewritten in full after every change.

FILE FORMAT:
  A JSON array of ledger.Record, two-space indented, non-ASCII text
  written as-is (notes are Chinese). Older files without type / items
  load through the legacy migration in ledger.DecodeRecord.

WRITES:
  Save writes <path>.tmp-* next to the target and renames it over the
  old file, so a crash leaves either the old or the new ledger on disk.
  There is no fsync discipline.

CORRUPT FILES:
  A file that does not parse loads as an empty ledger (the historical
  behavior). Before that happens the bad file is copied aside to
  <path>.corrupt-<timestamp> and a warning is logged, so the next Save
  cannot silently destroy it. WithStrictLoad turns this into an error.
*/
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/warp/textile-ledger/ledger"
)

// ErrCorrupt is returned by Load in strict mode when the file can't be parsed.
var ErrCorrupt = errors.New("ledger file is corrupt")

// Store implements ledger.Persister on a JSON file.
type Store struct {
	path   string
	strict bool
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithStrictLoad makes Load fail on a corrupt file instead of returning
// an empty ledger.
func WithStrictLoad(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a store for path. The file and its directory are created on
// first Save.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// DefaultPath is ~/.accounting-tool/records.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".accounting-tool", "records.json")
}

// =============================================================================
// LOAD
// =============================================================================

func (s *Store) Load(_ context.Context) ([]ledger.Transaction, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	txs, err := decode(data)
	if err == nil {
		return txs, nil
	}
	if s.strict {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	backup, berr := s.backup(data)
	if berr != nil {
		// Without a backup the next Save would overwrite the only copy.
		return nil, fmt.Errorf("%w: %s: %v (backup failed: %v)", ErrCorrupt, s.path, err, berr)
	}
	s.logger.Warn("ledger file could not be parsed, starting with an empty ledger",
		"path", s.path, "backup", backup, "error", err)
	return nil, nil
}

func decode(data []byte) ([]ledger.Transaction, error) {
	var records []ledger.Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, err
	}
	return ledger.DecodeRecords(records)
}

func (s *Store) backup(data []byte) (string, error) {
	name := s.path + ".corrupt-" + s.now().Format("20060102-150405")
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// =============================================================================
// SAVE
// =============================================================================

func (s *Store) Save(_ context.Context, txs []ledger.Transaction) error {
	records := ledger.EncodeRecords(txs)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
