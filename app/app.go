/*
Package app wires configuration into a ready-to-use ledger and its
collaborators. Both binaries start here.

STARTUP SEQUENCE:
  1. Open the configured persister (json, sqlite or memory)
  2. Load the ledger from it
  3. Build the importer, receipt formatter and update checker

SEE ALSO:
  - cmd/server/main.go: HTTP server
  - cmd/ledgerctl/main.go: command-line client
*/
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/warp/textile-ledger/config"
	"github.com/warp/textile-ledger/importer"
	"github.com/warp/textile-ledger/ledger"
	memstore "github.com/warp/textile-ledger/ledger/store"
	"github.com/warp/textile-ledger/receipt"
	"github.com/warp/textile-ledger/store/jsonfile"
	"github.com/warp/textile-ledger/store/sqlite"
	"github.com/warp/textile-ledger/updater"
)

// FailureLogName is written next to the ledger file after an import with
// failed rows.
const FailureLogName = "import_failed.log"

// App is the assembled application.
type App struct {
	Config   *config.Config
	Ledger   *ledger.Ledger
	Importer *importer.Importer
	Receipts *receipt.Formatter
	Style    receipt.Style

	// Updates is nil when update checks are disabled.
	Updates *updater.Checker

	Logger *slog.Logger
	closer io.Closer
}

// Open builds the application from cfg.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	p, closer, err := OpenPersister(ctx, cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}

	l, err := ledger.New(ctx, p, ledger.WithLogger(logger))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Ledger:   l,
		Importer: importer.New(l, logger),
		Receipts: NewFormatter(cfg.Receipt),
		Style:    receipt.Standard,
		Logger:   logger,
		closer:   closer,
	}
	if cfg.Receipt.Compact {
		a.Style = receipt.Compact
	}
	if cfg.Updates.Enabled && cfg.Updates.URL != "" {
		a.Updates = updater.New(cfg.Updates.URL, cfg.Updates.CurrentVersion, cfg.Updates.Timeout)
	}
	return a, nil
}

// Close releases the persister.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// FailureLogPath is where import failures are written, "" for the memory
// backend.
func (a *App) FailureLogPath() string {
	if a.Config.Ledger.Backend == "memory" {
		return ""
	}
	return filepath.Join(filepath.Dir(a.Config.Ledger.Path), FailureLogName)
}

// OpenPersister returns the configured backend. The closer is nil when
// the backend holds no resources.
func OpenPersister(ctx context.Context, cfg config.LedgerConfig, logger *slog.Logger) (ledger.Persister, io.Closer, error) {
	switch cfg.Backend {
	case "", "json":
		return jsonfile.New(cfg.Path,
			jsonfile.WithStrictLoad(cfg.StrictLoad),
			jsonfile.WithLogger(logger)), nil, nil
	case "sqlite":
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		n, err := s.Count(ctx)
		if err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("count sqlite rows: %w", err)
		}
		logger.Info("sqlite ledger opened", "path", cfg.Path, "rows", n)
		return s, s, nil
	case "memory":
		return memstore.NewMemory(), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}

// NewFormatter builds a receipt formatter from the shop settings.
func NewFormatter(cfg config.ReceiptConfig) *receipt.Formatter {
	f := receipt.New()
	if cfg.ShopName != "" {
		f.ShopName = cfg.ShopName
	}
	if cfg.Footer != "" {
		f.Footer = cfg.Footer
	}
	if cfg.Width > 0 {
		f.Width = cfg.Width
	}
	f.ShopAddress = cfg.ShopAddress
	f.ShopPhone = cfg.ShopPhone
	f.Now = time.Now
	return f
}
