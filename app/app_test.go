package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/app"
	"github.com/warp/textile-ledger/config"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/logging"
	"github.com/warp/textile-ledger/receipt"
)

func testConfig(backend, path string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Ledger: config.LedgerConfig{Backend: backend, Path: path},
		Receipt: config.ReceiptConfig{
			ShopName: "城南家纺",
			Compact:  false,
			Width:    40,
		},
		Updates: config.UpdatesConfig{CurrentVersion: "1.0.0", Timeout: time.Second},
		Log:     config.LogConfig{Level: "info", Format: "text"},
	}
}

func TestOpen_BackendsPersist(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger."+backend)
			cfg := testConfig(backend, path)
			ctx := context.Background()

			a, err := app.Open(ctx, cfg, logging.Discard())
			require.NoError(t, err)
			_, err = a.Ledger.Add(ctx, ledger.AddInput{
				Kind: ledger.KindSale, Date: "2026-02-06", Items: []ledger.LineItem{ledger.Item(2, "100")},
			})
			require.NoError(t, err)
			require.NoError(t, a.Close())

			reopened, err := app.Open(ctx, cfg, logging.Discard())
			require.NoError(t, err)
			defer reopened.Close()
			assert.Equal(t, 1, reopened.Ledger.Len())
		})
	}
}

func TestOpen_Collaborators(t *testing.T) {
	cfg := testConfig("memory", "")

	a, err := app.Open(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, receipt.Standard, a.Style)
	assert.Equal(t, "城南家纺", a.Receipts.ShopName)
	assert.Equal(t, 40, a.Receipts.Width)
	assert.Equal(t, receipt.DefaultFooter, a.Receipts.Footer)
	assert.Nil(t, a.Updates, "updates disabled")
	assert.Empty(t, a.FailureLogPath())
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := app.Open(context.Background(), testConfig("redis", "x"), logging.Discard())

	assert.Error(t, err)
}

func TestFailureLogPath(t *testing.T) {
	dir := t.TempDir()
	a, err := app.Open(context.Background(), testConfig("json", filepath.Join(dir, "records.json")), logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "import_failed.log"), a.FailureLogPath())
}
