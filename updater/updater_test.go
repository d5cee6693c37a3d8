package updater_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/updater"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.1", -1},
		{"1.2", "1.2.0", 0},
		{"2", "1.9.9", 1},
		{"v1.10.0", "1.9.0", 1},
		{"1.0.0.9", "1.0.0.1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got, err := updater.CompareVersions(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := updater.CompareVersions("1.0.0", "1.x")
	assert.ErrorIs(t, err, updater.ErrInvalidVersion)
	_, err = updater.CompareVersions("", "1.0")
	assert.ErrorIs(t, err, updater.ErrInvalidVersion)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestChecker_Check(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TextileAccounting/1.0", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.URL.Query().Get("t"))
		w.Write([]byte(`{"version": "1.1.0", "message": "新增退货明细"}`))
	})

	res, err := updater.New(srv.URL+"/version.json", "1.0.0", time.Second).Check(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, "1.1.0", res.Latest.Version)
	assert.Equal(t, "新增退货明细", res.Latest.Message)
}

func TestChecker_UpToDate(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version": "1.0"}`))
	})

	res, err := updater.New(srv.URL, "1.0.0", time.Second).Check(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestChecker_Errors(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			w.Write([]byte(`not json`))
		}
	})

	_, err := updater.New(srv.URL+"/missing", "1.0.0", time.Second).Check(context.Background())
	assert.Error(t, err)

	_, err = updater.New(srv.URL+"/garbage", "1.0.0", time.Second).Check(context.Background())
	assert.Error(t, err)
}

func TestChecker_CheckAsyncCanBeAbandoned(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Write([]byte(`{"version": "9.0.0"}`))
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	out := updater.New(srv.URL, "1.0.0", 5*time.Second).CheckAsync(ctx)

	select {
	case <-out:
		t.Fatal("check finished before the server answered")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case o := <-out:
		assert.ErrorIs(t, o.Err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled check did not finish")
	}
}
