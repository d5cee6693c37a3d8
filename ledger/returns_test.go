package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/ledger"
)

func TestResolver_IsReturn(t *testing.T) {
	tests := []struct {
		name string
		tx   ledger.Transaction
		want bool
	}{
		{"explicit return", ledger.Transaction{Kind: ledger.KindReturn, Quantity: -1}, true},
		{"explicit sale", ledger.Transaction{Kind: ledger.KindSale, Quantity: 2}, false},
		{"legacy negative", ledger.Transaction{Quantity: -3}, true},
		{"legacy positive", ledger.Transaction{Quantity: 3}, false},
		{"kind wins over sign", ledger.Transaction{Kind: ledger.KindSale, Quantity: -1}, false},
	}
	r := ledger.NewResolver(ledger.Snapshot(nil))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsReturn(tt.tx))
			assert.Equal(t, !tt.want, tt.tx.IsSale())
		})
	}
}

func TestResolver_ReturnsFor_OrderedByCreatedAt(t *testing.T) {
	// GIVEN: A sale with two linked returns stored out of creation order,
	//        plus an orphan return and a return against another sale
	base := time.Date(2026, 2, 6, 10, 0, 0, 0, time.Local)
	one, two := 1, 2
	txs := ledger.Snapshot{
		{ID: 1, Kind: ledger.KindSale, Quantity: 5},
		{ID: 2, Kind: ledger.KindSale, Quantity: 1},
		{ID: 3, Kind: ledger.KindReturn, Quantity: -1, OriginalID: &one, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, Kind: ledger.KindReturn, Quantity: -2, OriginalID: &one, CreatedAt: base.Add(time.Hour)},
		{ID: 5, Kind: ledger.KindReturn, Quantity: -1},
		{ID: 6, Kind: ledger.KindReturn, Quantity: -1, OriginalID: &two},
	}
	r := ledger.NewResolver(txs)

	got := r.ReturnsFor(1)

	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].ID)
	assert.Equal(t, 3, got[1].ID)

	remaining, err := r.RemainingReturnable(1)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	remaining, err = r.RemainingReturnable(2)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestResolver_RemainingReturnable_Errors(t *testing.T) {
	r := ledger.NewResolver(ledger.Snapshot{
		{ID: 1, Kind: ledger.KindReturn, Quantity: -1},
	})

	_, err := r.RemainingReturnable(1)
	assert.True(t, ledger.IsValidation(err))

	_, err = r.RemainingReturnable(2)
	assert.True(t, ledger.IsNotFound(err))
}

func TestResolver_PartialReturnsNeverExceedSale(t *testing.T) {
	// Property: any sequence of partial returns keeps sum |returns| <= sale.

	ctx := context.Background()
	l, _ := newTestLedger(t)
	sale := addSale(t, l, "2026-02-06", ledger.Item(7, "100"))
	r := ledger.NewResolver(l)

	for _, q := range []int{3, 5, 2, 1, 4, 1, 1} {
		_, _ = l.ReturnAgainst(ctx, sale.ID, "", []ledger.LineItem{ledger.Item(q, "100")}, "")

		returned := 0
		for _, ret := range r.ReturnsFor(sale.ID) {
			returned += ret.AbsQuantity()
		}
		assert.LessOrEqual(t, returned, sale.Quantity)
	}

	remaining, err := r.RemainingReturnable(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestResolver_IntegrityReport(t *testing.T) {
	one, three, nine := 1, 3, 9
	r := ledger.NewResolver(ledger.Snapshot{
		{ID: 1, UID: "a", Kind: ledger.KindSale, Quantity: 2},
		{ID: 2, UID: "b", Kind: ledger.KindReturn, Quantity: -1, OriginalID: &one, OriginalUID: "a"},
		{ID: 3, UID: "c", Kind: ledger.KindReturn, Quantity: -1},
		{ID: 4, UID: "d", Kind: ledger.KindReturn, Quantity: -1, OriginalID: &three},
		{ID: 5, UID: "e", Kind: ledger.KindReturn, Quantity: -1, OriginalID: &nine},
		{ID: 6, UID: "f", Kind: ledger.KindReturn, Quantity: -1, OriginalID: &one, OriginalUID: "gone"},
	})

	report := r.IntegrityReport()

	require.Len(t, report, 3)
	assert.Equal(t, ledger.BrokenLink{ReturnID: 4, OriginalID: 3, Problem: ledger.LinkNotSale}, report[0])
	assert.Equal(t, ledger.BrokenLink{ReturnID: 5, OriginalID: 9, Problem: ledger.LinkDangling}, report[1])
	assert.Equal(t, ledger.BrokenLink{ReturnID: 6, OriginalID: 1, Problem: ledger.LinkShifted}, report[2])
}
