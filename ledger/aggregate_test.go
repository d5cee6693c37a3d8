package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/ledger/store"
)

// loadRecords builds a ledger from raw records, so tests can place
// transactions on arbitrary (even malformed) dates.
func loadRecords(t *testing.T, records ...ledger.Record) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(context.Background(), store.NewFromRecords(records...))
	require.NoError(t, err)
	return l
}

func legacy(id int, date string, qty string, price string) ledger.Record {
	return ledger.Record{ID: id, Date: date, Quantity: jsonNum(qty), UnitPrice: jsonNum(price)}
}

func TestEngine_DailySummary_Empty(t *testing.T) {
	engine := ledger.NewEngine(ledger.Snapshot(nil))

	s := engine.DailySummary("2026-02-06")

	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0, s.SaleQuantity)
	assert.Equal(t, 0, s.ReturnQuantity)
	assert.Equal(t, 0, s.NetQuantity)
	assert.True(t, s.SaleAmount.IsZero())
	assert.True(t, s.ReturnAmount.IsZero())
	assert.True(t, s.NetAmount.IsZero())
	assert.True(t, s.AverageSalePrice.IsZero(), "zero sales means zero average, not an error")
	assert.True(t, s.NetAmount.Equal(s.SaleAmount.Sub(s.ReturnAmount)))
}

func TestEngine_DailySummary_SplitsSalesAndReturns(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2026-02-06", "3", "100"),
		legacy(2, "2026-02-06", "1", "60"),
		legacy(3, "2026-02-06", "-2", "100"),
		legacy(4, "2026-02-07", "5", "10"),
	)

	s := ledger.NewEngine(l).DailySummary("2026-02-06")

	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 4, s.SaleQuantity)
	assertDecimal(t, "360", s.SaleAmount)
	assert.Equal(t, 2, s.ReturnQuantity)
	assertDecimal(t, "200", s.ReturnAmount)
	assert.Equal(t, 2, s.NetQuantity)
	assertDecimal(t, "160", s.NetAmount)
	assertDecimal(t, "90", s.AverageSalePrice)
	assert.Equal(t, 1, s.ActiveDays)
}

func TestEngine_NetEqualsSaleMinusReturn(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2026-02-06", "7", "33.3"),
		legacy(2, "2026-02-06", "-3", "12.45"),
		legacy(3, "2026-02-06", "-1", "99.99"),
	)
	engine := ledger.NewEngine(l)

	for _, d := range []string{"2026-02-05", "2026-02-06"} {
		s := engine.DailySummary(d)
		assert.True(t, s.NetAmount.Equal(s.SaleAmount.Sub(s.ReturnAmount)), d)
		assert.Equal(t, s.SaleQuantity-s.ReturnQuantity, s.NetQuantity, d)
	}
}

func TestEngine_RangeSummary(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2026-01-31", "1", "100"),
		legacy(2, "2026-02-01", "2", "100"),
		legacy(3, "2026-02-10", "-1", "100"),
		legacy(4, "2026-02-11", "4", "100"),
		legacy(5, "2026-2-5", "9", "100"),
	)
	engine := ledger.NewEngine(l)

	s, err := engine.RangeSummary("2026-02-01", "2026-02-10")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count, "inclusive both ends, malformed dates skipped")
	assert.Equal(t, 2, s.SaleQuantity)
	assert.Equal(t, 1, s.ReturnQuantity)
	assertDecimal(t, "100", s.NetAmount)
	assert.Equal(t, 2, s.ActiveDays)

	empty, err := engine.RangeSummary("2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, empty.NetAmount.IsZero())
}

func TestEngine_RangeSummary_Validation(t *testing.T) {
	engine := ledger.NewEngine(ledger.Snapshot(nil))

	_, err := engine.RangeSummary("2026-02-10", "2026-02-01")
	assert.True(t, ledger.IsValidation(err), "start after end")

	_, err = engine.RangeSummary("yesterday", "2026-02-01")
	assert.True(t, ledger.IsValidation(err))

	_, err = engine.RangeSummary("2026-02-01", "2026/02/10")
	assert.True(t, ledger.IsValidation(err))

	_, err = engine.RangeSummary("2026-02-01", "2026-02-01")
	assert.NoError(t, err, "single day range")
}

func TestEngine_MonthSummary_LexicalPrefix(t *testing.T) {
	// GIVEN: Properly padded February dates and one legacy unpadded date
	// WHEN: Summarizing "2026-02"
	// THEN: The unpadded date does not match

	l := loadRecords(t,
		legacy(1, "2026-02-01", "2", "100"),
		legacy(2, "2026-02-28", "-1", "100"),
		legacy(3, "2026-2-6", "5", "100"),
		legacy(4, "2026-03-01", "1", "100"),
	)
	engine := ledger.NewEngine(l)

	s, err := engine.MonthSummary("2026-02")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 2, s.SaleQuantity)
	assert.Equal(t, 1, s.ReturnQuantity)
	assert.Equal(t, 2, s.ActiveDays)

	_, err = engine.MonthSummary("2026-2")
	assert.True(t, ledger.IsValidation(err))
}

func TestEngine_YearSummary(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2025-12-31", "1", "10"),
		legacy(2, "2026-01-01", "2", "10"),
		legacy(3, "2026-12-31", "3", "10"),
	)

	s, err := ledger.NewEngine(l).YearSummary("2026")
	require.NoError(t, err)

	assert.Equal(t, 5, s.SaleQuantity)
	assertDecimal(t, "50", s.SaleAmount)
}

func TestEngine_DailyBreakdown(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2026-02-03", "2", "100"),
		legacy(2, "2026-02-01", "1", "50"),
		legacy(3, "2026-02-03", "-1", "100"),
		legacy(4, "2026-02-09", "1", "50"),
	)

	days, err := ledger.NewEngine(l).DailyBreakdown("2026-02-01", "2026-02-05")
	require.NoError(t, err)

	require.Len(t, days, 2)
	assert.Equal(t, "2026-02-01", days[0].Date)
	assert.Equal(t, "2026-02-03", days[1].Date)
	assert.Equal(t, 2, days[1].SaleQuantity)
	assert.Equal(t, 1, days[1].ReturnQuantity)
	assertDecimal(t, "100", days[1].NetAmount)
	assert.Equal(t, 2, days[1].Count)

	_, err = ledger.NewEngine(l).DailyBreakdown("2026-02-05", "2026-02-01")
	assert.True(t, ledger.IsValidation(err))
}

func TestEngine_MonthBreakdown(t *testing.T) {
	l := loadRecords(t,
		legacy(1, "2026-02-03", "2", "100"),
		legacy(2, "2026-01-31", "1", "50"),
	)

	days, err := ledger.NewEngine(l).MonthBreakdown("2026-02")
	require.NoError(t, err)

	require.Len(t, days, 1)
	assert.Equal(t, "2026-02-03", days[0].Date)
}

