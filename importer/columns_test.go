package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/textile-ledger/importer"
)

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    importer.Columns
	}{
		{
			name:    "chinese headers",
			headers: []string{"日期", "数量", "单价", "备注"},
			want:    importer.Columns{Date: 0, Quantity: 1, UnitPrice: 2, Note: 3},
		},
		{
			name:    "english mixed case with padding",
			headers: []string{" Note ", "QTY", "Unit Price", "Sale Date"},
			want:    importer.Columns{Date: 3, Quantity: 1, UnitPrice: 2, Note: 0},
		},
		{
			name:    "substring matches",
			headers: []string{"销售时间", "件数(套)", "价格(元)", "客户姓名"},
			want:    importer.Columns{Date: 0, Quantity: 1, UnitPrice: 2, Note: 3},
		},
		{
			name:    "first matching header wins",
			headers: []string{"日期", "下单日期", "数量", "单价"},
			want:    importer.Columns{Date: 0, Quantity: 2, UnitPrice: 3, Note: -1},
		},
		{
			name:    "nothing recognized",
			headers: []string{"a", "b"},
			want:    importer.NoColumns,
		},
		{
			name:    "empty header list",
			headers: nil,
			want:    importer.NoColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.DetectColumns(tt.headers))
		})
	}
}

func TestColumns_MergeAndMissing(t *testing.T) {
	detected := importer.DetectColumns([]string{"时间", "金额", "x"})
	assert.Equal(t, []string{"quantity", "unit_price"}, detected.Missing())

	override := importer.NoColumns
	override.Quantity = 2
	override.UnitPrice = 1
	merged := detected.Merge(override)

	assert.Empty(t, merged.Missing())
	assert.Equal(t, importer.Columns{Date: 0, Quantity: 2, UnitPrice: 1, Note: -1}, merged)
}
