/*
Package receipt renders transactions as printable receipt text.

PURPOSE:
  Produces the text sent to the shop's thermal printer for one
  transaction. For a sale, linked returns are listed below the sale
  together with the amount the customer finally paid.

STYLES:
  Compact:  left-aligned, fits one 76mm slip. Whole-yuan amounts.
  Standard: centered headings, two-decimal amounts, right-aligned total,
            wrapped note and address. Uses Formatter.Width columns.
  HTML:     preview page for a browser (html.go).

The formatter never modifies the transactions it is given.
*/
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/textile-ledger/ledger"
)

// Style selects a receipt layout.
type Style string

const (
	Compact  Style = "compact"
	Standard Style = "standard"
	HTML     Style = "html"
)

// ParseStyle maps a name to a Style; the empty string is Compact.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", Compact:
		return Compact, nil
	case Standard:
		return Standard, nil
	case HTML:
		return HTML, nil
	}
	return "", fmt.Errorf("unknown receipt style %q", s)
}

const (
	DefaultShopName = "家纺四件套"
	DefaultFooter   = "谢谢惠顾，欢迎下次光临！"
	DefaultWidth    = 32

	// productName is what every line item sells.
	productName = "四件套"

	compactRule     = 22
	compactShopName = 16
	compactNote     = 10
	compactFooter   = 12
)

// Formatter holds the shop details printed on every receipt.
type Formatter struct {
	ShopName    string
	ShopAddress string
	ShopPhone   string
	Footer      string
	Width       int

	// Now supplies the time printed when a transaction has no CreatedAt.
	Now func() time.Time
}

// New returns a formatter with the shop defaults.
func New() *Formatter {
	return &Formatter{
		ShopName: DefaultShopName,
		Footer:   DefaultFooter,
		Width:    DefaultWidth,
		Now:      time.Now,
	}
}

// Format renders tx. returns are the returns linked to tx when tx is a
// sale; they are ignored for returns.
func (f *Formatter) Format(tx ledger.Transaction, returns []ledger.Transaction, style Style) (string, error) {
	if tx.IsReturn() {
		returns = nil
	}
	switch style {
	case Compact, "":
		return f.compact(tx, returns), nil
	case Standard:
		return f.standard(tx, returns), nil
	case HTML:
		return f.html(tx, returns)
	}
	return "", fmt.Errorf("unknown receipt style %q", style)
}

// =============================================================================
// COMPACT
// =============================================================================

func (f *Formatter) compact(tx ledger.Transaction, returns []ledger.Transaction) string {
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }
	rule := strings.Repeat("-", compactRule)

	lines = append(lines, truncate(f.ShopName, compactShopName))
	kind := "销"
	if tx.IsReturn() {
		kind = "退"
	}
	add("【%s】#%d", kind, tx.ID)
	add("%s %s", tx.Date, f.clock(tx))
	lines = append(lines, rule)

	if len(tx.Items) == 0 {
		qty, price := tx.AbsQuantity(), tx.UnitPrice()
		add("%d套 @ ¥%s = ¥%s", qty, yuan(price), yuan(price.Mul(decimal.NewFromInt(int64(qty)))))
	}
	for i, it := range tx.Items {
		qty := absInt(it.Quantity)
		add("%d.%d套@¥%s=¥%s", i+1, qty, yuan(it.UnitPrice), yuan(it.UnitPrice.Abs().Mul(decimal.NewFromInt(int64(qty)))))
	}

	total := tx.TotalAmount.Abs()
	lines = append(lines, rule)
	add("共%d套 ¥%s", tx.AbsQuantity(), yuan(total))

	if len(returns) > 0 {
		lines = append(lines, "", "【退货明细】")
		qty, amount := returnTotals(returns)
		for i, r := range returns {
			add("退%d.%d套=¥%s", i+1, r.AbsQuantity(), yuan(r.TotalAmount.Abs()))
		}
		lines = append(lines, rule)
		add("退货合计:%d套 ¥%s", qty, yuan(amount))
		add("实付金额:¥%s", yuan(total.Sub(amount)))
	}

	if tx.Note != "" {
		note := tx.Note
		if len([]rune(note)) > compactNote {
			note = truncate(note, compactNote) + ".."
		}
		add("注:%s", note)
	}
	if f.ShopPhone != "" {
		lines = append(lines, f.ShopPhone)
	}
	lines = append(lines, truncate(f.Footer, compactFooter))
	return strings.Join(lines, "\n")
}

// =============================================================================
// STANDARD
// =============================================================================

func (f *Formatter) standard(tx ledger.Transaction, returns []ledger.Transaction) string {
	w := f.Width
	if w <= 0 {
		w = DefaultWidth
	}
	heavy := strings.Repeat("=", w)
	light := strings.Repeat("-", w)

	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	lines = append(lines, "", center(f.ShopName, w), heavy)
	title := "【销售单】"
	if tx.IsReturn() {
		title = "【退货单】"
	}
	lines = append(lines, center(title, w), "")
	add("单号: #%d", tx.ID)
	add("日期: %s %s", tx.Date, f.clock(tx))
	lines = append(lines, light, justify("商品", "金额", w), light)

	if len(tx.Items) == 0 {
		add("%s x%d @¥%s", productName, tx.AbsQuantity(), cents(tx.UnitPrice()))
	}
	for i, it := range tx.Items {
		qty := absInt(it.Quantity)
		add("商品%d: %s", i+1, productName)
		add("  x%d @¥%s = ¥%s", qty, cents(it.UnitPrice), cents(it.UnitPrice.Abs().Mul(decimal.NewFromInt(int64(qty)))))
	}
	lines = append(lines, light)

	total := tx.TotalAmount.Abs()
	lines = append(lines, justify(fmt.Sprintf("合计: %d套", tx.AbsQuantity()), "¥"+cents(total), w))

	if len(returns) > 0 {
		lines = append(lines, "", "退货明细:")
		qty, amount := returnTotals(returns)
		for _, r := range returns {
			lines = append(lines, justify(fmt.Sprintf("  #%d %s x%d", r.ID, r.Date, r.AbsQuantity()), "-¥"+cents(r.TotalAmount.Abs()), w))
		}
		lines = append(lines, light)
		lines = append(lines, justify(fmt.Sprintf("退货合计: %d套", qty), "¥"+cents(amount), w))
		lines = append(lines, justify("实付金额:", "¥"+cents(total.Sub(amount)), w))
	}
	lines = append(lines, "")

	if tx.Note != "" {
		lines = append(lines, wrap("备注: "+tx.Note, w)...)
		lines = append(lines, "")
	}
	lines = append(lines, heavy)
	if f.ShopPhone != "" {
		add("电话: %s", f.ShopPhone)
	}
	if f.ShopAddress != "" {
		lines = append(lines, wrap("地址: "+f.ShopAddress, w)...)
	}
	lines = append(lines, "", center(f.Footer, w), "", heavy, "")
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELPERS
// =============================================================================

// clock is the time-of-day part printed next to the date.
func (f *Formatter) clock(tx ledger.Transaction) string {
	t := tx.CreatedAt
	if t.IsZero() {
		now := time.Now
		if f.Now != nil {
			now = f.Now
		}
		t = now()
	}
	return t.Format("15:04:05")
}

func returnTotals(returns []ledger.Transaction) (int, decimal.Decimal) {
	qty, amount := 0, decimal.Zero
	for _, r := range returns {
		qty += r.AbsQuantity()
		amount = amount.Add(r.TotalAmount.Abs())
	}
	return qty, amount
}

// yuan formats a whole-yuan amount, rounding half to even.
func yuan(d decimal.Decimal) string { return d.StringFixedBank(0) }

// cents formats a two-decimal amount.
func cents(d decimal.Decimal) string { return d.StringFixedBank(2) }

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
