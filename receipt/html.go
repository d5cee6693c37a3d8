package receipt

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/warp/textile-ledger/ledger"
)

var htmlTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}} #{{.ID}}</title>
<style>
body { font-family: "Microsoft YaHei", "SimHei", sans-serif; font-size: 12px; background: #f5f5f5; margin: 0; padding: 10px; }
.receipt { background: #fff; width: 76mm; margin: 0 auto; padding: 10px; }
h1 { font-size: 16px; text-align: center; margin: 4px 0; }
h2 { font-size: 14px; text-align: center; margin: 4px 0; }
table { width: 100%; border-collapse: collapse; }
td, th { padding: 2px 0; }
.num { text-align: right; }
.total { border-top: 1px dashed #000; font-weight: bold; }
.footer { text-align: center; margin-top: 8px; }
</style>
</head>
<body>
<div class="receipt">
<h1>{{.Shop}}</h1>
<h2>【{{.Title}}】</h2>
<p>单号: #{{.ID}}<br>日期: {{.Date}} {{.Clock}}</p>
<table>
<tr><th>商品</th><th>数量</th><th class="num">单价</th><th class="num">金额</th></tr>
{{range .Lines}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td class="num">¥{{.Price}}</td><td class="num">¥{{.Subtotal}}</td></tr>
{{end}}<tr class="total"><td>合计</td><td>{{.Quantity}}</td><td></td><td class="num">¥{{.Total}}</td></tr>
</table>
{{if .Returns}}<h2>退货明细</h2>
<table>
{{range .Returns}}<tr><td>#{{.ID}} {{.Date}}</td><td>{{.Quantity}}</td><td class="num">-¥{{.Amount}}</td></tr>
{{end}}<tr class="total"><td>实付金额</td><td></td><td class="num">¥{{.Net}}</td></tr>
</table>{{end}}
{{if .Note}}<p><strong>备注:</strong> {{.Note}}</p>{{end}}
{{if .Phone}}<p>电话: {{.Phone}}</p>{{end}}
{{if .Address}}<p>地址: {{.Address}}</p>{{end}}
<p class="footer">{{.Footer}}</p>
</div>
</body>
</html>
`))

type htmlLine struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

type htmlReturn struct {
	ID       int
	Date     string
	Quantity int
	Amount   string
}

type htmlReceipt struct {
	Shop, Title, Date, Clock string
	ID, Quantity             int
	Lines                    []htmlLine
	Total                    string
	Returns                  []htmlReturn
	Net                      string
	Note, Phone, Address     string
	Footer                   string
}

func (f *Formatter) html(tx ledger.Transaction, returns []ledger.Transaction) (string, error) {
	data := htmlReceipt{
		Shop:     f.ShopName,
		Title:    "销售单",
		ID:       tx.ID,
		Date:     tx.Date,
		Clock:    f.clock(tx),
		Quantity: tx.AbsQuantity(),
		Total:    cents(tx.TotalAmount.Abs()),
		Note:     tx.Note,
		Phone:    f.ShopPhone,
		Address:  f.ShopAddress,
		Footer:   f.Footer,
	}
	if tx.IsReturn() {
		data.Title = "退货单"
	}

	items := tx.Items
	if len(items) == 0 {
		items = []ledger.LineItem{{Quantity: tx.AbsQuantity(), UnitPrice: tx.UnitPrice()}}
	}
	for i, it := range items {
		li := ledger.LineItem{Quantity: absInt(it.Quantity), UnitPrice: it.UnitPrice.Abs()}
		data.Lines = append(data.Lines, htmlLine{
			Name:     fmt.Sprintf("商品%d: %s", i+1, productName),
			Quantity: li.Quantity,
			Price:    cents(li.UnitPrice),
			Subtotal: cents(li.Subtotal()),
		})
	}

	if len(returns) > 0 {
		_, amount := returnTotals(returns)
		for _, r := range returns {
			data.Returns = append(data.Returns, htmlReturn{ID: r.ID, Date: r.Date, Quantity: r.AbsQuantity(), Amount: cents(r.TotalAmount.Abs())})
		}
		data.Net = cents(tx.TotalAmount.Abs().Sub(amount))
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render receipt html: %w", err)
	}
	return buf.String(), nil
}
