package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/textile-ledger/export"
	"github.com/warp/textile-ledger/importer"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/receipt"
)

// errCheckFailed makes check exit non-zero without an extra message.
var errCheckFailed = errors.New("integrity check failed")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func newFlags(name string, c *cli) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.err)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	return nil
}

// parseItems reads QTY PRICE pairs.
func parseItems(args []string) ([]ledger.LineItem, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, usageErr("expected QTY PRICE pairs, got %d arguments", len(args))
	}
	items := make([]ledger.LineItem, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		q, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, usageErr("quantity %q is not a whole number", args[i])
		}
		p, err := decimal.NewFromString(args[i+1])
		if err != nil {
			return nil, usageErr("price %q is not a number", args[i+1])
		}
		items = append(items, ledger.LineItem{Quantity: q, UnitPrice: p})
	}
	return items, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, usageErr("%q is not a transaction id", s)
	}
	return id, nil
}

// =============================================================================
// CREATE
// =============================================================================

func cmdAdd(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("add", c)
	date := fs.String("date", ledger.Today(), "transaction date (YYYY-MM-DD)")
	note := fs.String("note", "", "note")
	isReturn := fs.Bool("return", false, "record a return not tied to a sale")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	items, err := parseItems(fs.Args())
	if err != nil {
		return err
	}

	kind := ledger.KindSale
	if *isReturn {
		kind = ledger.KindReturn
	}
	tx, err := c.app.Ledger.Add(ctx, ledger.AddInput{Kind: kind, Date: *date, Items: items, Note: *note})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added #%d: %s %d x ¥%s = ¥%s\n",
		tx.ID, tx.Date, tx.Quantity, tx.UnitPrice().StringFixed(2), tx.TotalAmount.StringFixed(2))
	return nil
}

func cmdReturn(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("return", c)
	date := fs.String("date", "", "return date (default today)")
	note := fs.String("note", "", "note (default references the sale)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() < 3 {
		return usageErr("expected SALE_ID followed by QTY PRICE pairs")
	}
	saleID, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	items, err := parseItems(fs.Args()[1:])
	if err != nil {
		return err
	}

	tx, err := c.app.Ledger.ReturnAgainst(ctx, saleID, *date, items, *note)
	if err != nil {
		return err
	}
	remaining, _ := ledger.NewResolver(c.app.Ledger).RemainingReturnable(saleID)
	fmt.Fprintf(c.out, "added return #%d against sale #%d: %d, ¥%s (still returnable: %d)\n",
		tx.ID, saleID, tx.Quantity, tx.TotalAmount.StringFixed(2), remaining)
	return nil
}

// =============================================================================
// READ
// =============================================================================

func cmdShow(_ context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return usageErr("expected one id")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	tx, err := c.app.Ledger.Get(id)
	if err != nil {
		return err
	}

	printTransactions(c.out, []ledger.Transaction{tx})
	for i, it := range tx.Items {
		fmt.Fprintf(c.out, "  item %d: %d x ¥%s = ¥%s\n", i+1, it.Quantity, it.UnitPrice.StringFixed(2), it.Subtotal().StringFixed(2))
	}
	if tx.IsReturn() {
		if tx.OriginalID != nil {
			fmt.Fprintf(c.out, "  returns sale #%d\n", *tx.OriginalID)
		}
		return nil
	}

	res := ledger.NewResolver(c.app.Ledger)
	returns := res.ReturnsFor(id)
	remaining, err := res.RemainingReturnable(id)
	if err != nil {
		return err
	}
	if len(returns) > 0 {
		fmt.Fprintln(c.out, "\nlinked returns:")
		printTransactions(c.out, returns)
	}
	fmt.Fprintf(c.out, "still returnable: %d\n", remaining)
	return nil
}

func cmdList(_ context.Context, c *cli, args []string) error {
	fs := newFlags("list", c)
	sort := fs.String("sort", "id", "id or date_desc")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	order := ledger.StoreOrder
	switch *sort {
	case "id":
	case "date_desc":
		order = ledger.DateDescending
	default:
		return usageErr("unknown sort %q", *sort)
	}

	txs := c.app.Ledger.Query(ledger.All(), order)
	if len(txs) == 0 {
		fmt.Fprintln(c.out, "no transactions")
		return nil
	}
	printTransactions(c.out, txs)
	return nil
}

func cmdToday(_ context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usageErr("today takes no arguments")
	}
	today := ledger.Today()
	printSummary(c.out, today, ledger.NewEngine(c.app.Ledger).DailySummary(today))
	if txs := c.app.Ledger.Query(ledger.OnDate(today), ledger.StoreOrder); len(txs) > 0 {
		fmt.Fprintln(c.out)
		printTransactions(c.out, txs)
	}
	return nil
}

func cmdRange(_ context.Context, c *cli, args []string) error {
	if len(args) != 2 {
		return usageErr("expected FROM and TO dates")
	}
	engine := ledger.NewEngine(c.app.Ledger)
	s, err := engine.RangeSummary(args[0], args[1])
	if err != nil {
		return err
	}
	days, err := engine.DailyBreakdown(args[0], args[1])
	if err != nil {
		return err
	}
	printSummary(c.out, args[0]+" ~ "+args[1], s)
	printBreakdown(c.out, days)
	return nil
}

func cmdMonth(_ context.Context, c *cli, args []string) error {
	month := time.Now().Format("2006-01")
	switch len(args) {
	case 0:
	case 1:
		month = args[0]
	default:
		return usageErr("expected at most one YYYY-MM month")
	}
	engine := ledger.NewEngine(c.app.Ledger)
	s, err := engine.MonthSummary(month)
	if err != nil {
		return err
	}
	days, err := engine.MonthBreakdown(month)
	if err != nil {
		return err
	}
	printSummary(c.out, month, s)
	printBreakdown(c.out, days)
	return nil
}

// =============================================================================
// UPDATE / DELETE
// =============================================================================

func cmdDelete(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return usageErr("expected one id")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	deleted, err := c.app.Ledger.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return &ledger.NotFoundError{ID: id}
	}
	fmt.Fprintf(c.out, "deleted #%d; later transactions were renumbered\n", id)
	return nil
}

func cmdEdit(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return usageErr("expected an id")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fs := newFlags("edit", c)
	note := fs.String("note", "", "new note")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	var mutators []ledger.Mutator
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "note" {
			mutators = append(mutators, ledger.SetNote(*note))
		}
	})
	if fs.NArg() > 0 {
		items, err := parseItems(fs.Args())
		if err != nil {
			return err
		}
		mutators = append(mutators, ledger.SetItems(items...))
	}
	if len(mutators) == 0 {
		return usageErr("nothing to change")
	}

	tx, err := c.app.Ledger.Update(ctx, id, mutators...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "updated #%d: %d, ¥%s\n", tx.ID, tx.Quantity, tx.TotalAmount.StringFixed(2))
	return nil
}

// =============================================================================
// FILES
// =============================================================================

func cmdExport(_ context.Context, c *cli, args []string) error {
	fs := newFlags("export", c)
	formatName := fs.String("format", "csv", "csv, xlsx or pdf")
	outPath := fs.String("o", "", "output file (default 记账导出_<timestamp>.<ext>)")
	from := fs.String("from", "", "first date")
	to := fs.String("to", "", "last date")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return usageErr("%v", err)
	}
	path := *outPath
	if path == "" {
		path = format.FileName(time.Now())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, c.app.Ledger, *from, *to); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "exported to %s\n", path)
	return nil
}

func cmdImport(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("import", c)
	dateCol := fs.Int("date-col", 0, "1-based date column")
	qtyCol := fs.Int("qty-col", 0, "1-based quantity column")
	priceCol := fs.Int("price-col", 0, "1-based unit price column")
	noteCol := fs.Int("note-col", 0, "1-based note column")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("expected one file")
	}

	table, err := importer.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	override := importer.Columns{
		Date:      *dateCol - 1,
		Quantity:  *qtyCol - 1,
		UnitPrice: *priceCol - 1,
		Note:      *noteCol - 1,
	}

	res, err := c.app.Importer.Import(ctx, table, override)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "imported %d rows (%s), %d failed\n", len(res.Imported), table.Encoding, len(res.Failed))
	if len(res.Failed) == 0 {
		return nil
	}

	for _, f := range res.Failed {
		fmt.Fprintf(c.out, "  row %d: %s\n", f.Row, f.Reason)
	}
	if path := c.app.FailureLogPath(); path != "" {
		if err := writeFailureLog(path, res.Failed); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "failed rows written to %s\n", path)
	}
	return nil
}

func writeFailureLog(path string, failures []importer.Failure) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := importer.WriteFailureLog(f, failures); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdReceipt(_ context.Context, c *cli, args []string) error {
	fs := newFlags("receipt", c)
	styleName := fs.String("style", "", "compact, standard or html")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErr("expected one id")
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	style := c.app.Style
	if *styleName != "" {
		if style, err = receipt.ParseStyle(*styleName); err != nil {
			return usageErr("%v", err)
		}
	}

	tx, err := c.app.Ledger.Get(id)
	if err != nil {
		return err
	}
	var returns []ledger.Transaction
	if tx.IsSale() {
		returns = ledger.NewResolver(c.app.Ledger).ReturnsFor(id)
	}
	text, err := c.app.Receipts.Format(tx, returns, style)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, text)
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

func cmdCheck(_ context.Context, c *cli, args []string) error {
	if len(args) != 0 {
		return usageErr("check takes no arguments")
	}
	broken := ledger.NewResolver(c.app.Ledger).IntegrityReport()
	if len(broken) == 0 {
		fmt.Fprintf(c.out, "ok: %d transactions, all return links intact\n", c.app.Ledger.Len())
		return nil
	}
	for _, b := range broken {
		line := fmt.Sprintf("return #%d -> #%d: %s", b.ReturnID, b.OriginalID, b.Problem)
		if b.CurrentID != 0 {
			line += fmt.Sprintf(" (sale is now #%d)", b.CurrentID)
		}
		fmt.Fprintln(c.out, line)
	}
	return errCheckFailed
}

// =============================================================================
// OUTPUT
// =============================================================================

func printTransactions(w io.Writer, txs []ledger.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tQTY\tPRICE\tTOTAL\tNOTE")
	for _, t := range txs {
		kind := "sale"
		if t.IsReturn() {
			kind = "return"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			t.ID, t.Date, kind, t.Quantity, t.UnitPrice().StringFixed(2), t.TotalAmount.StringFixed(2),
			strings.ReplaceAll(t.Note, "\n", " "))
	}
	tw.Flush()
}

func printSummary(w io.Writer, period string, s ledger.Summary) {
	fmt.Fprintf(w, "%s: %d transactions\n", period, s.Count)
	fmt.Fprintf(w, "  sales    %d sets  ¥%s\n", s.SaleQuantity, s.SaleAmount.StringFixed(2))
	fmt.Fprintf(w, "  returns  %d sets  ¥%s\n", s.ReturnQuantity, s.ReturnAmount.StringFixed(2))
	fmt.Fprintf(w, "  net      %d sets  ¥%s\n", s.NetQuantity, s.NetAmount.StringFixed(2))
	fmt.Fprintf(w, "  average sale price ¥%s\n", s.AverageSalePrice.StringFixed(2))
}

func printBreakdown(w io.Writer, days []ledger.DaySummary) {
	if len(days) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSOLD\tRETURNED\tNET QTY\tNET AMOUNT")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", d.Date, d.SaleQuantity, d.ReturnQuantity, d.NetQuantity, d.NetAmount.StringFixed(2))
	}
	tw.Flush()
}
