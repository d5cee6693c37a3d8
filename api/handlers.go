/*
handlers.go - HTTP API handlers for the shop ledger

PURPOSE:
  Exposes the ledger, aggregation engine, return resolver, importer,
  exporters and receipt formatter over REST. Handles HTTP request and
  response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Transactions:
    GET    /api/transactions                 List (date=, from=&to=, month=, sort=date_desc)
    POST   /api/transactions                 Add a sale or independent return
    GET    /api/transactions/{id}            Get one
    PATCH  /api/transactions/{id}            Edit note and/or items
    DELETE /api/transactions/{id}            Delete and renumber

  Returns:
    GET    /api/transactions/{id}/returns    Returns linked to a sale
    POST   /api/transactions/{id}/returns    Partial return against a sale
    GET    /api/transactions/{id}/returnable Remaining returnable quantity
    GET    /api/transactions/{id}/receipt    Printable receipt

  Summaries:
    GET    /api/summary/{daily,range,month,year,breakdown}

  Files:
    POST   /api/import                       Multipart CSV / XLSX upload
    GET    /api/export                       CSV / XLSX / PDF download

  Maintenance:
    GET    /api/integrity                    Broken return links
    GET    /api/updates                      Release check

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Transaction not found
  - 500: Persistence and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/textile-ledger/export"
	"github.com/warp/textile-ledger/importer"
	"github.com/warp/textile-ledger/ledger"
	"github.com/warp/textile-ledger/receipt"
	"github.com/warp/textile-ledger/updater"
)

// maxUpload bounds import uploads.
const maxUpload = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Ledger
	Importer *importer.Importer
	Receipts *receipt.Formatter

	// ReceiptStyle is used when a request names none.
	ReceiptStyle receipt.Style

	// Updates is nil when update checks are disabled.
	Updates *updater.Checker

	// FailureLog, when set, receives the failed rows of every import.
	FailureLog string

	Logger *slog.Logger
	Now    func() time.Time
}

// NewHandler creates a handler over l with default collaborators.
func NewHandler(l *ledger.Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		Ledger:       l,
		Importer:     importer.New(l, logger),
		Receipts:     receipt.New(),
		ReceiptStyle: receipt.Compact,
		Logger:       logger,
		Now:          time.Now,
	}
}

func (h *Handler) engine() *ledger.Engine     { return ledger.NewEngine(h.Ledger) }
func (h *Handler) resolver() *ledger.Resolver { return ledger.NewResolver(h.Ledger) }

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns transactions filtered by at most one of date,
// from/to or month.
// GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	pred := ledger.All()
	switch {
	case q.Get("date") != "":
		pred = ledger.OnDate(q.Get("date"))
	case q.Get("from") != "" || q.Get("to") != "":
		dr, err := ledger.NewDateRange(q.Get("from"), q.Get("to"))
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		pred = ledger.InRange(dr)
	case q.Get("month") != "":
		if _, err := time.Parse("2006-01", q.Get("month")); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		pred = ledger.InMonth(q.Get("month"))
	}

	order := ledger.StoreOrder
	switch q.Get("sort") {
	case "", "id":
	case "date_desc":
		order = ledger.DateDescending
	default:
		writeError(w, http.StatusBadRequest, "Invalid sort (use id or date_desc)", nil)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(h.Ledger.Query(pred, order)))
}

// CreateTransaction adds a sale or an independent return.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items, err := fromLineItemDTOs(req.Items)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	kind := ledger.Kind(req.Type)
	if kind == "" {
		kind = ledger.KindSale
	}
	date := req.Date
	if date == "" {
		date = h.Now().Format(ledger.DateLayout)
	}

	tx, err := h.Ledger.Add(r.Context(), ledger.AddInput{Kind: kind, Date: date, Items: items, Note: req.Note})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetTransaction returns one transaction.
// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.Ledger.Get(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// UpdateTransaction edits the note and/or the items.
// PATCH /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var mutators []ledger.Mutator
	if req.Note != nil {
		mutators = append(mutators, ledger.SetNote(*req.Note))
	}
	if req.Items != nil {
		items, err := fromLineItemDTOs(req.Items)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		mutators = append(mutators, ledger.SetItems(items...))
	}

	tx, err := h.Ledger.Update(r.Context(), id, mutators...)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction removes a transaction. Later ids shift down by one.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.Ledger.Delete(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !deleted {
		writeLedgerError(w, &ledger.NotFoundError{ID: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RETURN HANDLERS
// =============================================================================

// ListReturns returns the returns linked to a sale.
// GET /api/transactions/{id}/returns
func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.Ledger.Get(id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(h.resolver().ReturnsFor(id)))
}

// CreateReturn records a partial return against a sale.
// POST /api/transactions/{id}/returns
func (h *Handler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CreateReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	items, err := fromLineItemDTOs(req.Items)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	tx, err := h.Ledger.ReturnAgainst(r.Context(), id, req.Date, items, req.Note)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetReturnable reports how much of a sale can still be returned.
// GET /api/transactions/{id}/returnable
func (h *Handler) GetReturnable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res := h.resolver()
	remaining, err := res.RemainingReturnable(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	sale, err := h.Ledger.Get(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReturnableDTO{
		SaleID:    id,
		Sold:      sale.Quantity,
		Remaining: remaining,
		Returns:   toTransactionDTOs(res.ReturnsFor(id)),
	})
}

// GetReceipt renders a receipt as text, or HTML for style=html.
// GET /api/transactions/{id}/receipt
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	style := h.ReceiptStyle
	if s := r.URL.Query().Get("style"); s != "" {
		var err error
		if style, err = receipt.ParseStyle(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid receipt style", err)
			return
		}
	}

	tx, err := h.Ledger.Get(id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	var returns []ledger.Transaction
	if tx.IsSale() {
		returns = h.resolver().ReturnsFor(id)
	}

	text, err := h.Receipts.Format(tx, returns, style)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render receipt", err)
		return
	}
	if style == receipt.HTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	io.WriteString(w, text)
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// GetDailySummary summarizes one date, today by default.
// GET /api/summary/daily
func (h *Handler) GetDailySummary(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.Now().Format(ledger.DateLayout)
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(date, h.engine().DailySummary(date)))
}

// GetRangeSummary summarizes [from, to] inclusive.
// GET /api/summary/range
func (h *Handler) GetRangeSummary(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	s, err := h.engine().RangeSummary(from, to)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(from+"~"+to, s))
}

// GetMonthSummary summarizes a YYYY-MM month, the current one by default.
// GET /api/summary/month
func (h *Handler) GetMonthSummary(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.Now().Format("2006-01")
	}
	s, err := h.engine().MonthSummary(month)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(month, s))
}

// GetYearSummary summarizes a YYYY year, the current one by default.
// GET /api/summary/year
func (h *Handler) GetYearSummary(w http.ResponseWriter, r *http.Request) {
	year := r.URL.Query().Get("year")
	if year == "" {
		year = h.Now().Format("2006")
	}
	s, err := h.engine().YearSummary(year)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(year, s))
}

// GetBreakdown returns one summary per active date in [from, to], or in
// month= when given.
// GET /api/summary/breakdown
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		days []ledger.DaySummary
		err  error
	)
	if month := q.Get("month"); month != "" {
		days, err = h.engine().MonthBreakdown(month)
	} else {
		days, err = h.engine().DailyBreakdown(q.Get("from"), q.Get("to"))
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]DaySummaryDTO, len(days))
	for i, d := range days {
		out[i] = DaySummaryDTO{Date: d.Date, SummaryDTO: toSummaryDTO(d.Date, d.Summary)}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// FILE HANDLERS
// =============================================================================

// ImportFile imports a multipart "file" field. Optional form fields
// date_col, quantity_col, price_col and note_col (1-based) override the
// detected columns.
// POST /api/import
func (h *Handler) ImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	override, err := columnOverrides(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid column override", err)
		return
	}

	var table importer.Table
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xlsm":
		table, err = importer.ReadXLSX(file)
	default:
		table, err = importer.ReadCSV(file)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file", err)
		return
	}

	res, err := h.Importer.Import(r.Context(), table, override)
	switch {
	case errors.Is(err, importer.ErrMissingColumns):
		writeError(w, http.StatusBadRequest, "Required columns not found", err)
		return
	case err != nil && res.Imported == nil && !ledger.IsPersistence(err):
		writeError(w, http.StatusBadRequest, "Import failed", err)
		return
	case err != nil:
		writeLedgerError(w, err)
		return
	}

	if len(res.Failed) > 0 && h.FailureLog != "" {
		h.writeFailureLog(res.Failed)
	}

	failed := res.Failed
	if failed == nil {
		failed = []importer.Failure{}
	}
	writeJSON(w, http.StatusOK, ImportResultDTO{
		Encoding: table.Encoding,
		Columns:  toColumnsDTO(res.Columns),
		Imported: len(res.Imported),
		Failed:   failed,
	})
}

func (h *Handler) writeFailureLog(failures []importer.Failure) {
	if err := os.MkdirAll(filepath.Dir(h.FailureLog), 0o755); err != nil {
		h.Logger.Warn("import failure log not written", "path", h.FailureLog, "error", err)
		return
	}
	f, err := os.Create(h.FailureLog)
	if err != nil {
		h.Logger.Warn("import failure log not written", "path", h.FailureLog, "error", err)
		return
	}
	defer f.Close()
	if err := importer.WriteFailureLog(f, failures); err != nil {
		h.Logger.Warn("import failure log not written", "path", h.FailureLog, "error", err)
	}
}

func columnOverrides(r *http.Request) (importer.Columns, error) {
	cols := importer.NoColumns
	for field, dst := range map[string]*int{
		"date_col":     &cols.Date,
		"quantity_col": &cols.Quantity,
		"price_col":    &cols.UnitPrice,
		"note_col":     &cols.Note,
	} {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cols, fmt.Errorf("%s: %q is not a column number", field, v)
		}
		*dst = n - 1
	}
	return cols, nil
}

// Export downloads the ledger as CSV, XLSX or a PDF report.
// GET /api/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export format", err)
		return
	}

	// Render fully before writing headers so a bad range is still a 400.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, h.Ledger, q.Get("from"), q.Get("to")); err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(format.FileName(h.Now()))))
	w.Write(buf.Bytes())
}

// =============================================================================
// MAINTENANCE HANDLERS
// =============================================================================

// GetIntegrity lists returns whose sale link no longer holds.
// GET /api/integrity
func (h *Handler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	broken := h.resolver().IntegrityReport()
	out := IntegrityDTO{OK: len(broken) == 0, Broken: make([]BrokenLinkDTO, len(broken))}
	for i, b := range broken {
		out.Broken[i] = BrokenLinkDTO{
			ReturnID:   b.ReturnID,
			OriginalID: b.OriginalID,
			Problem:    string(b.Problem),
			CurrentID:  b.CurrentID,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// CheckUpdates asks the release manifest whether a newer version exists.
// GET /api/updates
func (h *Handler) CheckUpdates(w http.ResponseWriter, r *http.Request) {
	if h.Updates == nil {
		writeError(w, http.StatusNotFound, "Update checks are disabled", nil)
		return
	}
	res, err := h.Updates.Check(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Update check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "Invalid transaction id", err)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps the ledger error taxonomy to a status code.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Transaction not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
