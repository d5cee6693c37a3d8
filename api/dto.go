/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP API. Money travels as decimal strings
  ("120.50") so clients never see float rounding.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Done by the ledger, not here. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/textile-ledger/importer"
	"github.com/warp/textile-ledger/ledger"
)

// =============================================================================
// TRANSACTIONS
// =============================================================================

type LineItemDTO struct {
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal,omitempty"`
}

type TransactionDTO struct {
	ID          int           `json:"id"`
	UID         string        `json:"uid,omitempty"`
	Date        string        `json:"date"`
	Kind        string        `json:"type"`
	Items       []LineItemDTO `json:"items"`
	Quantity    int           `json:"quantity"`
	UnitPrice   string        `json:"unit_price"`
	TotalAmount string        `json:"total_amount"`
	Note        string        `json:"note"`
	CreatedAt   string        `json:"created_at,omitempty"`
	OriginalID  *int          `json:"original_record_id,omitempty"`
}

// CreateTransactionRequest adds a sale or an independent return.
// Quantities and prices are positive magnitudes.
type CreateTransactionRequest struct {
	Type  string        `json:"type"`
	Date  string        `json:"date"`
	Items []LineItemDTO `json:"items"`
	Note  string        `json:"note"`
}

// UpdateTransactionRequest changes the note and/or the items; absent
// fields are left alone.
type UpdateTransactionRequest struct {
	Note  *string       `json:"note"`
	Items []LineItemDTO `json:"items"`
}

// CreateReturnRequest records a partial return against a sale. Date
// defaults to today.
type CreateReturnRequest struct {
	Date  string        `json:"date"`
	Items []LineItemDTO `json:"items"`
	Note  string        `json:"note"`
}

type ReturnableDTO struct {
	SaleID    int              `json:"sale_id"`
	Sold      int              `json:"sold"`
	Remaining int              `json:"remaining"`
	Returns   []TransactionDTO `json:"returns"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

type SummaryDTO struct {
	Period           string `json:"period"`
	Count            int    `json:"count"`
	SaleQuantity     int    `json:"sale_quantity"`
	SaleAmount       string `json:"sale_amount"`
	ReturnQuantity   int    `json:"return_quantity"`
	ReturnAmount     string `json:"return_amount"`
	NetQuantity      int    `json:"net_quantity"`
	NetAmount        string `json:"net_amount"`
	AverageSalePrice string `json:"average_sale_price"`
	ActiveDays       int    `json:"active_days"`
}

type DaySummaryDTO struct {
	Date string `json:"date"`
	SummaryDTO
}

// =============================================================================
// IMPORT / INTEGRITY / UPDATES
// =============================================================================

type ColumnsDTO struct {
	Date      int `json:"date"`
	Quantity  int `json:"quantity"`
	UnitPrice int `json:"unit_price"`
	Note      int `json:"note"`
}

type ImportResultDTO struct {
	Encoding string             `json:"encoding"`
	Columns  ColumnsDTO         `json:"columns"`
	Imported int                `json:"imported"`
	Failed   []importer.Failure `json:"failed"`
}

type BrokenLinkDTO struct {
	ReturnID   int    `json:"return_id"`
	OriginalID int    `json:"original_record_id"`
	Problem    string `json:"problem"`
	CurrentID  int    `json:"current_sale_id,omitempty"`
}

type IntegrityDTO struct {
	OK     bool            `json:"ok"`
	Broken []BrokenLinkDTO `json:"broken"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          t.ID,
		UID:         t.UID,
		Date:        t.Date,
		Kind:        string(t.Kind),
		Items:       make([]LineItemDTO, len(t.Items)),
		Quantity:    t.Quantity,
		UnitPrice:   t.UnitPrice().StringFixed(2),
		TotalAmount: t.TotalAmount.StringFixed(2),
		Note:        t.Note,
		OriginalID:  t.OriginalID,
	}
	if dto.Kind == "" {
		dto.Kind = string(ledger.KindSale)
		if t.IsReturn() {
			dto.Kind = string(ledger.KindReturn)
		}
	}
	for i, it := range t.Items {
		dto.Items[i] = LineItemDTO{
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Subtotal:  it.Subtotal().StringFixed(2),
		}
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(ledger.CreatedAtLayout)
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		out[i] = toTransactionDTO(t)
	}
	return out
}

func toSummaryDTO(period string, s ledger.Summary) SummaryDTO {
	return SummaryDTO{
		Period:           period,
		Count:            s.Count,
		SaleQuantity:     s.SaleQuantity,
		SaleAmount:       s.SaleAmount.StringFixed(2),
		ReturnQuantity:   s.ReturnQuantity,
		ReturnAmount:     s.ReturnAmount.StringFixed(2),
		NetQuantity:      s.NetQuantity,
		NetAmount:        s.NetAmount.StringFixed(2),
		AverageSalePrice: s.AverageSalePrice.StringFixed(2),
		ActiveDays:       s.ActiveDays,
	}
}

// fromLineItemDTOs parses request items. A bad price is a 400, not a
// silently dropped line.
func fromLineItemDTOs(items []LineItemDTO) ([]ledger.LineItem, error) {
	out := make([]ledger.LineItem, len(items))
	for i, it := range items {
		p, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "unit_price", Reason: "unit price " + it.UnitPrice + " is not a number"}
		}
		out[i] = ledger.LineItem{Quantity: it.Quantity, UnitPrice: p}
	}
	return out, nil
}

func toColumnsDTO(c importer.Columns) ColumnsDTO {
	return ColumnsDTO{Date: c.Date, Quantity: c.Quantity, UnitPrice: c.UnitPrice, Note: c.Note}
}
