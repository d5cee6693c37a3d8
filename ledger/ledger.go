/*
ledger.go - Ledger Store: the in-memory transaction collection

PURPOSE:
  Owns every transaction. Provides create / read / update / delete and
  guarantees that after any mutating call returns successfully, the
  persisted state equals the in-memory state.

CRITICAL INVARIANTS:
  1. DERIVED TOTALS: Quantity and TotalAmount always equal the sums over
     Items, signed per Kind.
  2. COMPACT IDS: ids are 1..N in store order. Delete renumbers.
  3. ALL-OR-NOTHING: validation happens before any change; a failed save
     restores the previous in-memory state.
  4. BOUNDED RETURNS: at creation, a partial return may not push the
     returned quantity of its sale above the sale's quantity.

RENUMBERING GAP:
  Delete shifts every later id down by one but leaves OriginalID
  references untouched, so a return linked to a shifted sale now points
  at a different transaction. This is the long-standing behavior of the
  shop's data files and is reported (IntegrityReport, warning log), not
  repaired.

CONCURRENCY:
  One process owns the ledger. A mutex serializes calls so the HTTP
  server's goroutines see the same single-writer model as the desktop
  tool. Methods never call each other while holding the lock.

SEE ALSO:
  - store.go: Persister port
  - returns.go: partial return bookkeeping
*/
package ledger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	mu        sync.Mutex
	persister Persister
	txs       []Transaction
	now       func() time.Time
	newUID    func() string
	logger    *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the clock used for CreatedAt and default dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithUIDGenerator overrides uid generation (tests).
func WithUIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newUID = gen }
}

// New loads the ledger from p.
func New(ctx context.Context, p Persister, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		persister: p,
		now:       time.Now,
		newUID:    func() string { return uuid.NewString() },
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}

	txs, err := p.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	l.txs = make([]Transaction, len(txs))
	for i, t := range txs {
		l.txs[i] = t.Clone()
	}
	l.logger.Info("ledger loaded", "transactions", len(l.txs))
	return l, nil
}

// =============================================================================
// CREATE
// =============================================================================

// AddInput describes a new transaction. Items carry positive magnitudes;
// the ledger applies the sign from Kind.
type AddInput struct {
	Kind       Kind
	Date       string
	Items      []LineItem
	Note       string
	OriginalID *int
}

// Add validates, appends and persists a new transaction.
//
// Line items with a non-positive quantity or price are dropped; the call
// fails when none remain.
func (l *Ledger) Add(ctx context.Context, in AddInput) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addLocked(ctx, in)
}

func (l *Ledger) addLocked(ctx context.Context, in AddInput) (Transaction, error) {
	if !in.Kind.Valid() {
		return Transaction{}, invalid("kind", "unknown transaction kind %q", in.Kind)
	}
	if _, err := ParseDate(in.Date); err != nil {
		return Transaction{}, invalid("date", "date %q is not a valid YYYY-MM-DD date", in.Date)
	}
	items := validItems(in.Items)
	if len(items) == 0 {
		return Transaction{}, invalid("items", "at least one line item with quantity > 0 and unit price > 0 is required")
	}
	if in.OriginalID != nil && in.Kind != KindReturn {
		return Transaction{}, invalid("original_transaction_id", "only returns can reference a sale")
	}

	note := in.Note
	if in.Kind == KindReturn && in.OriginalID == nil {
		note = returnNote(note)
	}

	tx := Transaction{
		ID:        l.nextIDLocked(),
		UID:       l.newUID(),
		Date:      in.Date,
		CreatedAt: l.now().Truncate(time.Second),
		Kind:      in.Kind,
		Items:     signItems(in.Kind, items),
		Note:      note,
	}
	tx.recompute()

	if in.OriginalID != nil {
		sale, err := l.saleLocked(*in.OriginalID)
		if err != nil {
			return Transaction{}, err
		}
		remaining := remainingFor(sale, l.txs)
		if tx.AbsQuantity() > remaining {
			return Transaction{}, invalid("items",
				"return quantity %d exceeds the %d still returnable on sale #%d (sold %d)",
				tx.AbsQuantity(), remaining, sale.ID, sale.Quantity)
		}
		id := sale.ID
		tx.OriginalID = &id
		tx.OriginalUID = sale.UID
	}

	prev := l.txs
	l.txs = append(append(make([]Transaction, 0, len(prev)+1), prev...), tx)
	if err := l.persistLocked(ctx, prev); err != nil {
		return Transaction{}, err
	}

	l.logger.Debug("transaction added",
		"id", tx.ID, "kind", tx.Kind, "date", tx.Date,
		"quantity", tx.Quantity, "total", tx.TotalAmount.String())
	return tx.Clone(), nil
}

// returnNotePrefix tags the note of every return.
const returnNotePrefix = "[退货]"

// returnNote marks an independent return's note, leaving already tagged
// notes alone.
func returnNote(note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return returnNotePrefix
	case strings.HasPrefix(note, returnNotePrefix):
		return note
	default:
		return returnNotePrefix + " " + note
	}
}

// ReturnAgainst records a partial return of the given sale. An empty date
// means today; an empty note is replaced by a reference to the sale.
func (l *Ledger) ReturnAgainst(ctx context.Context, saleID int, date string, items []LineItem, note string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sale, err := l.saleLocked(saleID)
	if err != nil {
		return Transaction{}, err
	}
	if date == "" {
		date = l.now().Format(DateLayout)
	}
	if note == "" {
		note = strings.TrimSpace(returnNotePrefix + " 原记录#" + strconv.Itoa(sale.ID) + " " + sale.Note)
	}
	id := saleID
	return l.addLocked(ctx, AddInput{
		Kind:       KindReturn,
		Date:       date,
		Items:      items,
		Note:       note,
		OriginalID: &id,
	})
}

func (l *Ledger) nextIDLocked() int {
	max := 0
	for _, t := range l.txs {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// saleLocked finds id and checks that it is a sale.
func (l *Ledger) saleLocked(id int) (Transaction, error) {
	i := l.indexLocked(id)
	if i < 0 {
		return Transaction{}, &NotFoundError{ID: id}
	}
	t := l.txs[i]
	if t.IsReturn() {
		return Transaction{}, invalid("original_transaction_id", "transaction #%d is already a return and cannot be returned", id)
	}
	return t, nil
}

// =============================================================================
// READ
// =============================================================================

// Get returns a copy of the transaction with the given id.
func (l *Ledger) Get(id int) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Transaction{}, &NotFoundError{ID: id}
	}
	return l.txs[i].Clone(), nil
}

// Transactions returns a copy of the ledger in store order.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneAll(l.txs)
}

// Len is the number of transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.txs)
}

// Query returns the matching transactions in the requested order.
func (l *Ledger) Query(pred Predicate, order Order) []Transaction {
	return Select(l.Transactions(), pred, order)
}

func (l *Ledger) indexLocked(id int) int {
	for i, t := range l.txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// UPDATE
// =============================================================================

// Patch is the set of field changes applied by Update.
type Patch struct {
	Note     *string
	Items    []LineItem
	ItemsSet bool
}

// Mutator edits a Patch.
type Mutator func(*Patch)

// SetNote replaces the note.
func SetNote(note string) Mutator {
	return func(p *Patch) { p.Note = &note }
}

// SetItems replaces the line items. Magnitudes are taken as given; the
// transaction keeps its sign convention.
func SetItems(items ...LineItem) Mutator {
	return func(p *Patch) {
		p.Items = append([]LineItem(nil), items...)
		p.ItemsSet = true
	}
}

// Update applies the mutators to transaction id and persists the result.
// Return limits are not re-checked: they are enforced at creation only.
func (l *Ledger) Update(ctx context.Context, id int, mutators ...Mutator) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Transaction{}, &NotFoundError{ID: id}
	}

	var p Patch
	for _, m := range mutators {
		m(&p)
	}

	updated := l.txs[i].Clone()
	if p.Note != nil {
		updated.Note = *p.Note
	}
	if p.ItemsSet {
		items := nonZeroItems(p.Items)
		if len(items) == 0 {
			return Transaction{}, invalid("items", "at least one line item with non-zero quantity and price is required")
		}
		kind := updated.Kind
		if kind == "" {
			kind = KindSale
			if updated.Quantity < 0 {
				kind = KindReturn
			}
		}
		updated.Kind = kind
		updated.Items = signItems(kind, items)
		updated.recompute()
	}

	prev := l.txs
	next := cloneAll(prev)
	next[i] = updated
	l.txs = next
	if err := l.persistLocked(ctx, prev); err != nil {
		return Transaction{}, err
	}

	l.logger.Debug("transaction updated", "id", id, "quantity", updated.Quantity, "total", updated.TotalAmount.String())
	return updated.Clone(), nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes transaction id and renumbers the rest to 1..N. It
// returns false, nil when id is not present.
func (l *Ledger) Delete(ctx context.Context, id int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return false, nil
	}

	prev := l.txs
	next := make([]Transaction, 0, len(prev)-1)
	for j, t := range prev {
		if j == i {
			continue
		}
		c := t.Clone()
		c.ID = len(next) + 1
		next = append(next, c)
	}
	l.txs = next
	if err := l.persistLocked(ctx, prev); err != nil {
		return false, err
	}

	if shifted := shiftedReferences(prev, id); len(shifted) > 0 {
		l.logger.Warn("delete renumbered sales referenced by returns; back-references now point elsewhere",
			"deleted", id, "returns", shifted)
	}
	l.logger.Debug("transaction deleted", "id", id, "remaining", len(next))
	return true, nil
}

// shiftedReferences lists returns whose OriginalID is the deleted id or an
// id that renumbering moved.
func shiftedReferences(before []Transaction, deleted int) []int {
	var out []int
	for _, t := range before {
		if t.ID == deleted || t.OriginalID == nil {
			continue
		}
		if *t.OriginalID >= deleted {
			out = append(out, t.ID)
		}
	}
	return out
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistLocked saves l.txs, restoring prev on failure.
func (l *Ledger) persistLocked(ctx context.Context, prev []Transaction) error {
	if err := l.persister.Save(ctx, cloneAll(l.txs)); err != nil {
		l.txs = prev
		l.logger.Error("ledger save failed, change rolled back", "error", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// validItems keeps items with positive quantity and positive price.
func validItems(items []LineItem) []LineItem {
	var out []LineItem
	for _, it := range items {
		if it.Quantity > 0 && it.UnitPrice.IsPositive() {
			out = append(out, it)
		}
	}
	return out
}

// nonZeroItems keeps items usable after taking magnitudes.
func nonZeroItems(items []LineItem) []LineItem {
	var out []LineItem
	for _, it := range items {
		if it.Quantity != 0 && !it.UnitPrice.IsZero() {
			out = append(out, it)
		}
	}
	return out
}

func cloneAll(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		out[i] = t.Clone()
	}
	return out
}

// sortByCreated orders ascending by CreatedAt, then id.
func sortByCreated(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}
