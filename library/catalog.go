package library

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLoanLimit is the number of items a patron may hold at once.
const DefaultLoanLimit = 3

// Catalog owns the circulating collection and enforces the lending rules.
// It is not safe for concurrent use; callers serialize access.
type Catalog struct {
	items     []*Item
	ids       *IDAllocator
	loanLimit int
	now       func() time.Time
}

type CatalogOption func(*Catalog)

// WithLoanLimit overrides DefaultLoanLimit. Non-positive values are ignored.
func WithLoanLimit(n int) CatalogOption {
	return func(c *Catalog) {
		if n > 0 {
			c.loanLimit = n
		}
	}
}

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// WithAllocator injects the identifier allocator.
func WithAllocator(a *IDAllocator) CatalogOption {
	return func(c *Catalog) { c.ids = a }
}

func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		ids:       NewIDAllocator(),
		loanLimit: DefaultLoanLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the collection with persisted items and restores the id counter.
// Ids are taken as-is; uniqueness is not re-validated.
func (c *Catalog) Load(items []*Item) {
	c.items = make([]*Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			c.items = append(c.items, it)
		}
	}
	c.ids.RestoreFromExisting(c.items)
}

func (c *Catalog) today() time.Time { return dateOf(c.now()) }

// LoanLimit reports the per-patron active loan limit.
func (c *Catalog) LoanLimit() int { return c.loanLimit }

// ------------------ Administration ------------------

// AddItem assigns a fresh id to item, overwriting any caller-supplied one, and
// appends it to the collection.
func (c *Catalog) AddItem(actor *Actor, item *Item) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if item == nil {
		return ErrNilItem
	}
	item.ID = c.ids.Next()
	item.clearLoan()
	c.items = append(c.items, item)
	return nil
}

func (c *Catalog) RemoveItem(actor *Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrBlankID
	}
	for i, it := range c.items {
		if it.ID != id {
			continue
		}
		if it.Borrowed {
			return fmt.Errorf("remove %s: %w", id, ErrItemBorrowed)
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return nil
	}
	return fmt.Errorf("remove %s: %w", id, ErrItemNotFound)
}

// UpdateItem overwrites title and author where the new value is non-blank.
func (c *Catalog) UpdateItem(actor *Actor, id, newTitle, newAuthor string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	it := c.SearchByID(id)
	if it == nil {
		return fmt.Errorf("update %s: %w", id, ErrItemNotFound)
	}
	if t := strings.TrimSpace(newTitle); t != "" {
		it.Title = t
	}
	if a := strings.TrimSpace(newAuthor); a != "" {
		it.Author = a
	}
	return nil
}

// UnregisterPatron removes target from patrons and returns the shortened slice.
// Targets that are administrators, owe a fine, or hold items are refused.
func (c *Catalog) UnregisterPatron(actor *Actor, target *Patron, patrons []*Patron) ([]*Patron, error) {
	if err := requireAdmin(actor); err != nil {
		return patrons, err
	}
	if target == nil {
		return patrons, ErrPatronNotFound
	}
	if target.Admin {
		return patrons, ErrPatronIsAdmin
	}
	if target.FineBalance > 0 {
		return patrons, ErrOutstandingFine
	}
	if len(c.ListBorrowedBy(target.ID)) > 0 {
		return patrons, ErrPatronHasLoans
	}
	for i, p := range patrons {
		if p == target || p.ID == target.ID {
			return append(patrons[:i], patrons[i+1:]...), nil
		}
	}
	return patrons, ErrPatronNotFound
}

// ------------------ Circulation ------------------

// BorrowItem lends item id to borrower. Eligibility is checked in a fixed
// order and the first failing rule is returned.
func (c *Catalog) BorrowItem(borrower *Actor, id string) error {
	if !borrower.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if borrower.IsAdministrator() {
		return ErrAdminCannotBorrow
	}
	patron := borrower.Patron
	if len(c.ListBorrowedBy(patron.ID)) >= c.loanLimit {
		return fmt.Errorf("%w (%d)", ErrLoanLimit, c.loanLimit)
	}
	if c.overdueCount(patron.ID) > 0 {
		return ErrHasOverdue
	}
	if patron.FineBalance != 0 {
		return fmt.Errorf("%w of %.2f", ErrOutstandingFine, patron.FineBalance)
	}
	it := c.SearchByID(id)
	if it == nil {
		return fmt.Errorf("borrow %s: %w", id, ErrItemNotFound)
	}
	if it.Borrowed {
		return fmt.Errorf("borrow %s: %w", id, ErrItemBorrowed)
	}

	today := c.today()
	due := today.AddDate(0, 0, LoanDuration(it.Category))
	it.Borrowed = true
	it.BorrowerID = patron.ID
	it.BorrowDate = &today
	it.DueDate = &due
	return nil
}

// ReturnItem takes item id back from borrower. A late return credits the fine
// to the borrower's balance before the loan is cleared; the fine is returned.
func (c *Catalog) ReturnItem(borrower *Actor, id string) (float64, error) {
	if !borrower.IsAuthenticated() {
		return 0, ErrNotAuthenticated
	}
	if borrower.IsAdministrator() {
		return 0, ErrAdminCannotBorrow
	}
	it := c.SearchByID(id)
	if it == nil {
		return 0, fmt.Errorf("return %s: %w", id, ErrItemNotFound)
	}
	if !it.Borrowed || it.BorrowerID != borrower.ID() {
		return 0, fmt.Errorf("return %s: %w", id, ErrNotBorrower)
	}

	var fine float64
	if today := c.today(); it.DueDate != nil && today.After(*it.DueDate) {
		fine = ComputeFine(it.Category, daysBetween(*it.DueDate, today))
		borrower.Patron.FineBalance += fine
	}
	it.clearLoan()
	return fine, nil
}

// ------------------ Search ------------------

func (c *Catalog) SearchByID(id string) *Item {
	for _, it := range c.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (c *Catalog) SearchByTitle(q string) []*Item {
	return c.filter(func(it *Item) bool { return containsFold(it.Title, q) })
}

func (c *Catalog) SearchByAuthor(q string) []*Item {
	return c.filter(func(it *Item) bool { return containsFold(it.Author, q) })
}

// ListAll returns the items in insertion order. The slice is a copy.
func (c *Catalog) ListAll() []*Item {
	return c.filter(func(*Item) bool { return true })
}

// ListOverdue returns borrowed items whose due date is before today.
func (c *Catalog) ListOverdue() []*Item {
	today := c.today()
	return c.filter(func(it *Item) bool { return isOverdue(it, today) })
}

func (c *Catalog) ListBorrowedBy(patronID string) []*Item {
	return c.filter(func(it *Item) bool { return it.Borrowed && it.BorrowerID == patronID })
}

func (c *Catalog) overdueCount(patronID string) int {
	today := c.today()
	n := 0
	for _, it := range c.items {
		if it.BorrowerID == patronID && isOverdue(it, today) {
			n++
		}
	}
	return n
}

func (c *Catalog) filter(keep func(*Item) bool) []*Item {
	out := []*Item{}
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// ------------------ Helpers ------------------

func requireAdmin(actor *Actor) error {
	if !actor.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !actor.IsAdministrator() {
		return ErrNotPrivileged
	}
	return nil
}

func isOverdue(it *Item, today time.Time) bool {
	return it.Borrowed && it.DueDate != nil && it.DueDate.Before(today)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
