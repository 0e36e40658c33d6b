package library

import "time"

// Item represents one circulating unit of the collection.
// BorrowerID, BorrowDate and DueDate are only meaningful while Borrowed is true.
type Item struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Category   Category   `json:"category"`
	Borrowed   bool       `json:"borrowed"`
	BorrowerID string     `json:"borrower_id,omitempty"`
	BorrowDate *time.Time `json:"borrow_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Available reports whether the item can be lent out.
func (it *Item) Available() bool { return !it.Borrowed }

func (it *Item) clearLoan() {
	it.Borrowed = false
	it.BorrowerID = ""
	it.BorrowDate = nil
	it.DueDate = nil
}

// Patron represents a registered library user.
type Patron struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	PasswordHash string  `json:"-"` // Don't serialize password hash
	Admin        bool    `json:"admin"`
	FineBalance  float64 `json:"fine_balance"`
}

// Actor is the session on whose behalf an operation runs.
// A nil *Actor is treated as not logged in.
type Actor struct {
	Patron        *Patron
	Authenticated bool
}

// NewActor returns an authenticated session for p.
func NewActor(p *Patron) *Actor { return &Actor{Patron: p, Authenticated: p != nil} }

func (a *Actor) IsAuthenticated() bool {
	return a != nil && a.Authenticated && a.Patron != nil
}

func (a *Actor) IsAdministrator() bool {
	return a.IsAuthenticated() && a.Patron.Admin
}

func (a *Actor) ID() string {
	if a == nil || a.Patron == nil {
		return ""
	}
	return a.Patron.ID
}

// dateOf truncates t to its calendar date, expressed at UTC midnight.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (negative if b is earlier).
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}
