package library

import (
	"fmt"
	"time"
)

// Store persists the catalog and the patron directory between sessions.
type Store interface {
	LoadItems() ([]*Item, error)
	SaveItems(items []*Item) error
	LoadPatrons() ([]*Patron, error)
	SavePatrons(patrons []*Patron) error
	Close() error
}

// OpenStore opens the backend selected by cfg.StoreKind.
func OpenStore(cfg Config) (Store, error) {
	switch cfg.StoreKind {
	case StoreSQLite, "":
		return NewDatabase(cfg.StorePath)
	case StoreJSON:
		return NewJSONStore(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.StoreKind)
	}
}

const dateLayout = "2006-01-02"

// itemRecord is the serialized shape of an Item shared by both backends.
type itemRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Category   string `json:"category"`
	Borrowed   bool   `json:"borrowed"`
	BorrowerID string `json:"borrower_id,omitempty"`
	BorrowDate string `json:"borrow_date,omitempty"`
	DueDate    string `json:"due_date,omitempty"`
}

func recordFromItem(it *Item) itemRecord {
	return itemRecord{
		ID:         it.ID,
		Title:      it.Title,
		Author:     it.Author,
		Category:   it.Category.String(),
		Borrowed:   it.Borrowed,
		BorrowerID: it.BorrowerID,
		BorrowDate: formatDate(it.BorrowDate),
		DueDate:    formatDate(it.DueDate),
	}
}

func (r itemRecord) item() (*Item, error) {
	it := &Item{
		ID:         r.ID,
		Title:      r.Title,
		Author:     r.Author,
		Category:   ParseCategory(r.Category),
		Borrowed:   r.Borrowed,
		BorrowerID: r.BorrowerID,
	}
	var err error
	if it.BorrowDate, err = parseDate(r.BorrowDate); err != nil {
		return nil, fmt.Errorf("item %s borrow date: %w", r.ID, err)
	}
	if it.DueDate, err = parseDate(r.DueDate); err != nil {
		return nil, fmt.Errorf("item %s due date: %w", r.ID, err)
	}
	if !it.Borrowed {
		it.clearLoan()
	}
	return it, nil
}

type patronRecord struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	PasswordHash string  `json:"password_hash"`
	Admin        bool    `json:"admin"`
	FineBalance  float64 `json:"fine_balance"`
}

func recordFromPatron(p *Patron) patronRecord {
	return patronRecord{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Admin:        p.Admin,
		FineBalance:  p.FineBalance,
	}
}

func (r patronRecord) patron() *Patron {
	return &Patron{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Admin:        r.Admin,
		FineBalance:  r.FineBalance,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
