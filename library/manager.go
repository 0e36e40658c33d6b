package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned by Login for an unknown id or wrong password.
var ErrBadCredentials = errors.New("invalid patron id or password")

// LibraryManager is a thin façade over the Catalog, the patron directory and
// the Store, keeping CLI code simple. Every successful mutation is persisted.
type LibraryManager struct {
	store       Store
	catalog     *Catalog
	broadcaster *Broadcaster
	patrons     []*Patron
	logger      *slog.Logger
}

// NewLibraryManager loads items and patrons from store.
func NewLibraryManager(store Store, logger *slog.Logger, opts ...CatalogOption) (*LibraryManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	items, err := store.LoadItems()
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	patrons, err := store.LoadPatrons()
	if err != nil {
		return nil, fmt.Errorf("load patrons: %w", err)
	}

	catalog := NewCatalog(opts...)
	catalog.Load(items)
	logger.Debug("library loaded", "items", len(items), "patrons", len(patrons))

	return &LibraryManager{
		store:       store,
		catalog:     catalog,
		broadcaster: NewBroadcaster(),
		patrons:     patrons,
		logger:      logger,
	}, nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

func (lm *LibraryManager) Catalog() *Catalog         { return lm.catalog }
func (lm *LibraryManager) Broadcaster() *Broadcaster { return lm.broadcaster }

// ------------------ Item helpers ------------------

func (lm *LibraryManager) AddItem(actor *Actor, title, author string, cat Category) (*Item, error) {
	item := &Item{Title: strings.TrimSpace(title), Author: strings.TrimSpace(author), Category: cat}
	if err := lm.catalog.AddItem(actor, item); err != nil {
		return nil, lm.rejected("add item", actor, err)
	}
	lm.logger.Info("item added", "item", item.ID, "category", cat.String(), "by", actor.ID())
	return item, lm.saveItems()
}

// ImportItems adds items in bulk and persists once at the end. It stops at the
// first rejected item and returns how many were added.
func (lm *LibraryManager) ImportItems(actor *Actor, items []*Item) (int, error) {
	added := 0
	for _, it := range items {
		if err := lm.catalog.AddItem(actor, it); err != nil {
			err = lm.rejected("import items", actor, err)
			if added > 0 {
				err = errors.Join(err, lm.saveItems())
			}
			return added, err
		}
		added++
	}
	lm.logger.Info("items imported", "count", added, "by", actor.ID())
	return added, lm.saveItems()
}

func (lm *LibraryManager) RemoveItem(actor *Actor, id string) error {
	if err := lm.catalog.RemoveItem(actor, id); err != nil {
		return lm.rejected("remove item", actor, err)
	}
	lm.logger.Info("item removed", "item", id, "by", actor.ID())
	return lm.saveItems()
}

func (lm *LibraryManager) UpdateItem(actor *Actor, id, title, author string) error {
	if err := lm.catalog.UpdateItem(actor, id, title, author); err != nil {
		return lm.rejected("update item", actor, err)
	}
	lm.logger.Info("item updated", "item", id, "by", actor.ID())
	return lm.saveItems()
}

func (lm *LibraryManager) GetItem(id string) *Item { return lm.catalog.SearchByID(id) }
func (lm *LibraryManager) GetAllItems() []*Item    { return lm.catalog.ListAll() }
func (lm *LibraryManager) OverdueItems() []*Item   { return lm.catalog.ListOverdue() }
func (lm *LibraryManager) ItemsBorrowedBy(patronID string) []*Item {
	return lm.catalog.ListBorrowedBy(patronID)
}

// SearchItems matches q against titles and authors, without duplicates.
func (lm *LibraryManager) SearchItems(q string) []*Item {
	seen := make(map[*Item]bool)
	var out []*Item
	for _, it := range append(lm.catalog.SearchByTitle(q), lm.catalog.SearchByAuthor(q)...) {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowItem(actor *Actor, id string) (*Item, error) {
	if err := lm.catalog.BorrowItem(actor, id); err != nil {
		return nil, lm.rejected("borrow", actor, err)
	}
	item := lm.catalog.SearchByID(id)
	lm.logger.Info("item borrowed", "item", id, "patron", actor.ID(), "due", formatDate(item.DueDate))
	return item, lm.saveItems()
}

// ReturnItem returns the item and yields the fine charged, if any.
func (lm *LibraryManager) ReturnItem(actor *Actor, id string) (float64, error) {
	fine, err := lm.catalog.ReturnItem(actor, id)
	if err != nil {
		return 0, lm.rejected("return", actor, err)
	}
	lm.logger.Info("item returned", "item", id, "patron", actor.ID(), "fine", fine)
	if err := lm.saveItems(); err != nil {
		return fine, err
	}
	if fine != 0 {
		return fine, lm.savePatrons()
	}
	return fine, nil
}

// SendOverdueReminders broadcasts reminders on the registered channels.
func (lm *LibraryManager) SendOverdueReminders() int {
	n := lm.broadcaster.SendOverdueReminders(lm.catalog, lm.patrons)
	lm.logger.Info("overdue reminders sent", "patrons", n, "channels", len(lm.broadcaster.Channels()))
	return n
}

// ------------------ Patron helpers ------------------

// RegisterPatron adds a patron. Only administrators may register patrons,
// except for the first patron of an empty directory, who becomes an administrator.
func (lm *LibraryManager) RegisterPatron(actor *Actor, name, email, password string, admin bool) (*Patron, error) {
	bootstrap := len(lm.patrons) == 0
	if !bootstrap {
		if err := requireAdmin(actor); err != nil {
			return nil, lm.rejected("register patron", actor, err)
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	p := &Patron{
		ID:           lm.nextPatronID(),
		Name:         name,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Admin:        admin || bootstrap,
	}
	lm.patrons = append(lm.patrons, p)
	lm.logger.Info("patron registered", "patron", p.ID, "admin", p.Admin, "by", actor.ID())
	return p, lm.savePatrons()
}

// Login verifies the password of patron id and opens a session.
func (lm *LibraryManager) Login(id, password string) (*Actor, error) {
	p := lm.Patron(id)
	if p == nil || p.PasswordHash == "" {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		lm.logger.Warn("login failed", "patron", id)
		return nil, ErrBadCredentials
	}
	lm.logger.Info("login", "patron", id)
	return NewActor(p), nil
}

// ResetPassword lets administrators reset any password and patrons their own.
func (lm *LibraryManager) ResetPassword(actor *Actor, patronID, password string) error {
	if !actor.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !actor.IsAdministrator() && actor.ID() != patronID {
		return ErrNotPrivileged
	}
	p := lm.Patron(patronID)
	if p == nil {
		return ErrPatronNotFound
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	lm.logger.Info("password reset", "patron", patronID, "by", actor.ID())
	return lm.savePatrons()
}

// PayFine records a payment against a patron's balance. The balance never
// drops below zero; the remaining balance is returned.
func (lm *LibraryManager) PayFine(actor *Actor, patronID string, amount float64) (float64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, lm.rejected("pay fine", actor, err)
	}
	if amount <= 0 {
		return 0, errors.New("payment must be positive")
	}
	p := lm.Patron(patronID)
	if p == nil {
		return 0, ErrPatronNotFound
	}
	p.FineBalance -= amount
	if p.FineBalance < 0 {
		p.FineBalance = 0
	}
	lm.logger.Info("fine paid", "patron", patronID, "amount", amount, "balance", p.FineBalance)
	return p.FineBalance, lm.savePatrons()
}

func (lm *LibraryManager) UnregisterPatron(actor *Actor, patronID string) error {
	if err := requireAdmin(actor); err != nil {
		return lm.rejected("unregister patron", actor, err)
	}
	target := lm.Patron(patronID)
	if target == nil {
		return ErrPatronNotFound
	}
	patrons, err := lm.catalog.UnregisterPatron(actor, target, lm.patrons)
	if err != nil {
		return lm.rejected("unregister patron", actor, err)
	}
	lm.patrons = patrons
	lm.logger.Info("patron unregistered", "patron", patronID, "by", actor.ID())
	return lm.savePatrons()
}

func (lm *LibraryManager) Patron(id string) *Patron {
	for _, p := range lm.patrons {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Patrons returns a copy of the directory.
func (lm *LibraryManager) Patrons() []*Patron {
	return append([]*Patron(nil), lm.patrons...)
}

// ------------------ Utilities ------------------

func (lm *LibraryManager) rejected(op string, actor *Actor, err error) error {
	lm.logger.Debug("operation rejected", "op", op, "actor", actor.ID(), "reason", err)
	return err
}

// saveItems persists the collection. Failures are logged and returned; the
// in-memory catalog keeps the change either way.
func (lm *LibraryManager) saveItems() error {
	if err := lm.store.SaveItems(lm.catalog.ListAll()); err != nil {
		lm.logger.Error("save items", "error", err)
		return fmt.Errorf("save items: %w", err)
	}
	return nil
}

func (lm *LibraryManager) savePatrons() error {
	if err := lm.store.SavePatrons(lm.patrons); err != nil {
		lm.logger.Error("save patrons", "error", err)
		return fmt.Errorf("save patrons: %w", err)
	}
	return nil
}

// nextPatronID continues the numeric sequence of patron ids, starting at 1.
func (lm *LibraryManager) nextPatronID() string {
	var highest int64
	for _, p := range lm.patrons {
		if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.FormatInt(highest+1, 10)
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// PrettyItem formats an item for lists.
func PrettyItem(it *Item) string {
	status := "available"
	if it.Borrowed {
		status = fmt.Sprintf("due %s", formatDate(it.DueDate))
	}
	return fmt.Sprintf("%-6s %-30s %-25s %-11s %s", it.ID, truncate(it.Title, 30), truncate(it.Author, 25), it.Category, status)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
