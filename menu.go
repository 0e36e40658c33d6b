package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-circulation/library"

	"golang.org/x/term"
)

type menu struct {
	mgr   *library.LibraryManager
	sc    *bufio.Scanner
	out   io.Writer
	actor *library.Actor

	// readPassword prompts for a secret. Defaults to masked terminal input
	// when stdin is a terminal and to plain line input otherwise.
	readPassword func(prompt string) (string, error)
}

func newMenu(mgr *library.LibraryManager, in io.Reader, out io.Writer) *menu {
	m := &menu{mgr: mgr, sc: bufio.NewScanner(in), out: out}
	m.readPassword = m.readLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		m.readPassword = func(prompt string) (string, error) {
			fmt.Fprint(m.out, prompt)
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(m.out) // Add newline after password input
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}
	return m
}

var errEOF = errors.New("end of input")

func (m *menu) readLine(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	if !m.sc.Scan() {
		if err := m.sc.Err(); err != nil {
			return "", err
		}
		return "", errEOF
	}
	return strings.TrimSpace(m.sc.Text()), nil
}

func runMenu(m *menu) error {
	fmt.Fprintln(m.out, "Welcome to the Library Circulation Desk!")
	if len(m.mgr.Patrons()) == 0 {
		fmt.Fprintln(m.out, "No patrons registered yet. Use 'add patron' to create the first administrator.")
	}
	m.printHelp()

	for {
		cmd, err := m.readLine("\n> ")
		if err != nil {
			return nil
		}
		if err := m.dispatch(cmd); err != nil {
			if errors.Is(err, errEOF) {
				return nil
			}
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}
		if cmd == "exit" {
			fmt.Fprintln(m.out, "Goodbye!")
			return nil
		}
	}
}

func (m *menu) printHelp() {
	fmt.Fprintln(m.out, "Available commands:")
	fmt.Fprintln(m.out, "  Session: login, logout, whoami")
	fmt.Fprintln(m.out, "  Items: list items, search, add item, remove item, update item")
	fmt.Fprintln(m.out, "  Circulation: borrow, return, my loans, list overdue, remind")
	fmt.Fprintln(m.out, "  Patrons: add patron, list patrons, unregister patron, pay fine, reset password")
	fmt.Fprintln(m.out, "  System: help, exit")
}

func (m *menu) dispatch(cmd string) error {
	switch cmd {
	case "", "exit":
		return nil
	case "help":
		m.printHelp()
		return nil
	case "login":
		return m.handleLogin()
	case "logout":
		m.actor = nil
		fmt.Fprintln(m.out, "Logged out.")
		return nil
	case "whoami":
		return m.handleWhoAmI()
	case "list items":
		m.printItems(m.mgr.GetAllItems(), "No items in the catalog.")
		return nil
	case "search":
		return m.handleSearch()
	case "add item":
		return m.handleAddItem()
	case "remove item":
		return m.handleRemoveItem()
	case "update item":
		return m.handleUpdateItem()
	case "borrow":
		return m.handleBorrow()
	case "return":
		return m.handleReturn()
	case "my loans":
		if !m.actor.IsAuthenticated() {
			return library.ErrNotAuthenticated
		}
		m.printItems(m.mgr.ItemsBorrowedBy(m.actor.ID()), "You have no items on loan.")
		return nil
	case "list overdue":
		m.printItems(m.mgr.OverdueItems(), "No overdue items.")
		return nil
	case "remind":
		if !m.actor.IsAdministrator() {
			return library.ErrNotPrivileged
		}
		n := m.mgr.SendOverdueReminders()
		fmt.Fprintf(m.out, "Reminders sent to %d patron(s).\n", n)
		return nil
	case "add patron":
		return m.handleAddPatron()
	case "list patrons":
		return m.handleListPatrons()
	case "unregister patron":
		return m.handleUnregister()
	case "pay fine":
		return m.handlePayFine()
	case "reset password":
		return m.handleResetPassword()
	default:
		fmt.Fprintln(m.out, "Unknown command. Type 'help' to see the available commands.")
		return nil
	}
}

func (m *menu) handleLogin() error {
	id, err := m.readLine("Patron ID: ")
	if err != nil {
		return err
	}
	password, err := m.readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	actor, err := m.mgr.Login(id, password)
	if err != nil {
		return err
	}
	m.actor = actor
	fmt.Fprintf(m.out, "Welcome, %s.\n", actor.Patron.Name)
	return nil
}

func (m *menu) handleWhoAmI() error {
	if !m.actor.IsAuthenticated() {
		fmt.Fprintln(m.out, "Not logged in.")
		return nil
	}
	p := m.actor.Patron
	role := "patron"
	if p.Admin {
		role = "administrator"
	}
	fmt.Fprintf(m.out, "%s (ID: %s, %s), fines owed: %.2f\n", p.Name, p.ID, role, p.FineBalance)
	return nil
}

func (m *menu) handleSearch() error {
	q, err := m.readLine("Title or author contains: ")
	if err != nil {
		return err
	}
	m.printItems(m.mgr.SearchItems(q), fmt.Sprintf("No items found matching '%s'.", q))
	return nil
}

func (m *menu) handleAddItem() error {
	title, err := m.readLine("Title: ")
	if err != nil {
		return err
	}
	author, err := m.readLine("Author: ")
	if err != nil {
		return err
	}
	cat, err := m.readLine("Category (standard/media/periodical): ")
	if err != nil {
		return err
	}
	item, err := m.mgr.AddItem(m.actor, title, author, library.ParseCategory(cat))
	if item != nil {
		fmt.Fprintf(m.out, "Added %s item ID %s.\n", item.Category, item.ID)
	}
	return err
}

func (m *menu) handleRemoveItem() error {
	id, err := m.readLine("Item ID: ")
	if err != nil {
		return err
	}
	if err := m.mgr.RemoveItem(m.actor, id); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Removed item %s.\n", id)
	return nil
}

func (m *menu) handleUpdateItem() error {
	id, err := m.readLine("Item ID: ")
	if err != nil {
		return err
	}
	title, err := m.readLine("New title (blank to keep): ")
	if err != nil {
		return err
	}
	author, err := m.readLine("New author (blank to keep): ")
	if err != nil {
		return err
	}
	if err := m.mgr.UpdateItem(m.actor, id, title, author); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Updated item %s.\n", id)
	return nil
}

func (m *menu) handleBorrow() error {
	id, err := m.readLine("Item ID: ")
	if err != nil {
		return err
	}
	item, err := m.mgr.BorrowItem(m.actor, id)
	if item != nil {
		fmt.Fprintf(m.out, "'%s' is yours until %s.\n", item.Title, item.DueDate.Format("2006-01-02"))
	}
	return err
}

func (m *menu) handleReturn() error {
	id, err := m.readLine("Item ID: ")
	if err != nil {
		return err
	}
	fine, err := m.mgr.ReturnItem(m.actor, id)
	if err != nil && fine == 0 {
		return err
	}
	if fine > 0 {
		fmt.Fprintf(m.out, "Item %s returned late. A fine of %.2f was added to your balance.\n", id, fine)
	} else {
		fmt.Fprintf(m.out, "Item %s returned. Thank you!\n", id)
	}
	return err
}

func (m *menu) handleAddPatron() error {
	name, err := m.readLine("Name: ")
	if err != nil {
		return err
	}
	email, err := m.readLine("Email (optional): ")
	if err != nil {
		return err
	}
	admin := false
	if len(m.mgr.Patrons()) > 0 {
		answer, err := m.readLine("Administrator? (y/N): ")
		if err != nil {
			return err
		}
		admin = strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	}
	password, err := m.readPassword(fmt.Sprintf("Enter password for %s: ", name))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	p, err := m.mgr.RegisterPatron(m.actor, name, email, password, admin)
	if p != nil {
		fmt.Fprintf(m.out, "Added patron '%s' with ID %s\n", p.Name, p.ID)
	}
	return err
}

func (m *menu) handleListPatrons() error {
	if !m.actor.IsAdministrator() {
		return library.ErrNotPrivileged
	}
	patrons := m.mgr.Patrons()
	if len(patrons) == 0 {
		fmt.Fprintln(m.out, "No patrons registered.")
		return nil
	}
	fmt.Fprintf(m.out, "%-6s %-30s %-7s %-6s %s\n", "ID", "Name", "Admin", "Loans", "Fines")
	fmt.Fprintln(m.out, strings.Repeat("-", 60))
	for _, p := range patrons {
		fmt.Fprintf(m.out, "%-6s %-30s %-7t %-6d %.2f\n", p.ID, p.Name, p.Admin, len(m.mgr.ItemsBorrowedBy(p.ID)), p.FineBalance)
	}
	return nil
}

func (m *menu) handleUnregister() error {
	id, err := m.readLine("Patron ID: ")
	if err != nil {
		return err
	}
	if err := m.mgr.UnregisterPatron(m.actor, id); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Patron %s unregistered.\n", id)
	return nil
}

func (m *menu) handlePayFine() error {
	id, err := m.readLine("Patron ID: ")
	if err != nil {
		return err
	}
	raw, err := m.readLine("Amount: ")
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %s", raw)
	}
	left, err := m.mgr.PayFine(m.actor, id, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Payment recorded. Remaining balance: %.2f\n", left)
	return nil
}

func (m *menu) handleResetPassword() error {
	id, err := m.readLine("Patron ID: ")
	if err != nil {
		return err
	}
	password, err := m.readPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := m.mgr.ResetPassword(m.actor, id, password); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Password successfully reset for patron %s\n", id)
	return nil
}

func (m *menu) printItems(items []*library.Item, empty string) {
	if len(items) == 0 {
		fmt.Fprintln(m.out, empty)
		return
	}
	fmt.Fprintf(m.out, "%-6s %-30s %-25s %-11s %s\n", "ID", "Title", "Author", "Category", "Status")
	fmt.Fprintln(m.out, strings.Repeat("-", 90))
	for _, it := range items {
		fmt.Fprintln(m.out, library.PrettyItem(it))
	}
}
