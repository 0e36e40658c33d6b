package library

import "errors"

// Authorization failures.
var (
	ErrNotAuthenticated  = errors.New("you must be logged in")
	ErrNotPrivileged     = errors.New("administrator privileges required")
	ErrAdminCannotBorrow = errors.New("administrators cannot hold loans")
)

// Lookup and input failures.
var (
	ErrNilItem        = errors.New("item cannot be empty")
	ErrBlankID        = errors.New("item id cannot be empty")
	ErrItemNotFound   = errors.New("item not found")
	ErrPatronNotFound = errors.New("patron not found")
)

// Business-rule failures.
var (
	ErrItemBorrowed    = errors.New("item is currently borrowed")
	ErrLoanLimit       = errors.New("loan limit reached")
	ErrHasOverdue      = errors.New("patron has overdue items")
	ErrOutstandingFine = errors.New("patron has an outstanding fine")
	ErrNotBorrower     = errors.New("item is not borrowed by this patron")
	ErrPatronIsAdmin   = errors.New("administrators cannot be unregistered")
	ErrPatronHasLoans  = errors.New("patron still holds borrowed items")
)
