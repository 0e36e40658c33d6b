package library

import "strings"

// Category classifies an item and selects its fine rate and loan duration.
type Category int

const (
	Standard Category = iota
	Media
	Periodical
)

var categoryTags = [...]string{
	Standard:   "standard",
	Media:      "media",
	Periodical: "periodical",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryTags) {
		return categoryTags[Standard]
	}
	return categoryTags[c]
}

// ParseCategory maps a persisted tag to a Category. Missing or unknown tags
// resolve to Standard.
func ParseCategory(tag string) Category {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "media", "dvd":
		return Media
	case "periodical", "journal":
		return Periodical
	default:
		return Standard
	}
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

type fineRule struct {
	ratePerDay float64
	loanDays   int
}

var fineRules = map[Category]fineRule{
	Standard:   {ratePerDay: 1.0, loanDays: 28},
	Media:      {ratePerDay: 20.0, loanDays: 7},
	Periodical: {ratePerDay: 0.5, loanDays: 28},
}

func ruleFor(c Category) fineRule {
	if r, ok := fineRules[c]; ok {
		return r
	}
	return fineRules[Standard]
}

// ComputeFine returns the late fee for an item of category c that is
// overdueDays late. The input is not clamped: negative days yield a negative amount.
func ComputeFine(c Category, overdueDays int) float64 {
	return float64(overdueDays) * ruleFor(c).ratePerDay
}

// LoanDuration is the number of days an item of category c may be kept.
func LoanDuration(c Category) int { return ruleFor(c).loanDays }
