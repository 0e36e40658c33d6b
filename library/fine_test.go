package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFineRates(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		days     int
		want     float64
	}{
		{"standard", Standard, 5, 5.0},
		{"media", Media, 3, 60.0},
		{"periodical", Periodical, 4, 2.0},
		{"zero days", Media, 0, 0},
		{"negative days are not clamped", Standard, -2, -2.0},
		{"unknown category uses standard rate", Category(42), 3, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeFine(tt.category, tt.days))
		})
	}
}

func TestComputeFineIsLinear(t *testing.T) {
	for _, c := range []Category{Standard, Media, Periodical} {
		unit := ComputeFine(c, 1)
		for n := 0; n <= 60; n++ {
			assert.InDelta(t, float64(n)*unit, ComputeFine(c, n), 1e-9, "category %s, %d days", c, n)
		}
	}
}

func TestLoanDuration(t *testing.T) {
	assert.Equal(t, 28, LoanDuration(Standard))
	assert.Equal(t, 7, LoanDuration(Media))
	assert.Equal(t, 28, LoanDuration(Periodical))
	assert.Equal(t, 28, LoanDuration(Category(-1)))
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, Media, ParseCategory("media"))
	assert.Equal(t, Media, ParseCategory(" DVD "))
	assert.Equal(t, Periodical, ParseCategory("Periodical"))
	assert.Equal(t, Standard, ParseCategory(""))
	assert.Equal(t, Standard, ParseCategory("vinyl"))

	for _, c := range []Category{Standard, Media, Periodical} {
		assert.Equal(t, c, ParseCategory(c.String()))
	}
	assert.Equal(t, "standard", Category(9).String())
}
