package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/bestsellers/internal/types"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12,50 €", 12.50},
		{"€7.99", 7.99},
		{"1.234,56 €", 1234.56},
		{"1,234.56", 1234.56},
		{"1.299 €", 1299},
		{"9,99 € - 14,99 €", 9.99},
		{"0,00 €", 0},
		{"25 €", 25},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	for _, bad := range []string{"Ver opciones de compra", "NaN €", "Inf", strings.Repeat("9", 400) + " €"} {
		_, err := ParsePrice(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseRating(t *testing.T) {
	got, err := ParseRating("4,6 de 5 estrellas")
	require.NoError(t, err)
	assert.Equal(t, 4.6, got)

	got, err = ParseRating("4.1 out of 5 stars")
	require.NoError(t, err)
	assert.Equal(t, 4.1, got)

	_, err = ParseRating("7,2 de 5 estrellas")
	assert.Error(t, err)

	_, err = ParseRating("sin valoraciones")
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	for in, want := range map[string]int{
		"1.234":   1234,
		"12,345":  12345,
		"#7":      7,
		"(58)":    58,
		"2 345":   2345,
		"100.000": 100000,
	} {
		got, err := ParseCount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCount("none")
	assert.Error(t, err)
}

func TestCategoryFromURL(t *testing.T) {
	cat, err := CategoryFromURL("https://www.amazon.es/gp/bestsellers/lawn-garden/ref=zg_bs_nav_lawn-garden_0")
	require.NoError(t, err)
	assert.Equal(t, "lawn-garden", cat)

	_, err = CategoryFromURL("https://www.amazon.es/gp/new-releases")
	assert.True(t, errors.Is(err, types.ErrInvalidCategoryURL))
}
