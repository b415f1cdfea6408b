package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/IshaanNene/bestsellers/internal/types"
)

var (
	numberPattern   = regexp.MustCompile(`\d[\d.,\s\x{00a0}]*`)
	categoryPattern = regexp.MustCompile(`/bestsellers/([^/?#]+)/`)
)

// ParsePrice parses a displayed price such as "12,50 €", "€1.234,56" or
// "9,99 € - 14,99 €". For a range the first value is used.
func ParsePrice(text string) (float64, error) {
	raw := numberPattern.FindString(text)
	if raw == "" {
		return 0, fmt.Errorf("no number in price %q", text)
	}
	v, err := parseDecimal(raw)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", text, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q is not a finite number", text)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative price %q", text)
	}
	return v, nil
}

// ParseRating parses star-rating text like "4,5 de 5 estrellas" or
// "4.5 out of 5 stars". The result must lie in [0,5].
func ParseRating(text string) (float64, error) {
	head := text
	for _, sep := range []string{" de ", " out of "} {
		if i := strings.Index(head, sep); i >= 0 {
			head = head[:i]
		}
	}
	raw := numberPattern.FindString(head)
	if raw == "" {
		return 0, fmt.Errorf("no number in rating %q", text)
	}
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	v, err := strconv.ParseFloat(strings.TrimRight(raw, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("rating %q: %w", text, err)
	}
	if v < 0 || v > 5 {
		return 0, fmt.Errorf("rating %v outside [0,5]", v)
	}
	return v, nil
}

// ParseCount parses an integer shown with thousands separators, e.g.
// "1.234", "12,345" or "#7".
func ParseCount(text string) (int, error) {
	raw := numberPattern.FindString(text)
	if raw == "" {
		return 0, fmt.Errorf("no number in %q", text)
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", text, err)
	}
	return n, nil
}

// CategoryFromURL returns the slug following /bestsellers/ in a listing URL.
func CategoryFromURL(rawURL string) (string, error) {
	m := categoryPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidCategoryURL, rawURL)
	}
	return m[1], nil
}

// parseDecimal normalizes European and US number formats. When both '.'
// and ',' appear the later one is the decimal mark. A lone separator is a
// decimal mark unless it repeats, or is a '.' followed by exactly three
// digits, in which case it groups thousands.
func parseDecimal(raw string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0':
			return -1
		}
		return r
	}, raw)
	s = strings.TrimRight(s, ".,")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return strconv.ParseFloat(s, 64)
}
