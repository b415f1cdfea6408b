package pipeline

import (
	"html"
	"regexp"
	"strings"

	"github.com/IshaanNene/bestsellers/internal/types"
)

// TrimMiddleware cleans the free-text fields of a listing: tags stripped,
// entities decoded, whitespace collapsed.
type TrimMiddleware struct {
	stripRe *regexp.Regexp
}

func NewTrimMiddleware() *TrimMiddleware {
	return &TrimMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	l.ASIN = strings.TrimSpace(l.ASIN)
	if v, ok := l.Title.Get(); ok {
		cleaned := m.clean(v)
		if cleaned == "" {
			l.Title = types.NotShown[string]()
		} else {
			l.Title = types.Present(cleaned)
		}
	}
	if v, ok := l.ImageURL.Get(); ok {
		cleaned := strings.TrimSpace(html.UnescapeString(v))
		if cleaned == "" {
			l.ImageURL = types.NotShown[string]()
		} else {
			l.ImageURL = types.Present(cleaned)
		}
	}
	return l, nil
}

func (m *TrimMiddleware) clean(s string) string {
	s = m.stripRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// RequiredASINMiddleware drops listings with no product identifier.
type RequiredASINMiddleware struct{}

func (m *RequiredASINMiddleware) Name() string { return "required_asin" }

func (m *RequiredASINMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.ASIN == "" {
		return nil, nil
	}
	return l, nil
}
