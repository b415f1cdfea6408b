package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// PageFields holds the raw per-field arrays pulled from one listing page.
// Slot-scoped fields have exactly Slots entries; page-scoped fields (ASINs,
// Images) have as many entries as their selector matched.
type PageFields struct {
	Slots          int
	Titles         []types.Field[string]
	Prices         []types.Field[float64]
	Ratings        []types.Field[float64]
	ReviewCounts   []types.Field[int]
	DisplayedRanks []types.Field[int]
	ASINs          []string
	Images         []types.Field[string]
}

// Lengths returns the length of every zipped array, keyed by field name.
func (p *PageFields) Lengths() map[string]int {
	return map[string]int{
		"asin":        len(p.ASINs),
		"title":       len(p.Titles),
		"price":       len(p.Prices),
		"rating":      len(p.Ratings),
		"num_reviews": len(p.ReviewCounts),
		"img_link":    len(p.Images),
	}
}

// Aligned reports whether all zipped arrays match the slot count.
func (p *PageFields) Aligned() bool {
	for _, n := range p.Lengths() {
		if n != p.Slots {
			return false
		}
	}
	return true
}

// Extractor pulls listing fields out of a rendered bestseller page.
type Extractor struct {
	sel    config.SelectorConfig
	title  *xpath.Expr
	asin   *xpath.Expr
	logger *slog.Logger
}

// NewExtractor compiles the XPath selectors up front so a bad expression
// fails at startup rather than on every page.
func NewExtractor(sel config.SelectorConfig, logger *slog.Logger) (*Extractor, error) {
	title, err := xpath.Compile(sel.TitleXPath)
	if err != nil {
		return nil, fmt.Errorf("compile title xpath %q: %w", sel.TitleXPath, err)
	}
	asin, err := xpath.Compile(sel.ASINXPath)
	if err != nil {
		return nil, fmt.Errorf("compile asin xpath %q: %w", sel.ASINXPath, err)
	}
	return &Extractor{
		sel:    sel,
		title:  title,
		asin:   asin,
		logger: logger.With("component", "extractor"),
	}, nil
}

// Extract parses a rendered HTML snapshot into per-field arrays.
// A missing element never aborts the page; it becomes a NotShown field.
func (e *Extractor) Extract(body string) (*PageFields, error) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	slots := doc.Find(e.sel.Container)
	out := &PageFields{Slots: slots.Length()}

	slots.Each(func(i int, slot *goquery.Selection) {
		out.ReviewCounts = append(out.ReviewCounts, e.reviewCount(slot, i))
		out.Titles = append(out.Titles, e.titleOf(slot))
		out.Prices = append(out.Prices, e.price(slot, i))
		out.Ratings = append(out.Ratings, e.rating(slot, i))
		out.DisplayedRanks = append(out.DisplayedRanks, e.badge(slot))
	})

	for _, n := range queryAll(root, e.asin) {
		out.ASINs = append(out.ASINs, strings.TrimSpace(attrOf(n, e.sel.ASINAttr)))
	}

	doc.Find(e.sel.Image).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr(e.sel.ImageAttr)
		if !ok || strings.TrimSpace(src) == "" {
			out.Images = append(out.Images, types.NotShown[string]())
			return
		}
		out.Images = append(out.Images, types.Present(strings.TrimSpace(src)))
	})

	e.logger.Debug("page extracted",
		"slots", out.Slots,
		"asin", len(out.ASINs),
		"img_link", len(out.Images),
	)
	return out, nil
}

func (e *Extractor) reviewCount(slot *goquery.Selection, i int) types.Field[int] {
	text, ok := firstText(slot, e.sel.ReviewCount)
	if !ok {
		return types.NotShown[int]()
	}
	n, err := ParseCount(text)
	if err != nil {
		e.debugFailure("num_reviews", i, text, err)
		return types.Failed[int]()
	}
	return types.Present(n)
}

func (e *Extractor) titleOf(slot *goquery.Selection) types.Field[string] {
	if len(slot.Nodes) == 0 {
		return types.NotShown[string]()
	}
	n := queryOne(slot.Nodes[0], e.title)
	if n == nil {
		return types.NotShown[string]()
	}
	title := strings.TrimSpace(attrOf(n, e.sel.TitleAttr))
	if title == "" {
		return types.NotShown[string]()
	}
	return types.Present(title)
}

func (e *Extractor) price(slot *goquery.Selection, i int) types.Field[float64] {
	text, ok := firstText(slot, e.sel.Price)
	if !ok {
		return types.NotShown[float64]()
	}
	v, err := ParsePrice(text)
	if err != nil {
		e.debugFailure("price", i, text, err)
		return types.Failed[float64]()
	}
	return types.Present(v)
}

func (e *Extractor) rating(slot *goquery.Selection, i int) types.Field[float64] {
	text, ok := firstText(slot, e.sel.Rating)
	if !ok {
		return types.NotShown[float64]()
	}
	v, err := ParseRating(text)
	if err != nil {
		e.debugFailure("rating", i, text, err)
		return types.Failed[float64]()
	}
	return types.Present(v)
}

func (e *Extractor) badge(slot *goquery.Selection) types.Field[int] {
	if e.sel.RankBadge == "" {
		return types.NotShown[int]()
	}
	text, ok := firstText(slot, e.sel.RankBadge)
	if !ok {
		return types.NotShown[int]()
	}
	n, err := ParseCount(text)
	if err != nil || n < 1 {
		return types.Failed[int]()
	}
	return types.Present(n)
}

func (e *Extractor) debugFailure(field string, slot int, text string, err error) {
	e.logger.Debug("field unparsable",
		"error", &types.ExtractError{Field: field, Slot: slot, Err: err},
		"text", text,
	)
}
