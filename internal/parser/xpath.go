package parser

import (
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// queryAll evaluates a compiled expression against top.
func queryAll(top *html.Node, expr *xpath.Expr) []*html.Node {
	return htmlquery.QuerySelectorAll(top, expr)
}

// queryOne evaluates a compiled expression and returns the first match or nil.
func queryOne(top *html.Node, expr *xpath.Expr) *html.Node {
	return htmlquery.QuerySelector(top, expr)
}

// attrOf returns an attribute value, or the node's inner text when name is
// empty or "text".
func attrOf(n *html.Node, name string) string {
	switch name {
	case "", "text":
		return htmlquery.InnerText(n)
	default:
		return htmlquery.SelectAttr(n, name)
	}
}
