package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// firstText returns the trimmed text content of the first match of selector
// inside scope. Hidden elements count; this is textContent, not innerText.
func firstText(scope *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	match := scope.Find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(match.Text())
	if text == "" {
		return "", false
	}
	return text, true
}
