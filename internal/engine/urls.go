package engine

import (
	"net/url"
	"sort"
	"strings"

	"github.com/IshaanNene/bestsellers/internal/parser"
)

// CanonicalizeURL normalizes a listing URL:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// sessionKey identifies the category session a URL would run. Listing URLs
// of the same category on the same host share a key whatever their ref
// suffix; anything else keys on its canonical form.
func sessionKey(rawURL string) string {
	canonical := CanonicalizeURL(rawURL)
	category, err := parser.CategoryFromURL(rawURL)
	if err != nil {
		return canonical
	}
	u, err := url.Parse(canonical)
	if err != nil {
		return canonical
	}
	return u.Host + "|" + category
}

// UniqueURLs keeps the first URL of every category session, in input order,
// and returns the rest as skipped.
func UniqueURLs(urls []string) (kept, skipped []string) {
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		key := sessionKey(u)
		if _, ok := seen[key]; ok {
			skipped = append(skipped, u)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, u)
	}
	return kept, skipped
}
