package search

import (
	"net/url"
	"strconv"
	"strings"
)

// EncodeParams maps a query onto the request parameters SearXNG accepts,
// identically for the GET query string and the POST form body. The site
// restriction is folded into q as a "site:" prefix because the API has no
// dedicated parameter for it. pageno is the server's 1-based page counter,
// which is related to but not the same as the query's result offset: the
// client walks pageno while filling a result window.
func EncodeParams(q Query, pageno int) url.Values {
	text := q.Text
	if q.Site != "" {
		text = "site:" + q.Site + " " + text
	}
	v := url.Values{}
	v.Set("q", text)
	v.Set("format", "json")
	v.Set("pageno", strconv.Itoa(pageno))
	v.Set("safesearch", strconv.Itoa(int(q.SafeSearch)))
	if len(q.Categories) > 0 {
		v.Set("categories", strings.Join(q.Categories, ","))
	}
	if len(q.Engines) > 0 {
		v.Set("engines", strings.Join(q.Engines, ","))
	}
	if q.Language != "" {
		v.Set("language", q.Language)
	}
	if q.TimeRange != TimeRangeNone {
		v.Set("time_range", string(q.TimeRange))
	}
	return v
}

// DecodeParams is the inverse of EncodeParams for everything that survives
// the wire: query text, site restriction, category/engine sets, safe-search,
// time range and language. Paging state does not round-trip; pageno alone
// cannot recover a result offset without the page size, so the returned
// query starts at the first page.
func DecodeParams(v url.Values) (Query, error) {
	q := Query{Text: v.Get("q")}

	if rest, ok := strings.CutPrefix(q.Text, "site:"); ok {
		site, text, _ := strings.Cut(rest, " ")
		q.Site = site
		q.Text = strings.TrimSpace(text)
	}

	if raw := strings.TrimSpace(v.Get("categories")); raw != "" {
		cats := make([]string, 0, 4)
		for _, tok := range strings.Split(raw, ",") {
			c, err := CanonicalCategory(tok)
			if err != nil {
				return Query{}, err
			}
			cats = append(cats, c)
		}
		q.Categories = NormalizeSet(cats)
	}
	if raw := strings.TrimSpace(v.Get("engines")); raw != "" {
		q.Engines = NormalizeSet(strings.Split(raw, ","))
	}

	if raw := v.Get("safesearch"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < int(SafeSearchNone) || n > int(SafeSearchStrict) {
			return Query{}, &ValidationError{Field: "safe_search", Value: raw, Reason: "must be 0, 1 or 2"}
		}
		q.SafeSearch = SafeSearch(n)
	}

	tr, err := ParseTimeRange(v.Get("time_range"))
	if err != nil {
		return Query{}, err
	}
	q.TimeRange = tr
	q.Language = strings.TrimSpace(v.Get("language"))
	return q, nil
}
