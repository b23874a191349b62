// Package search defines the query model sent to a SearXNG instance, the
// result model decoded from it, and the HTTP client that connects the two.
// The model is pure data plus validation; everything network-facing lives in
// the client.
package search

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// SafeSearch is the server-side content filtering level. The numeric values
// are the wire values SearXNG expects in the safesearch parameter.
type SafeSearch int

const (
	SafeSearchNone     SafeSearch = 0
	SafeSearchModerate SafeSearch = 1
	SafeSearchStrict   SafeSearch = 2
)

// ParseSafeSearch maps a user-facing token to a level. The wire numbers are
// accepted alongside the words.
func ParseSafeSearch(tok string) (SafeSearch, error) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "none", "0":
		return SafeSearchNone, nil
	case "moderate", "1":
		return SafeSearchModerate, nil
	case "strict", "2":
		return SafeSearchStrict, nil
	}
	return 0, &ValidationError{Field: "safe_search", Value: tok, Reason: "must be none, moderate or strict"}
}

func (s SafeSearch) String() string {
	switch s {
	case SafeSearchModerate:
		return "moderate"
	case SafeSearchStrict:
		return "strict"
	default:
		return "none"
	}
}

// TimeRange restricts results to a recency window. The empty value means no
// restriction and is omitted from requests.
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// ParseTimeRange accepts the full words, their single-letter shorthands and
// "none". Anything else is a validation error, never silently dropped.
func ParseTimeRange(tok string) (TimeRange, error) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "", "none":
		return TimeRangeNone, nil
	case "d", "day":
		return TimeRangeDay, nil
	case "w", "week":
		return TimeRangeWeek, nil
	case "m", "month":
		return TimeRangeMonth, nil
	case "y", "year":
		return TimeRangeYear, nil
	}
	return "", &ValidationError{Field: "time_range", Value: tok, Reason: "must be day, week, month, year or none"}
}

func (t TimeRange) String() string {
	if t == TimeRangeNone {
		return "none"
	}
	return string(t)
}

// KnownCategories is the category whitelist SearXNG ships with. "social media"
// is the canonical spelling; "social+media" is accepted on input because that
// is how configs and shells tend to write it.
var KnownCategories = []string{
	"general", "news", "videos", "images", "music",
	"map", "science", "it", "files", "social media",
}

// CanonicalCategory normalizes one category token and rejects unknown ones.
func CanonicalCategory(tok string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(tok))
	if c == "social+media" {
		c = "social media"
	}
	for _, known := range KnownCategories {
		if c == known {
			return c, nil
		}
	}
	return "", &ValidationError{
		Field:  "categories",
		Value:  tok,
		Reason: fmt.Sprintf("supported categories are: %s", strings.Join(KnownCategories, ", ")),
	}
}

// NormalizeSet lowercases, trims and de-duplicates a token list and returns it
// sorted. Engine and category selections are sets; keeping them sorted gives
// a stable wire form and stable display.
func NormalizeSet(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Query is the full set of parameters describing one search request.
//
// Categories and Engines are independent filters: an empty category set
// defers to the server default and an empty engine set means all engines.
// Engine names are opaque and passed through to the server; categories are
// validated against KnownCategories. Offset is a zero-based result offset
// advanced by paging, aligned to PageSize.
type Query struct {
	Text       string
	Categories []string
	Engines    []string
	SafeSearch SafeSearch
	TimeRange  TimeRange
	Site       string
	Language   string
	PageSize   int
	Offset     int
}

// Validate reports the first invalid field. A Query produced by the wire
// decoder or mutated through Session helpers is always valid; Validate guards
// the bootstrap path where values arrive raw from flags and config.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return &ValidationError{Field: "query", Value: q.Text, Reason: "must not be empty"}
	}
	for _, c := range q.Categories {
		if _, err := CanonicalCategory(c); err != nil {
			return err
		}
	}
	if q.SafeSearch < SafeSearchNone || q.SafeSearch > SafeSearchStrict {
		return &ValidationError{Field: "safe_search", Value: fmt.Sprint(int(q.SafeSearch)), Reason: "must be none, moderate or strict"}
	}
	switch q.TimeRange {
	case TimeRangeNone, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear:
	default:
		return &ValidationError{Field: "time_range", Value: string(q.TimeRange), Reason: "must be day, week, month, year or none"}
	}
	if q.Language != "" && q.Language != "auto" {
		if _, err := language.Parse(q.Language); err != nil {
			return &ValidationError{Field: "language", Value: q.Language, Reason: "not a valid language tag"}
		}
	}
	if q.PageSize < 0 {
		return &ValidationError{Field: "page_size", Value: fmt.Sprint(q.PageSize), Reason: "must be zero or positive"}
	}
	if q.Offset < 0 {
		return &ValidationError{Field: "offset", Value: fmt.Sprint(q.Offset), Reason: "must be zero or positive"}
	}
	return nil
}

// PageIndex is the zero-based page number Offset corresponds to.
func (q Query) PageIndex() int {
	if q.PageSize <= 0 {
		return 0
	}
	return q.Offset / q.PageSize
}

// PageDirection selects how Advance recomputes the offset.
type PageDirection int

const (
	PageNext PageDirection = iota
	PagePrev
	PageFirst
)

func (d PageDirection) String() string {
	switch d {
	case PageNext:
		return "next"
	case PagePrev:
		return "prev"
	default:
		return "first"
	}
}

// Advance returns a copy of q with the offset moved one page in the given
// direction. Previous clamps at zero. With PageSize 0 there is no page
// boundary to move across, so paging is unavailable.
func (q Query) Advance(dir PageDirection) (Query, error) {
	if q.PageSize <= 0 {
		return q, ErrPagingUnavailable
	}
	switch dir {
	case PageNext:
		q.Offset += q.PageSize
	case PagePrev:
		q.Offset -= q.PageSize
		if q.Offset < 0 {
			q.Offset = 0
		}
	case PageFirst:
		q.Offset = 0
	}
	return q, nil
}
