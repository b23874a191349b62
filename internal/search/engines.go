package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Engine describes one engine of an instance, scraped from the preferences
// page. The instance exposes no JSON endpoint for this, so the HTML is the
// source of truth.
type Engine struct {
	Name        string   `json:"name"`
	URL         string   `json:"url,omitempty"`
	Bangs       []string `json:"bangs,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Reliability string   `json:"reliability,omitempty"`
}

// Engines downloads and parses the instance's engine catalog.
func (s *SearxNG) Engines(ctx context.Context) ([]Engine, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &SearchError{Kind: ErrTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &SearchError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SearchError{Kind: ErrServer, Status: resp.StatusCode, Detail: bodySnippet(body)}
	}
	return ParseEngineCatalog(resp.Body)
}

var bangToken = regexp.MustCompile(`^![a-zA-Z0-9_]+$`)
var anyBangToken = regexp.MustCompile(`![a-zA-Z0-9_]+`)

// ParseEngineCatalog extracts the engine rows from preferences HTML: the
// engine name sits in a th.name label, bang shortcuts in td.shortcut spans,
// the engine's homepage and its category bangs in the row tooltip, and the
// reliability score in the last cell. Rows are de-duplicated by name and
// sorted case-insensitively.
func ParseEngineCatalog(r io.Reader) ([]Engine, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse preferences page: %w", err)
	}

	seen := make(map[string]struct{})
	var engines []Engine
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("th.name label").First().Text())
		if name == "" {
			return
		}

		e := Engine{Name: name}

		tooltip := row.Find("div.engine-tooltip").First()
		e.URL = strings.TrimSpace(tooltip.Find("a").First().AttrOr("href", ""))

		row.Find("td.shortcut span.bang").Each(func(_ int, s *goquery.Selection) {
			if b := strings.TrimSpace(s.Text()); bangToken.MatchString(b) {
				e.Bangs = append(e.Bangs, b)
			}
		})

		// The tooltip lists category bangs in a "!bang for its categories"
		// section that runs until the next "!bang" heading.
		if _, section, ok := strings.Cut(tooltip.Text(), "!bang for its categories"); ok {
			if i := strings.Index(section, "!bang"); i >= 0 {
				section = section[:i]
			}
			e.Categories = NormalizeSet(anyBangToken.FindAllString(section, -1))
		}

		lastCell := row.Find("td").Last()
		e.Reliability = strings.TrimSpace(lastCell.Find("span").First().Text())

		if _, dup := seen[e.Name]; dup {
			return
		}
		seen[e.Name] = struct{}{}
		engines = append(engines, e)
	})

	sort.Slice(engines, func(i, j int) bool {
		return strings.ToLower(engines[i].Name) < strings.ToLower(engines[j].Name)
	})
	return engines, nil
}
