package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// pagedHandler serves perPage results per server page, numbered globally so
// tests can check windowing, with an optional cap on the total supply.
func pagedHandler(t *testing.T, perPage, totalAvailable int, pagenos *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(r.FormValue("pageno"))
		if err != nil {
			t.Errorf("bad pageno %q", r.FormValue("pageno"))
		}
		if pagenos != nil {
			*pagenos = append(*pagenos, n)
		}
		results := make([]map[string]any, 0, perPage)
		for i := 0; i < perPage; i++ {
			id := (n-1)*perPage + i + 1
			if totalAvailable > 0 && id > totalAvailable {
				break
			}
			results = append(results, map[string]any{
				"title":  fmt.Sprintf("r%d", id),
				"url":    fmt.Sprintf("https://example.com/%d", id),
				"engine": "bing",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":           results,
			"number_of_results": 120,
		})
	}
}

func TestExecuteFillsWindowAcrossServerPages(t *testing.T) {
	var pagenos []int
	srv := httptest.NewServer(pagedHandler(t, 6, 0, &pagenos))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	page, err := s.Execute(context.Background(), Query{Text: "sky blue", PageSize: 10})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(pagenos) != 2 || pagenos[0] != 1 || pagenos[1] != 2 {
		t.Fatalf("server pages walked: %v", pagenos)
	}
	if len(page.Results) != 10 {
		t.Fatalf("window size: got %d", len(page.Results))
	}
	if page.Results[0].Title != "r1" || page.Results[9].Title != "r10" {
		t.Fatalf("window contents: %q .. %q", page.Results[0].Title, page.Results[9].Title)
	}
	if !page.HasMore {
		t.Fatalf("expected more results beyond the window")
	}
	if page.Total != 120 {
		t.Fatalf("total: got %d", page.Total)
	}
	if page.Index != 0 {
		t.Fatalf("page index: got %d", page.Index)
	}
}

func TestExecuteHonorsOffset(t *testing.T) {
	srv := httptest.NewServer(pagedHandler(t, 6, 0, nil))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	page, err := s.Execute(context.Background(), Query{Text: "sky blue", PageSize: 10, Offset: 10})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(page.Results) != 10 {
		t.Fatalf("window size: got %d", len(page.Results))
	}
	if page.Results[0].Title != "r11" || page.Results[9].Title != "r20" {
		t.Fatalf("window contents: %q .. %q", page.Results[0].Title, page.Results[9].Title)
	}
	if page.Index != 1 {
		t.Fatalf("page index: got %d", page.Index)
	}
}

func TestExecuteStopsWhenServerRunsDry(t *testing.T) {
	var pagenos []int
	srv := httptest.NewServer(pagedHandler(t, 6, 6, &pagenos))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	page, err := s.Execute(context.Background(), Query{Text: "rare terms", PageSize: 10})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(page.Results) != 6 {
		t.Fatalf("results: got %d", len(page.Results))
	}
	if page.HasMore {
		t.Fatalf("HasMore set on exhausted supply")
	}
	if len(pagenos) != 2 {
		t.Fatalf("expected probe of the empty second page, walked %v", pagenos)
	}
}

func TestExecuteServerDefaultPageSize(t *testing.T) {
	var pagenos []int
	srv := httptest.NewServer(pagedHandler(t, 17, 0, &pagenos))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	page, err := s.Execute(context.Background(), Query{Text: "sky blue"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(pagenos) != 1 || pagenos[0] != 1 {
		t.Fatalf("server pages walked: %v", pagenos)
	}
	if len(page.Results) != 17 {
		t.Fatalf("results: got %d", len(page.Results))
	}
}

func TestExecutePostSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type: got %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("q"); got != "site:example.com sky blue" {
			t.Errorf("q: got %q", got)
		}
		if got := r.PostFormValue("format"); got != "json" {
			t.Errorf("format: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, Method: "POST", HTTPClient: srv.Client()}
	if _, err := s.Execute(context.Background(), Query{Text: "sky blue", Site: "example.com"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestExecuteSendsAuthAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "sxr/test" {
			t.Errorf("user agent: got %q", got)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			t.Errorf("basic auth: got %q %q ok=%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer srv.Close()

	s := &SearxNG{
		BaseURL:    srv.URL,
		Username:   "alice",
		Password:   "secret",
		UserAgent:  "sxr/test",
		HTTPClient: srv.Client(),
	}
	if _, err := s.Execute(context.Background(), Query{Text: "x"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestExecuteOmitsUserAgentWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "" {
			t.Errorf("user agent sent: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := s.Execute(context.Background(), Query{Text: "x"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestExecuteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := s.Execute(context.Background(), Query{Text: "x", PageSize: 5})
	se, ok := AsSearchError(err)
	if !ok || se.Kind != ErrRateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if se.Status != http.StatusTooManyRequests {
		t.Fatalf("status: got %d", se.Status)
	}
}

func TestExecuteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := s.Execute(context.Background(), Query{Text: "x", PageSize: 5})
	se, ok := AsSearchError(err)
	if !ok || se.Kind != ErrServer {
		t.Fatalf("expected server error, got %v", err)
	}
	if se.Status != http.StatusInternalServerError {
		t.Fatalf("status: got %d", se.Status)
	}
}

func TestExecuteDecodeFailureNamesMisconfiguration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>search page</body></html>")
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := s.Execute(context.Background(), Query{Text: "x", PageSize: 5})
	se, ok := AsSearchError(err)
	if !ok || se.Kind != ErrDecode {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if !strings.Contains(strings.ToLower(se.Detail), "misconfigured") {
		t.Fatalf("detail should name misconfiguration: %q", se.Detail)
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := &SearxNG{BaseURL: srv.URL}
	_, err := s.Execute(context.Background(), Query{Text: "x", PageSize: 5})
	se, ok := AsSearchError(err)
	if !ok || se.Kind != ErrTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestExecuteCollectsUnresponsiveEngines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "t", "url": "https://example.com", "engine": "bing"},
			},
			"unresponsive_engines": [][]string{{"qwant", "suspended"}},
			"suggestions":          []string{"bluer sky"},
		})
	}))
	defer srv.Close()

	s := &SearxNG{BaseURL: srv.URL, HTTPClient: srv.Client()}
	page, err := s.Execute(context.Background(), Query{Text: "x"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(page.Unresponsive) != 1 || page.Unresponsive[0].Name != "qwant" {
		t.Fatalf("unresponsive: %+v", page.Unresponsive)
	}
	if len(page.Suggestions) != 1 || page.Suggestions[0] != "bluer sky" {
		t.Fatalf("suggestions: %v", page.Suggestions)
	}
}
