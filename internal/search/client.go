package search

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Client executes one query against a search backend and returns the
// corresponding result page. Implementations must honor every Query field and
// must not retry on failure; retrying is a fresh user command.
type Client interface {
	Execute(ctx context.Context, q Query) (*Page, error)
}

// DefaultTimeout bounds one search call end to end when no explicit timeout
// is configured.
const DefaultTimeout = 30 * time.Second

// SearxNG talks to a SearXNG instance over its JSON search API.
//
// The zero value is not usable; BaseURL is required. When HTTPClient is nil a
// client with DefaultTimeout is used. An empty UserAgent sends no User-Agent
// header at all.
type SearxNG struct {
	BaseURL    string
	Username   string
	Password   string
	Method     string // "GET" (default) or "POST"
	UserAgent  string
	HTTPClient *http.Client
}

// NewHTTPClient builds the transport for SearxNG. Verification of the server
// certificate can be switched off for instances behind self-signed TLS.
func NewHTTPClient(timeout time.Duration, verifyTLS bool) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !verifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Execute fetches the page the query's offset and page size select.
//
// The API has no result-count parameter and its page sizes vary by engine
// mix, so the window is filled by walking the server's 1-based pageno until
// enough results accumulated, then slicing out [Offset, Offset+PageSize).
// Filling deliberately runs one result past the window end; whatever shows up
// beyond it is the HasMore signal. With PageSize 0 a single request is made
// and the server's first page is returned whole.
func (s *SearxNG) Execute(ctx context.Context, q Query) (*Page, error) {
	if q.PageSize <= 0 {
		w, err := s.fetch(ctx, q, 1)
		if err != nil {
			return nil, err
		}
		page := buildPage(w, q)
		page.HasMore = len(page.Results) > 0
		return page, nil
	}

	limit := q.Offset + q.PageSize
	var (
		first     *wireResponse
		collected []Result
		failures  []EngineFailure
		total     int
	)
	for pageno := 1; len(collected) <= limit; pageno++ {
		w, err := s.fetch(ctx, q, pageno)
		if err != nil {
			return nil, err
		}
		if first == nil {
			cp := w
			first = &cp
		}
		if w.NumberOfResults > total {
			total = w.NumberOfResults
		}
		failures = mergeFailures(failures, w.unresponsive())
		batch := 0
		for _, wr := range w.Results {
			if r, ok := convertResult(wr); ok {
				collected = append(collected, r)
				batch++
			}
		}
		if batch == 0 {
			break
		}
	}

	page := &Page{
		Index:        q.PageIndex(),
		Total:        total,
		HasMore:      len(collected) > limit,
		Unresponsive: failures,
	}
	if first != nil {
		page.Suggestions = first.Suggestions
		page.Corrections = first.Corrections
		page.Answers = first.answers()
	}
	if q.Offset < len(collected) {
		end := limit
		if end > len(collected) {
			end = len(collected)
		}
		page.Results = collected[q.Offset:end]
	}
	log.Debug().
		Int("page_index", page.Index).
		Int("results", len(page.Results)).
		Bool("has_more", page.HasMore).
		Msg("page assembled")
	return page, nil
}

// buildPage converts a single wire response one to one, for the
// server-default page size case.
func buildPage(w wireResponse, q Query) *Page {
	page := &Page{
		Index:        q.PageIndex(),
		Total:        w.NumberOfResults,
		Suggestions:  w.Suggestions,
		Corrections:  w.Corrections,
		Answers:      w.answers(),
		Unresponsive: w.unresponsive(),
	}
	for _, wr := range w.Results {
		if r, ok := convertResult(wr); ok {
			page.Results = append(page.Results, r)
		}
	}
	return page
}

func mergeFailures(have, more []EngineFailure) []EngineFailure {
	for _, f := range more {
		seen := false
		for _, h := range have {
			if h.Name == f.Name {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, f)
		}
	}
	return have
}

// fetch performs one HTTP round trip for one server page and decodes it.
func (s *SearxNG) fetch(ctx context.Context, q Query, pageno int) (wireResponse, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/search"
	params := EncodeParams(q, pageno)

	var (
		req *http.Request
		err error
	)
	if strings.EqualFold(s.Method, http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return wireResponse{}, &SearchError{Kind: ErrTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}

	log.Debug().Str("url", req.URL.String()).Str("method", req.Method).Msg("searxng request")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return wireResponse{}, &SearchError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return wireResponse{}, &SearchError{Kind: ErrTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return wireResponse{}, &SearchError{Kind: ErrRateLimited, Status: resp.StatusCode, Detail: bodySnippet(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return wireResponse{}, &SearchError{Kind: ErrServer, Status: resp.StatusCode, Detail: bodySnippet(body)}
	}

	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return wireResponse{}, &SearchError{
			Kind:   ErrDecode,
			Status: resp.StatusCode,
			Detail: "response is not JSON; the instance may be misconfigured (json format not enabled)",
			Err:    err,
		}
	}
	return w, nil
}

// bodySnippet compacts an error body to one short line for display.
func bodySnippet(b []byte) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
