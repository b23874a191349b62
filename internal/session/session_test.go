package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperifyio/sxr/internal/search"
)

// fakeClient records every executed query and serves a scripted page or
// error. Tests mutate page/err between steps.
type fakeClient struct {
	calls []search.Query
	page  *search.Page
	err   error
}

func (f *fakeClient) Execute(_ context.Context, q search.Query) (*search.Page, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	if f.page != nil {
		return f.page, nil
	}
	return &search.Page{}, nil
}

func makePage(n int) *search.Page {
	p := &search.Page{}
	for i := 1; i <= n; i++ {
		p.Results = append(p.Results, search.Result{
			Title:   fmt.Sprintf("r%d", i),
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Engines: []string{"bing"},
		})
	}
	return p
}

func readySession(t *testing.T, fake *fakeClient, q search.Query) *Session {
	t.Helper()
	s := New(fake, Flags{})
	if err := s.Bootstrap(q); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s
}

func displayingSession(t *testing.T, fake *fakeClient, q search.Query) *Session {
	t.Helper()
	s := readySession(t, fake, q)
	if _, err := s.Search(context.Background()); err != nil {
		t.Fatalf("search: %v", err)
	}
	return s
}

func TestBootstrapValidates(t *testing.T) {
	s := New(&fakeClient{}, Flags{})
	err := s.Bootstrap(search.Query{Text: "  "})
	if err == nil {
		t.Fatalf("empty query accepted")
	}
	if s.State() != StateIdle {
		t.Fatalf("state after failed bootstrap: %v", s.State())
	}

	if err := s.Bootstrap(search.Query{Text: "sky blue", PageSize: 10}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("state: %v", s.State())
	}
	if err := s.Bootstrap(search.Query{Text: "again"}); err == nil {
		t.Fatalf("second bootstrap accepted")
	}
}

func TestBootstrapNormalizesSets(t *testing.T) {
	s := New(&fakeClient{}, Flags{})
	err := s.Bootstrap(search.Query{
		Text:       "x",
		Categories: []string{"Social+Media", "news", "NEWS"},
		Engines:    []string{"Bing", "bing", "mojeek"},
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	q := s.Query()
	assertSet(t, "categories", q.Categories, []string{"news", "social media"})
	assertSet(t, "engines", q.Engines, []string{"bing", "mojeek"})
}

func TestSearchSwapsPageAtomically(t *testing.T) {
	fake := &fakeClient{page: makePage(3)}
	s := readySession(t, fake, search.Query{Text: "x", PageSize: 10})

	page, err := s.Search(context.Background())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if s.State() != StateDisplaying {
		t.Fatalf("state: %v", s.State())
	}
	if s.Current() != page {
		t.Fatalf("current page not swapped")
	}

	// a failing search must leave the prior page and state alone
	fake.err = &search.SearchError{Kind: search.ErrServer, Status: 500}
	if _, err := s.Search(context.Background()); err == nil {
		t.Fatalf("expected search failure")
	}
	if s.State() != StateDisplaying {
		t.Fatalf("state after failure: %v", s.State())
	}
	if s.Current() != page {
		t.Fatalf("page replaced on failure")
	}
}

func TestSearchRequiresBootstrap(t *testing.T) {
	s := New(&fakeClient{}, Flags{})
	if _, err := s.Search(context.Background()); err == nil {
		t.Fatalf("search in idle state accepted")
	}
}

func TestApplyEnginesThreeModes(t *testing.T) {
	cases := []struct {
		name    string
		start   []string
		specs   []string
		want    []string
		wantErr bool
	}{
		{"add to empty", nil, []string{"+a", "+b"}, []string{"a", "b"}, false},
		{"add then remove", nil, []string{"+a", "-a"}, []string{}, false},
		{"replace", []string{"a", "b"}, []string{"x", "y"}, []string{"x", "y"}, false},
		{"remove absent", []string{"a"}, []string{"-z"}, []string{"a"}, false},
		{"clear", []string{"a", "b"}, nil, nil, false},
		{"mixed modes", []string{"a"}, []string{"x", "+y"}, nil, true},
		{"prefix without name", []string{"a"}, []string{"+"}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := readySession(t, &fakeClient{}, search.Query{Text: "x", Engines: tc.start, PageSize: 10})
			before := s.Query().Engines
			err := s.ApplyEngines(tc.specs)
			if tc.wantErr {
				var se *CommandSyntaxError
				if !errors.As(err, &se) {
					t.Fatalf("expected CommandSyntaxError, got %v", err)
				}
				assertSet(t, "engines after failed edit", s.Query().Engines, before)
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			assertSet(t, "engines", s.Query().Engines, tc.want)
		})
	}
}

func TestApplyCategoriesValidatesAtomically(t *testing.T) {
	s := readySession(t, &fakeClient{}, search.Query{Text: "x", Categories: []string{"news"}, PageSize: 10})
	err := s.ApplyCategories([]string{"+videos", "+shopping"})
	var ve *search.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertSet(t, "categories", s.Query().Categories, []string{"news"})
}

func TestApplyCategoriesCanonicalizes(t *testing.T) {
	s := readySession(t, &fakeClient{}, search.Query{Text: "x", PageSize: 10})
	if err := s.ApplyCategories([]string{"social+media", "IT"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	assertSet(t, "categories", s.Query().Categories, []string{"it", "social media"})
}

func TestPagingAdvancesOffsetAndRequeries(t *testing.T) {
	fake := &fakeClient{page: makePage(10)}
	s := displayingSession(t, fake, search.Query{Text: "sky blue", PageSize: 10})

	if _, err := s.Page(context.Background(), search.PageNext); err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := s.Query().Offset; got != 10 {
		t.Fatalf("offset after next: got %d", got)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("client calls: got %d", len(fake.calls))
	}
	if fake.calls[1].Offset != 10 {
		t.Fatalf("requery offset: got %d", fake.calls[1].Offset)
	}

	if _, err := s.Page(context.Background(), search.PagePrev); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if got := s.Query().Offset; got != 0 {
		t.Fatalf("offset after prev: got %d", got)
	}

	s.query.Offset = 30
	if _, err := s.Page(context.Background(), search.PageFirst); err != nil {
		t.Fatalf("first: %v", err)
	}
	if got := s.Query().Offset; got != 0 {
		t.Fatalf("offset after first: got %d", got)
	}
}

func TestPagingRollsBackOnFetchFailure(t *testing.T) {
	fake := &fakeClient{page: makePage(10)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 10})
	before := s.Current()

	fake.err = &search.SearchError{Kind: search.ErrTransport}
	if _, err := s.Page(context.Background(), search.PageNext); err == nil {
		t.Fatalf("expected fetch failure")
	}
	if got := s.Query().Offset; got != 0 {
		t.Fatalf("offset committed despite failure: %d", got)
	}
	if s.Current() != before {
		t.Fatalf("page replaced despite failure")
	}
}

func TestPagingUnavailableWithoutPageSize(t *testing.T) {
	fake := &fakeClient{page: makePage(5)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 0})
	callsBefore := len(fake.calls)

	_, err := s.Page(context.Background(), search.PageNext)
	if !errors.Is(err, search.ErrPagingUnavailable) {
		t.Fatalf("expected ErrPagingUnavailable, got %v", err)
	}
	if s.Query().Offset != 0 {
		t.Fatalf("offset mutated: %d", s.Query().Offset)
	}
	if len(fake.calls) != callsBefore {
		t.Fatalf("network call made for unavailable paging")
	}
}

func TestPagingRequiresCurrentPage(t *testing.T) {
	s := readySession(t, &fakeClient{}, search.Query{Text: "x", PageSize: 10})
	if _, err := s.Page(context.Background(), search.PageNext); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
}

func TestResultIndexBounds(t *testing.T) {
	fake := &fakeClient{page: makePage(3)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 10})

	if _, err := s.Result(2); err != nil {
		t.Fatalf("index 2: %v", err)
	}
	for _, idx := range []int{0, 4, -1} {
		_, err := s.Result(idx)
		var oor *IndexOutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("index %d: expected IndexOutOfRangeError, got %v", idx, err)
		}
		if oor.Count != 3 {
			t.Fatalf("index %d: count %d", idx, oor.Count)
		}
	}
}

func TestRandomResultUsesInjectedPick(t *testing.T) {
	fake := &fakeClient{page: makePage(5)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 10})
	s.SetRandIndex(func(n int) int {
		if n != 5 {
			t.Fatalf("pick range: got %d", n)
		}
		return 2
	})
	r, err := s.RandomResult()
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if r.Title != "r3" {
		t.Fatalf("picked: got %q", r.Title)
	}
}

func TestMutationsRewindToFirstPage(t *testing.T) {
	fake := &fakeClient{page: makePage(10)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 10})
	s.query.Offset = 20

	if err := s.SetTimeRange("week"); err != nil {
		t.Fatalf("set time range: %v", err)
	}
	if s.Query().Offset != 0 {
		t.Fatalf("offset after filter change: %d", s.Query().Offset)
	}

	s.query.Offset = 20
	if err := s.ApplyEngines([]string{"+bing"}); err != nil {
		t.Fatalf("apply engines: %v", err)
	}
	if s.Query().Offset != 0 {
		t.Fatalf("offset after engine change: %d", s.Query().Offset)
	}
}

func TestSetQueryRejectsEmptyText(t *testing.T) {
	s := readySession(t, &fakeClient{}, search.Query{Text: "original", PageSize: 10})
	err := s.SetQuery("   ")
	var ve *search.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Query().Text != "original" {
		t.Fatalf("text mutated: %q", s.Query().Text)
	}
}

func TestSetLanguageValidates(t *testing.T) {
	s := readySession(t, &fakeClient{}, search.Query{Text: "x", PageSize: 10})
	if err := s.SetLanguage("not a tag"); err == nil {
		t.Fatalf("bad language accepted")
	}
	if got := s.Query().Language; got != "" {
		t.Fatalf("language mutated: %q", got)
	}
	if err := s.SetLanguage("fi"); err != nil {
		t.Fatalf("fi rejected: %v", err)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	s := New(&fakeClient{}, Flags{})
	for i := 1; i <= historyLimit+5; i++ {
		s.Remember(fmt.Sprintf("line %d", i))
	}
	got := s.History()
	if len(got) != historyLimit {
		t.Fatalf("history length: got %d", len(got))
	}
	if got[0] != "line 6" {
		t.Fatalf("oldest retained: got %q", got[0])
	}
	s.Remember("   ")
	if len(s.History()) != historyLimit {
		t.Fatalf("blank line recorded")
	}
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	fake := &fakeClient{page: makePage(2)}
	s := displayingSession(t, fake, search.Query{Text: "x", PageSize: 10})

	s.Close()
	s.Close()
	if s.State() != StateClosed {
		t.Fatalf("state: %v", s.State())
	}
	if _, err := s.Search(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("search after close: %v", err)
	}
	if _, err := s.Page(context.Background(), search.PageNext); !errors.Is(err, ErrClosed) {
		t.Fatalf("page after close: %v", err)
	}
}

func assertSet(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v want %v", what, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: got %v want %v", what, got, want)
		}
	}
}
