package session

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/sxr/internal/search"
)

// State is the lifecycle position of a session.
type State int

const (
	// StateIdle is the pre-bootstrap state: no query context fixed yet.
	StateIdle State = iota
	// StateReady has a query context but no page fetched.
	StateReady
	// StateDisplaying has a current result page.
	StateDisplaying
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateDisplaying:
		return "displaying"
	default:
		return "closed"
	}
}

// Flags are the session-wide display toggles.
type Flags struct {
	Expand bool
	Color  bool
	Debug  bool
}

const historyLimit = 500

// Session owns the current query, the current result page and the display
// flags for one interactive run. It is used from a single goroutine; the
// interactive loop blocks on one search at a time.
//
// Every mutation is all-or-nothing: a failed operation leaves query, page and
// state exactly as they were.
type Session struct {
	client    search.Client
	query     search.Query
	page      *search.Page
	state     State
	flags     Flags
	history   []string
	randIndex func(n int) int
}

// New returns an idle session backed by the given client.
func New(client search.Client, flags Flags) *Session {
	return &Session{
		client:    client,
		state:     StateIdle,
		flags:     flags,
		randIndex: rand.Intn,
	}
}

// SetRandIndex replaces the random pick used by RandomResult. Tests inject a
// deterministic function here.
func (s *Session) SetRandIndex(f func(n int) int) {
	if f != nil {
		s.randIndex = f
	}
}

func (s *Session) State() State        { return s.state }
func (s *Session) Query() search.Query { return s.query }
func (s *Session) Flags() Flags        { return s.flags }

// Current is the page of the most recent successful search, or nil.
func (s *Session) Current() *search.Page { return s.page }

// Bootstrap fixes the initial query context. Idle → Ready.
func (s *Session) Bootstrap(q search.Query) error {
	if s.state != StateIdle {
		return fmt.Errorf("bootstrap in state %s", s.state)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	q.Text = strings.TrimSpace(q.Text)
	q.Engines = search.NormalizeSet(q.Engines)
	cats := make([]string, 0, len(q.Categories))
	for _, c := range q.Categories {
		canon, err := search.CanonicalCategory(c)
		if err != nil {
			return err
		}
		cats = append(cats, canon)
	}
	q.Categories = search.NormalizeSet(cats)
	s.query = q
	s.state = StateReady
	return nil
}

// Search runs the current query and swaps in the fresh page. On failure the
// previous page and state survive untouched; nothing is retried.
func (s *Session) Search(ctx context.Context) (*search.Page, error) {
	switch s.state {
	case StateReady, StateDisplaying:
	case StateClosed:
		return nil, ErrClosed
	default:
		return nil, fmt.Errorf("search in state %s", s.state)
	}
	page, err := s.client.Execute(ctx, s.query)
	if err != nil {
		return nil, err
	}
	s.page = page
	s.state = StateDisplaying
	log.Debug().Str("query", s.query.Text).Int("results", len(page.Results)).Msg("session page replaced")
	return page, nil
}

// Page recomputes the offset one page in the given direction and performs the
// implicit re-search. Only valid once a page is displayed. The offset move
// commits only if the fetch succeeds.
func (s *Session) Page(ctx context.Context, dir search.PageDirection) (*search.Page, error) {
	if s.state == StateClosed {
		return nil, ErrClosed
	}
	if s.state != StateDisplaying {
		return nil, ErrNoPage
	}
	next, err := s.query.Advance(dir)
	if err != nil {
		return nil, err
	}
	page, err := s.client.Execute(ctx, next)
	if err != nil {
		return nil, err
	}
	s.query = next
	s.page = page
	return page, nil
}

// SetQuery replaces the query text and rewinds to the first page.
func (s *Session) SetQuery(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &search.ValidationError{Field: "query", Value: text, Reason: "must not be empty"}
	}
	s.query.Text = text
	s.query.Offset = 0
	return nil
}

// SetTimeRange parses and applies a time-range token. Like all filter
// changes it rewinds to the first page; the caller decides whether to
// re-search.
func (s *Session) SetTimeRange(tok string) error {
	tr, err := search.ParseTimeRange(tok)
	if err != nil {
		return err
	}
	s.query.TimeRange = tr
	s.query.Offset = 0
	return nil
}

// SetSafeSearch parses and applies a safe-search token.
func (s *Session) SetSafeSearch(tok string) error {
	level, err := search.ParseSafeSearch(tok)
	if err != nil {
		return err
	}
	s.query.SafeSearch = level
	s.query.Offset = 0
	return nil
}

// SetSite applies or clears ("") the site restriction.
func (s *Session) SetSite(site string) {
	s.query.Site = strings.TrimSpace(site)
	s.query.Offset = 0
}

// SetLanguage applies or clears ("") the language tag.
func (s *Session) SetLanguage(tag string) error {
	tag = strings.TrimSpace(tag)
	probe := s.query
	probe.Language = tag
	if err := probe.Validate(); err != nil {
		return err
	}
	s.query.Language = tag
	s.query.Offset = 0
	return nil
}

// ApplyEngines edits the engine set. Bare names replace the set, +name adds,
// -name removes; an empty spec list clears the set back to all engines.
// Engine names are opaque and passed through unvalidated.
func (s *Session) ApplyEngines(specs []string) error {
	next, err := applySetEdit(s.query.Engines, specs, nil)
	if err != nil {
		return err
	}
	s.query.Engines = next
	s.query.Offset = 0
	return nil
}

// ApplyCategories edits the category set with the same grammar as
// ApplyEngines. Category names are validated; one bad name fails the whole
// edit.
func (s *Session) ApplyCategories(specs []string) error {
	next, err := applySetEdit(s.query.Categories, specs, search.CanonicalCategory)
	if err != nil {
		return err
	}
	s.query.Categories = next
	s.query.Offset = 0
	return nil
}

// applySetEdit implements the three-mode set grammar. canon normalizes and
// validates one name; nil means pass-through. The result is built on the
// side so a failing token leaves the current set untouched.
func applySetEdit(current, specs []string, canon func(string) (string, error)) ([]string, error) {
	if canon == nil {
		canon = func(s string) (string, error) { return strings.ToLower(s), nil }
	}
	if len(specs) == 0 {
		return nil, nil
	}

	bare := 0
	prefixed := 0
	for _, spec := range specs {
		if strings.HasPrefix(spec, "+") || strings.HasPrefix(spec, "-") {
			prefixed++
		} else {
			bare++
		}
	}
	if bare > 0 && prefixed > 0 {
		return nil, &CommandSyntaxError{
			Token:  strings.Join(specs, " "),
			Reason: "cannot mix replacement names with +/- edits",
		}
	}

	if prefixed == 0 {
		replacement := make([]string, 0, len(specs))
		for _, spec := range specs {
			name, err := canon(strings.TrimSpace(spec))
			if err != nil {
				return nil, err
			}
			replacement = append(replacement, name)
		}
		return search.NormalizeSet(replacement), nil
	}

	set := make(map[string]struct{}, len(current)+len(specs))
	for _, name := range current {
		set[name] = struct{}{}
	}
	for _, spec := range specs {
		op, raw := spec[0], strings.TrimSpace(spec[1:])
		if raw == "" {
			return nil, &CommandSyntaxError{Token: spec, Reason: "missing name after prefix"}
		}
		name, err := canon(raw)
		if err != nil {
			return nil, err
		}
		if op == '+' {
			set[name] = struct{}{}
		} else {
			delete(set, name)
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return search.NormalizeSet(names), nil
}

// Result returns the 1-based display index from the current page.
func (s *Session) Result(displayIndex int) (search.Result, error) {
	count := 0
	if s.page != nil {
		count = len(s.page.Results)
	}
	if displayIndex < 1 || displayIndex > count {
		return search.Result{}, &IndexOutOfRangeError{Index: displayIndex, Count: count}
	}
	return s.page.Results[displayIndex-1], nil
}

// RandomResult picks uniformly from the current page.
func (s *Session) RandomResult() (search.Result, error) {
	if s.page == nil || len(s.page.Results) == 0 {
		return search.Result{}, &IndexOutOfRangeError{Index: 1, Count: 0}
	}
	return s.page.Results[s.randIndex(len(s.page.Results))], nil
}

// ToggleExpand flips URL expansion and reports the new value.
func (s *Session) ToggleExpand() bool {
	s.flags.Expand = !s.flags.Expand
	return s.flags.Expand
}

// ToggleColor flips colorized output and reports the new value.
func (s *Session) ToggleColor() bool {
	s.flags.Color = !s.flags.Color
	return s.flags.Color
}

// ToggleDebug flips debug logging and reports the new value. The caller owns
// adjusting the actual log level.
func (s *Session) ToggleDebug() bool {
	s.flags.Debug = !s.flags.Debug
	return s.flags.Debug
}

// Remember appends one typed line to the bounded history.
func (s *Session) Remember(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	s.history = append(s.history, line)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

// History returns a copy of the recorded lines, oldest first.
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Close ends the session. Idempotent; any state may close.
func (s *Session) Close() {
	s.state = StateClosed
}
