package search

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"
)

// Result is one entry of a result page, normalized from the wire form.
// Engines holds every engine that reported the entry, not just the first.
// The per-template fields (image, video, science, file, map) are empty for
// results of other templates.
type Result struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Content   string    `json:"content,omitempty"`
	Engines   []string  `json:"engines,omitempty"`
	Category  string    `json:"category,omitempty"`
	Published time.Time `json:"published,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Template  string    `json:"template,omitempty"`

	ImgSrc     string `json:"img_src,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Source     string `json:"source,omitempty"`
	Author     string `json:"author,omitempty"`
	Length     string `json:"length,omitempty"`
	Journal    string `json:"journal,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
	MagnetLink string `json:"magnetlink,omitempty"`
	Seed       int    `json:"seed,omitempty"`
	Leech      int    `json:"leech,omitempty"`
	FileSize   string `json:"filesize,omitempty"`
	Address    string `json:"address,omitempty"`
	Metadata   string `json:"metadata,omitempty"`
}

// Domain is the host part of the result URL, used by the compact rendering.
func (r Result) Domain() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" {
		return r.URL
	}
	return u.Host
}

// EngineFailure is one engine the instance could not get an answer from.
type EngineFailure struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

// Page is one fetched, ordered batch of results plus paging metadata. Result
// order is the server's relevance order and is never re-sorted. A Page is
// immutable once built; each search produces a fresh one.
type Page struct {
	Results []Result `json:"results"`
	Index   int      `json:"page"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"has_more"`

	Suggestions  []string        `json:"suggestions,omitempty"`
	Answers      []string        `json:"answers,omitempty"`
	Corrections  []string        `json:"corrections,omitempty"`
	Unresponsive []EngineFailure `json:"unresponsive_engines,omitempty"`
}

// wireResponse mirrors the JSON document a SearXNG instance answers with.
// Fields the terminal never uses are left out on purpose.
type wireResponse struct {
	NumberOfResults int          `json:"number_of_results"`
	Results         []wireResult `json:"results"`
	Suggestions     []string     `json:"suggestions"`
	Corrections     []string     `json:"corrections"`
	// Answers are plain strings on older instances and objects with an
	// "answer" key on newer ones.
	Answers []json.RawMessage `json:"answers"`
	// Unresponsive engines arrive as ["name", "error", ...] tuples.
	Unresponsive [][]json.RawMessage `json:"unresponsive_engines"`
}

type wireResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Content       string   `json:"content"`
	Engine        string   `json:"engine"`
	Engines       []string `json:"engines"`
	Category      string   `json:"category"`
	PublishedDate string   `json:"publishedDate"`
	Score         float64  `json:"score"`
	Template      string   `json:"template"`

	ImgSrc     string          `json:"img_src"`
	Resolution string          `json:"resolution"`
	Source     string          `json:"source"`
	Author     string          `json:"author"`
	Length     json.RawMessage `json:"length"`
	Journal    string          `json:"journal"`
	Publisher  string          `json:"publisher"`
	MagnetLink string          `json:"magnetlink"`
	Seed       json.RawMessage `json:"seed"`
	Leech      json.RawMessage `json:"leech"`
	FileSize   json.RawMessage `json:"filesize"`
	Address    *wireAddress    `json:"address"`
	Metadata   string          `json:"metadata"`
}

type wireAddress struct {
	Name        string `json:"name"`
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Locality    string `json:"locality"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}

// convertResult normalizes one wire entry. Entries carrying neither a title
// nor a URL are dropped; everything else is kept so indexes shown to the user
// line up with what the server sent.
func convertResult(w wireResult) (Result, bool) {
	r := Result{
		Title:      strings.TrimSpace(w.Title),
		URL:        stripNonPrintable(strings.TrimSpace(w.URL)),
		Content:    flattenHTML(w.Content),
		Category:   strings.TrimSpace(w.Category),
		Published:  parsePublishedDate(w.PublishedDate),
		Score:      w.Score,
		Template:   w.Template,
		ImgSrc:     strings.TrimSpace(w.ImgSrc),
		Resolution: strings.TrimSpace(w.Resolution),
		Source:     strings.TrimSpace(w.Source),
		Author:     strings.TrimSpace(w.Author),
		Length:     formatLength(w.Length),
		Journal:    strings.TrimSpace(w.Journal),
		Publisher:  strings.TrimSpace(w.Publisher),
		MagnetLink: strings.TrimSpace(w.MagnetLink),
		Seed:       rawInt(w.Seed),
		Leech:      rawInt(w.Leech),
		FileSize:   formatFileSize(w.FileSize),
		Address:    w.Address.flatten(),
		Metadata:   strings.TrimSpace(w.Metadata),
	}
	if r.Title == "" && r.URL == "" {
		return Result{}, false
	}
	r.Engines = w.Engines
	if len(r.Engines) == 0 && strings.TrimSpace(w.Engine) != "" {
		r.Engines = []string{w.Engine}
	}
	r.Engines = NormalizeSet(r.Engines)
	return r, true
}

func (a *wireAddress) flatten() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Name, strings.TrimSpace(a.HouseNumber + " " + a.Road), a.Locality, a.Postcode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// stripNonPrintable removes control and other non-printable runes. Result
// URLs occasionally carry stray control characters that would corrupt the
// terminal or the browser handoff.
func stripNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// flattenHTML reduces a snippet to plain text: tags dropped, entities
// decoded, whitespace collapsed. Instances routinely return markup inside
// the content field.
func flattenHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		t := tok.Next()
		if t == html.ErrorToken {
			break
		}
		if t == html.TextToken {
			b.Write(tok.Text())
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var publishedFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePublishedDate tries the handful of formats instances actually emit.
// Anything unparseable becomes the zero time and is simply not shown.
func parsePublishedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, f := range publishedFormats {
		if ts, err := time.Parse(f, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// rawSet reports whether a raw field is present and not JSON null. Null
// unmarshals into numeric targets as a successful no-op, which would turn
// absent durations into "00:00".
func rawSet(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// formatLength normalizes a media duration. The wire value is either a
// number of seconds or an already formatted string.
func formatLength(raw json.RawMessage) string {
	if !rawSet(raw) {
		return ""
	}
	var secs float64
	if err := json.Unmarshal(raw, &secs); err == nil {
		total := int(secs)
		if total >= 3600 {
			return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
		}
		return fmt.Sprintf("%02d:%02d", total/60, total%60)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// formatFileSize humanizes a byte count; string values pass through.
func formatFileSize(raw json.RawMessage) string {
	if !rawSet(raw) {
		return ""
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return humanSize(int64(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func rawInt(raw json.RawMessage) int {
	if !rawSet(raw) {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

func rawString(raw json.RawMessage) string {
	if !rawSet(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// answer objects carry more than strings (parsed_url is an array), so
	// decode loosely and pick the text field out
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"answer", "name"} {
			if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func (w wireResponse) answers() []string {
	out := make([]string, 0, len(w.Answers))
	for _, raw := range w.Answers {
		if s := strings.TrimSpace(rawString(raw)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (w wireResponse) unresponsive() []EngineFailure {
	out := make([]EngineFailure, 0, len(w.Unresponsive))
	for _, tuple := range w.Unresponsive {
		if len(tuple) == 0 {
			continue
		}
		f := EngineFailure{Name: rawString(tuple[0])}
		if len(tuple) > 1 {
			f.Error = rawString(tuple[1])
		}
		if f.Name != "" {
			out = append(out, f)
		}
	}
	return out
}
