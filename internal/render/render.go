// Package render turns pages, settings and errors into terminal output.
// Color is applied through fatih/color and controlled per call, so the
// interactive color toggle takes effect on the very next page.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/hyperifyio/sxr/internal/search"
	"github.com/hyperifyio/sxr/internal/session"
)

const (
	titleWidth      = 70
	maxContentWords = 128
	contentWidth    = 100
	indent          = "     "
)

// Options mirror the session's display toggles.
type Options struct {
	Expand bool
	Color  bool
}

// Settings is the snapshot shown by the settings command. The renderer only
// formats it; the caller assembles it from the session and the config.
type Settings struct {
	Instance string
	Method   string
	Handler  string
	Query    search.Query
	Expand   bool
	Debug    bool
	Color    bool
}

// Renderer writes formatted output to a single writer.
type Renderer struct {
	w io.Writer
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// palette is the set of styles used for one render pass. Styles are forced
// on or off individually so the package-global color detection in
// fatih/color never overrides the session flag.
type palette struct {
	index  *color.Color
	title  *color.Color
	link   *color.Color
	dim    *color.Color
	head   *color.Color
	alert  *color.Color
	notice *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		index:  color.New(color.FgCyan),
		title:  color.New(color.FgCyan, color.Bold),
		link:   color.New(color.FgBlue, color.Underline),
		dim:    color.New(color.Faint),
		head:   color.New(color.Bold),
		alert:  color.New(color.FgRed, color.Bold),
		notice: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.index, p.title, p.link, p.dim, p.head, p.alert, p.notice} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Show renders one result page: answers first, then the numbered results
// with their category extras, then suggestions and engine failure notices.
func (r *Renderer) Show(page *search.Page, q search.Query, o Options) {
	p := newPalette(o.Color)
	fmt.Fprintln(r.w)

	for _, a := range page.Answers {
		fmt.Fprintf(r.w, " %s %s\n", p.notice.Sprint("="), a)
	}
	if len(page.Answers) > 0 {
		fmt.Fprintln(r.w)
	}

	if len(page.Results) == 0 {
		fmt.Fprintln(r.w, " No results found.")
		r.failures(p, page.Unresponsive)
		fmt.Fprintln(r.w)
		return
	}

	for i, res := range page.Results {
		r.result(p, i+1, res, o)
	}

	if len(page.Suggestions) > 0 {
		fmt.Fprintf(r.w, " %s %s\n", p.dim.Sprint("suggestions:"), strings.Join(page.Suggestions, ", "))
	}
	if len(page.Corrections) > 0 {
		fmt.Fprintf(r.w, " %s %s\n", p.dim.Sprint("did you mean:"), strings.Join(page.Corrections, ", "))
	}
	r.failures(p, page.Unresponsive)

	if q.PageSize > 0 {
		footer := fmt.Sprintf("page %d", page.Index+1)
		if page.HasMore {
			footer += ", more available (n)"
		}
		fmt.Fprintf(r.w, " %s\n", p.dim.Sprint(footer))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) result(p palette, n int, res search.Result, o Options) {
	title := shorten(res.Title, titleWidth)
	if title == "" {
		title = "No title"
	}
	line := fmt.Sprintf(" %s %s", p.index.Sprintf("%2d.", n), p.title.Sprint(title))
	if d := res.Domain(); d != "" {
		line += " " + p.dim.Sprintf("[%s]", d)
	}
	fmt.Fprintln(r.w, line)

	if o.Expand && res.URL != "" {
		fmt.Fprintf(r.w, "%s%s\n", indent, p.link.Sprint(res.URL))
	}

	for _, l := range wrapWords(capWords(res.Content, maxContentWords), contentWidth) {
		fmt.Fprintf(r.w, "%s%s\n", indent, l)
	}

	r.extras(p, res)

	if len(res.Engines) > 0 {
		fmt.Fprintf(r.w, "%s%s\n", indent, p.dim.Sprintf("[%s]", strings.Join(res.Engines, ", ")))
	}
	fmt.Fprintln(r.w)
}

// extras emits the per-category detail lines: dates for news and social
// media, media details for images and videos, publication data for science,
// torrent and file data for files, the address for map results.
func (r *Renderer) extras(p palette, res search.Result) {
	dimln := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			fmt.Fprintf(r.w, "%s%s\n", indent, p.dim.Sprint(s))
		}
	}
	switch res.Category {
	case "news", "social media":
		dimln(fmtDate(res.Published))
	case "images":
		dimln(strings.TrimSpace(res.Resolution + " " + res.Source))
		if res.ImgSrc != "" {
			fmt.Fprintf(r.w, "%s%s\n", indent, p.link.Sprint(res.ImgSrc))
		}
	case "videos", "music":
		dimln(strings.TrimSpace(res.Length + " " + res.Author))
	case "science":
		dimln(strings.TrimSpace(fmtDate(res.Published) + " " + res.Journal + " " + res.Publisher))
	case "files":
		if res.MagnetLink != "" {
			dimln(res.MagnetLink)
			dimln(fmt.Sprintf("%s ↑%d seeders ↓%d leechers", res.FileSize, res.Seed, res.Leech))
		} else {
			dimln(strings.TrimSpace(res.FileSize + " " + res.Metadata))
		}
	case "map":
		dimln(res.Address)
	}
}

func (r *Renderer) failures(p palette, fails []search.EngineFailure) {
	for _, f := range fails {
		msg := f.Name
		if f.Error != "" {
			msg += ": " + f.Error
		}
		fmt.Fprintf(r.w, " %s %s\n", p.notice.Sprint("engine unresponsive:"), msg)
	}
}

// ShowSettings prints the current query and display state as an aligned
// key/value table.
func (r *Renderer) ShowSettings(s Settings, o Options) {
	p := newPalette(o.Color)
	fmt.Fprintln(r.w)
	tw := tabwriter.NewWriter(r.w, 2, 4, 2, ' ', 0)
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(tw, " %s\t%s\n", p.dim.Sprint(k), v)
	}
	row("instance", s.Instance)
	row("query", s.Query.Text)
	row("categories", strings.Join(s.Query.Categories, ", "))
	row("engines", strings.Join(s.Query.Engines, ", "))
	row("time range", s.Query.TimeRange.String())
	row("safe search", s.Query.SafeSearch.String())
	row("site", s.Query.Site)
	row("language", s.Query.Language)
	row("page size", zeroAs(s.Query.PageSize, "server default"))
	row("offset", fmt.Sprintf("%d", s.Query.Offset))
	row("http method", s.Method)
	row("url handler", s.Handler)
	row("expand", onOff(s.Expand))
	row("color", onOff(s.Color))
	row("debug", onOff(s.Debug))
	tw.Flush()
	fmt.Fprintln(r.w)
}

// ShowRaw dumps one result as indented JSON, the inspect command's view.
func (r *Renderer) ShowRaw(res *search.Result) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(r.w, "cannot encode result: %v\n", err)
		return
	}
	fmt.Fprintf(r.w, "%s\n", b)
}

// ShowHistory prints the recorded command lines, oldest first.
func (r *Renderer) ShowHistory(lines []string, o Options) {
	p := newPalette(o.Color)
	fmt.Fprintln(r.w)
	for i, l := range lines {
		fmt.Fprintf(r.w, " %s %s\n", p.dim.Sprintf("%3d.", i+1), l)
	}
	fmt.Fprintln(r.w)
}

// ShowNotice prints a one-line confirmation.
func (r *Renderer) ShowNotice(msg string, o Options) {
	p := newPalette(o.Color)
	fmt.Fprintf(r.w, " %s\n", p.dim.Sprint(msg))
}

// ShowError reports any session or search error on one line, with the
// detail the error type carries.
func (r *Renderer) ShowError(err error, o Options) {
	p := newPalette(o.Color)
	fmt.Fprintf(r.w, " %s %s\n", p.alert.Sprint("Error:"), errorText(err))
}

func errorText(err error) string {
	if se, ok := search.AsSearchError(err); ok {
		switch se.Kind {
		case search.ErrRateLimited:
			return "the instance is rate limiting requests; wait a moment and try again"
		case search.ErrTransport:
			if cause := se.Unwrap(); cause != nil {
				return fmt.Sprintf("cannot reach the instance: %v", cause)
			}
		}
		return se.Error()
	}
	var ve *search.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ce *session.CommandSyntaxError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}

// ShowHelp prints the command reference. Verb columns are padded by hand;
// escape sequences inside tabwriter cells would throw its width counting
// off.
func (r *Renderer) ShowHelp(o Options) {
	p := newPalette(o.Color)
	fmt.Fprintln(r.w)
	group := func(name string) {
		fmt.Fprintf(r.w, " %s\n", p.head.Sprint(name))
	}
	cmd := func(verb, what string) {
		fmt.Fprintf(r.w, "   %-28s%s\n", verb, what)
	}
	group("Searching")
	cmd("TERMS", "run a new search with the entered terms")
	cmd("n / p / f", "next, previous, first page")
	group("Filters (apply and re-search)")
	cmd("e [NAME|+NAME|-NAME ...]", "set, add to or remove from the engine list; bare 'e' clears")
	cmd("c [NAME|+NAME|-NAME ...]", "same for categories")
	cmd("t RANGE", "time range: day, week, month, year or none (d/w/m/y)")
	cmd("w SITE", "restrict to a site; 'w -' clears")
	cmd("ss LEVEL", "safe search: none, moderate or strict (0/1/2)")
	group("Display")
	cmd("x", "toggle full url expansion")
	cmd("k", "toggle color")
	cmd("d", "toggle debug logging")
	cmd("j N", "dump result N as JSON")
	cmd("s", "show current settings")
	cmd("hist", "show command history")
	group("Results")
	cmd("N or o N", "open result N in the browser ('o' opens the first)")
	cmd("O", "open a random result")
	cmd("y [N]", "copy the url of result N to the clipboard")
	group("Other")
	cmd("?, help", "this message")
	cmd("q, quit, exit", "leave")
	fmt.Fprintln(r.w)
}

// EngineTable lists the instance's engine catalog, plain text so the
// listing modes stay pipeable.
func (r *Renderer) EngineTable(engines []search.Engine) {
	tw := tabwriter.NewWriter(r.w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ENGINE\tBANGS\tCATEGORIES\tRELIABILITY\n")
	for _, e := range engines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Name,
			strings.Join(e.Bangs, " "),
			strings.Join(e.Categories, ", "),
			e.Reliability)
	}
	tw.Flush()
}

// CategoryTable lists the selectable categories.
func (r *Renderer) CategoryTable(categories []string) {
	for _, c := range categories {
		fmt.Fprintf(r.w, "%s\n", c)
	}
}

// shorten collapses whitespace and trims s to at most width runes, cutting
// at a word boundary with a trailing ellipsis.
func shorten(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= width {
		return s
	}
	budget := width - 3
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		add := len([]rune(w))
		if b.Len() > 0 {
			add++
		}
		if runeLen(b.String())+add > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return string([]rune(s)[:budget]) + "..."
	}
	return b.String() + "..."
}

func runeLen(s string) int { return len([]rune(s)) }

// capWords keeps at most n whitespace-separated words, with a trailing
// ellipsis when something was dropped.
func capWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}

// wrapWords breaks s into lines of at most width runes, never splitting a
// word.
func wrapWords(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if runeLen(line)+1+runeLen(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	return append(lines, line)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func zeroAs(n int, alt string) string {
	if n == 0 {
		return alt
	}
	return fmt.Sprintf("%d", n)
}
