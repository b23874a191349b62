package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/sxr/internal/action"
	"github.com/hyperifyio/sxr/internal/config"
	"github.com/hyperifyio/sxr/internal/render"
	"github.com/hyperifyio/sxr/internal/search"
	"github.com/hyperifyio/sxr/internal/session"
)

// version is set via -ldflags at build time.
var version = "0.0.0-dev"

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagValues holds everything the command line can set. The config file
// supplies whatever was not given explicitly; applyFlags resolves the
// precedence.
type flagValues struct {
	configPath string

	searxURL    string
	username    string
	password    string
	num         int
	categories  []string
	engines     []string
	safeSearch  string
	unsafe      bool
	language    string
	timeRange   string
	site        string
	expand      bool
	debug       bool
	color       string
	httpMethod  string
	noVerifySSL bool
	noUserAgent bool
	urlHandler  string
	timeoutSecs int

	news   bool
	videos bool
	music  bool
	files  bool
	social bool

	noPrompt       bool
	jsonOut        bool
	first          bool
	lucky          bool
	listEngines    bool
	listCategories bool
}

func newRootCmd() *cobra.Command {
	v := &flagValues{}
	cmd := &cobra.Command{
		Use:     "sxr [query...]",
		Short:   "Search a SearXNG instance from the command line",
		Long:    "sxr searches a SearXNG instance and browses the results interactively:\npage through them, narrow engines and categories, open hits in the browser.",
		Version: version,
		Args:    cobra.ArbitraryArgs,

		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}
	cmd.SetVersionTemplate("sxr {{.Version}}\n")

	fl := cmd.Flags()
	fl.StringVar(&v.configPath, "config", "", "path to the configuration file")
	fl.StringVar(&v.searxURL, "searxng-url", "", "SearXNG instance URL (SEARXNG_URL env is the fallback)")
	fl.StringVar(&v.username, "username", "", "username for basic auth on the instance")
	fl.StringVar(&v.password, "password", "", "password for basic auth on the instance")
	fl.IntVarP(&v.num, "num", "n", 10, "results per page; 0 uses the server's page size")
	fl.StringSliceVarP(&v.categories, "categories", "c", nil, "categories to search, comma separated")
	fl.StringSliceVarP(&v.engines, "engines", "e", nil, "engines to use, comma separated (default all)")
	fl.StringVar(&v.safeSearch, "safe-search", "", "safe search level: none, moderate or strict")
	fl.BoolVar(&v.unsafe, "unsafe", false, "allow unsafe results (same as --safe-search none)")
	fl.StringVarP(&v.language, "language", "l", "", "result language, e.g. en, de, fi")
	fl.StringVarP(&v.timeRange, "time-range", "t", "", "restrict by age: day, week, month or year")
	fl.StringVarP(&v.site, "site", "w", "", "restrict to a site (site: operator)")
	fl.BoolVarP(&v.expand, "expand", "x", false, "show the full url of every result")
	fl.BoolVarP(&v.debug, "debug", "d", false, "debug logging")
	fl.StringVar(&v.color, "color", "", "colorize output: auto, on or off")
	fl.StringVar(&v.httpMethod, "http-method", "", "request method: GET or POST")
	fl.BoolVar(&v.noVerifySSL, "no-verify-ssl", false, "skip TLS certificate verification (not recommended)")
	fl.BoolVar(&v.noUserAgent, "noua", false, "send no User-Agent header")
	fl.StringVar(&v.urlHandler, "url-handler", "", "command used to open urls")
	fl.IntVar(&v.timeoutSecs, "timeout", 0, "request timeout in seconds")

	fl.BoolVarP(&v.news, "news", "N", false, "add the news category")
	fl.BoolVarP(&v.videos, "videos", "V", false, "add the videos category")
	fl.BoolVar(&v.music, "music", false, "add the music category")
	fl.BoolVar(&v.files, "files", false, "add the files category")
	fl.BoolVarP(&v.social, "social", "S", false, "add the social media category")

	fl.BoolVar(&v.noPrompt, "np", false, "print the first page and exit")
	fl.BoolVar(&v.jsonOut, "json", false, "print the first page as JSON and exit")
	fl.BoolVarP(&v.first, "first", "j", false, "open the first result and exit")
	fl.BoolVar(&v.lucky, "lucky", false, "open a random result and exit")
	fl.BoolVar(&v.listEngines, "list-engines", false, "list the instance's engines and exit")
	fl.BoolVar(&v.listCategories, "list-categories", false, "list the selectable categories and exit")

	return cmd
}

func run(cmd *cobra.Command, v *flagValues, args []string) error {
	out := render.New(cmd.OutOrStdout())

	if v.listCategories {
		out.CategoryTable(search.KnownCategories)
		return nil
	}

	path := v.configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	if v.searxURL == "" && os.Getenv("SEARXNG_URL") == "" {
		if _, err := config.Ensure(path, action.DefaultHandler(), cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, v, &cfg)
	if cfg.SearxURL == "" {
		cfg.SearxURL = os.Getenv("SEARXNG_URL")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := &search.SearxNG{
		BaseURL:    cfg.SearxURL,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Method:     strings.ToUpper(cfg.HTTPMethod),
		UserAgent:  userAgent(cfg),
		HTTPClient: search.NewHTTPClient(cfg.Timeout(), !cfg.NoVerifySSL),
	}
	ctx := context.Background()

	if v.listEngines {
		engines, err := client.Engines(ctx)
		if err != nil {
			return err
		}
		out.EngineTable(engines)
		return nil
	}

	terms := strings.TrimSpace(strings.Join(args, " "))
	if terms == "" {
		return cmd.Usage()
	}

	colorOn := resolveColor(cfg.Color)
	opts := render.Options{Expand: cfg.Expand, Color: colorOn}

	q := search.Query{
		Text:       terms,
		Categories: cfg.Categories,
		Engines:    cfg.Engines,
		Language:   cfg.Language,
		Site:       v.site,
		PageSize:   cfg.ResultCount,
	}
	q.SafeSearch, _ = search.ParseSafeSearch(cfg.SafeSearch)
	q.TimeRange, _ = search.ParseTimeRange(cfg.TimeRange)

	sess := session.New(client, session.Flags{Expand: cfg.Expand, Color: colorOn, Debug: cfg.Debug})
	if err := sess.Bootstrap(q); err != nil {
		return err
	}
	page, searchErr := sess.Search(ctx)
	if searchErr != nil && (v.noPrompt || v.jsonOut || v.first || v.lucky) {
		return searchErr
	}

	opener := action.NewOpener(cfg.URLHandler)

	switch {
	case v.jsonOut:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	case v.first:
		r, err := sess.Result(1)
		if err != nil {
			return err
		}
		return openResult(opener, r)
	case v.lucky:
		r, err := sess.RandomResult()
		if err != nil {
			return err
		}
		return openResult(opener, r)
	}

	if searchErr != nil {
		out.ShowError(searchErr, opts)
	} else {
		out.Show(page, sess.Query(), opts)
	}
	if v.noPrompt {
		return nil
	}

	c := &console{
		sess:     sess,
		interp:   session.NewInterpreter(sess),
		out:      out,
		opener:   opener,
		in:       cmd.InOrStdin(),
		prompt:   cmd.OutOrStdout(),
		instance: cfg.SearxURL,
		method:   strings.ToUpper(cfg.HTTPMethod),
	}
	return c.loop(ctx)
}

// applyFlags overlays explicitly-set flags onto the file config, then
// resolves the shortcut flags.
func applyFlags(cmd *cobra.Command, v *flagValues, cfg *config.Config) {
	ch := cmd.Flags().Changed
	if ch("searxng-url") {
		cfg.SearxURL = v.searxURL
	}
	if ch("username") {
		cfg.Username = v.username
	}
	if ch("password") {
		cfg.Password = v.password
	}
	if ch("num") {
		cfg.ResultCount = v.num
	}
	if ch("categories") {
		cfg.Categories = v.categories
	}
	if ch("engines") {
		cfg.Engines = v.engines
	}
	if ch("safe-search") {
		cfg.SafeSearch = v.safeSearch
	}
	if ch("language") {
		cfg.Language = v.language
	}
	if ch("time-range") {
		cfg.TimeRange = v.timeRange
	}
	if ch("expand") {
		cfg.Expand = v.expand
	}
	if ch("debug") {
		cfg.Debug = v.debug
	}
	if ch("color") {
		cfg.Color = v.color
	}
	if ch("http-method") {
		cfg.HTTPMethod = v.httpMethod
	}
	if ch("no-verify-ssl") {
		cfg.NoVerifySSL = v.noVerifySSL
	}
	if ch("noua") {
		cfg.NoUserAgent = v.noUserAgent
	}
	if ch("url-handler") {
		cfg.URLHandler = v.urlHandler
	}
	if ch("timeout") {
		cfg.TimeoutSecs = v.timeoutSecs
	}

	if v.unsafe {
		cfg.SafeSearch = "none"
	}
	for cat, set := range map[string]bool{
		"news":         v.news,
		"videos":       v.videos,
		"music":        v.music,
		"files":        v.files,
		"social media": v.social,
	} {
		if set {
			cfg.Categories = append(cfg.Categories, cat)
		}
	}
	if v.first {
		cfg.ResultCount = 1
	}
}

func userAgent(cfg config.Config) string {
	if cfg.NoUserAgent {
		return ""
	}
	return "sxr/" + version
}

// resolveColor maps the three-valued color setting to a boolean, honoring
// NO_COLOR and the terminal check in auto mode.
func resolveColor(mode string) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func openResult(opener *action.Opener, r search.Result) error {
	if r.URL == "" {
		return fmt.Errorf("result has no url")
	}
	return opener.Open(r.URL)
}
