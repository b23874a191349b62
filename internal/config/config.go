// Package config loads and writes the sxr configuration file. The file
// lives under the user config directory and supplies defaults; flags that
// were set explicitly on the command line always win.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/sxr/internal/search"
)

const fileName = "config.yaml"

// Config is the file schema. Every key can also be set on the command
// line; zero values mean "not set" except where Default fills them in.
type Config struct {
	SearxURL    string   `yaml:"searxng_url"`
	Username    string   `yaml:"username,omitempty"`
	Password    string   `yaml:"password,omitempty"`
	ResultCount int      `yaml:"result_count"`
	Categories  []string `yaml:"categories,omitempty"`
	Engines     []string `yaml:"engines,omitempty"`
	SafeSearch  string   `yaml:"safe_search"`
	Language    string   `yaml:"language,omitempty"`
	TimeRange   string   `yaml:"time_range,omitempty"`
	Expand      bool     `yaml:"expand"`
	Color       string   `yaml:"color"`
	HTTPMethod  string   `yaml:"http_method"`
	NoVerifySSL bool     `yaml:"no_verify_ssl"`
	NoUserAgent bool     `yaml:"no_user_agent"`
	URLHandler  string   `yaml:"url_handler,omitempty"`
	TimeoutSecs int      `yaml:"timeout_seconds"`
	Debug       bool     `yaml:"debug"`
}

// Default returns the builtin configuration.
func Default() Config {
	return Config{
		ResultCount: 10,
		Categories:  []string{"general"},
		SafeSearch:  "strict",
		Color:       "auto",
		HTTPMethod:  "GET",
		TimeoutSecs: 30,
	}
}

// Path returns the configuration file location.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "sxr", fileName), nil
}

// Load reads path layered over the defaults. A missing file is not an
// error; the defaults come back unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

const template = `searxng_url: %s
# result_count: 10
# categories: [general]
# engines: [google, duckduckgo, brave]
# safe_search: strict
# expand: false
# language: en
# http_method: GET
# no_verify_ssl: false
# no_user_agent: false
# url_handler: %s
# timeout_seconds: 30
`

// Ensure creates the configuration file on first run, prompting for the
// instance url on in/out. It reports whether a file was written. The file
// may hold credentials, so it is not group readable.
func Ensure(path, defaultHandler string, in io.Reader, out io.Writer) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	fmt.Fprint(out, "Enter your SearXNG instance URL: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read instance url: %w", err)
	}
	instance := strings.TrimSpace(line)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	body := fmt.Sprintf(template, instance, defaultHandler)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "created %s\n", path)
	return true, nil
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Validate checks everything that must hold before the first request.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SearxURL) == "" {
		return errors.New("config: searxng_url is not set")
	}
	u, err := url.Parse(c.SearxURL)
	if err != nil {
		return fmt.Errorf("config: searxng_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: searxng_url must be http or https, got %q", c.SearxURL)
	}
	switch strings.ToUpper(c.HTTPMethod) {
	case "GET", "POST":
	default:
		return fmt.Errorf("config: http_method must be GET or POST, got %q", c.HTTPMethod)
	}
	if _, err := search.ParseSafeSearch(c.SafeSearch); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := search.ParseTimeRange(c.TimeRange); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("config: color must be auto, on or off, got %q", c.Color)
	}
	if c.ResultCount < 0 {
		return errors.New("config: result_count must not be negative")
	}
	if c.TimeoutSecs <= 0 {
		return errors.New("config: timeout_seconds must be positive")
	}
	return nil
}
