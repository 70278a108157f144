package source

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SourceOpener builds a Source for one URI scheme.
type SourceOpener func(u *url.URL, opts OpenOptions) (Source, error)

// OpenOptions are defaults from flags and settings. URI query parameters
// and alias config take precedence over them.
type OpenOptions struct {
	Profile  string            // AWS profile for cloudwatch://
	Region   string            // AWS region for cloudwatch://
	Headers  map[string]string // extra request headers for http(s)://
	PageSize int               // page size for file://
}

var registry = make(map[string]SourceOpener)

// Register installs the opener for scheme. Backends call it from init.
func Register(scheme string, opener SourceOpener) {
	registry[scheme] = opener
}

// Target is a source argument after alias and path resolution.
type Target struct {
	URI   string      // URI handed to the scheme's opener
	Name  string      // alias name when the argument was @name
	Alias SourceAlias // alias defaults, zero for plain URIs
}

// Resolve turns a command-line source argument into a Target. It accepts
// @alias, http(s):// and cloudwatch:// URIs, file:// URIs, and bare file
// paths (/abs, ./rel, ../rel, ~/home).
func Resolve(arg string) (Target, error) {
	if name, ok := strings.CutPrefix(arg, "@"); ok {
		cfg, err := LoadConfig()
		if err != nil {
			return Target{}, fmt.Errorf("failed to load config: %w", err)
		}
		alias, err := cfg.Lookup(name)
		if err != nil {
			return Target{}, err
		}
		// Aliases name sources, never other aliases, so resolution is one level deep.
		if strings.HasPrefix(alias.URI, "@") {
			return Target{}, fmt.Errorf("alias @%s: uri %q refers to another alias", name, alias.URI)
		}
		t, err := Resolve(alias.URI)
		if err != nil {
			return Target{}, fmt.Errorf("alias @%s: %w", name, err)
		}
		t.Name, t.Alias = name, alias
		return t, nil
	}

	if isPath(arg) {
		return Target{URI: "file://" + expandPath(arg)}, nil
	}
	if err := validateURISyntax(arg); err != nil {
		return Target{}, err
	}
	return Target{URI: arg}, nil
}

// Open parses the target URI and hands it to the registered opener.
// Alias headers override opts.Headers key by key.
func (t Target) Open(opts OpenOptions) (Source, error) {
	u, err := url.Parse(t.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid source URI %q: %w", t.URI, err)
	}

	opener, ok := registry[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unknown source scheme: %s (available: %s)", u.Scheme, availableSchemes())
	}

	if len(t.Alias.Headers) > 0 {
		headers := maps.Clone(opts.Headers)
		if headers == nil {
			headers = make(map[string]string, len(t.Alias.Headers))
		}
		maps.Copy(headers, t.Alias.Headers)
		opts.Headers = headers
	}
	return opener(u, opts)
}

// Open resolves arg and opens it.
func Open(arg string, opts OpenOptions) (Source, error) {
	t, err := Resolve(arg)
	if err != nil {
		return nil, err
	}
	return t.Open(opts)
}

// LookupAlias returns the alias definition for name (without the @ prefix).
func LookupAlias(name string) (SourceAlias, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return SourceAlias{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.Lookup(name)
}

// validateURISyntax catches the usual hand-typed mistakes before url.Parse
// accepts them with a surprising meaning.
func validateURISyntax(uri string) error {
	if strings.HasPrefix(uri, "///") || !strings.Contains(uri, "://") {
		return fmt.Errorf("invalid URI %q: missing scheme (e.g., https://host/api/logs)", uri)
	}

	// scheme:///path@key=value where ?key=value was meant.
	_, rest, _ := strings.Cut(uri, "://")
	if before, after, ok := strings.Cut(rest, "@"); ok && before != "" {
		if strings.Contains(after, "=") && !strings.Contains(before, "?") {
			return fmt.Errorf("invalid URI %q: use '?' for query parameters, not '@'", uri)
		}
	}
	return nil
}

func availableSchemes() string {
	if len(registry) == 0 {
		return "(none registered)"
	}
	return strings.Join(slices.Sorted(maps.Keys(registry)), ", ")
}

func isPath(arg string) bool {
	for _, prefix := range []string{"/", "./", "../", "~"} {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}

// expandPath resolves ~ to the home directory and makes the path absolute.
func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/') {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path
}
