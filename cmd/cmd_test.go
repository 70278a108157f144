package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmurray2011/skein/internal/local"
	"github.com/jmurray2011/skein/internal/output"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/internal/ui"
	"github.com/jmurray2011/skein/pkg/lru"
)

var testNow = time.Date(2025, 12, 3, 19, 0, 0, 0, time.UTC)

func testApp() *App {
	r := ui.NewRendererWithOptions(ui.WithOutput(io.Discard), ui.WithError(io.Discard), ui.WithNoColor(true))
	return NewAppWithConfig(Config{OutputFormat: "json", PageSize: 2}, r, nil)
}

func logLine(n int) string {
	return fmt.Sprintf(`{"id":"00000000-0000-0000-0000-%012d","content":"e%d","time":%q,"level":"INFO","deployment_id":"dep","service_id":"svc","source":"stdout"}`,
		n, n, testNow.Add(time.Duration(n)*time.Second).Format(time.RFC3339Nano))
}

func writeLog(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString(logLine(i))
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "app.jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewFlagsFingerprint(t *testing.T) {
	alias := source.SourceAlias{Service: "api", Deployment: "web-1"}

	tests := []struct {
		name         string
		flags        viewFlags
		alias        source.SourceAlias
		want         source.Fingerprint
		wantWarnings int
		wantErr      bool
	}{
		{
			name:  "alias defaults",
			alias: alias,
			want:  source.Fingerprint{Service: "api", Deployment: "web-1"},
		},
		{
			name:  "flags override alias",
			flags: viewFlags{service: "worker", filter: "timeout"},
			alias: alias,
			want:  source.Fingerprint{Service: "worker", Deployment: "web-1", Search: "timeout"},
		},
		{
			name:  "relative since",
			flags: viewFlags{since: "2h"},
			want:  source.Fingerprint{Start: testNow.Add(-2 * time.Hour)},
		},
		{
			name:         "closed past range warns",
			flags:        viewFlags{since: "2h", until: "1h"},
			want:         source.Fingerprint{Start: testNow.Add(-2 * time.Hour), End: testNow.Add(-time.Hour)},
			wantWarnings: 1,
		},
		{
			name:    "invalid since",
			flags:   viewFlags{since: "yesterday"},
			wantErr: true,
		},
		{
			name:    "until before since",
			flags:   viewFlags{since: "1h", until: "2h"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := tt.flags.fingerprint(tt.alias, testNow)
			if tt.wantErr {
				if err == nil {
					t.Error("fingerprint() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("fingerprint() error = %v", err)
			}
			if got.Key() != tt.want.Key() {
				t.Errorf("fingerprint() = %v, want %v", got, tt.want)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings %v, want %d", len(warnings), warnings, tt.wantWarnings)
			}
		})
	}
}

func TestPollInterval(t *testing.T) {
	app := testApp()
	if got := (&viewFlags{}).pollInterval(app); got != stream.DefaultInterval {
		t.Errorf("pollInterval() = %v, want %v", got, stream.DefaultInterval)
	}
	if got := (&viewFlags{interval: time.Second}).pollInterval(app); got != time.Second {
		t.Errorf("pollInterval() = %v, want 1s", got)
	}
}

func TestLoad_WalksHistory(t *testing.T) {
	path := writeLog(t, t.TempDir(), 5)
	src, err := local.NewSource(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	v := stream.NewViewer(src)
	defer v.Close()

	if err := load(context.Background(), v, 10); err != nil {
		t.Fatalf("load() error = %v", err)
	}

	var buf bytes.Buffer
	if err := output.NewFormatter(output.FormatJSON, &buf).FormatEntries(v.DisplaySequence()); err != nil {
		t.Fatal(err)
	}

	var got []struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var contents []string
	for _, e := range got {
		contents = append(contents, e.Content)
	}
	if strings.Join(contents, ",") != "e1,e2,e3,e4,e5" {
		t.Errorf("entries = %v, want e1..e5 in order", contents)
	}
	if v.HasMoreBackward() {
		t.Error("HasMoreBackward() = true at the start of history")
	}
}

func TestLoad_NewestOnly(t *testing.T) {
	path := writeLog(t, t.TempDir(), 5)
	src, err := local.NewSource(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	v := stream.NewViewer(src)
	defer v.Close()

	if err := load(context.Background(), v, 0); err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if n := len(v.DisplaySequence()); n != 2 {
		t.Errorf("got %d entries, want the newest page of 2", n)
	}
	if !v.HasMoreBackward() {
		t.Error("HasMoreBackward() = false with older entries in the file")
	}
}

func TestPrintNew(t *testing.T) {
	entry := func(n int) source.LogEntry {
		return source.LogEntry{
			ID:      uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
			Content: fmt.Sprintf("e%d", n),
			Time:    testNow.Add(time.Duration(n) * time.Second),
			Level:   source.LevelInfo,
		}
	}

	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)
	seen := lru.New[uuid.UUID](FollowSeenCapacity)

	first := []source.LogEntry{entry(1), entry(2), entry(3)}
	if err := printNew(f, first, seen); err != nil {
		t.Fatal(err)
	}
	// A refreshed newest page can repeat an entry of an older page.
	second := []source.LogEntry{entry(1), entry(2), entry(3), entry(3), entry(4), entry(5)}
	if err := printNew(f, second, seen); err != nil {
		t.Fatal(err)
	}
	if err := printNew(f, second, seen); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("printed %d entries, want 5:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[4], `"content":"e5"`) {
		t.Errorf("last line = %s", lines[4])
	}
}

func TestOpenSource(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeLog(t, home, 3)

	cfg := fmt.Sprintf("sources:\n  app:\n    uri: file://%s\n    service: svc\ndefault_source: app\n", path)
	if err := os.MkdirAll(filepath.Join(home, ".skein"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".skein", "config.yaml"), []byte(cfg), 0600); err != nil {
		t.Fatal(err)
	}

	app := testApp()

	t.Run("default source", func(t *testing.T) {
		src, alias, err := app.OpenSource(nil)
		if err != nil {
			t.Fatalf("OpenSource() error = %v", err)
		}
		defer src.Close()
		if src.Type() != "local" || alias.Service != "svc" {
			t.Errorf("got %s source, alias %+v", src.Type(), alias)
		}
	})

	t.Run("plain path", func(t *testing.T) {
		src, alias, err := app.OpenSource([]string{path})
		if err != nil {
			t.Fatalf("OpenSource() error = %v", err)
		}
		defer src.Close()
		if alias.URI != "" {
			t.Errorf("plain path should not carry an alias, got %+v", alias)
		}
	})

	t.Run("unknown alias suggests", func(t *testing.T) {
		_, _, err := app.OpenSource([]string{"@ap"})
		if err == nil || !strings.Contains(err.Error(), "Did you mean") {
			t.Errorf("error = %v, want suggestion of app", err)
		}
	})
}

func TestOpenSource_NoDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, _, err := testApp().OpenSource(nil)
	if err == nil || !strings.Contains(err.Error(), "no source given") {
		t.Errorf("error = %v, want no-source error", err)
	}
}

func TestGenerateDefaultConfig(t *testing.T) {
	var settings map[string]any
	if err := yaml.Unmarshal([]byte(generateDefaultConfig()), &settings); err != nil {
		t.Fatalf("default settings are not valid YAML: %v", err)
	}
	for _, key := range []string{"output", "poll_interval", "page_size", "verbose", "log_level"} {
		if _, ok := settings[key]; !ok {
			t.Errorf("default settings missing %q", key)
		}
	}
	if settings["poll_interval"] != "5s" {
		t.Errorf("poll_interval = %v, want 5s", settings["poll_interval"])
	}
}

func TestGenerateAliasConfig(t *testing.T) {
	var cfg source.Config
	if err := yaml.Unmarshal([]byte(generateAliasConfig()), &cfg); err != nil {
		t.Fatalf("alias example is not valid YAML: %v", err)
	}
	if cfg.DefaultSource != "prod" {
		t.Errorf("default_source = %q, want prod", cfg.DefaultSource)
	}
	if cfg.Sources["prod"].Service != "api" || cfg.Sources["local"].URI == "" {
		t.Errorf("sources = %+v", cfg.Sources)
	}
}

func TestCreateFileIfNotExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	var out bytes.Buffer

	if err := createFileIfNotExists(&out, path, "a: 1\n", false); err != nil {
		t.Fatal(err)
	}
	if err := createFileIfNotExists(&out, path, "a: 2\n", false); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a: 1\n" {
		t.Errorf("existing file was overwritten without force: %q", data)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("output = %q", out.String())
	}

	if err := createFileIfNotExists(&out, path, "a: 2\n", true); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "a: 2\n" {
		t.Errorf("force did not overwrite: %q", data)
	}
}

func TestParseHeaders(t *testing.T) {
	got, err := parseHeaders([]string{"Cookie=session=abc", " X-Env =prod"})
	if err != nil {
		t.Fatalf("parseHeaders() error = %v", err)
	}
	if got["Cookie"] != "session=abc" || got["X-Env"] != "prod" {
		t.Errorf("parseHeaders() = %v", got)
	}

	for _, bad := range []string{"Cookie", "=value"} {
		if _, err := parseHeaders([]string{bad}); err == nil {
			t.Errorf("parseHeaders(%q) should fail", bad)
		}
	}
	if got, _ := parseHeaders(nil); got != nil {
		t.Errorf("parseHeaders(nil) = %v, want nil", got)
	}
}

func TestSourcesAddRemove(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeLog(t, home, 1)

	cmd := &cobra.Command{}
	cmd.SetContext(SetApp(context.Background(), testApp()))

	addService, addDefault = "svc", true
	t.Cleanup(func() { addService, addDefault = "", false })

	if err := runSourcesAdd(cmd, []string{"app", path}); err != nil {
		t.Fatalf("runSourcesAdd() error = %v", err)
	}
	cfg, err := source.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Sources["app"]; got.URI != "file://"+path || got.Service != "svc" || cfg.DefaultSource != "app" {
		t.Fatalf("saved config = %+v", cfg)
	}

	if err := runSourcesAdd(cmd, []string{"loop", "@app"}); err == nil {
		t.Error("an alias pointing at an alias should be rejected")
	}

	if err := runSourcesRemove(cmd, []string{"@app"}); err != nil {
		t.Fatalf("runSourcesRemove() error = %v", err)
	}
	if cfg, _ = source.LoadConfig(); len(cfg.Sources) != 0 || cfg.DefaultSource != "" {
		t.Errorf("config after remove = %+v", cfg)
	}
}

func TestRunCompletion(t *testing.T) {
	for _, shell := range completionCmd.ValidArgs {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetOut(&out)
			if err := runCompletion(cmd, []string{shell}); err != nil {
				t.Fatalf("runCompletion(%s) error = %v", shell, err)
			}
			if !strings.Contains(out.String(), "skein") {
				t.Errorf("%s script does not mention skein", shell)
			}
		})
	}
	if err := runCompletion(&cobra.Command{}, []string{"tcsh"}); err == nil {
		t.Error("runCompletion(tcsh) should fail")
	}
}
