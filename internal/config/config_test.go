package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Source  string        `toml:"capture.source" env:"CAPTURE_SOURCE"`
	Audio   bool          `toml:"capture.audio" env:"CAPTURE_AUDIO"`
	Width   int           `toml:"capture.width" env:"CAPTURE_WIDTH"`
	Origins []string      `toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`
	Timeout time.Duration `toml:"album.timeout" env:"ALBUM_TIMEOUT"`
	Album   string        `toml:"album.target_album" env:"ALBUM_TARGET_ALBUM"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camalbum.toml")
	writeConfig(t, path, content)
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := writeTOML(t, `
[capture]
source = "testsrc"
audio = true
width = 1920

[server]
cors_origins = ["http://a.local", "http://b.local"]

[album]
timeout = "45s"
target_album = "from-file"
`)

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		want  testOptions
	}{
		{
			name: "file only",
			want: testOptions{
				Source: "testsrc", Audio: true, Width: 1920,
				Origins: []string{"http://a.local", "http://b.local"},
				Timeout: 45 * time.Second, Album: "from-file",
			},
		},
		{
			name: "env over file",
			env: map[string]string{
				"CAMALBUM_CAPTURE_AUDIO":       "false",
				"CAMALBUM_SERVER_CORS_ORIGINS": " http://c.local , http://d.local ",
				"CAMALBUM_ALBUM_TIMEOUT":       "250ms",
			},
			want: testOptions{
				Source: "testsrc", Audio: false, Width: 1920,
				Origins: []string{"http://c.local", "http://d.local"},
				Timeout: 250 * time.Millisecond, Album: "from-file",
			},
		},
		{
			name:  "flag over env and file",
			env:   map[string]string{"CAMALBUM_CAPTURE_WIDTH": "640"},
			flags: []string{"--width=320"},
			want: testOptions{
				Source: "testsrc", Audio: true, Width: 320,
				Origins: []string{"http://a.local", "http://b.local"},
				Timeout: 45 * time.Second, Album: "from-file",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: path}

			var cmd *cobra.Command
			if tt.flags != nil {
				cmd = &cobra.Command{Use: "test"}
				cmd.Flags().IntVar(&opts.Width, "width", 0, "")
				if err := cmd.Flags().Parse(tt.flags); err != nil {
					t.Fatal(err)
				}
			}

			if err := LoadConfig(opts, cmd); err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.want.Config = path
			if !reflect.DeepEqual(*opts, tt.want) {
				t.Errorf("got  %+v\nwant %+v", *opts, tt.want)
			}
		})
	}
}

func TestLoadConfigDuration(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  string
		want time.Duration
	}{
		{"toml integer seconds", "[album]\ntimeout = 10\n", "", 10 * time.Second},
		{"toml duration string", "[album]\ntimeout = \"1m30s\"\n", "", 90 * time.Second},
		{"toml numeric string", "[album]\ntimeout = \"5\"\n", "", 5 * time.Second},
		{"env integer seconds", "", "10", 10 * time.Second},
		{"env duration string", "", "250ms", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPrefix+"ALBUM_TIMEOUT", tt.env)
			opts := &testOptions{Config: writeTOML(t, tt.toml), Timeout: time.Minute}
			if err := LoadConfig(opts, nil); err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if opts.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", opts.Timeout, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30", 30 * time.Second, false},
		{" 2 ", 2 * time.Second, false},
		{"45s", 45 * time.Second, false},
		{"1h", time.Hour, false},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "missing.toml"), Source: "camera"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.Source != "camera" {
		t.Errorf("default overwritten: %q", opts.Source)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeTOML(t, "[capture\nsource = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfigTypeErrors(t *testing.T) {
	path := writeTOML(t, `
[capture]
source = "testsrc"
width = "wide"
audio = "yes"

[album]
timeout = "soon"
`)
	t.Setenv("CAMALBUM_ALBUM_TARGET_ALBUM", "trips")
	t.Setenv("CAMALBUM_CAPTURE_WIDTH", "not-a-number")

	opts := &testOptions{Config: path, Width: 1280}
	err := LoadConfig(opts, nil)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, key := range []string{"capture.width", "capture.audio", "album.timeout", "CAMALBUM_CAPTURE_WIDTH"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not name %s: %v", key, err)
		}
	}
	if opts.Source != "testsrc" || opts.Album != "trips" {
		t.Errorf("valid settings not applied: %+v", opts)
	}
	if opts.Width != 1280 {
		t.Errorf("Width = %d, want default kept", opts.Width)
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"capture": map[string]any{
			"source": "camera",
			"nested": map[string]any{"deep": int64(1)},
		},
		"port": ":8090",
	}
	tests := map[string]any{
		"port":                ":8090",
		"capture.source":      "camera",
		"capture.nested.deep": int64(1),
		"capture.missing":     nil,
		"port.sub":            nil,
		"missing.key":         nil,
	}
	for key, want := range tests {
		if got := lookup(doc, key); got != want {
			t.Errorf("lookup(%q) = %v, want %v", key, got, want)
		}
	}
	if got := lookup(nil, "capture.source"); got != nil {
		t.Errorf("lookup on nil doc = %v", got)
	}
}

func TestLoadLogging(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantErr    bool
		wantLevel  string
		wantFormat string
		wantModule map[string]string
	}{
		{
			name:       "full",
			content:    "[logging]\nlevel = \"debug\"\nformat = \"json\"\ncapture = \"warn\"\n",
			wantLevel:  "debug",
			wantFormat: "json",
			wantModule: map[string]string{"capture": "warn"},
		},
		{
			name:       "no logging table",
			content:    "[server]\nport = \":8090\"\n",
			wantLevel:  "info",
			wantFormat: "text",
			wantModule: map[string]string{},
		},
		{
			name:       "non string values ignored",
			content:    "[logging]\nlevel = \"warn\"\nretries = 3\n",
			wantLevel:  "warn",
			wantFormat: "text",
			wantModule: map[string]string{},
		},
		{
			name:    "invalid",
			content: "[logging\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadLogging(writeTOML(t, tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadLogging() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Level != tt.wantLevel || cfg.Format != tt.wantFormat {
				t.Errorf("got level %q format %q", cfg.Level, cfg.Format)
			}
			if !reflect.DeepEqual(cfg.Modules, tt.wantModule) {
				t.Errorf("Modules = %v, want %v", cfg.Modules, tt.wantModule)
			}
		})
	}

	if _, err := LoadLogging(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if cfg, err := LoadLogging(""); err != nil || cfg.Level != "info" {
		t.Errorf("LoadLogging(\"\") = %+v, %v", cfg, err)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":               "port",
		"LoggingLevel":       "logging-level",
		"CaptureJPEGQuality": "capture-jpeg-quality",
		"ObsSSEEnabled":      "obs-sse-enabled",
		"AlbumURL":           "album-url",
		"CORSOrigins":        "cors-origins",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssignUnsupportedKind(t *testing.T) {
	var s struct{ Ratio float64 }
	if err := assign(reflect.ValueOf(&s).Elem().Field(0), 1.5); err == nil {
		t.Error("expected error for float field")
	}
}
