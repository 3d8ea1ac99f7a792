// Package config loads camalbum settings from a TOML file and the
// environment, and watches the file for live changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/camalbum/internal/logging"
)

// EnvPrefix is prepended to every `env` tag when reading the environment.
const EnvPrefix = "CAMALBUM_"

var durationType = reflect.TypeFor[time.Duration]()

// setting is one tagged field of an options struct.
type setting struct {
	field   reflect.Value
	flag    string
	tomlKey string
	envKey  string
}

func settingsOf(v reflect.Value) []setting {
	t := v.Type()
	out := make([]setting, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		out = append(out, setting{
			field:   v.Field(i),
			flag:    fieldNameToFlag(f.Name),
			tomlKey: f.Tag.Get("toml"),
			envKey:  f.Tag.Get("env"),
		})
	}
	return out
}

// LoadConfig fills the tagged fields of opts, a pointer to a flat options
// struct. Precedence is command line, then CAMALBUM_ environment variables,
// then the TOML file named by the Config field. Flags changed on cmd are
// left alone. A missing file is not an error.
//
// Values of the wrong type are reported together, naming their key; the
// remaining settings are still applied.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var doc map[string]any
	if path := v.FieldByName("Config"); path.IsValid() && path.String() != "" {
		data, err := os.ReadFile(path.String())
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}
		}
	}

	var errs []error
	for _, s := range settingsOf(v) {
		if changed[s.flag] || !s.field.CanSet() {
			continue
		}
		if s.tomlKey != "" {
			if raw := lookup(doc, s.tomlKey); raw != nil {
				if err := assign(s.field, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", s.tomlKey, err))
				}
			}
		}
		if s.envKey != "" {
			if raw := os.Getenv(EnvPrefix + s.envKey); raw != "" {
				if err := assignString(s.field, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, s.envKey, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// fieldNameToFlag converts a field name to the flag humacli derives from
// it: "CaptureJPEGQuality" becomes "capture-jpeg-quality".
func fieldNameToFlag(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('-')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// lookup resolves a dotted key such as "capture.width" in a TOML document.
func lookup(doc map[string]any, key string) any {
	table := doc
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil
		}
		table = next
	}
	return table[parts[len(parts)-1]]
}

// assign stores a decoded TOML value. Durations accept a Go duration
// string or an integer number of seconds.
func assign(field reflect.Value, raw any) error {
	if field.Type() == durationType {
		switch d := raw.(type) {
		case string:
			parsed, err := ParseDuration(d)
			if err != nil {
				return err
			}
			field.SetInt(int64(parsed))
		case int64:
			field.SetInt(d * int64(time.Second))
		default:
			return typeError("duration", raw)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return typeError("string", raw)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return typeError("boolean", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64, reflect.Int32:
		i, ok := raw.(int64)
		if !ok {
			return typeError("integer", raw)
		}
		field.SetInt(i)
	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return typeError("list of strings", raw)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return typeError("list of strings", raw)
			}
			out = append(out, s)
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// assignString stores an environment value. Lists are comma separated.
func assignString(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64, reflect.Int32:
		i, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list element %s", field.Type().Elem())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// ParseDuration parses a Go duration string. A bare integer is a number of
// seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func typeError(want string, got any) error {
	return fmt.Errorf("want %s, got %T", want, got)
}

// LoadLogging reads the [logging] table of a TOML config file. Non-string
// entries are skipped. An empty path yields the defaults.
func LoadLogging(configPath string) (logging.Config, error) {
	cfg := logging.Config{Level: "info", Format: "text", Modules: make(map[string]string)}
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range raw.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch key {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		default:
			cfg.Modules[key] = s
		}
	}
	return cfg, nil
}
