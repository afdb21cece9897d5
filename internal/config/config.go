package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to the env tag of every option.
const EnvPrefix = "POWERLED_"

// option is one overridable field of an options struct.
type option struct {
	value    reflect.Value
	tomlPath string
	envKey   string
}

// LoadConfig overlays the settings file and environment onto opts, a
// pointer to a flat options struct. Precedence is CLI flags, then
// POWERLED_* environment variables, then the TOML file named by the
// "Settings" field. Flags changed on cmd are never overwritten; cmd may
// be nil. A missing settings file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()

	settingsPath := ""
	if f := v.FieldByName("Settings"); f.IsValid() && f.Kind() == reflect.String {
		settingsPath = f.String()
	}

	options := overridable(v, changedFlags(cmd))

	if settingsPath != "" {
		settings, err := readSettings(settingsPath)
		if err != nil {
			return err
		}
		for _, o := range options {
			if o.tomlPath == "" {
				continue
			}
			if value := getNestedValue(settings, o.tomlPath); value != nil {
				setFieldValue(o.value, value)
			}
		}
	}

	for _, o := range options {
		if o.envKey == "" {
			continue
		}
		if envValue := os.Getenv(EnvPrefix + o.envKey); envValue != "" {
			setFieldValueFromString(o.value, envValue)
		}
	}
	return nil
}

// changedFlags returns the names of flags set explicitly on the command line.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

// overridable lists the fields of v that carry a toml or env tag and were
// not set on the command line.
func overridable(v reflect.Value, changed map[string]bool) []option {
	t := v.Type()
	var options []option
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if changed[fieldNameToFlag(field.Name)] {
			continue
		}
		o := option{
			value:    v.Field(i),
			tomlPath: field.Tag.Get("toml"),
			envKey:   field.Tag.Get("env"),
		}
		if o.tomlPath != "" || o.envKey != "" {
			options = append(options, o)
		}
	}
	return options
}

// readSettings parses the settings file into a generic table.
func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings map[string]any
	if err := toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse TOML settings: %w", err)
	}
	return settings, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "LEDBackend" -> "led-backend".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

// setFieldValue assigns a decoded TOML value to field, ignoring values of
// the wrong type.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		items, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return
		}
		strs := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				strs = append(strs, s)
			}
		}
		field.Set(reflect.ValueOf(strs))
	}
}

// setFieldValueFromString parses an environment value into field. Values
// that do not parse leave the field unchanged. String slices are comma
// separated.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, field.Type().Bits()); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		var strs []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				strs = append(strs, part)
			}
		}
		field.Set(reflect.ValueOf(strs))
	}
}
