package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/sunxidisp/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUNXIDISP_"

// DefaultPath is the system configuration file.
const DefaultPath = "/etc/sunxidisp.toml"

// Options is the flat tool configuration. The toml tag is the dotted path in
// the file, env the variable name after EnvPrefix and flag the CLI flag when
// it differs from the kebab-cased field name.
type Options struct {
	Config  string
	Verbose bool

	DisplayDispDevice   string `toml:"display.disp_device" env:"DISPLAY_DISP_DEVICE" flag:"disp-device"`
	DisplayFBDevice     string `toml:"display.fb_device" env:"DISPLAY_FB_DEVICE" flag:"fb-device"`
	DisplayHDMIState    string `toml:"display.hdmi_state" env:"DISPLAY_HDMI_STATE"`
	DisplayCPUInfo      string `toml:"display.cpuinfo" env:"DISPLAY_CPUINFO"`
	DisplayScreen       int    `toml:"display.screen" env:"DISPLAY_SCREEN" flag:"screen"`
	DisplayForce        bool   `toml:"display.force" env:"DISPLAY_FORCE" flag:"force"`
	DisplayDefaultDepth int    `toml:"display.default_depth" env:"DISPLAY_DEFAULT_DEPTH"`
	DisplayGeneration   string `toml:"display.generation" env:"DISPLAY_GENERATION" flag:"generation"`

	WatchAutoEnable  bool   `toml:"watch.auto_enable" env:"WATCH_AUTO_ENABLE" flag:"auto-enable"`
	WatchMetricsFile string `toml:"watch.metrics_file" env:"WATCH_METRICS_FILE" flag:"metrics-file"`
	WatchLED         bool   `toml:"watch.led" env:"WATCH_LED" flag:"led"`

	LoggingLevel   string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `toml:"logging.format" env:"LOGGING_FORMAT" flag:"log-format"`
	LoggingDisplay string `toml:"logging.display" env:"LOGGING_DISPLAY"`
	LoggingHotplug string `toml:"logging.hotplug" env:"LOGGING_HOTPLUG"`
}

// Defaults returns the built-in configuration.
func Defaults() Options {
	return Options{
		Config:              DefaultPath,
		DisplayDispDevice:   "/dev/disp",
		DisplayFBDevice:     "/dev/fb0",
		DisplayHDMIState:    "/sys/class/switch/hdmi/state",
		DisplayCPUInfo:      "/proc/cpuinfo",
		DisplayDefaultDepth: 32,
		DisplayGeneration:   "auto",
		WatchAutoEnable:     true,
		LoggingLevel:        "info",
		LoggingFormat:       "text",
		LoggingDisplay:      "info",
		LoggingHotplug:      "info",
	}
}

// Validate rejects values no command can work with.
func (o *Options) Validate() error {
	var errs []error
	if o.DisplayScreen != 0 && o.DisplayScreen != 1 {
		errs = append(errs, fmt.Errorf("display.screen must be 0 or 1, got %d", o.DisplayScreen))
	}
	switch o.DisplayDefaultDepth {
	case 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("display.default_depth must be 16, 24 or 32, got %d", o.DisplayDefaultDepth))
	}
	switch strings.ToLower(o.DisplayGeneration) {
	case "auto", "de1", "de2":
	default:
		errs = append(errs, fmt.Errorf("display.generation must be auto, de1 or de2, got %q", o.DisplayGeneration))
	}
	if o.LoggingFormat != "text" && o.LoggingFormat != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", o.LoggingFormat))
	}
	for name, level := range map[string]string{
		"logging.level":   o.LoggingLevel,
		"logging.display": o.LoggingDisplay,
		"logging.hotplug": o.LoggingHotplug,
	} {
		if !logging.ValidLevel(level) {
			errs = append(errs, fmt.Errorf("%s: unknown level %q", name, level))
		}
	}
	return errors.Join(errs...)
}

// Logging returns the logging configuration carried by o.
func (o *Options) Logging() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"display": o.LoggingDisplay,
			"hotplug": o.LoggingHotplug,
		},
	}
}

// Load reads path on top of the defaults and the environment. It is the
// loader used when the file changes under "watch".
func Load(path string) (Options, error) {
	opts := Defaults()
	opts.Config = path
	if err := LoadConfig(&opts, nil); err != nil {
		return opts, err
	}
	return opts, nil
}

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
// A missing config file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		markChanged := func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		}
		cmd.Flags().VisitAll(markChanged)
		cmd.InheritedFlags().VisitAll(markChanged)
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config: %w", err)
		default:
			var config map[string]any
			if err := toml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse TOML config %s: %w", configPath, err)
			}

			for i := 0; i < v.NumField(); i++ {
				fieldType := t.Field(i)
				if changedFlags[flagName(fieldType)] {
					continue
				}
				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(config, tomlPath); value != nil {
						setFieldValue(v.Field(i), value)
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changedFlags[flagName(fieldType)] {
			continue
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				setFieldValueFromString(v.Field(i), envValue)
			}
		}
	}

	return nil
}

func flagName(field reflect.StructField) string {
	if name := field.Tag.Get("flag"); name != "" {
		return name
	}
	return fieldNameToFlag(field.Name)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
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
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

// setFieldValue sets a field value using reflection.
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
	case reflect.Int:
		// go-toml decodes every integer into a map[string]any as int64.
		if i, ok := value.(int64); ok {
			field.SetInt(i)
		}
	}
}

// setFieldValueFromString sets a field value from string (for env vars).
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
	case reflect.Int:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	}
}
