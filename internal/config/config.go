// Package config loads hbclk options from a TOML file, HIFIBERRY_* environment
// variables and command line flags, and watches the file for changes.
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

	"github.com/gen2brain/hifiberry"
	"github.com/gen2brain/hifiberry/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HIFIBERRY_"

// Bus drivers.
const (
	DriverPeriph = "periph"
	DriverI2CDev = "i2cdev"
)

// Table file formats.
const (
	TablesTOML  = "toml"
	TablesBytes = "bytes"
	TablesIHex  = "ihex"
)

// Options are the hbclk settings. Field names map to flags (PLLIn is --pll-in),
// the toml tag to a dotted path in the file and the env tag to HIFIBERRY_<env>.
type Options struct {
	Config string

	Bus       string `toml:"bus.driver" env:"BUS"`
	BusName   string `toml:"bus.name" env:"BUS_NAME"`
	CodecAddr int    `toml:"bus.codec_addr" env:"CODEC_ADDR"`
	ClockAddr int    `toml:"bus.clock_addr" env:"CLOCK_ADDR"`

	Board     string `toml:"board.kind" env:"BOARD"`
	PLLIn     int    `toml:"board.pll_in" env:"PLL_IN"`
	PLLOut    int    `toml:"board.pll_out" env:"PLL_OUT"`
	Sysclk    uint64 `toml:"board.sysclk_hz" env:"SYSCLK"`
	Master    bool   `toml:"board.master" env:"MASTER"`
	DAIFormat string `toml:"board.fmt" env:"FMT"`

	OverclockPLL uint32 `toml:"overclock.pll" env:"OVERCLOCK_PLL"`
	OverclockDSP uint32 `toml:"overclock.dsp" env:"OVERCLOCK_DSP"`
	OverclockDAC uint32 `toml:"overclock.dac" env:"OVERCLOCK_DAC"`

	DisableStandby   bool   `toml:"flags.disable_standby" env:"DISABLE_STANDBY"`
	DisablePowerdown bool   `toml:"flags.disable_powerdown" env:"DISABLE_POWERDOWN"`
	AutoMute         bool   `toml:"flags.auto_mute" env:"AUTO_MUTE"`
	MuteGPIO         string `toml:"flags.mute_gpio" env:"MUTE_GPIO"`

	Tables       string `toml:"tables.path" env:"TABLES"`
	TablesFormat string `toml:"tables.format" env:"TABLES_FORMAT"`

	MetricsListen string `toml:"metrics.listen" env:"METRICS_LISTEN"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`

	Force bool
}

// Defaults returns the options of a DAC+ on the first I2C bus.
func Defaults() *Options {
	return &Options{
		Bus:           DriverPeriph,
		CodecAddr:     hifiberry.PCM512x_I2C_ADDR,
		ClockAddr:     hifiberry.DAC2HD_CLK_I2C_ADDR,
		Board:         string(hifiberry.BoardDACPlus),
		DAIFormat:     "i2s,nb_nf",
		TablesFormat:  TablesTOML,
		MetricsListen: ":9110",
		LoggingLevel:  "info",
		LoggingFormat: "text",
	}
}

// Validate checks value ranges and enumerations.
func (o *Options) Validate() error {
	var errs []error

	switch o.Bus {
	case DriverPeriph, DriverI2CDev:
	default:
		errs = append(errs, fmt.Errorf("bus driver %q", o.Bus))
	}

	if _, err := hifiberry.ParseBoardKind(o.Board); err != nil {
		errs = append(errs, err)
	}

	if _, err := hifiberry.ParseDAIFormat(o.DAIFormat); err != nil {
		errs = append(errs, err)
	}

	for _, a := range []int{o.CodecAddr, o.ClockAddr} {
		if a < 0x03 || a > 0x77 {
			errs = append(errs, fmt.Errorf("i2c address %#x", a))
		}
	}

	if o.PLLIn < 0 || o.PLLIn > 6 || o.PLLOut < 0 || o.PLLOut > 6 {
		errs = append(errs, fmt.Errorf("pll gpio %d/%d", o.PLLIn, o.PLLOut))
	}

	oc := hifiberry.Overclock{PLL: o.OverclockPLL, DSP: o.OverclockDSP, DAC: o.OverclockDAC}
	if err := oc.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch o.TablesFormat {
	case TablesTOML, TablesBytes, TablesIHex:
	default:
		errs = append(errs, fmt.Errorf("tables format %q", o.TablesFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w: %w", hifiberry.ErrInvalidArgument, err)
	}

	return nil
}

// Overclock returns the configured overclock percentages.
func (o *Options) Overclock() hifiberry.Overclock {
	return hifiberry.Overclock{PLL: o.OverclockPLL, DSP: o.OverclockDSP, DAC: o.OverclockDAC}
}

// Logging returns the logging configuration.
func (o *Options) Logging() logging.Config {
	return LoadLoggingConfig(o.Config, o.LoggingLevel, o.LoggingFormat)
}

// Load reads path on top of the defaults, applies environment overrides and validates the result.
func Load(path string) (*Options, error) {
	opts := Defaults()
	opts.Config = path

	if err := LoadConfig(opts, nil); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// LoadConfig loads configuration with precedence CLI flags > env vars > config file.
// Flags explicitly set on cmd are not overwritten. A missing config file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err == nil {
			var config map[string]any
			if err := toml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}

			for i := 0; i < v.NumField(); i++ {
				fieldType := t.Field(i)
				if changedFlags[FieldNameToFlag(fieldType.Name)] {
					continue
				}

				if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" {
					if value := getNestedValue(config, tomlPath); value != nil {
						if err := setFieldValue(v.Field(i), value); err != nil {
							return fmt.Errorf("%s: %w", tomlPath, err)
						}
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		fieldType := t.Field(i)
		if changedFlags[FieldNameToFlag(fieldType.Name)] {
			continue
		}

		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
				if err := setFieldValueFromString(v.Field(i), envValue); err != nil {
					return fmt.Errorf("%s%s: %w", EnvPrefix, envKey, err)
				}
			}
		}
	}

	return nil
}

// FieldNameToFlag converts a struct field name to a flag name.
// Acronyms stay together: "PLLIn" is "pll-in", "MuteGPIO" is "mute-gpio".
func FieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)

	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}

	return string(result)
}

// getNestedValue retrieves a value from a nested map using dot notation.
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

func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		i, ok := value.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", value)
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		i, ok := value.(int64)
		if !ok || i < 0 || field.OverflowUint(uint64(i)) {
			return fmt.Errorf("want unsigned integer, got %v", value)
		}
		field.SetUint(uint64(i))
	}

	return nil
}

func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		// Base 0 accepts 0x4d for addresses.
		i, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		i, err := strconv.ParseUint(value, 0, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(i)
	}

	return nil
}

// LoadLoggingConfig reads the [logging] table of configPath. Keys other than level,
// format and journal are per-module levels. level and format fall back to the given values.
func LoadLoggingConfig(configPath, level, format string) logging.Config {
	cfg := logging.Config{
		Level:   level,
		Format:  format,
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var rawConfig struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return cfg
	}

	for key, value := range rawConfig.Logging {
		switch key {
		case "level", "format":
		case "journal":
			cfg.Journal, _ = value.(bool)
		default:
			if s, ok := value.(string); ok {
				cfg.Modules[key] = s
			}
		}
	}

	return cfg
}
