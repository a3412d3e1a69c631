// Package config reads the driver settings from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Prefix is prepended to every variable name, e.g. SERENITY_BASE_URL.
const Prefix = "SERENITY"

// DefaultBaseURL must match the default tag on Config.BaseURL.
const DefaultBaseURL = "http://127.0.0.1:8000"

type Config struct {
	// BaseURL is used as given; "/mine" is appended to it verbatim.
	BaseURL string `split_words:"true" default:"http://127.0.0.1:8000"`

	LogLevel string `split_words:"true" default:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`

	// MetricsAddr enables the /metrics listener when set.
	MetricsAddr string `split_words:"true" validate:"omitempty,hostname_port"`
}

// Load reads the configuration once from the process environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return Config{}, fmt.Errorf("processing env: %w", err)
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return Prefix + "_" + envKey(f.Name)
	})

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			e := validationErrors[0]
			return fmt.Errorf("invalid %s value %q: failed %q", e.Field(), e.Value(), e.Tag())
		}
		return fmt.Errorf("validating config: %w", err)
	}

	return nil
}

// Level returns the zerolog level named by LogLevel.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

var (
	gatherRegexp  = regexp.MustCompile("([^A-Z]+|[A-Z]+[^A-Z]+|[A-Z]+)")
	acronymRegexp = regexp.MustCompile("([A-Z]+)([A-Z][^A-Z]+)")
)

// envKey splits a field name the way envconfig does for split_words,
// e.g. MetricsAddr -> METRICS_ADDR, BaseURL -> BASE_URL.
func envKey(field string) string {
	var name []string
	for _, words := range gatherRegexp.FindAllStringSubmatch(field, -1) {
		if m := acronymRegexp.FindStringSubmatch(words[0]); len(m) == 3 {
			name = append(name, m[1], m[2])
		} else {
			name = append(name, words[0])
		}
	}
	return strings.ToUpper(strings.Join(name, "_"))
}
