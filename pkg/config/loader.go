package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check their own
// invariants after parsing.
type Validator interface {
	Validate() error
}

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port         int    `env:"HTTP_PORT" envDefault:"3000"`
//	    ProductStore string `env:"PRODUCT_STORE" envDefault:"postgres"`
//	}
//
// If cfg implements Validator, Validate runs after parsing.
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadFrom is Load reading from environ instead of the process environment.
func LoadFrom(cfg any, environ map[string]string) error {
	return load(cfg, env.Options{Environment: environ})
}

func load(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
