package config

import (
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GOPHAUTH_"

// parseEnv overlays GOPHAUTH_* variables onto config. Unset variables leave
// the current value alone. environ replaces the process environment when
// non-nil. Malformed values panic.
func parseEnv(config *Config, environ map[string]string) {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		panic(err)
	}
}
