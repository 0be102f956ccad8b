package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

// Env holds settings read from the environment. Command-line flags take precedence.
type Env struct {
	ConfigPath string `env:"DIFFDRIVE_CONFIG"`
	Debug      bool   `env:"DIFFDRIVE_DEBUG" envDefault:"false"`
	Simulate   bool   `env:"DIFFDRIVE_SIMULATE" envDefault:"false"`
}

// ReadEnv reads Env from the process environment.
func ReadEnv() (Env, error) {
	return readEnv(env.Options{})
}

// ReadEnvFrom reads Env from the given variables instead of the process environment.
func ReadEnvFrom(environ map[string]string) (Env, error) {
	return readEnv(env.Options{Environment: environ})
}

func readEnv(opts env.Options) (Env, error) {
	var e Env
	if err := env.Parse(&e, opts); err != nil {
		return Env{}, errors.Wrap(err, "invalid environment")
	}
	return e, nil
}
