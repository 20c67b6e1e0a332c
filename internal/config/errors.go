package config

import "errors"

var (
	// ErrInvalidConfig wraps every Validate failure; the message lists the
	// offending keys.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable .env, YAML file or environment.
	ErrLoadConfig = errors.New("load config failed")
)
