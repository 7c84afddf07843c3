package collector

import "errors"

var (
	// ErrUnsupportedConfig marks a job configuration the collector
	// refuses to attempt (e.g. raw SSH transport without an API
	// gateway). Fails fast, before any network I/O.
	ErrUnsupportedConfig = errors.New("collector: unsupported configuration")

	// ErrMissingCredentials marks a job with no stored secret and no
	// password override.
	ErrMissingCredentials = errors.New("collector: no credentials stored")
)
