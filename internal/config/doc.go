// Package config loads, validates, and normalizes shuttle configuration.
//
// Configuration is TOML with defaults for every field, so a missing file is
// not an error. Load resolves the file location (explicit path, then
// ~/.config/shuttle/config.toml, then ./shuttle.toml), decodes over the
// defaults, expands ~ in every path field, and validates timing invariants
// such as the heartbeat staleness threshold being strictly greater than the
// check interval.
package config
