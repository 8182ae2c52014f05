// Package config loads and merges quorum configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags (bound by the cli package)
//  2. Environment variables (QUORUM_PROVIDER, QUORUM_UNIT_MAX_BYTES, etc.)
//  3. Config file (./quorum.yaml, ./.quorum.yaml, $XDG_CONFIG_HOME/quorum/)
//  4. Built-in defaults
//
// The cli package owns the viper bootstrap (config file discovery, env
// prefix, flag binding); this package owns the schema: defaults, the typed
// [Config] struct, validation, and the write-back used by `quorum config set`.
package config
