// Package cli wires together the Cobra command tree for the quorum binary.
//
// It defines the root command and all subcommands (review, pr, profiles,
// config, hook, version), binds flags and configuration through viper,
// invokes the review engine, and returns deterministic exit codes for CI
// gating.
package cli
