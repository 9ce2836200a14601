// Package config loads, normalizes, and validates Loom configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and LOOM_NTFY_TOPIC. The Config type centralizes every
// knob the pipeline driver and CLI need: where runs live, how the generation
// provider is reached and paced, how many branch candidates are drafted, and
// how aggressively the memory window is archived.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved selection mode, and clear validation errors.
package config
