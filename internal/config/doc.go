// Package config loads capstyle settings.
//
// Settings are layered: built-in defaults, then a TOML or YAML file (which
// may include other files), then CAPSTYLE_* environment variables. The
// merged map is decoded into Config and validated. Watch reloads the file
// on change and hands the new Config to a callback.
package config
