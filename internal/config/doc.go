// Package config loads liststore's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/liststore/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// Command line flags are applied by the caller on top of the loaded value.
//
// # Default Values
//
//   - cache_max: 64 realized items
//   - fetch_thread: true (payloads are fetched on worker goroutines)
//   - sorted: false (descriptors are inserted as they are listed)
//   - tie_policy: "skip"; stale_policy: "commit"
//   - source: "dir", listing the working directory
//   - db.table: "records", db.page_size: 200
//   - log.file: ~/.local/state/liststore/liststore.log, json at info level
//   - poll_ms: 250 (status bar refresh)
//
// # Example
//
//	cache_max = 128
//	source = "db"
//
//	[db]
//	dsn = "app:secret@tcp(127.0.0.1:3306)/notes?parseTime=true"
//	page_size = 500
//
//	[log]
//	level = "debug"
//	format = "console"
//
// # Path Expansion
//
// Paths starting with "~" expand to the user's home directory and are made
// absolute. Expansion failures keep the original string.
//
// # Error Handling
//
// A missing file is not an error. An unreadable file, invalid TOML or an
// out-of-range value (cache_max below one, an unknown policy or source) is
// returned wrapped with context.
package config
