// Package logging builds the structured zap logger shared by the store, the
// listing producer and the application shell.
//
// The terminal belongs to the list view while it runs, so the logger normally
// writes to a file. An empty path falls back to stderr, which is what the
// command line uses to report a failed start.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (default) or console
//   - File: output path; "~" is expanded by the config package
//
// # Usage
//
//	log, err := logging.New(logging.Config{Level: "debug", File: "/tmp/liststore.log"})
//	if err != nil {
//		return err
//	}
//	defer log.Sync()
//	log.Debug("evicted", zap.Stringer("item", h))
package logging
