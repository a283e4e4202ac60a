// Package logtail reads the tail of liststore's own zap log for the in-app
// log pane.
//
// # Reading
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the window rather than the file. Lines come back oldest first.
// A missing file is not an error; the logger may not have written yet.
//
// # Parsing
//
// Both zap encodings are understood:
//
//	{"level":"info","time":"...","message":"listing done","listed":42}
//	2025-10-08T21:01:05.000Z	INFO	listing done	{"listed": 42}
//
// The time, level and message are split out; any other fields become sorted
// "key=value" pairs. Anything else, such as a panic trace, is kept verbatim
// as the message.
package logtail
