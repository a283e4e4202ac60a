// Package listing produces the descriptors shown by the list view and
// materializes their payloads.
//
// Two sources exist. DirSource lists a directory, grouping entries under
// "Directories" and "Files" headers and fetching a FileInfo per entry.
// DBSource pages through a MySQL table with gorm, grouping records by
// category and fetching the full Record.
//
// A Producer runs a source on its own goroutine. It filters descriptors,
// holds back each group header until one of its members is accepted, and
// posts batches of Store.Add calls to the store's loop. Progress is
// published to a state.Store for the status bar.
package listing
