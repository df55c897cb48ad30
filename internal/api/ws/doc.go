// Package ws serves the launcher event stream.
//
// Every connected shell UI receives lifecycle and collection events as JSON
// frames. The hub also acts as the host for embedded web sessions: it asks
// the shell to open, focus or close a view and tracks which sessions the
// shell reports as open.
package ws
