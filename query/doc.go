// Package query walks the segmented results of a table query, either to exhaustion
// or one caller-sized page at a time. Pages resume from an opaque token that is the
// base64 encoding of the store's continuation keys.
package query
