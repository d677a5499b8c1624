// Package elementstore persists the catalog of content elements the index
// is built from.
//
// The concrete implementation is SQLite with two interchangeable drivers
// selected at build time: github.com/mattn/go-sqlite3 under the sqlite_cgo
// tag, modernc.org/sqlite otherwise. Set-valued fields (keywords, tags,
// action triggers) are stored as JSON arrays in text columns.
//
// The index builder depends only on the Store interface and only calls
// ListElements; element content is treated as already validated and is
// never mutated here.
package elementstore
