// Package codec reads and writes the persisted capability index.
//
// The index is a single versioned YAML document. Writers always stamp the
// current schema version and publish atomically (temp file, fsync, rename),
// so a crash mid-write leaves the previous index intact. Readers accept the
// current version, upgrade known older versions in memory, and reject
// unknown versions with ErrSchemaVersionMismatch rather than guessing.
package codec
