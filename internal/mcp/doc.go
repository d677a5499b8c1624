// Package mcp implements the Model Context Protocol server for the
// capability index.
//
// The server exposes five tools over stdio:
//
//   - build_index: run a full index build against the element catalog and
//     persist the resulting document. Accepts wait_for_lease to block on a
//     concurrent build instead of failing fast with a lease error.
//
//   - get_relationships: list the outbound relationship edges of one
//     indexed element, including edge kind, weight, and evidence type.
//     Unknown element ids return an element-not-found error.
//
//   - get_by_action_trigger: list the element ids that declare a given
//     action-trigger verb. Unknown verbs return an empty list, not an
//     error, so callers can probe verbs cheaply.
//
//   - get_semantic_profile: return the lexical profile of one indexed
//     element (Shannon entropy plus term counts).
//
//   - get_index_status: report the builder's lifecycle state and the
//     statistics of the current on-disk index.
//
// Query tools serve from an in-memory copy of the index, loaded lazily
// from disk on first use and replaced after every successful build.
// Errors follow JSON-RPC conventions: -32602 for invalid parameters,
// -32603 for internal failures, and server-specific codes for "not
// indexed yet" (-32001), "build in progress" (-32002), and "element not
// found" (-32003).
//
// Stdout is reserved for the protocol stream; all logging goes to the
// injected slog.Logger, which the main package points at stderr.
package mcp
