// Package documents stores files under topics and guards every path
// to them.
//
// # Overview
//
// The DocumentGate is the only way in or out of document storage.
// Uploads pass the deployment upload policy (extension allow-list,
// size limit, no empty files) before any rights check, then require
// write access on the topic's library. Reads require read access,
// deletes require delete access.
//
// Files are written to disk under the policy's base path with a
// generated UUID storage key, never the user-supplied filename, so
// uploads cannot collide or traverse paths. The original filename is
// kept as metadata for download headers.
//
// The policy is read through a PolicySource on every upload, so a
// hot-reloaded policy applies immediately.
//
// # Related Packages
//
//   - pkg/config: the upload policy and its watcher
//   - pkg/permissions: the access checks
//   - pkg/topics: the tree documents attach to
package documents
