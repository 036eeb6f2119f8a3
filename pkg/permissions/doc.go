// Package permissions implements per-library access control.
//
// # Overview
//
// Every library carries an access control list of (user, library)
// entries with three independent flags: read, write, delete. The
// PostgresStore owns those rows; granting is an upsert, so re-granting
// replaces the previous flags rather than accumulating rows.
//
// The Evaluator computes effective rights. Global admins hold every
// right on every library, with or without an ACL entry. Everyone else
// gets exactly the flags on their entry: each right requires its own
// flag, and a missing entry denies everything without being an error.
//
// Effective rights can be cached in Redis with a short TTL; a
// revocation therefore propagates within the TTL rather than
// instantly, and grant/revoke paths invalidate eagerly to shorten
// that window.
//
// # Related Packages
//
//   - pkg/identity: supplies the admin flag
//   - pkg/catalog: grants full rights to library creators
//   - pkg/storage: the Redis rights cache
package permissions
