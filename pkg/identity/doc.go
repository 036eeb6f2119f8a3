// Package identity resolves users and their global standing.
//
// # Overview
//
// The Directory answers two questions the rest of the service asks
// constantly: does this user exist, and is this user an administrator.
// Admin status is the global override in access checks, so IsAdmin sits
// on the hot path of every request; lookups go through a small
// expiring in-process cache to keep that path off the database.
//
// Admin revocation takes effect within the cache TTL, not instantly.
//
// # Related Packages
//
//   - pkg/permissions: combines admin status with per-library grants
//   - pkg/storage: owns the users table schema
package identity
