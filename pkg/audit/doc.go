// Package audit records who did what to which library.
//
// # Overview
//
// Every permission change, catalog mutation, topic mutation and
// document operation produces an Event row in audit_logs, tagged with
// the acting user, the affected library, and the request ID when one
// is in flight. Denied access checks are recorded too; they are the
// rows security reviews actually read.
//
// Audit writes are fire and forget from the caller's point of view: a
// failed insert is logged, never propagated, so auditing can not take
// the mutation down with it.
//
// Retention is enforced by the janitor binary, which calls
// DeleteOlderThan on a schedule.
//
// # Related Packages
//
//   - pkg/api: emits events from its handlers
//   - cmd/docshelf-janitor: prunes aged rows
package audit
