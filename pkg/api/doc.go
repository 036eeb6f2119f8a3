// Package api exposes the HTTP surface of the service.
//
// # Overview
//
// All routes live under /api/v1 on a gorilla/mux router. The acting
// user arrives in the X-Docshelf-User header as a numeric user ID;
// requests without it are rejected before any handler runs. Handlers
// parse, call the domain services with the acting user, and hand
// domain errors to httputil.WriteDomainError for status mapping, so a
// missing library is a 404 and a missing right is a 403 everywhere.
//
// Middleware order is request ID, then actor resolution, then
// logging/metrics. Mutating handlers emit audit events after the
// domain call succeeds (and on denials).
//
// # Related Packages
//
//   - pkg/httputil: response envelopes and the error-status mapping
//   - pkg/audit: the event log written from handlers
//   - pkg/observability: request logging and metrics middleware
package api
