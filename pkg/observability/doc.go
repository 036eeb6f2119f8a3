// Package observability provides structured logging, Prometheus metrics,
// and health checks for the docshelf service.
//
// Logging is structured JSON over stdlib slog. Metrics cover the HTTP
// surface plus the domain-specific signals that matter here: access-check
// outcomes (allowed/denied, admin-override), topic path cascade sizes,
// and upload policy rejections. Health checks probe PostgreSQL (required)
// and Redis (optional, degrades instead of failing).
package observability
