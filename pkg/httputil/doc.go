// Package httputil provides shared HTTP helpers for the API layer.
//
// # Overview
//
// Handlers use the Write* helpers for consistent JSON envelopes and the
// Parse* helpers for body decoding and path/query parameter extraction.
// WriteDomainError is the single place where the service error taxonomy
// (pkg/docerr) is translated into HTTP status codes, so handlers return
// domain errors and stay status-code free.
//
// # Related Packages
//
//   - pkg/docerr: the error taxonomy mapped by WriteDomainError
//   - pkg/api: the handlers built on these helpers
package httputil
