// Package storage provides the PostgreSQL connection, schema migrations,
// and the optional Redis read cache used by the docshelf services.
//
// All domain services operate on a plain *sql.DB with hand-written SQL;
// this package only owns connecting, pooling, the versioned schema, and
// the transaction helper that bounds multi-statement mutations (library
// create with auto-grant, topic move cascades, library cascade deletes).
//
// # Related Packages
//
//   - pkg/catalog: department and library services
//   - pkg/topics: topic tree service
//   - pkg/permissions: ACL store and evaluator
package storage
