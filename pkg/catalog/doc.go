// Package catalog manages departments and their libraries.
//
// # Overview
//
// Departments are flat organizational units; each owns at most one
// library, enforced by a unique constraint and checked up front for a
// clean error. Libraries are the access control boundary: permission
// entries, topics and documents all hang off a library.
//
// Creating a library grants its creator the full read/write/delete
// triple in the same transaction, so a new library is never
// momentarily unreachable to the person who made it. Deleting a
// library removes its permission entries in the same transaction and
// is refused while topics remain.
//
// Department mutations are admin-only. Any user may create a library
// for a department that lacks one.
//
// # Related Packages
//
//   - pkg/permissions: the per-library ACL seeded on creation
//   - pkg/topics: the content trees inside each library
package catalog
