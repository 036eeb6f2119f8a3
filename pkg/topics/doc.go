// Package topics manages the per-library topic trees that organize
// documents.
//
// # Overview
//
// Topics form a forest within each library: any topic may have a
// parent in the same library, and each carries a materialized Path
// ("Policies/HR/Leave") so readers never walk the parent chain. The
// price is paid on writes: renaming or moving a topic rewrites the
// paths of its entire subtree, which TopicTree does with a worklist
// inside a single transaction so no partially repathed state is ever
// visible.
//
// Two structural rules hold at all times:
//
//   - A move that would place a topic under itself or one of its
//     descendants is rejected before anything is written.
//   - A topic with children or documents cannot be deleted; the caller
//     must empty it first.
//
// All mutations take the acting user and require write (or delete)
// rights on the owning library.
//
// # Related Packages
//
//   - pkg/permissions: the access checks on every operation
//   - pkg/documents: leaf content attached to topics
//   - pkg/storage: the Redis hierarchy cache
package topics
