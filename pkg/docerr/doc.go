// Package docerr defines the shared error taxonomy for the docshelf core.
//
// Every expected outcome of a core operation maps to one of the types here:
//
//   - ErrForbidden: the acting user lacks the required library right
//   - ErrNotFound: a referenced entity does not exist
//   - ValidationError: a required field is missing or a uniqueness
//     constraint was violated
//   - DeleteBlockedError: a topic still owns child topics or documents
//   - UploadRejectedError: a file failed the deployment upload policy
//
// All of these are recoverable and returned to the caller; only
// persistence-layer failures bubble up unwrapped. ErrForbidden and
// ErrNotFound are deliberately distinct signals; whether a boundary
// collapses them to avoid existence leakage is the integrator's call.
package docerr
