package permissions

import "time"

// Right is one of the three per-library permissions.
type Right string

const (
	Read   Right = "read"
	Write  Right = "write"
	Delete Right = "delete"
)

// Entry is one user's grant on one library. At most one entry exists
// per (user, library) pair; granting again overwrites the flags.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	LibraryID int64     `json:"library_id"`
	CanRead   bool      `json:"can_read"`
	CanWrite  bool      `json:"can_write"`
	CanDelete bool      `json:"can_delete"`
	GrantedAt time.Time `json:"granted_at"`
}

// Rights is the effective permission triple for a (user, library) pair
// after the admin override is applied.
type Rights struct {
	CanRead   bool `json:"can_read"`
	CanWrite  bool `json:"can_write"`
	CanDelete bool `json:"can_delete"`
}

// Has reports whether the triple includes the given right.
func (r Rights) Has(right Right) bool {
	switch right {
	case Read:
		return r.CanRead
	case Write:
		return r.CanWrite
	case Delete:
		return r.CanDelete
	}
	return false
}

// AllRights is what admins and library creators get.
func AllRights() Rights {
	return Rights{CanRead: true, CanWrite: true, CanDelete: true}
}
