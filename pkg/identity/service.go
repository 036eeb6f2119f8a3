package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/docshelf/docshelf/pkg/docerr"
)

// Oracle answers identity questions for access checks.
type Oracle interface {
	// IsAdmin reports whether the user holds the global admin flag.
	// Unknown or inactive users are not admins.
	IsAdmin(ctx context.Context, userID int64) (bool, error)

	// DepartmentOf returns the user's department, or nil when
	// unassigned.
	DepartmentOf(ctx context.Context, userID int64) (*int64, error)
}

type adminEntry struct {
	isAdmin bool
}

// Directory is the Postgres-backed user directory. Admin flags are
// cached in an expiring LRU so repeated access checks for the same
// user avoid a query per request.
type Directory struct {
	db         *sql.DB
	adminCache *expirable.LRU[int64, adminEntry]
}

// NewDirectory creates a Directory. cacheTTL bounds how long a revoked
// admin flag can keep serving; zero disables caching.
func NewDirectory(db *sql.DB, cacheTTL time.Duration) *Directory {
	var cache *expirable.LRU[int64, adminEntry]
	if cacheTTL > 0 {
		cache = expirable.NewLRU[int64, adminEntry](4096, nil, cacheTTL)
	}
	return &Directory{db: db, adminCache: cache}
}

// Get returns a user by ID.
func (d *Directory) Get(ctx context.Context, userID int64) (*User, error) {
	var user User
	err := d.db.QueryRowContext(ctx, `
		SELECT id, username, email, full_name, department_id, is_admin, is_active, created_at
		FROM users
		WHERE id = $1`, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.DepartmentID, &user.IsAdmin, &user.IsActive, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByUsername returns a user by username.
func (d *Directory) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := d.db.QueryRowContext(ctx, `
		SELECT id, username, email, full_name, department_id, is_admin, is_active, created_at
		FROM users
		WHERE username = $1`, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.DepartmentID, &user.IsAdmin, &user.IsActive, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", username, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List returns all active users.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, username, email, full_name, department_id, is_admin, is_active, created_at
		FROM users
		WHERE is_active = true
		ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.FullName,
			&user.DepartmentID, &user.IsAdmin, &user.IsActive, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListByDepartment returns a department's active members.
func (d *Directory) ListByDepartment(ctx context.Context, departmentID int64) ([]User, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, username, email, full_name, department_id, is_admin, is_active, created_at
		FROM users
		WHERE department_id = $1 AND is_active = true
		ORDER BY username`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list department members: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.FullName,
			&user.DepartmentID, &user.IsAdmin, &user.IsActive, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// IsAdmin reports whether the user holds the global admin flag.
// Inactive users lose admin standing immediately on the database path;
// the cache adds at most its TTL of lag.
func (d *Directory) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if d.adminCache != nil {
		if entry, ok := d.adminCache.Get(userID); ok {
			return entry.isAdmin, nil
		}
	}

	var isAdmin bool
	err := d.db.QueryRowContext(ctx, `
		SELECT is_admin FROM users WHERE id = $1 AND is_active = true`, userID).Scan(&isAdmin)
	if err == sql.ErrNoRows {
		isAdmin = false
	} else if err != nil {
		return false, fmt.Errorf("failed to check admin status: %w", err)
	}

	if d.adminCache != nil {
		d.adminCache.Add(userID, adminEntry{isAdmin: isAdmin})
	}
	return isAdmin, nil
}

// DepartmentOf returns the user's department assignment.
func (d *Directory) DepartmentOf(ctx context.Context, userID int64) (*int64, error) {
	var departmentID *int64
	err := d.db.QueryRowContext(ctx, `
		SELECT department_id FROM users WHERE id = $1`, userID).Scan(&departmentID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return departmentID, nil
}

// InvalidateAdmin drops a user's cached admin flag, for callers that
// just changed it and need the next check to hit the database.
func (d *Directory) InvalidateAdmin(userID int64) {
	if d.adminCache != nil {
		d.adminCache.Remove(userID)
	}
}
