package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/storage"
)

// LibraryCatalog manages libraries and keeps their ACLs consistent
// across create and delete.
type LibraryCatalog struct {
	db    *sql.DB
	eval  *permissions.Evaluator
	cache *storage.Cache
}

// NewLibraryCatalog creates a LibraryCatalog. cache may be nil.
func NewLibraryCatalog(db *sql.DB, eval *permissions.Evaluator, cache *storage.Cache) *LibraryCatalog {
	return &LibraryCatalog{db: db, eval: eval, cache: cache}
}

const libraryColumns = "id, department_id, name, description, is_active, created_at"

func scanLibrary(row interface{ Scan(...interface{}) error }) (*Library, error) {
	var lib Library
	var description sql.NullString
	err := row.Scan(&lib.ID, &lib.DepartmentID, &lib.Name, &description, &lib.IsActive, &lib.CreatedAt)
	if err != nil {
		return nil, err
	}
	lib.Description = description.String
	return &lib, nil
}

// Create adds a library for a department that does not have one yet,
// and grants the creator the full rights triple in the same
// transaction.
func (c *LibraryCatalog) Create(ctx context.Context, actorID int64, req NewLibrary) (*Library, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, docerr.Validation("name", "must not be empty")
	}

	var library *Library
	err := storage.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var deptExists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM departments WHERE id = $1)`, req.DepartmentID).Scan(&deptExists); err != nil {
			return fmt.Errorf("failed to check department: %w", err)
		}
		if !deptExists {
			return fmt.Errorf("department %d: %w", req.DepartmentID, docerr.ErrNotFound)
		}

		var hasLibrary bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM libraries WHERE department_id = $1)`, req.DepartmentID).Scan(&hasLibrary); err != nil {
			return fmt.Errorf("failed to check existing library: %w", err)
		}
		if hasLibrary {
			return docerr.Validation("department_id", "department already has a library")
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO libraries (department_id, name, description, is_active, created_at)
			VALUES ($1, $2, $3, TRUE, NOW())
			RETURNING `+libraryColumns, req.DepartmentID, name, req.Description)

		var err error
		library, err = scanLibrary(row)
		if err != nil {
			return fmt.Errorf("failed to create library: %w", err)
		}

		// The creator gets full rights immediately.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO library_permissions (user_id, library_id, can_read, can_write, can_delete, granted_at)
			VALUES ($1, $2, TRUE, TRUE, TRUE, NOW())`,
			actorID, library.ID); err != nil {
			return fmt.Errorf("failed to grant creator rights: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return library, nil
}

// Get returns a library by ID.
func (c *LibraryCatalog) Get(ctx context.Context, libraryID int64) (*Library, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+libraryColumns+` FROM libraries WHERE id = $1`, libraryID)

	library, err := scanLibrary(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library %d: %w", libraryID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	return library, nil
}

// Update changes a library's name and description. The actor needs
// write rights on the library.
func (c *LibraryCatalog) Update(ctx context.Context, actorID, libraryID int64, req UpdateLibrary) (*Library, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, docerr.Validation("name", "must not be empty")
	}
	if _, err := c.Get(ctx, libraryID); err != nil {
		return nil, err
	}
	if err := c.eval.Require(ctx, actorID, libraryID, permissions.Write); err != nil {
		return nil, err
	}

	row := c.db.QueryRowContext(ctx, `
		UPDATE libraries SET name = $1, description = $2
		WHERE id = $3
		RETURNING `+libraryColumns, name, req.Description, libraryID)

	library, err := scanLibrary(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update library: %w", err)
	}
	return library, nil
}

// GetByDepartment returns the department's library, if any.
func (c *LibraryCatalog) GetByDepartment(ctx context.Context, departmentID int64) (*Library, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+libraryColumns+` FROM libraries WHERE department_id = $1`, departmentID)

	library, err := scanLibrary(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library for department %d: %w", departmentID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	return library, nil
}

// List returns all active libraries.
func (c *LibraryCatalog) List(ctx context.Context) ([]Library, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+libraryColumns+` FROM libraries
		WHERE is_active = TRUE
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer rows.Close()

	var libraries []Library
	for rows.Next() {
		library, err := scanLibrary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library: %w", err)
		}
		libraries = append(libraries, *library)
	}
	return libraries, rows.Err()
}

// Readable filters the given libraries down to those the user can
// read, for listing endpoints that hide inaccessible libraries.
func (c *LibraryCatalog) Readable(ctx context.Context, userID int64, libraries []Library) ([]Library, error) {
	readable := make([]Library, 0, len(libraries))
	for _, library := range libraries {
		allowed, err := c.eval.Allowed(ctx, userID, library.ID, permissions.Read)
		if err != nil {
			return nil, err
		}
		if allowed {
			readable = append(readable, library)
		}
	}
	return readable, nil
}

// Delete removes a library and its permission entries in one
// transaction. Libraries that still contain topics are refused.
func (c *LibraryCatalog) Delete(ctx context.Context, actorID, libraryID int64) error {
	if _, err := c.Get(ctx, libraryID); err != nil {
		return err
	}
	if err := c.eval.Require(ctx, actorID, libraryID, permissions.Delete); err != nil {
		return err
	}

	var topics int
	if err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM topics WHERE library_id = $1`, libraryID).Scan(&topics); err != nil {
		return fmt.Errorf("failed to count topics: %w", err)
	}
	if topics > 0 {
		return docerr.Validation("library_id", "library still contains topics")
	}

	err := storage.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM library_permissions WHERE library_id = $1`, libraryID); err != nil {
			return fmt.Errorf("failed to delete permissions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM libraries WHERE id = $1`, libraryID); err != nil {
			return fmt.Errorf("failed to delete library: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.eval.InvalidateLibrary(ctx, libraryID)
	return nil
}
