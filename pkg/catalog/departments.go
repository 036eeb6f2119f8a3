package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/identity"
)

// DepartmentCatalog manages departments. Mutations are admin-only.
type DepartmentCatalog struct {
	db     *sql.DB
	oracle identity.Oracle
}

// NewDepartmentCatalog creates a DepartmentCatalog.
func NewDepartmentCatalog(db *sql.DB, oracle identity.Oracle) *DepartmentCatalog {
	return &DepartmentCatalog{db: db, oracle: oracle}
}

const departmentColumns = "id, name, description, is_active, created_at"

func scanDepartment(row interface{ Scan(...interface{}) error }) (*Department, error) {
	var dept Department
	var description sql.NullString
	err := row.Scan(&dept.ID, &dept.Name, &description, &dept.IsActive, &dept.CreatedAt)
	if err != nil {
		return nil, err
	}
	dept.Description = description.String
	return &dept, nil
}

func (c *DepartmentCatalog) requireAdmin(ctx context.Context, actorID int64) error {
	isAdmin, err := c.oracle.IsAdmin(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to resolve admin status: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("user %d is not an administrator: %w", actorID, docerr.ErrForbidden)
	}
	return nil
}

// Create adds a department. Names are unique.
func (c *DepartmentCatalog) Create(ctx context.Context, actorID int64, req NewDepartment) (*Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, docerr.Validation("name", "must not be empty")
	}
	if err := c.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	var exists bool
	if err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM departments WHERE name = $1)`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check department name: %w", err)
	}
	if exists {
		return nil, docerr.Validation("name", "department already exists")
	}

	row := c.db.QueryRowContext(ctx, `
		INSERT INTO departments (name, description, is_active, created_at)
		VALUES ($1, $2, TRUE, NOW())
		RETURNING `+departmentColumns, name, req.Description)

	dept, err := scanDepartment(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create department: %w", err)
	}
	return dept, nil
}

// Get returns a department by ID.
func (c *DepartmentCatalog) Get(ctx context.Context, departmentID int64) (*Department, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+departmentColumns+` FROM departments WHERE id = $1`, departmentID)

	dept, err := scanDepartment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("department %d: %w", departmentID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return dept, nil
}

// List returns all active departments.
func (c *DepartmentCatalog) List(ctx context.Context) ([]Department, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+departmentColumns+` FROM departments
		WHERE is_active = TRUE
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, *dept)
	}
	return departments, rows.Err()
}

// Update changes a department's name and description. Admin-only, and
// the new name must stay unique.
func (c *DepartmentCatalog) Update(ctx context.Context, actorID, departmentID int64, req UpdateDepartment) (*Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, docerr.Validation("name", "must not be empty")
	}
	if err := c.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	var taken bool
	if err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM departments WHERE name = $1 AND id <> $2)`, name, departmentID).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check department name: %w", err)
	}
	if taken {
		return nil, docerr.Validation("name", "department already exists")
	}

	row := c.db.QueryRowContext(ctx, `
		UPDATE departments SET name = $1, description = $2
		WHERE id = $3
		RETURNING `+departmentColumns, name, req.Description, departmentID)

	dept, err := scanDepartment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("department %d: %w", departmentID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to update department: %w", err)
	}
	return dept, nil
}

// Delete removes a department. Departments that still own a library
// are refused.
func (c *DepartmentCatalog) Delete(ctx context.Context, actorID, departmentID int64) error {
	if err := c.requireAdmin(ctx, actorID); err != nil {
		return err
	}

	var libraries int
	if err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM libraries WHERE department_id = $1`, departmentID).Scan(&libraries); err != nil {
		return fmt.Errorf("failed to count libraries: %w", err)
	}
	if libraries > 0 {
		return docerr.Validation("department_id", "department still owns a library")
	}

	result, err := c.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, departmentID)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("department %d: %w", departmentID, docerr.ErrNotFound)
	}
	return nil
}
