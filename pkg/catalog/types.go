package catalog

import "time"

// Department is an organizational unit. Each department owns at most
// one library.
type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDepartment is the creation request for a department.
type NewDepartment struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateDepartment is the metadata update request for a department.
type UpdateDepartment struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Library is a department's document collection and the unit of access
// control: every permission entry names a library.
type Library struct {
	ID           int64     `json:"id"`
	DepartmentID int64     `json:"department_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewLibrary is the creation request for a library.
type NewLibrary struct {
	DepartmentID int64  `json:"department_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
}

// UpdateLibrary is the metadata update request for a library. The
// owning department cannot change.
type UpdateLibrary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
