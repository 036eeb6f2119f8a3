package permissions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docshelf/docshelf/pkg/docerr"
)

// Store persists library permission entries.
type Store interface {
	Grant(ctx context.Context, entry Entry) (*Entry, error)
	Revoke(ctx context.Context, userID, libraryID int64) error
	Get(ctx context.Context, userID, libraryID int64) (*Entry, error)
	ListByLibrary(ctx context.Context, libraryID int64) ([]Entry, error)
	ListByUser(ctx context.Context, userID int64) ([]Entry, error)
	DeleteByLibrary(ctx context.Context, libraryID int64) (int64, error)
}

// PostgresStore is the Postgres-backed permission store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = "id, user_id, library_id, can_read, can_write, can_delete, granted_at"

func scanEntry(row interface{ Scan(...interface{}) error }) (*Entry, error) {
	var entry Entry
	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.LibraryID,
		&entry.CanRead, &entry.CanWrite, &entry.CanDelete, &entry.GrantedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Grant creates or replaces the entry for (user, library). The flags
// are overwritten wholesale, never merged.
func (s *PostgresStore) Grant(ctx context.Context, entry Entry) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO library_permissions (user_id, library_id, can_read, can_write, can_delete, granted_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, library_id)
		DO UPDATE SET can_read = $3, can_write = $4, can_delete = $5, granted_at = NOW()
		RETURNING `+entryColumns,
		entry.UserID, entry.LibraryID, entry.CanRead, entry.CanWrite, entry.CanDelete)

	granted, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to grant permission: %w", err)
	}
	return granted, nil
}

// Revoke removes the entry for (user, library).
func (s *PostgresStore) Revoke(ctx context.Context, userID, libraryID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM library_permissions WHERE user_id = $1 AND library_id = $2`,
		userID, libraryID)
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revoke result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("permission for user %d on library %d: %w", userID, libraryID, docerr.ErrNotFound)
	}
	return nil
}

// Get returns the entry for (user, library), or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, userID, libraryID int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM library_permissions
		WHERE user_id = $1 AND library_id = $2`, userID, libraryID)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("permission for user %d on library %d: %w", userID, libraryID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return entry, nil
}

// ListByLibrary returns all entries on a library.
func (s *PostgresStore) ListByLibrary(ctx context.Context, libraryID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM library_permissions
		WHERE library_id = $1
		ORDER BY user_id`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ListByUser returns all entries held by a user.
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM library_permissions
		WHERE user_id = $1
		ORDER BY library_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// DeleteByLibrary removes every entry on a library and returns the
// count, for library deletion and the orphan reaper.
func (s *PostgresStore) DeleteByLibrary(ctx context.Context, libraryID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM library_permissions WHERE library_id = $1`, libraryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete permissions: %w", err)
	}
	return result.RowsAffected()
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
