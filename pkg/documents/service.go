package documents

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/docshelf/docshelf/pkg/config"
	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/permissions"
)

// PolicySource supplies the active upload policy. Satisfied by
// config.PolicyWatcher.
type PolicySource interface {
	Current() config.UploadPolicy
}

// StaticPolicy is a PolicySource that never changes, for deployments
// without a config file to watch.
type StaticPolicy config.UploadPolicy

func (p StaticPolicy) Current() config.UploadPolicy { return config.UploadPolicy(p) }

// DocumentGate mediates all document access.
type DocumentGate struct {
	db      *sql.DB
	eval    *permissions.Evaluator
	policy  PolicySource
	metrics *observability.Metrics
}

// NewDocumentGate creates a DocumentGate. metrics may be nil.
func NewDocumentGate(db *sql.DB, eval *permissions.Evaluator, policy PolicySource, metrics *observability.Metrics) *DocumentGate {
	return &DocumentGate{db: db, eval: eval, policy: policy, metrics: metrics}
}

const documentColumns = "id, topic_id, title, file_name, storage_key, file_size, content_type, uploaded_by, created_at"

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.TopicID, &doc.Title, &doc.FileName, &doc.StorageKey,
		&doc.FileSize, &doc.ContentType, &doc.UploadedBy, &doc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// libraryOfTopic resolves the owning library for permission checks.
func (g *DocumentGate) libraryOfTopic(ctx context.Context, topicID int64) (int64, error) {
	var libraryID int64
	err := g.db.QueryRowContext(ctx, `
		SELECT library_id FROM topics WHERE id = $1`, topicID).Scan(&libraryID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("topic %d: %w", topicID, docerr.ErrNotFound)
	} else if err != nil {
		return 0, fmt.Errorf("failed to resolve topic library: %w", err)
	}
	return libraryID, nil
}

// checkPolicy validates an upload against the active policy before
// anything touches the database or disk.
func (g *DocumentGate) checkPolicy(req Upload) error {
	policy := g.policy.Current()

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if ext == "" || !policy.Allows(ext) {
		g.observeRejection(docerr.UploadRejectedExtension)
		return &docerr.UploadRejectedError{
			Reason:            docerr.UploadRejectedExtension,
			AllowedExtensions: policy.AllowedExtensions,
		}
	}
	if req.Size <= 0 {
		g.observeRejection(docerr.UploadRejectedEmpty)
		return &docerr.UploadRejectedError{Reason: docerr.UploadRejectedEmpty}
	}
	if req.Size > policy.MaxFileSize {
		g.observeRejection(docerr.UploadRejectedSize)
		return &docerr.UploadRejectedError{
			Reason:      docerr.UploadRejectedSize,
			MaxFileSize: policy.MaxFileSize,
		}
	}
	return nil
}

func (g *DocumentGate) observeRejection(reason string) {
	if g.metrics != nil {
		g.metrics.ObserveUpload(false)
		g.metrics.ObserveUploadRejection(reason)
	}
}

// Store validates, rights-checks and persists an upload. The file is
// written under a fresh UUID key; the row insert comes last, and a
// failed insert removes the file again.
func (g *DocumentGate) Store(ctx context.Context, actorID int64, req Upload, content io.Reader) (*Document, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, docerr.Validation("title", "must not be empty")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, docerr.Validation("file_name", "must not be empty")
	}
	if err := g.checkPolicy(req); err != nil {
		return nil, err
	}

	libraryID, err := g.libraryOfTopic(ctx, req.TopicID)
	if err != nil {
		return nil, err
	}
	if err := g.eval.Require(ctx, actorID, libraryID, permissions.Write); err != nil {
		return nil, err
	}

	policy := g.policy.Current()
	ext := strings.ToLower(filepath.Ext(req.FileName))
	storageKey := uuid.NewString() + ext

	written, err := g.writeFile(policy.BasePath, storageKey, content, policy.MaxFileSize)
	if err != nil {
		return nil, err
	}

	row := g.db.QueryRowContext(ctx, `
		INSERT INTO documents (topic_id, title, file_name, storage_key, file_size, content_type, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING `+documentColumns,
		req.TopicID, strings.TrimSpace(req.Title), req.FileName, storageKey,
		written, req.ContentType, actorID)

	doc, err := scanDocument(row)
	if err != nil {
		os.Remove(filepath.Join(policy.BasePath, storageKey))
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if g.metrics != nil {
		g.metrics.ObserveUpload(true)
	}
	return doc, nil
}

// writeFile streams content to disk, enforcing the size limit on the
// actual bytes rather than trusting the declared size.
func (g *DocumentGate) writeFile(basePath, storageKey string, content io.Reader, maxSize int64) (int64, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create storage directory: %w", err)
	}

	path := filepath.Join(basePath, storageKey)
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, io.LimitReader(content, maxSize+1))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if written > maxSize {
		os.Remove(path)
		g.observeRejection(docerr.UploadRejectedSize)
		return 0, &docerr.UploadRejectedError{
			Reason:      docerr.UploadRejectedSize,
			MaxFileSize: maxSize,
		}
	}
	return written, nil
}

// Get returns document metadata. The actor needs read rights on the
// owning library.
func (g *DocumentGate) Get(ctx context.Context, actorID, documentID int64) (*Document, error) {
	doc, libraryID, err := g.getWithLibrary(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := g.eval.Require(ctx, actorID, libraryID, permissions.Read); err != nil {
		return nil, err
	}
	return doc, nil
}

func (g *DocumentGate) getWithLibrary(ctx context.Context, documentID int64) (*Document, int64, error) {
	var doc Document
	var libraryID int64
	err := g.db.QueryRowContext(ctx, `
		SELECT d.id, d.topic_id, d.title, d.file_name, d.storage_key, d.file_size,
		       d.content_type, d.uploaded_by, d.created_at, t.library_id
		FROM documents d
		JOIN topics t ON t.id = d.topic_id
		WHERE d.id = $1`, documentID).Scan(
		&doc.ID, &doc.TopicID, &doc.Title, &doc.FileName, &doc.StorageKey,
		&doc.FileSize, &doc.ContentType, &doc.UploadedBy, &doc.CreatedAt, &libraryID,
	)
	if err == sql.ErrNoRows {
		return nil, 0, fmt.Errorf("document %d: %w", documentID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, 0, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, libraryID, nil
}

// Open returns the document metadata and a reader over its bytes. The
// caller closes the reader.
func (g *DocumentGate) Open(ctx context.Context, actorID, documentID int64) (*Document, io.ReadCloser, error) {
	doc, err := g.Get(ctx, actorID, documentID)
	if err != nil {
		return nil, nil, err
	}

	policy := g.policy.Current()
	file, err := os.Open(filepath.Join(policy.BasePath, doc.StorageKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document file: %w", err)
	}
	return doc, file, nil
}

// ListByTopic returns a topic's documents. The actor needs read rights
// on the owning library.
func (g *DocumentGate) ListByTopic(ctx context.Context, actorID, topicID int64) ([]Document, error) {
	libraryID, err := g.libraryOfTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if err := g.eval.Require(ctx, actorID, libraryID, permissions.Read); err != nil {
		return nil, err
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE topic_id = $1
		ORDER BY title`, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Search returns a topic's documents whose title or filename contains
// the query, case-insensitive. Same rights as ListByTopic.
func (g *DocumentGate) Search(ctx context.Context, actorID, topicID int64, query string) ([]Document, error) {
	libraryID, err := g.libraryOfTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if err := g.eval.Require(ctx, actorID, libraryID, permissions.Read); err != nil {
		return nil, err
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE topic_id = $1
		  AND (title ILIKE '%' || $2 || '%' OR file_name ILIKE '%' || $2 || '%')
		ORDER BY title`, topicID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Delete removes a document's row and its file. The actor needs delete
// rights on the owning library. The file removal is best effort; a
// leftover file without a row is harmless and swept later.
func (g *DocumentGate) Delete(ctx context.Context, actorID, documentID int64) error {
	doc, libraryID, err := g.getWithLibrary(ctx, documentID)
	if err != nil {
		return err
	}
	if err := g.eval.Require(ctx, actorID, libraryID, permissions.Delete); err != nil {
		return err
	}

	if _, err := g.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	policy := g.policy.Current()
	os.Remove(filepath.Join(policy.BasePath, doc.StorageKey))
	return nil
}
