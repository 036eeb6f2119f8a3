package topics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/storage"
)

// TopicTree manages the topic forest of every library.
type TopicTree struct {
	db      *sql.DB
	eval    *permissions.Evaluator
	cache   *storage.Cache
	metrics *observability.Metrics
}

// NewTopicTree creates a TopicTree. cache and metrics may be nil.
func NewTopicTree(db *sql.DB, eval *permissions.Evaluator, cache *storage.Cache, metrics *observability.Metrics) *TopicTree {
	return &TopicTree{db: db, eval: eval, cache: cache, metrics: metrics}
}

const topicColumns = "id, library_id, parent_topic_id, name, path, created_at, updated_at"

func scanTopic(row interface{ Scan(...interface{}) error }) (*Topic, error) {
	var topic Topic
	err := row.Scan(
		&topic.ID, &topic.LibraryID, &topic.ParentTopicID,
		&topic.Name, &topic.Path, &topic.CreatedAt, &topic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return docerr.Validation("name", "must not be empty")
	}
	if strings.Contains(name, "/") {
		return docerr.Validation("name", "must not contain '/'")
	}
	return nil
}

// Get returns a topic by ID.
func (t *TopicTree) Get(ctx context.Context, topicID int64) (*Topic, error) {
	return getTopic(ctx, t.db, topicID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getTopic(ctx context.Context, q querier, topicID int64) (*Topic, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+topicColumns+` FROM topics WHERE id = $1`, topicID)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("topic %d: %w", topicID, docerr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}
	return topic, nil
}

// ListByLibrary returns all topics in a library ordered by path, so a
// parent always precedes its descendants.
func (t *TopicTree) ListByLibrary(ctx context.Context, libraryID int64) ([]Topic, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT `+topicColumns+` FROM topics
		WHERE library_id = $1
		ORDER BY path`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// Search returns the library's topics whose name contains the query,
// case-insensitive, ordered by path.
func (t *TopicTree) Search(ctx context.Context, libraryID int64, query string) ([]Topic, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT `+topicColumns+` FROM topics
		WHERE library_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY path`, libraryID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, *topic)
	}
	return topics, rows.Err()
}

// Hierarchy returns the library's topic forest as nested nodes. The
// flat listing is cached; the tree is rebuilt from it on every call.
func (t *TopicTree) Hierarchy(ctx context.Context, libraryID int64) ([]*Node, error) {
	if t.cache != nil {
		var cached []Topic
		hit, err := t.cache.GetHierarchy(ctx, libraryID, &cached)
		if err == nil && hit {
			if t.metrics != nil {
				t.metrics.ObserveCacheHit("hierarchy")
			}
			return buildForest(cached), nil
		}
		if t.metrics != nil {
			t.metrics.ObserveCacheMiss("hierarchy")
		}
	}

	topics, err := t.ListByLibrary(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		_ = t.cache.SetHierarchy(ctx, libraryID, topics)
	}
	return buildForest(topics), nil
}

func buildForest(topics []Topic) []*Node {
	nodes := make(map[int64]*Node, len(topics))
	for _, topic := range topics {
		nodes[topic.ID] = &Node{Topic: topic, Children: []*Node{}}
	}

	var roots []*Node
	for _, topic := range topics {
		node := nodes[topic.ID]
		if topic.ParentTopicID != nil {
			if parent, ok := nodes[*topic.ParentTopicID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Create adds a topic. The actor needs write rights on the library,
// and the parent, when given, must belong to the same library.
func (t *TopicTree) Create(ctx context.Context, actorID int64, req NewTopic) (*Topic, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := t.eval.Require(ctx, actorID, req.LibraryID, permissions.Write); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(req.Name)
	if req.ParentTopicID != nil {
		parent, err := t.Get(ctx, *req.ParentTopicID)
		if err != nil {
			return nil, err
		}
		if parent.LibraryID != req.LibraryID {
			return nil, docerr.Validation("parent_topic_id", "parent belongs to a different library")
		}
		path = parent.Path + "/" + path
	}

	row := t.db.QueryRowContext(ctx, `
		INSERT INTO topics (library_id, parent_topic_id, name, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+topicColumns,
		req.LibraryID, req.ParentTopicID, strings.TrimSpace(req.Name), path)

	topic, err := scanTopic(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	t.afterMutation(ctx, "create", req.LibraryID)
	return topic, nil
}

// Rename changes a topic's name and rewrites the subtree's paths.
func (t *TopicTree) Rename(ctx context.Context, actorID, topicID int64, newName string) (*Topic, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}
	newName = strings.TrimSpace(newName)

	topic, err := t.Get(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if err := t.eval.Require(ctx, actorID, topic.LibraryID, permissions.Write); err != nil {
		return nil, err
	}

	newPath := newName
	if idx := strings.LastIndex(topic.Path, "/"); idx >= 0 {
		newPath = topic.Path[:idx+1] + newName
	}

	var updated *Topic
	var descendants int
	err = storage.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE topics SET name = $1, path = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+topicColumns, newName, newPath, topicID)

		updated, err = scanTopic(row)
		if err != nil {
			return fmt.Errorf("failed to rename topic: %w", err)
		}

		descendants, err = cascadePaths(ctx, tx, updated.ID, updated.Path)
		return err
	})
	if err != nil {
		return nil, err
	}

	if t.metrics != nil {
		t.metrics.ObserveCascade(descendants)
	}
	t.afterMutation(ctx, "rename", topic.LibraryID)
	return updated, nil
}

// Move reparents a topic within its library and rewrites the subtree's
// paths. Moving a topic under itself or any of its descendants is
// rejected with nothing written.
func (t *TopicTree) Move(ctx context.Context, actorID, topicID int64, newParentID *int64) (*Topic, error) {
	topic, err := t.Get(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if err := t.eval.Require(ctx, actorID, topic.LibraryID, permissions.Write); err != nil {
		return nil, err
	}

	if newParentID != nil && *newParentID == topicID {
		t.observeCycleRejection()
		return nil, docerr.Validation("parent_topic_id", "topic cannot be its own parent")
	}

	var updated *Topic
	var descendants int
	err = storage.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		newPath := topic.Name
		if newParentID != nil {
			parent, err := getTopic(ctx, tx, *newParentID)
			if err != nil {
				return err
			}
			if parent.LibraryID != topic.LibraryID {
				return docerr.Validation("parent_topic_id", "parent belongs to a different library")
			}

			cyclic, err := wouldCycle(ctx, tx, topicID, parent)
			if err != nil {
				return err
			}
			if cyclic {
				t.observeCycleRejection()
				return docerr.Validation("parent_topic_id", "move would place topic under its own descendant")
			}
			newPath = parent.Path + "/" + topic.Name
		}

		row := tx.QueryRowContext(ctx, `
			UPDATE topics SET parent_topic_id = $1, path = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING `+topicColumns, newParentID, newPath, topicID)

		var err error
		updated, err = scanTopic(row)
		if err != nil {
			return fmt.Errorf("failed to move topic: %w", err)
		}

		descendants, err = cascadePaths(ctx, tx, updated.ID, updated.Path)
		return err
	})
	if err != nil {
		return nil, err
	}

	if t.metrics != nil {
		t.metrics.ObserveCascade(descendants)
	}
	t.afterMutation(ctx, "move", topic.LibraryID)
	return updated, nil
}

// wouldCycle walks up the parent chain from the proposed parent; if it
// passes through the moving topic, the move would create a cycle.
func wouldCycle(ctx context.Context, tx *sql.Tx, topicID int64, parent *Topic) (bool, error) {
	current := parent
	for {
		if current.ID == topicID {
			return true, nil
		}
		if current.ParentTopicID == nil {
			return false, nil
		}
		next, err := getTopic(ctx, tx, *current.ParentTopicID)
		if err != nil {
			return false, err
		}
		current = next
	}
}

// cascadePaths rewrites the paths of every descendant of a repathed
// topic, breadth first, and returns how many rows changed.
func cascadePaths(ctx context.Context, tx *sql.Tx, rootID int64, rootPath string) (int, error) {
	type item struct {
		id   int64
		path string
	}
	work := []item{{id: rootID, path: rootPath}}
	descendants := 0

	for len(work) > 0 {
		current := work[0]
		work = work[1:]

		rows, err := tx.QueryContext(ctx, `
			SELECT id, name FROM topics WHERE parent_topic_id = $1`, current.id)
		if err != nil {
			return 0, fmt.Errorf("failed to list children: %w", err)
		}

		var children []item
		for rows.Next() {
			var id int64
			var name string
			if err := rows.Scan(&id, &name); err != nil {
				rows.Close()
				return 0, fmt.Errorf("failed to scan child: %w", err)
			}
			children = append(children, item{id: id, path: current.path + "/" + name})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return 0, err
		}
		rows.Close()

		for _, child := range children {
			if _, err := tx.ExecContext(ctx, `
				UPDATE topics SET path = $1, updated_at = NOW() WHERE id = $2`,
				child.path, child.id); err != nil {
				return 0, fmt.Errorf("failed to update child path: %w", err)
			}
			descendants++
			work = append(work, child)
		}
	}
	return descendants, nil
}

// Delete removes an empty topic. Topics with children or documents are
// refused with a DeleteBlockedError.
func (t *TopicTree) Delete(ctx context.Context, actorID, topicID int64) error {
	topic, err := t.Get(ctx, topicID)
	if err != nil {
		return err
	}
	if err := t.eval.Require(ctx, actorID, topic.LibraryID, permissions.Delete); err != nil {
		return err
	}

	var children int
	if err := t.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM topics WHERE parent_topic_id = $1`, topicID).Scan(&children); err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}
	if children > 0 {
		return &docerr.DeleteBlockedError{TopicID: topicID, Reason: docerr.DeleteBlockedChildren}
	}

	var documents int
	if err := t.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE topic_id = $1`, topicID).Scan(&documents); err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	if documents > 0 {
		return &docerr.DeleteBlockedError{TopicID: topicID, Reason: docerr.DeleteBlockedDocuments}
	}

	if _, err := t.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, topicID); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	t.afterMutation(ctx, "delete", topic.LibraryID)
	return nil
}

func (t *TopicTree) afterMutation(ctx context.Context, operation string, libraryID int64) {
	if t.metrics != nil {
		t.metrics.ObserveTopicMutation(operation)
	}
	if t.cache != nil {
		_ = t.cache.InvalidateHierarchy(ctx, libraryID)
	}
}

func (t *TopicTree) observeCycleRejection() {
	if t.metrics != nil {
		t.metrics.ObserveCycleRejection()
	}
}
