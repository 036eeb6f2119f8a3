package topics

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/storage"
)

type fakeOracle struct {
	admins map[int64]bool
}

func (f *fakeOracle) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return f.admins[userID], nil
}

func (f *fakeOracle) DepartmentOf(ctx context.Context, userID int64) (*int64, error) {
	return nil, nil
}

type fakePermStore struct {
	entries map[string]*permissions.Entry
}

func permKey(userID, libraryID int64) string {
	return fmt.Sprintf("%d:%d", userID, libraryID)
}

func (f *fakePermStore) Get(ctx context.Context, userID, libraryID int64) (*permissions.Entry, error) {
	if entry, ok := f.entries[permKey(userID, libraryID)]; ok {
		return entry, nil
	}
	return nil, docerr.ErrNotFound
}

func (f *fakePermStore) Grant(ctx context.Context, entry permissions.Entry) (*permissions.Entry, error) {
	return &entry, nil
}
func (f *fakePermStore) Revoke(ctx context.Context, userID, libraryID int64) error { return nil }
func (f *fakePermStore) ListByLibrary(ctx context.Context, libraryID int64) ([]permissions.Entry, error) {
	return nil, nil
}
func (f *fakePermStore) ListByUser(ctx context.Context, userID int64) ([]permissions.Entry, error) {
	return nil, nil
}
func (f *fakePermStore) DeleteByLibrary(ctx context.Context, libraryID int64) (int64, error) {
	return 0, nil
}

// writerEvaluator grants full rights to user 1 and nothing to anyone else.
func writerEvaluator() *permissions.Evaluator {
	store := &fakePermStore{entries: map[string]*permissions.Entry{
		permKey(1, 10): {UserID: 1, LibraryID: 10, CanRead: true, CanWrite: true, CanDelete: true},
	}}
	return permissions.NewEvaluator(&fakeOracle{}, store, nil, nil)
}

func topicRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "library_id", "parent_topic_id", "name", "path", "created_at", "updated_at"})
}

func newTree(t *testing.T) (*TopicTree, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTopicTree(db, writerEvaluator(), nil, nil), mock
}

func TestTopicTreeCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("root topic path is its name", func(t *testing.T) {
		tree, mock := newTree(t)

		mock.ExpectQuery("INSERT INTO topics").
			WithArgs(int64(10), nil, "Policies", "Policies").
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))

		topic, err := tree.Create(ctx, 1, NewTopic{LibraryID: 10, Name: "Policies"})
		require.NoError(t, err)
		assert.Equal(t, "Policies", topic.Path)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("child path extends the parent path", func(t *testing.T) {
		tree, mock := newTree(t)
		parentID := int64(1)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(parentID).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))
		mock.ExpectQuery("INSERT INTO topics").
			WithArgs(int64(10), parentID, "HR", "Policies/HR").
			WillReturnRows(topicRows().AddRow(2, 10, parentID, "HR", "Policies/HR", now, now))

		topic, err := tree.Create(ctx, 1, NewTopic{LibraryID: 10, ParentTopicID: &parentID, Name: "HR"})
		require.NoError(t, err)
		assert.Equal(t, "Policies/HR", topic.Path)
	})

	t.Run("parent in another library is rejected", func(t *testing.T) {
		tree, mock := newTree(t)
		parentID := int64(1)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(parentID).
			WillReturnRows(topicRows().AddRow(1, 99, nil, "Policies", "Policies", now, now))

		_, err := tree.Create(ctx, 1, NewTopic{LibraryID: 10, ParentTopicID: &parentID, Name: "HR"})
		require.True(t, docerr.IsValidation(err))
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		tree, _ := newTree(t)
		_, err := tree.Create(ctx, 1, NewTopic{LibraryID: 10, Name: "   "})
		require.True(t, docerr.IsValidation(err))
	})

	t.Run("actor without write is forbidden", func(t *testing.T) {
		tree, _ := newTree(t)
		_, err := tree.Create(ctx, 2, NewTopic{LibraryID: 10, Name: "Policies"})
		require.ErrorIs(t, err, docerr.ErrForbidden)
	})
}

func TestTopicTreeRename(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("rewrites descendant paths in one transaction", func(t *testing.T) {
		tree, mock := newTree(t)

		// "Policies" with child "Policies/HR" and grandchild
		// "Policies/HR/Leave" renamed to "Policy".
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(1)).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE topics SET name").
			WithArgs("Policy", "Policy", int64(1)).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policy", "Policy", now, now))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "HR"))
		mock.ExpectExec("UPDATE topics SET path").
			WithArgs("Policy/HR", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Leave"))
		mock.ExpectExec("UPDATE topics SET path").
			WithArgs("Policy/HR/Leave", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		mock.ExpectCommit()

		topic, err := tree.Rename(ctx, 1, 1, "Policy")
		require.NoError(t, err)
		assert.Equal(t, "Policy", topic.Path)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested topic keeps its prefix", func(t *testing.T) {
		tree, mock := newTree(t)
		parentID := int64(1)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, parentID, "HR", "Policies/HR", now, now))

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE topics SET name").
			WithArgs("People", "Policies/People", int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, parentID, "People", "Policies/People", now, now))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		mock.ExpectCommit()

		topic, err := tree.Rename(ctx, 1, 2, "People")
		require.NoError(t, err)
		assert.Equal(t, "Policies/People", topic.Path)
	})

	t.Run("name with slash is rejected", func(t *testing.T) {
		tree, _ := newTree(t)
		_, err := tree.Rename(ctx, 1, 1, "a/b")
		require.True(t, docerr.IsValidation(err))
	})
}

func TestTopicTreeMove(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("move under a descendant is rejected", func(t *testing.T) {
		tree, mock := newTree(t)
		topID := int64(1)
		childID := int64(2)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(topID).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(childID).
			WillReturnRows(topicRows().AddRow(2, 10, topID, "HR", "Policies/HR", now, now))
		// Walking up from the proposed parent hits the moving topic.
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(topID).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))
		mock.ExpectRollback()

		_, err := tree.Move(ctx, 1, topID, &childID)
		require.True(t, docerr.IsValidation(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("self parent is rejected without touching the database", func(t *testing.T) {
		tree, mock := newTree(t)
		topID := int64(1)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(topID).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))

		_, err := tree.Move(ctx, 1, topID, &topID)
		require.True(t, docerr.IsValidation(err))
	})

	t.Run("move to root resets the path", func(t *testing.T) {
		tree, mock := newTree(t)
		parentID := int64(1)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, parentID, "HR", "Policies/HR", now, now))

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE topics SET parent_topic_id").
			WithArgs(nil, "HR", int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, nil, "HR", "HR", now, now))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		mock.ExpectCommit()

		topic, err := tree.Move(ctx, 1, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, "HR", topic.Path)
		assert.Nil(t, topic.ParentTopicID)
	})

	t.Run("move under a sibling rewrites the subtree", func(t *testing.T) {
		tree, mock := newTree(t)
		newParentID := int64(5)

		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, nil, "HR", "HR", now, now))

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(newParentID).
			WillReturnRows(topicRows().AddRow(5, 10, nil, "Ops", "Ops", now, now))
		mock.ExpectQuery("UPDATE topics SET parent_topic_id").
			WithArgs(newParentID, "Ops/HR", int64(2)).
			WillReturnRows(topicRows().AddRow(2, 10, newParentID, "HR", "Ops/HR", now, now))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Leave"))
		mock.ExpectExec("UPDATE topics SET path").
			WithArgs("Ops/HR/Leave", int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT id, name FROM topics WHERE parent_topic_id").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
		mock.ExpectCommit()

		topic, err := tree.Move(ctx, 1, 2, &newParentID)
		require.NoError(t, err)
		assert.Equal(t, "Ops/HR", topic.Path)
	})
}

func TestTopicTreeDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	expectGet := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(1)).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))
	}

	t.Run("blocked by children", func(t *testing.T) {
		tree, mock := newTree(t)
		expectGet(mock)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM topics").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		err := tree.Delete(ctx, 1, 1)
		reason, blocked := docerr.IsDeleteBlocked(err)
		require.True(t, blocked)
		assert.Equal(t, docerr.DeleteBlockedChildren, reason)
	})

	t.Run("blocked by documents", func(t *testing.T) {
		tree, mock := newTree(t)
		expectGet(mock)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM topics").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := tree.Delete(ctx, 1, 1)
		reason, blocked := docerr.IsDeleteBlocked(err)
		require.True(t, blocked)
		assert.Equal(t, docerr.DeleteBlockedDocuments, reason)
	})

	t.Run("empty topic is deleted", func(t *testing.T) {
		tree, mock := newTree(t)
		expectGet(mock)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM topics").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("DELETE FROM topics").
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, tree.Delete(ctx, 1, 1))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("actor without delete is forbidden", func(t *testing.T) {
		tree, mock := newTree(t)
		mock.ExpectQuery("SELECT (.+) FROM topics WHERE id").
			WithArgs(int64(1)).
			WillReturnRows(topicRows().AddRow(1, 10, nil, "Policies", "Policies", now, now))

		err := tree.Delete(ctx, 2, 1)
		require.ErrorIs(t, err, docerr.ErrForbidden)
	})
}

func TestBuildForest(t *testing.T) {
	parentID := int64(1)
	topics := []Topic{
		{ID: 1, Name: "Policies", Path: "Policies"},
		{ID: 2, ParentTopicID: &parentID, Name: "HR", Path: "Policies/HR"},
		{ID: 3, Name: "Ops", Path: "Ops"},
	}

	forest := buildForest(topics)
	require.Len(t, forest, 2)
	assert.Equal(t, "Policies", forest[0].Name)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "HR", forest[0].Children[0].Name)
	assert.Empty(t, forest[1].Children)
}

// The queries in this package name columns the migrations must declare;
// a column added here without a matching migration only surfaces
// against a real database.
func TestTopicColumnsMatchMigration(t *testing.T) {
	var topicsDDL string
	for _, m := range storage.Migrations() {
		if strings.Contains(m.SQL, "CREATE TABLE IF NOT EXISTS topics") {
			topicsDDL = m.SQL
			break
		}
	}
	require.NotEmpty(t, topicsDDL, "no migration creates the topics table")

	for _, column := range strings.Split(topicColumns, ", ") {
		assert.Contains(t, topicsDDL, column, "column %q missing from topics migration", column)
	}
}

func TestTopicTreeSearch(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	tree, mock := newTree(t)

	mock.ExpectQuery("SELECT (.+) FROM topics(.+)name ILIKE").
		WithArgs(int64(10), "pol").
		WillReturnRows(topicRows().
			AddRow(1, 10, nil, "Policies", "Policies", now, now).
			AddRow(3, 10, int64(1), "HR Policies", "Policies/HR Policies", now, now))

	topics, err := tree.Search(ctx, 10, "pol")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Policies", topics[0].Name)
	assert.Equal(t, "Policies/HR Policies", topics[1].Path)
}
