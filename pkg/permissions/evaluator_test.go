package permissions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/docerr"
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

type fakeStore struct {
	entries map[string]*Entry
}

func storeKey(userID, libraryID int64) string {
	return fmt.Sprintf("%d:%d", userID, libraryID)
}

func (f *fakeStore) Get(ctx context.Context, userID, libraryID int64) (*Entry, error) {
	if entry, ok := f.entries[storeKey(userID, libraryID)]; ok {
		return entry, nil
	}
	return nil, docerr.ErrNotFound
}

func (f *fakeStore) Grant(ctx context.Context, entry Entry) (*Entry, error) { return &entry, nil }
func (f *fakeStore) Revoke(ctx context.Context, userID, libraryID int64) error {
	return nil
}
func (f *fakeStore) ListByLibrary(ctx context.Context, libraryID int64) ([]Entry, error) {
	return nil, nil
}
func (f *fakeStore) ListByUser(ctx context.Context, userID int64) ([]Entry, error) {
	return nil, nil
}
func (f *fakeStore) DeleteByLibrary(ctx context.Context, libraryID int64) (int64, error) {
	return 0, nil
}

func newEvaluatorFixture(admins map[int64]bool, entries map[string]*Entry) *Evaluator {
	return NewEvaluator(&fakeOracle{admins: admins}, &fakeStore{entries: entries}, nil, nil)
}

func TestEvaluatorRights(t *testing.T) {
	ctx := context.Background()

	t.Run("admin holds every right without an entry", func(t *testing.T) {
		eval := newEvaluatorFixture(map[int64]bool{1: true}, nil)

		rights, err := eval.Rights(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, AllRights(), rights)
	})

	t.Run("no entry means no rights", func(t *testing.T) {
		eval := newEvaluatorFixture(nil, nil)

		rights, err := eval.Rights(ctx, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, Rights{}, rights)
	})

	t.Run("entry flags are returned as granted", func(t *testing.T) {
		eval := newEvaluatorFixture(nil, map[string]*Entry{
			storeKey(2, 10): {UserID: 2, LibraryID: 10, CanRead: true, CanWrite: true},
		})

		rights, err := eval.Rights(ctx, 2, 10)
		require.NoError(t, err)
		assert.True(t, rights.CanRead)
		assert.True(t, rights.CanWrite)
		assert.False(t, rights.CanDelete)
	})

	t.Run("read denied when the entry does not grant it", func(t *testing.T) {
		eval := newEvaluatorFixture(nil, map[string]*Entry{
			storeKey(2, 10): {UserID: 2, LibraryID: 10, CanRead: false, CanWrite: true},
		})

		rights, err := eval.Rights(ctx, 2, 10)
		require.NoError(t, err)
		assert.False(t, rights.CanRead)
		assert.True(t, rights.CanWrite)

		allowed, err := eval.Allowed(ctx, 2, 10, Read)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestEvaluatorAllowed(t *testing.T) {
	ctx := context.Background()
	eval := newEvaluatorFixture(nil, map[string]*Entry{
		storeKey(2, 10): {UserID: 2, LibraryID: 10, CanRead: true, CanDelete: true},
	})

	tests := []struct {
		right Right
		want  bool
	}{
		{Read, true},
		{Write, false},
		{Delete, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.right), func(t *testing.T) {
			allowed, err := eval.Allowed(ctx, 2, 10, tt.right)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestEvaluatorRequire(t *testing.T) {
	ctx := context.Background()
	eval := newEvaluatorFixture(map[int64]bool{1: true}, nil)

	t.Run("admin passes", func(t *testing.T) {
		require.NoError(t, eval.Require(ctx, 1, 10, Delete))
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		err := eval.Require(ctx, 3, 10, Read)
		require.ErrorIs(t, err, docerr.ErrForbidden)
	})
}
