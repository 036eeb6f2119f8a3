package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/identity"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/storage"
)

// Evaluator computes effective rights for (user, library) pairs by
// combining the global admin flag with the stored ACL. An optional
// Redis cache absorbs repeated checks; cache failures fall through to
// the database.
type Evaluator struct {
	oracle  identity.Oracle
	store   Store
	cache   *storage.Cache
	metrics *observability.Metrics
}

// NewEvaluator creates an Evaluator. cache and metrics may be nil.
func NewEvaluator(oracle identity.Oracle, store Store, cache *storage.Cache, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		oracle:  oracle,
		store:   store,
		cache:   cache,
		metrics: metrics,
	}
}

// Rights returns the effective permission triple for a user on a
// library. Admins get everything. A non-admin's triple is exactly the
// flags on their ACL entry; no entry means no rights.
func (e *Evaluator) Rights(ctx context.Context, userID, libraryID int64) (Rights, error) {
	isAdmin, err := e.oracle.IsAdmin(ctx, userID)
	if err != nil {
		return Rights{}, fmt.Errorf("failed to resolve admin status: %w", err)
	}
	if isAdmin {
		if e.metrics != nil {
			e.metrics.ObserveAdminOverride()
		}
		return AllRights(), nil
	}

	if e.cache != nil {
		cached, err := e.cache.GetRights(ctx, userID, libraryID)
		if err == nil && cached != nil {
			if e.metrics != nil {
				e.metrics.ObserveCacheHit("rights")
			}
			return Rights{CanRead: cached.CanRead, CanWrite: cached.CanWrite, CanDelete: cached.CanDelete}, nil
		}
		if e.metrics != nil {
			e.metrics.ObserveCacheMiss("rights")
		}
	}

	rights, err := e.rightsFromStore(ctx, userID, libraryID)
	if err != nil {
		return Rights{}, err
	}

	if e.cache != nil {
		// Best effort; a failed write just means the next check hits
		// the database again.
		_ = e.cache.SetRights(ctx, userID, libraryID, storage.CachedRights{
			CanRead:   rights.CanRead,
			CanWrite:  rights.CanWrite,
			CanDelete: rights.CanDelete,
		})
	}
	return rights, nil
}

func (e *Evaluator) rightsFromStore(ctx context.Context, userID, libraryID int64) (Rights, error) {
	entry, err := e.store.Get(ctx, userID, libraryID)
	if errors.Is(err, docerr.ErrNotFound) {
		return Rights{}, nil
	} else if err != nil {
		return Rights{}, err
	}

	return Rights{
		CanRead:   entry.CanRead,
		CanWrite:  entry.CanWrite,
		CanDelete: entry.CanDelete,
	}, nil
}

// Allowed reports whether the user holds the given right on the library.
func (e *Evaluator) Allowed(ctx context.Context, userID, libraryID int64, right Right) (bool, error) {
	rights, err := e.Rights(ctx, userID, libraryID)
	if err != nil {
		return false, err
	}

	allowed := rights.Has(right)
	if e.metrics != nil {
		e.metrics.ObserveAccessCheck(string(right), allowed)
	}
	return allowed, nil
}

// Require returns ErrForbidden unless the user holds the given right.
func (e *Evaluator) Require(ctx context.Context, userID, libraryID int64, right Right) error {
	allowed, err := e.Allowed(ctx, userID, libraryID, right)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("user %d lacks %s on library %d: %w", userID, right, libraryID, docerr.ErrForbidden)
	}
	return nil
}

// Invalidate drops any cached rights for (user, library). Grant and
// revoke paths call this so changes take effect ahead of TTL expiry.
func (e *Evaluator) Invalidate(ctx context.Context, userID, libraryID int64) {
	if e.cache != nil {
		_ = e.cache.InvalidateRights(ctx, userID, libraryID)
	}
}

// InvalidateLibrary drops all cached rights on a library.
func (e *Evaluator) InvalidateLibrary(ctx context.Context, libraryID int64) {
	if e.cache != nil {
		_ = e.cache.InvalidateLibrary(ctx, libraryID)
	}
}
