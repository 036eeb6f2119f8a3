package api

import (
	"net/http"
	"strconv"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/permissions"
)

// Managing a library's ACL requires the delete right on that library;
// admins qualify through the override.

type grantRequest struct {
	UserID    int64 `json:"user_id"`
	CanRead   bool  `json:"can_read"`
	CanWrite  bool  `json:"can_write"`
	CanDelete bool  `json:"can_delete"`
}

func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	var req grantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.UserID, "user_id") {
		return
	}

	ctx := r.Context()
	if err := s.eval.Require(ctx, actorFrom(r), libraryID, permissions.Delete); err != nil {
		s.recordAudit(r, &audit.Event{
			EventType:    audit.EventTypeAccessDenied,
			Status:       audit.EventStatusDenied,
			LibraryID:    &libraryID,
			ResourceType: audit.ResourceTypePermission,
		})
		httputil.WriteDomainError(w, err)
		return
	}

	// The grantee must exist; a typo'd ID should not create a grant.
	if _, err := s.directory.Get(ctx, req.UserID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	entry, err := s.permStore.Grant(ctx, permissions.Entry{
		UserID:    req.UserID,
		LibraryID: libraryID,
		CanRead:   req.CanRead,
		CanWrite:  req.CanWrite,
		CanDelete: req.CanDelete,
	})
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	s.eval.Invalidate(ctx, req.UserID, libraryID)

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypePermissionGrant,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &libraryID,
		ResourceType: audit.ResourceTypePermission,
		ResourceID:   strconv.FormatInt(req.UserID, 10),
	})
	httputil.WriteSuccess(w, entry)
}

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := s.eval.Require(ctx, actorFrom(r), libraryID, permissions.Read); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	entries, err := s.permStore.ListByLibrary(ctx, libraryID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}

func (s *Server) revokePermission(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := s.eval.Require(ctx, actorFrom(r), libraryID, permissions.Delete); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	if err := s.permStore.Revoke(ctx, userID, libraryID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	s.eval.Invalidate(ctx, userID, libraryID)

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypePermissionRevoke,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &libraryID,
		ResourceType: audit.ResourceTypePermission,
		ResourceID:   strconv.FormatInt(userID, 10),
	})
	httputil.WriteNoContent(w)
}

// listUserPermissions lets users see their own grants; seeing someone
// else's requires admin.
func (s *Server) listUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	ctx := r.Context()
	actorID := actorFrom(r)
	if userID != actorID {
		isAdmin, err := s.directory.IsAdmin(ctx, actorID)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		if !isAdmin {
			httputil.WriteForbidden(w, "access denied")
			return
		}
	}

	entries, err := s.permStore.ListByUser(ctx, userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}
