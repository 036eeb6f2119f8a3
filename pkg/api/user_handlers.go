package api

import (
	"net/http"
	"time"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/httputil"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.List(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	user, err := s.directory.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// listAuditEvents is admin-only: the audit trail names users and
// libraries the caller may not otherwise see.
func (s *Server) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	isAdmin, err := s.directory.IsAdmin(ctx, actorFrom(r))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !isAdmin {
		httputil.WriteForbidden(w, "access denied")
		return
	}

	filter := audit.Search{}
	if userID, err := httputil.ParseQueryInt64(r, "user_id", 0); err == nil && userID > 0 {
		filter.UserID = &userID
	}
	if libraryID, err := httputil.ParseQueryInt64(r, "library_id", 0); err == nil && libraryID > 0 {
		filter.LibraryID = &libraryID
	}
	if limit, err := httputil.ParseQueryInt64(r, "limit", 0); err == nil && limit > 0 {
		filter.Limit = int(limit)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid since timestamp, want RFC3339")
			return
		}
		filter.Since = &ts
	}

	if s.auditReader == nil {
		httputil.WriteSuccess(w, []audit.Event{})
		return
	}
	events, err := s.auditReader.List(ctx, filter)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}
