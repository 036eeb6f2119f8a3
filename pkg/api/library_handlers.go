package api

import (
	"net/http"
	"strconv"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/catalog"
	"github.com/docshelf/docshelf/pkg/httputil"
)

func (s *Server) createLibrary(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewLibrary
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.DepartmentID, "department_id") {
		return
	}

	library, err := s.libraries.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeLibraryCreate,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &library.ID,
		ResourceType: audit.ResourceTypeLibrary,
		ResourceID:   strconv.FormatInt(library.ID, 10),
		Message:      "created library " + library.Name,
	})
	httputil.WriteCreated(w, library)
}

// listLibraries returns active libraries, filtered to those the actor
// can read unless ?all=true is set (which shows metadata only and is
// mainly for admins browsing).
func (s *Server) listLibraries(w http.ResponseWriter, r *http.Request) {
	libraries, err := s.libraries.List(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	all, err := httputil.ParseQueryBool(r, "all", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !all {
		libraries, err = s.libraries.Readable(r.Context(), actorFrom(r), libraries)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
	}
	httputil.WriteSuccess(w, libraries)
}

func (s *Server) getLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	library, err := s.libraries.Get(r.Context(), libraryID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, library)
}

func (s *Server) updateLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	var req catalog.UpdateLibrary
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	library, err := s.libraries.Update(r.Context(), actorFrom(r), libraryID, req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeLibraryUpdate,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &library.ID,
		ResourceType: audit.ResourceTypeLibrary,
		ResourceID:   strconv.FormatInt(library.ID, 10),
		Message:      "updated library " + library.Name,
	})
	httputil.WriteSuccess(w, library)
}

func (s *Server) deleteLibrary(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	if err := s.libraries.Delete(r.Context(), actorFrom(r), libraryID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeLibraryDelete,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &libraryID,
		ResourceType: audit.ResourceTypeLibrary,
		ResourceID:   strconv.FormatInt(libraryID, 10),
	})
	httputil.WriteNoContent(w)
}
