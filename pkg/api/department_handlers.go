package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/catalog"
	"github.com/docshelf/docshelf/pkg/docerr"
	"github.com/docshelf/docshelf/pkg/httputil"
)

func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewDepartment
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	dept, err := s.departments.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDepartmentCreate,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDepartment,
		ResourceID:   strconv.FormatInt(dept.ID, 10),
		Message:      "created department " + dept.Name,
	})
	httputil.WriteCreated(w, dept)
}

func (s *Server) listDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.departments.List(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, departments)
}

func (s *Server) getDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := httputil.ParsePathInt64OrError(w, r, "departmentId")
	if !ok {
		return
	}

	dept, err := s.departments.Get(r.Context(), departmentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, dept)
}

func (s *Server) updateDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := httputil.ParsePathInt64OrError(w, r, "departmentId")
	if !ok {
		return
	}

	var req catalog.UpdateDepartment
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	dept, err := s.departments.Update(r.Context(), actorFrom(r), departmentID, req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDepartmentUpdate,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDepartment,
		ResourceID:   strconv.FormatInt(dept.ID, 10),
		Message:      "updated department " + dept.Name,
	})
	httputil.WriteSuccess(w, dept)
}

func (s *Server) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := httputil.ParsePathInt64OrError(w, r, "departmentId")
	if !ok {
		return
	}

	if err := s.departments.Delete(r.Context(), actorFrom(r), departmentID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDepartmentDelete,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDepartment,
		ResourceID:   strconv.FormatInt(departmentID, 10),
	})
	httputil.WriteNoContent(w)
}

// listDepartmentMembers is visible to admins and to members of the
// department itself.
func (s *Server) listDepartmentMembers(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := httputil.ParsePathInt64OrError(w, r, "departmentId")
	if !ok {
		return
	}

	ctx := r.Context()
	actorID := actorFrom(r)
	isAdmin, err := s.directory.IsAdmin(ctx, actorID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if !isAdmin {
		actorDept, err := s.directory.DepartmentOf(ctx, actorID)
		if errors.Is(err, docerr.ErrNotFound) {
			httputil.WriteForbidden(w, "access denied")
			return
		} else if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		if actorDept == nil || *actorDept != departmentID {
			httputil.WriteForbidden(w, "access denied")
			return
		}
	}

	if _, err := s.departments.Get(ctx, departmentID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	members, err := s.directory.ListByDepartment(ctx, departmentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

func (s *Server) getDepartmentLibrary(w http.ResponseWriter, r *http.Request) {
	departmentID, ok := httputil.ParsePathInt64OrError(w, r, "departmentId")
	if !ok {
		return
	}

	library, err := s.libraries.GetByDepartment(r.Context(), departmentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, library)
}
