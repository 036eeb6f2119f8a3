package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/catalog"
	"github.com/docshelf/docshelf/pkg/documents"
	"github.com/docshelf/docshelf/pkg/identity"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/topics"
)

// Server wires the domain services into an HTTP router.
type Server struct {
	router *mux.Router

	directory   *identity.Directory
	departments *catalog.DepartmentCatalog
	libraries   *catalog.LibraryCatalog
	tree        *topics.TopicTree
	gate        *documents.DocumentGate
	permStore   permissions.Store
	eval        *permissions.Evaluator
	auditor     audit.Logger
	auditReader audit.Reader

	logger  *observability.Logger
	metrics *observability.Metrics
}

// Deps carries everything the server needs. auditor, logger and
// metrics may be nil.
type Deps struct {
	Directory   *identity.Directory
	Departments *catalog.DepartmentCatalog
	Libraries   *catalog.LibraryCatalog
	Tree        *topics.TopicTree
	Gate        *documents.DocumentGate
	PermStore   permissions.Store
	Evaluator   *permissions.Evaluator
	Auditor     audit.Logger
	AuditReader audit.Reader
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		directory:   deps.Directory,
		departments: deps.Departments,
		libraries:   deps.Libraries,
		tree:        deps.Tree,
		gate:        deps.Gate,
		permStore:   deps.PermStore,
		eval:        deps.Evaluator,
		auditor:     deps.Auditor,
		auditReader: deps.AuditReader,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
	s.setupRoutes()
	return s
}

// Router returns the configured handler for an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.actorMiddleware)

	// Department routes
	v1.HandleFunc("/departments", s.createDepartment).Methods("POST")
	v1.HandleFunc("/departments", s.listDepartments).Methods("GET")
	v1.HandleFunc("/departments/{departmentId}", s.getDepartment).Methods("GET")
	v1.HandleFunc("/departments/{departmentId}", s.updateDepartment).Methods("PUT")
	v1.HandleFunc("/departments/{departmentId}", s.deleteDepartment).Methods("DELETE")
	v1.HandleFunc("/departments/{departmentId}/library", s.getDepartmentLibrary).Methods("GET")
	v1.HandleFunc("/departments/{departmentId}/members", s.listDepartmentMembers).Methods("GET")

	// Library routes
	v1.HandleFunc("/libraries", s.createLibrary).Methods("POST")
	v1.HandleFunc("/libraries", s.listLibraries).Methods("GET")
	v1.HandleFunc("/libraries/{libraryId}", s.getLibrary).Methods("GET")
	v1.HandleFunc("/libraries/{libraryId}", s.updateLibrary).Methods("PUT")
	v1.HandleFunc("/libraries/{libraryId}", s.deleteLibrary).Methods("DELETE")
	v1.HandleFunc("/libraries/{libraryId}/topics", s.listTopics).Methods("GET")
	v1.HandleFunc("/libraries/{libraryId}/hierarchy", s.getHierarchy).Methods("GET")

	// Permission routes
	v1.HandleFunc("/libraries/{libraryId}/permissions", s.grantPermission).Methods("PUT")
	v1.HandleFunc("/libraries/{libraryId}/permissions", s.listPermissions).Methods("GET")
	v1.HandleFunc("/libraries/{libraryId}/permissions/{userId}", s.revokePermission).Methods("DELETE")
	v1.HandleFunc("/users/{userId}/permissions", s.listUserPermissions).Methods("GET")

	// Topic routes
	v1.HandleFunc("/topics", s.createTopic).Methods("POST")
	v1.HandleFunc("/topics/{topicId}", s.getTopic).Methods("GET")
	v1.HandleFunc("/topics/{topicId}", s.deleteTopic).Methods("DELETE")
	v1.HandleFunc("/topics/{topicId}/rename", s.renameTopic).Methods("POST")
	v1.HandleFunc("/topics/{topicId}/move", s.moveTopic).Methods("POST")
	v1.HandleFunc("/topics/{topicId}/documents", s.listDocuments).Methods("GET")

	// Document routes
	v1.HandleFunc("/documents", s.uploadDocument).Methods("POST")
	v1.HandleFunc("/documents/{documentId}", s.getDocument).Methods("GET")
	v1.HandleFunc("/documents/{documentId}", s.deleteDocument).Methods("DELETE")
	v1.HandleFunc("/documents/{documentId}/content", s.downloadDocument).Methods("GET")

	// User routes
	v1.HandleFunc("/users", s.listUsers).Methods("GET")
	v1.HandleFunc("/users/{userId}", s.getUser).Methods("GET")

	// Audit routes
	v1.HandleFunc("/audit", s.listAuditEvents).Methods("GET")
}

// recordAudit writes an audit event, logging rather than failing on
// error.
func (s *Server) recordAudit(r *http.Request, event *audit.Event) {
	if s.auditor == nil {
		return
	}
	ctx := r.Context()
	if actorID := observability.GetActorID(ctx); actorID != 0 && event.UserID == nil {
		event.UserID = &actorID
	}
	if err := s.auditor.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to write audit event")
	}
}
