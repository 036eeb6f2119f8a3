package api

import (
	"net/http"
	"strconv"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/permissions"
	"github.com/docshelf/docshelf/pkg/topics"
)

func (s *Server) createTopic(w http.ResponseWriter, r *http.Request) {
	var req topics.NewTopic
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequirePositive(w, req.LibraryID, "library_id") {
		return
	}

	topic, err := s.tree.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeTopicCreate,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &topic.LibraryID,
		ResourceType: audit.ResourceTypeTopic,
		ResourceID:   strconv.FormatInt(topic.ID, 10),
		Message:      "created topic " + topic.Path,
	})
	httputil.WriteCreated(w, topic)
}

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}

	ctx := r.Context()
	topic, err := s.tree.Get(ctx, topicID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if err := s.eval.Require(ctx, actorFrom(r), topic.LibraryID, permissions.Read); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, topic)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) renameTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}

	var req renameRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	topic, err := s.tree.Rename(r.Context(), actorFrom(r), topicID, req.Name)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeTopicRename,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &topic.LibraryID,
		ResourceType: audit.ResourceTypeTopic,
		ResourceID:   strconv.FormatInt(topic.ID, 10),
		Message:      "renamed topic to " + topic.Path,
	})
	httputil.WriteSuccess(w, topic)
}

type moveRequest struct {
	ParentTopicID *int64 `json:"parent_topic_id"`
}

func (s *Server) moveTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}

	var req moveRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	topic, err := s.tree.Move(r.Context(), actorFrom(r), topicID, req.ParentTopicID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeTopicMove,
		Status:       audit.EventStatusSuccess,
		LibraryID:    &topic.LibraryID,
		ResourceType: audit.ResourceTypeTopic,
		ResourceID:   strconv.FormatInt(topic.ID, 10),
		Message:      "moved topic to " + topic.Path,
	})
	httputil.WriteSuccess(w, topic)
}

func (s *Server) deleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}

	if err := s.tree.Delete(r.Context(), actorFrom(r), topicID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeTopicDelete,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeTopic,
		ResourceID:   strconv.FormatInt(topicID, 10),
	})
	httputil.WriteNoContent(w)
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := s.eval.Require(ctx, actorFrom(r), libraryID, permissions.Read); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	var list []topics.Topic
	var err error
	if query := r.URL.Query().Get("q"); query != "" {
		list, err = s.tree.Search(ctx, libraryID, query)
	} else {
		list, err = s.tree.ListByLibrary(ctx, libraryID)
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) getHierarchy(w http.ResponseWriter, r *http.Request) {
	libraryID, ok := httputil.ParsePathInt64OrError(w, r, "libraryId")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := s.eval.Require(ctx, actorFrom(r), libraryID, permissions.Read); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	forest, err := s.tree.Hierarchy(ctx, libraryID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, forest)
}
