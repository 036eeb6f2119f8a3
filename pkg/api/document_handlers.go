package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/documents"
	"github.com/docshelf/docshelf/pkg/httputil"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger files spill to temp files.
const maxMultipartMemory = 8 << 20

// uploadDocument accepts a multipart form with a "file" part and
// "topic_id" and "title" fields.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	topicID, err := strconv.ParseInt(r.FormValue("topic_id"), 10, 64)
	if err != nil || topicID <= 0 {
		httputil.WriteBadRequest(w, "topic_id is required")
		return
	}
	title := r.FormValue("title")
	if !httputil.RequireNonEmpty(w, title, "title") {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file part is required")
		return
	}
	defer file.Close()

	doc, err := s.gate.Store(r.Context(), actorFrom(r), documents.Upload{
		TopicID:     topicID,
		Title:       title,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, file)
	if err != nil {
		s.recordAudit(r, &audit.Event{
			EventType:    audit.EventTypeUploadRejected,
			Status:       audit.EventStatusFailure,
			ResourceType: audit.ResourceTypeDocument,
			Message:      err.Error(),
		})
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDocumentUpload,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDocument,
		ResourceID:   strconv.FormatInt(doc.ID, 10),
		Message:      "uploaded " + doc.FileName,
	})
	httputil.WriteCreated(w, doc)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := httputil.ParsePathInt64OrError(w, r, "documentId")
	if !ok {
		return
	}

	doc, err := s.gate.Get(r.Context(), actorFrom(r), documentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, doc)
}

func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := httputil.ParsePathInt64OrError(w, r, "documentId")
	if !ok {
		return
	}

	doc, content, err := s.gate.Open(r.Context(), actorFrom(r), documentID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	defer content.Close()

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDocumentDownload,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDocument,
		ResourceID:   strconv.FormatInt(doc.ID, 10),
	})

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	io.Copy(w, content)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := httputil.ParsePathInt64OrError(w, r, "documentId")
	if !ok {
		return
	}

	if err := s.gate.Delete(r.Context(), actorFrom(r), documentID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordAudit(r, &audit.Event{
		EventType:    audit.EventTypeDocumentDelete,
		Status:       audit.EventStatusSuccess,
		ResourceType: audit.ResourceTypeDocument,
		ResourceID:   strconv.FormatInt(documentID, 10),
	})
	httputil.WriteNoContent(w)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	topicID, ok := httputil.ParsePathInt64OrError(w, r, "topicId")
	if !ok {
		return
	}

	var docs []documents.Document
	var err error
	if query := r.URL.Query().Get("q"); query != "" {
		docs, err = s.gate.Search(r.Context(), actorFrom(r), topicID, query)
	} else {
		docs, err = s.gate.ListByTopic(r.Context(), actorFrom(r), topicID)
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, docs)
}
