package audit

import "time"

// EventType represents the category of audit event
type EventType string

const (
	// Authorization events
	EventTypePermissionGrant  EventType = "authz.permission_grant"
	EventTypePermissionRevoke EventType = "authz.permission_revoke"
	EventTypeAccessDenied     EventType = "authz.access_denied"

	// Catalog events
	EventTypeDepartmentCreate EventType = "catalog.department_create"
	EventTypeDepartmentUpdate EventType = "catalog.department_update"
	EventTypeDepartmentDelete EventType = "catalog.department_delete"
	EventTypeLibraryCreate    EventType = "catalog.library_create"
	EventTypeLibraryUpdate    EventType = "catalog.library_update"
	EventTypeLibraryDelete    EventType = "catalog.library_delete"

	// Topic events
	EventTypeTopicCreate EventType = "topic.create"
	EventTypeTopicRename EventType = "topic.rename"
	EventTypeTopicMove   EventType = "topic.move"
	EventTypeTopicDelete EventType = "topic.delete"

	// Document events
	EventTypeDocumentUpload   EventType = "document.upload"
	EventTypeDocumentDownload EventType = "document.download"
	EventTypeDocumentDelete   EventType = "document.delete"
	EventTypeUploadRejected   EventType = "document.upload_rejected"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being acted on
type ResourceType string

const (
	ResourceTypeDepartment ResourceType = "department"
	ResourceTypeLibrary    ResourceType = "library"
	ResourceTypeTopic      ResourceType = "topic"
	ResourceTypeDocument   ResourceType = "document"
	ResourceTypePermission ResourceType = "permission"
)

// Event represents a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor and scope
	UserID    *int64 `json:"user_id,omitempty"`
	LibraryID *int64 `json:"library_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
