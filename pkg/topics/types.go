package topics

import "time"

// Topic is a node in a library's topic tree. Path is the materialized
// slash-joined chain of names from the root, maintained by the service
// on every rename and move.
type Topic struct {
	ID            int64     `json:"id"`
	LibraryID     int64     `json:"library_id"`
	ParentTopicID *int64    `json:"parent_topic_id,omitempty"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewTopic is the creation request for a topic.
type NewTopic struct {
	LibraryID     int64  `json:"library_id"`
	ParentTopicID *int64 `json:"parent_topic_id,omitempty"`
	Name          string `json:"name"`
}

// Node is a topic with its children, as returned by Hierarchy.
type Node struct {
	Topic
	Children []*Node `json:"children"`
}
