package documents

import "time"

// Document is stored file metadata. The bytes live on disk under the
// configured base path, named by StorageKey.
type Document struct {
	ID          int64     `json:"id"`
	TopicID     int64     `json:"topic_id"`
	Title       string    `json:"title"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Upload is the request to store a new document under a topic.
type Upload struct {
	TopicID     int64  `json:"topic_id"`
	Title       string `json:"title"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
