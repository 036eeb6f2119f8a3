// Package config provides application configuration management.
//
// # Overview
//
// Configuration is assembled from three layers: built-in defaults, an
// optional YAML file named by DOCSHELF_CONFIG_FILE, and DOCSHELF_*
// environment variables. Environment variables win.
//
// # Configuration Structure
//
// Server settings:
//
//	DOCSHELF_HOST="0.0.0.0"
//	DOCSHELF_PORT="8080"
//	DOCSHELF_HEALTH_PORT="9090"
//	DOCSHELF_READ_TIMEOUT="15s"
//	DOCSHELF_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	DOCSHELF_POSTGRES_URL="postgres://localhost/docshelf"
//	DOCSHELF_POSTGRES_MAX_CONNS="20"
//
// Cache settings:
//
//	DOCSHELF_CACHE_ENABLED="true"
//	DOCSHELF_REDIS_URL="redis://localhost:6379"
//	DOCSHELF_RIGHTS_TTL="30s"
//
// Upload policy settings:
//
//	DOCSHELF_ALLOWED_EXTENSIONS=".pdf,.docx,.txt"
//	DOCSHELF_MAX_FILE_SIZE="26214400"
//	DOCSHELF_FILES_BASE_PATH="/var/lib/docshelf/files"
//
// Observability settings:
//
//	DOCSHELF_LOG_LEVEL="info"  # debug, info, warn, error
//	DOCSHELF_METRICS_ENABLED="true"
//
// The upload policy section of the YAML file can be hot-reloaded at
// runtime through PolicyWatcher, which uses fsnotify to pick up edits
// without a restart.
//
// # Related Packages
//
//   - pkg/storage: uses database and cache configuration
//   - pkg/documents: enforces the upload policy
//   - pkg/observability: uses observability configuration
package config
