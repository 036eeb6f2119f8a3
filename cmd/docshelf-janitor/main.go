package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/docshelf/docshelf/pkg/audit"
	"github.com/docshelf/docshelf/pkg/storage"
)

// The janitor runs the periodic maintenance jobs that the API server
// leaves behind: pruning old audit logs, removing permission entries
// whose library is gone, and sweeping document files that no row
// references anymore.

const (
	defaultAuditRetentionDays = 90
	defaultSchedule           = "0 3 * * *" // daily at 03:00
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	url := os.Getenv("DOCSHELF_POSTGRES_URL")
	if url == "" {
		log.Fatal("DOCSHELF_POSTGRES_URL is required")
	}

	retentionDays := defaultAuditRetentionDays
	if v := os.Getenv("DOCSHELF_AUDIT_RETENTION_DAYS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			log.WithField("value", v).Fatal("invalid DOCSHELF_AUDIT_RETENTION_DAYS")
		}
		retentionDays = parsed
	}

	schedule := os.Getenv("DOCSHELF_JANITOR_SCHEDULE")
	if schedule == "" {
		schedule = defaultSchedule
	}
	filesBasePath := os.Getenv("DOCSHELF_FILES_BASE_PATH")

	db, err := storage.Connect(storage.DefaultConnectConfig(url))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	auditor, err := audit.NewDBLogger(db)
	if err != nil {
		log.WithError(err).Fatal("failed to create audit logger")
	}

	janitor := &janitor{
		db:            db,
		auditor:       auditor,
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		filesBasePath: filesBasePath,
		log:           log,
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, janitor.runAll); err != nil {
		log.WithError(err).Fatal("invalid janitor schedule")
	}

	log.WithFields(logrus.Fields{
		"schedule":       schedule,
		"retention_days": retentionDays,
	}).Info("janitor started")

	if os.Getenv("DOCSHELF_JANITOR_RUN_ON_START") == "true" {
		janitor.runAll()
	}
	c.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	<-c.Stop().Done()
	log.Info("janitor stopped")
}

type janitor struct {
	db            *sql.DB
	auditor       *audit.DBLogger
	retention     time.Duration
	filesBasePath string
	log           *logrus.Logger
}

func (j *janitor) runAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	j.pruneAuditLogs(ctx)
	j.reapOrphanedPermissions(ctx)
	if j.filesBasePath != "" {
		j.sweepOrphanedFiles(ctx)
	}
}

func (j *janitor) pruneAuditLogs(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	pruned, err := j.auditor.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.log.WithError(err).Error("failed to prune audit logs")
		return
	}
	j.log.WithFields(logrus.Fields{
		"pruned": pruned,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("audit logs pruned")
}

// reapOrphanedPermissions removes permission entries whose library no
// longer exists. Library deletion clears its own entries in the same
// transaction, so orphans only appear after manual database surgery,
// but they would grant rights on a recycled ID if left behind.
func (j *janitor) reapOrphanedPermissions(ctx context.Context) {
	result, err := j.db.ExecContext(ctx, `
		DELETE FROM library_permissions
		WHERE library_id NOT IN (SELECT id FROM libraries)`)
	if err != nil {
		j.log.WithError(err).Error("failed to reap orphaned permissions")
		return
	}
	reaped, err := result.RowsAffected()
	if err != nil {
		j.log.WithError(err).Error("failed to count reaped permissions")
		return
	}
	if reaped > 0 {
		j.log.WithField("reaped", reaped).Warn("orphaned permission entries removed")
	}
}

// sweepOrphanedFiles removes stored files that no document row
// references. Document deletion removes its file best-effort, so a
// crash between row delete and file delete leaves one behind.
func (j *janitor) sweepOrphanedFiles(ctx context.Context) {
	rows, err := j.db.QueryContext(ctx, `SELECT storage_key FROM documents`)
	if err != nil {
		j.log.WithError(err).Error("failed to list storage keys")
		return
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			j.log.WithError(err).Error("failed to scan storage key")
			return
		}
		known[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		j.log.WithError(err).Error("failed to list storage keys")
		return
	}

	entries, err := os.ReadDir(j.filesBasePath)
	if err != nil {
		j.log.WithError(err).Error("failed to read files directory")
		return
	}

	swept := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := known[entry.Name()]; ok {
			continue
		}
		// Skip files younger than an hour; an upload may have written
		// the file but not committed its row yet.
		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) < time.Hour {
			continue
		}
		if err := os.Remove(j.filesBasePath + "/" + entry.Name()); err != nil {
			j.log.WithError(err).WithField("file", entry.Name()).Error("failed to remove orphaned file")
			continue
		}
		swept++
	}
	if swept > 0 {
		j.log.WithField("swept", swept).Info("orphaned files removed")
	}
}
