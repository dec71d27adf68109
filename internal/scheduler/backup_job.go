package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/reliability"
)

const (
	backupTimeout       = 10 * time.Minute
	backupRetentionDays = 30
)

// BackupJob snapshots all databases and uploads them to S3, rotating old
// archives afterwards
type BackupJob struct {
	backup *reliability.BackupService
	log    zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(backup *reliability.BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backup: backup,
		log:    log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run executes one backup cycle
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.backup.CreateAndUpload(ctx); err != nil {
		return err
	}

	return j.backup.RotateOldBackups(ctx, backupRetentionDays)
}
