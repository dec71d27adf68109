package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/quantply/fundsim/internal/modules/performance"
)

// MaintenanceJob evicts expired entries from the metrics cache
type MaintenanceJob struct {
	cache *performance.Cache
	log   zerolog.Logger
}

// NewMaintenanceJob creates the cache maintenance job
func NewMaintenanceJob(cache *performance.Cache, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		cache: cache,
		log:   log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "cache_maintenance"
}

// Run executes one maintenance cycle
func (j *MaintenanceJob) Run() error {
	return j.cache.Purge()
}
