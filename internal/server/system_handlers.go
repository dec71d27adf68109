package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantply/fundsim/internal/database"
)

// DBInfo describes one database file
type DBInfo struct {
	Name    string  `json:"name"`
	SizeMB  float64 `json:"size_mb"`
	Profile string  `json:"profile"`
	Healthy bool    `json:"healthy"`
}

// SystemStatusResponse is the health endpoint payload
type SystemStatusResponse struct {
	Status      string   `json:"status"`
	CPUPercent  float64  `json:"cpu_percent"`
	RAMPercent  float64  `json:"ram_percent"`
	DiskPercent float64  `json:"disk_percent"`
	Databases   []DBInfo `json:"databases"`
	CheckedAt   string   `json:"checked_at"`
}

// SystemHandlers serves system health and database status endpoints
type SystemHandlers struct {
	databases []*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(databases []*database.DB, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleHealth returns a minimal liveness response
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSystemStatus returns host resource usage and per-database health
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.systemStats()

	var diskPercent float64
	if usage, err := disk.Usage(h.dataDir); err == nil {
		diskPercent = usage.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	status := "ok"
	databases := make([]DBInfo, 0, len(h.databases))
	for _, db := range h.databases {
		info := DBInfo{
			Name:    db.Name(),
			Profile: string(db.Profile()),
			Healthy: db.Conn().Ping() == nil,
		}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}
		if !info.Healthy {
			status = "degraded"
		}
		databases = append(databases, info)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(SystemStatusResponse{
		Status:      status,
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		DiskPercent: diskPercent,
		Databases:   databases,
		CheckedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// systemStats samples CPU and RAM usage. The CPU sample interval is kept
// short so the endpoint stays responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
