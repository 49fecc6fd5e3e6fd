// Package health continuously assesses whether the pipeline's
// dependencies are usable. It is purely observational: a degraded
// check never gates the queue.
package health

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"wayuu-ingest/records"
	"wayuu-ingest/ytdlp"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

type Check struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	LastCheck time.Time      `json:"lastCheck"`
	Details   map[string]any `json:"details,omitempty"`
}

type SystemHealth struct {
	Overall    Status        `json:"overall"`
	Checks     []Check       `json:"checks"`
	LastUpdate time.Time     `json:"lastUpdate"`
	Uptime     time.Duration `json:"uptime"`
}

type Monitor struct {
	audioDir  string
	storePath string
	interval  time.Duration
	probeURL  string
	client    *http.Client

	mu      sync.RWMutex
	checks  []Check
	started time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMonitor(audioDir, storePath string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Monitor{
		audioDir:  audioDir,
		storePath: storePath,
		interval:  interval,
		probeURL:  "https://www.youtube.com",
		client:    &http.Client{Timeout: 10 * time.Second},
		started:   time.Now(),
		done:      make(chan struct{}),
	}
}

// Start runs one synchronous pass so the first report is populated,
// then re-checks on the configured interval until Stop.
func (m *Monitor) Start() {
	log.Infoln("starting pipeline health monitoring")
	m.runAll()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.runAll()
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.once.Do(func() {
		close(m.done)
		log.Infoln("health monitoring stopped")
	})
}

func (m *Monitor) SystemHealth() SystemHealth {
	m.mu.RLock()
	checks := make([]Check, len(m.checks))
	copy(checks, m.checks)
	m.mu.RUnlock()

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusCritical {
			overall = StatusCritical
			break
		}
		if check.Status == StatusWarning {
			overall = StatusWarning
		}
	}

	return SystemHealth{
		Overall:    overall,
		Checks:     checks,
		LastUpdate: time.Now(),
		Uptime:     time.Since(m.started),
	}
}

// ForceCheck re-runs every check synchronously, outside the scheduled
// cycle, and returns the fresh report.
func (m *Monitor) ForceCheck() SystemHealth {
	log.Infoln("running forced health checks")
	m.runAll()
	return m.SystemHealth()
}

// runAll executes the independent checks concurrently and stores the
// results in a fixed order.
func (m *Monitor) runAll() {
	checkFns := []func() Check{
		m.checkDiskSpace,
		m.checkYtDlp,
		m.checkWhisper,
		m.checkAudioDirectory,
		m.checkStoreIntegrity,
		m.checkSystemResources,
		m.checkNetwork,
	}

	results := make([]Check, len(checkFns))
	var wg sync.WaitGroup
	for i, fn := range checkFns {
		wg.Add(1)
		go func(i int, fn func() Check) {
			defer wg.Done()
			results[i] = fn()
		}(i, fn)
	}
	wg.Wait()

	m.mu.Lock()
	m.checks = results
	m.mu.Unlock()

	m.logSummary()
}

func (m *Monitor) checkDiskSpace() Check {
	check := Check{Name: "Disk Space", LastCheck: time.Now()}

	usage, err := disk.Usage(m.audioDir)
	if err != nil {
		// fall back to the parent when the dir does not exist yet
		usage, err = disk.Usage(filepath.Dir(m.audioDir))
	}
	if err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return check
	}

	percent := usage.UsedPercent
	check.Message = fmt.Sprintf("disk usage: %.0f%%", percent)
	check.Details = map[string]any{"usedPercent": percent, "freeBytes": usage.Free}

	switch {
	case percent > 90:
		check.Status = StatusCritical
		check.Message += " - disk almost full"
	case percent > 80:
		check.Status = StatusWarning
		check.Message += " - disk space running low"
	default:
		check.Status = StatusHealthy
	}
	return check
}

func (m *Monitor) checkYtDlp() Check {
	check := Check{Name: "yt-dlp Availability", LastCheck: time.Now()}

	version, err := ytdlp.Version()
	if err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("yt-dlp not available: %v", err)
		return check
	}

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("yt-dlp available (%s)", version)
	check.Details = map[string]any{"version": version}
	return check
}

func (m *Monitor) checkWhisper() Check {
	check := Check{Name: "Whisper Availability", LastCheck: time.Now()}

	path, err := exec.LookPath("whisper")
	if err != nil {
		check.Status = StatusCritical
		check.Message = "whisper not found in PATH"
		return check
	}

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("whisper available at %s", path)
	return check
}

func (m *Monitor) checkAudioDirectory() Check {
	check := Check{Name: "Audio Directory", LastCheck: time.Now()}

	if err := os.MkdirAll(m.audioDir, 0700); err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("cannot create audio directory: %v", err)
		return check
	}

	probe := filepath.Join(m.audioDir, ".health_check")
	if err := os.WriteFile(probe, []byte("test"), 0600); err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("audio directory not writable: %v", err)
		return check
	}
	_ = os.Remove(probe)

	audioFiles := 0
	if entries, err := os.ReadDir(m.audioDir); err == nil {
		for _, entry := range entries {
			name := strings.ToLower(entry.Name())
			if strings.HasSuffix(name, ".mp3") || strings.HasSuffix(name, ".wav") {
				audioFiles++
			}
		}
	}

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("audio directory accessible (%d audio files)", audioFiles)
	check.Details = map[string]any{"path": m.audioDir, "audioFiles": audioFiles}
	return check
}

func (m *Monitor) checkStoreIntegrity() Check {
	check := Check{Name: "Record Store Integrity", LastCheck: time.Now()}

	total, corrupted, err := records.Verify(m.storePath)
	if os.IsNotExist(err) {
		check.Status = StatusWarning
		check.Message = "record store does not exist yet (will be created)"
		return check
	}
	if err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("record store corrupted: %v", err)
		return check
	}

	check.Message = fmt.Sprintf("record store healthy (%d records)", total)
	check.Details = map[string]any{"recordCount": total, "corruptedRecords": corrupted}
	check.Status = StatusHealthy

	if corrupted > 0 {
		check.Status = StatusWarning
		if total > 0 && float64(corrupted) > float64(total)*0.1 {
			check.Status = StatusCritical
		}
		check.Message += fmt.Sprintf(" - %d corrupted records detected", corrupted)
	}
	return check
}

func (m *Monitor) checkSystemResources() Check {
	check := Check{Name: "System Resources", LastCheck: time.Now()}

	vm, err := mem.VirtualMemory()
	if err != nil {
		check.Status = StatusWarning
		check.Message = fmt.Sprintf("could not check system resources: %v", err)
		return check
	}

	cpuLoad := 0.0
	if avg, err := load.Avg(); err == nil {
		cpuLoad = avg.Load1
	}

	memPercent := vm.UsedPercent
	check.Message = fmt.Sprintf("memory: %.0f%%, cpu load: %.2f", memPercent, cpuLoad)
	check.Details = map[string]any{
		"memUsedPercent": memPercent,
		"cpuLoad":        cpuLoad,
		"totalMemMB":     vm.Total / 1024 / 1024,
	}

	switch {
	case memPercent > 90 || cpuLoad > 4:
		check.Status = StatusCritical
		check.Message += " - high resource usage"
	case memPercent > 80 || cpuLoad > 2:
		check.Status = StatusWarning
		check.Message += " - elevated resource usage"
	default:
		check.Status = StatusHealthy
	}
	return check
}

func (m *Monitor) checkNetwork() Check {
	check := Check{Name: "Network Connectivity", LastCheck: time.Now()}

	resp, err := m.client.Head(m.probeURL)
	if err != nil {
		check.Status = StatusCritical
		check.Message = fmt.Sprintf("network connectivity issues: %v", err)
		return check
	}
	resp.Body.Close()

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("network connectivity to %s verified", m.probeURL)
	return check
}

func (m *Monitor) logSummary() {
	health := m.SystemHealth()

	var critical, warnings []string
	for _, check := range health.Checks {
		switch check.Status {
		case StatusCritical:
			critical = append(critical, check.Name)
		case StatusWarning:
			warnings = append(warnings, check.Name)
		}
	}

	if len(critical) > 0 {
		log.Errorf("critical health issues (%d): %s", len(critical), strings.Join(critical, ", "))
	}
	if len(warnings) > 0 {
		log.Warnf("health warnings (%d): %s", len(warnings), strings.Join(warnings, ", "))
	}
	if health.Overall == StatusHealthy {
		log.Debugln("all health checks passed")
	}
}
