package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tutorial-scraper/shared/logger"
)

// Monitor remembers how the last run went; the health server reads it
type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	lastError      string
	log            zerolog.Logger
}

func NewMonitor() *Monitor {
	return &Monitor{log: logger.WithComponent("monitor")}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.lastError = ""
	m.mu.Unlock()

	m.log.Info().Dur("duration", duration).Str("summary", summary).Msg("Run completed successfully")
}

// RecordPartialFailure logs a degraded run without changing health status
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.log.Warn().Err(err).Dur("duration", duration).Msg("Partial failure")
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastError = err.Error()
	m.mu.Unlock()

	m.log.Error().Err(err).Dur("duration", duration).Msg("Critical failure")
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last run: %s - %s", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
	}
	return fmt.Sprintf("Last run failed: %s - %s", m.lastRunTime.Format("Jan 2 15:04"), m.lastError)
}
