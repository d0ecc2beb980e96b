package observability

import (
	"sync"
	"time"
)

type Stage string

const (
	StageIdle         Stage = "IDLE"
	StageInterpreting Stage = "INTERPRETING"
	StagePlanning     Stage = "PLANNING"
)

type pipelineStatus struct {
	mu           sync.RWMutex
	stage        Stage
	traceID      string
	lastActivity time.Time
}

var globalStatus = &pipelineStatus{
	stage:        StageIdle,
	lastActivity: time.Now(),
}

// SetStatus records the stage the pipeline is in and the trace it works on.
func SetStatus(stage Stage, traceID string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.stage = stage
	globalStatus.traceID = traceID
	globalStatus.lastActivity = time.Now()
}

// GetStatus returns the current stage, trace id and time of last change.
func GetStatus() (Stage, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.stage, globalStatus.traceID, globalStatus.lastActivity
}
