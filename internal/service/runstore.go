package service

import (
	"context"
	"sync"
	"time"

	"shiftopt/internal/model"
)

// estimatedRunDuration seeds est_completion for freshly started runs.
const estimatedRunDuration = 5 * time.Minute

// RunStore tracks asynchronous optimization runs. Active and completed runs
// live in separate maps; completing a run moves its entry. All transitions
// happen under one lock so status reads are snapshot-consistent.
type RunStore struct {
	mu        sync.RWMutex
	active    map[string]model.RunStatus
	completed map[string]completedRun
	cancels   map[string]context.CancelFunc
}

type completedRun struct {
	status   model.RunStatus
	response *model.OptimizationResponse
}

// NewRunStore returns an empty store.
func NewRunStore() *RunStore {
	return &RunStore{
		active:    make(map[string]model.RunStatus),
		completed: make(map[string]completedRun),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start registers a new run in the started state.
func (s *RunStore) Start(runID string, cancel context.CancelFunc) model.RunStatus {
	est := time.Now().Add(estimatedRunDuration)
	status := model.RunStatus{
		RunID:               runID,
		Status:              model.RunStarted,
		Progress:            0,
		Message:             "Optimization run accepted",
		EstimatedCompletion: &est,
	}

	s.mu.Lock()
	s.active[runID] = status
	if cancel != nil {
		s.cancels[runID] = cancel
	}
	s.mu.Unlock()
	return status
}

// MarkRunning moves an active run to the running state.
func (s *RunStore) MarkRunning(runID string, progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.active[runID]
	if !ok {
		return
	}
	status.Status = model.RunRunning
	status.Progress = progress
	status.Message = message
	s.active[runID] = status
}

// Complete moves a run from the active map to the completed map with its
// final response attached.
func (s *RunStore) Complete(runID string, response *model.OptimizationResponse) {
	s.finish(runID, model.RunCompleted, "Optimization completed", response)
}

// Fail records a terminal failure for a run.
func (s *RunStore) Fail(runID string, message string) {
	s.finish(runID, model.RunFailed, message, nil)
}

func (s *RunStore) finish(runID string, state model.RunState, message string, response *model.OptimizationResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.active[runID]
	if !ok {
		return
	}
	delete(s.active, runID)
	delete(s.cancels, runID)

	status.Status = state
	status.Message = message
	status.EstimatedCompletion = nil
	if state == model.RunCompleted {
		status.Progress = 1.0
	}
	s.completed[runID] = completedRun{status: status, response: response}
}

// Status returns the current status of a run, active or completed.
func (s *RunStore) Status(runID string) (model.RunStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.active[runID]; ok {
		return status, true
	}
	if run, ok := s.completed[runID]; ok {
		return run.status, true
	}
	return model.RunStatus{}, false
}

// Response returns the final response of a completed run.
func (s *RunStore) Response(runID string) (*model.OptimizationResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.completed[runID]
	if !ok || run.response == nil {
		return nil, false
	}
	return run.response, true
}

// CancelAll transitions every active run to cancelled. Used on shutdown.
func (s *RunStore) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for runID, status := range s.active {
		if cancel := s.cancels[runID]; cancel != nil {
			cancel()
		}
		delete(s.active, runID)
		delete(s.cancels, runID)

		status.Status = model.RunCancelled
		status.Message = "Service shutting down"
		status.EstimatedCompletion = nil
		s.completed[runID] = completedRun{status: status}
	}
}

// ActiveCount reports how many runs are in flight.
func (s *RunStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}
