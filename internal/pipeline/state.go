package pipeline

import (
	"sync"
	"time"

	"dessertcpi/internal/analysis"
	"dessertcpi/internal/evaluation"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/macro"
	"dessertcpi/internal/sales"
	"dessertcpi/internal/split"
	"dessertcpi/internal/validation"
)

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState carries the artifacts passed between stages and the status of
// each stage. Stages run sequentially; the mutex guards status reads from
// other goroutines.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Error     error

	stages map[string]*StageState
	order  []string

	Preflight validation.Report
	Records   []sales.Record
	Panel     *frame.Frame
	Macro     *macro.Table
	// Base is the feature builder output before the macro join.
	Base *frame.Frame
	// Joined is the panel after the macro join, before clipping.
	Joined *frame.Frame
	// Features is the model-ready panel: features, macro columns, clipped
	// values, targets and shocks.
	Features   *frame.Frame
	Bounds     split.ClipBounds
	Split      split.Split
	Comparison *evaluation.ComparisonResult
	Rolling    []evaluation.RollingTable
	Suite      []evaluation.ComparisonRow
	VIF        []analysis.VIFRow
	Merged     *frame.Frame
	Corr       analysis.Matrix
}

// NewRunState creates a pending run
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		stages:    make(map[string]*StageState),
	}
}

// Start marks the run as running
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = RunStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as completed
func (s *RunState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusCompleted
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = RunStatusFailed
	s.Error = err
}

// Stage returns the state of a stage, creating it on first use.
func (s *RunState) Stage(id, name string) *StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stages[id]
	if !ok {
		st = NewStageState(id, name)
		s.stages[id] = st
		s.order = append(s.order, id)
	}
	return st
}

// StageStatus returns the status of a stage, pending if it never ran.
func (s *RunState) StageStatus(id string) StageStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stages[id]; ok {
		return st.GetStatus()
	}
	return StageStatusPending
}

// Stages returns the stage states in execution order.
func (s *RunState) Stages() []*StageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StageState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.stages[id])
	}
	return out
}
