package pipeline

import (
	"context"
	"sync"
	"time"
)

// Stage is one step of a run.
type Stage interface {
	// ID returns the unique identifier used for dependencies.
	ID() string

	// Name returns the human-readable name.
	Name() string

	// Dependencies returns the IDs of stages that must finish first.
	Dependencies() []string

	// Run executes the stage against the shared run state and returns the
	// number of rows it produced, used for metrics only.
	Run(ctx context.Context, state *RunState) (int, error)
}

// StageStatus represents the current status of a stage
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusActive    StageStatus = "active"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// StageState represents the runtime state of a stage
type StageState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StageStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     error
	Rows      int
}

// NewStageState creates a pending stage state
func NewStageState(id, name string) *StageState {
	return &StageState{
		ID:     id,
		Name:   name,
		Status: StageStatusPending,
	}
}

// Start marks the stage as active and sets the start time
func (s *StageState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StageStatusActive
}

// Complete marks the stage as completed with the number of rows produced
func (s *StageState) Complete(rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusCompleted
	s.Rows = rows
}

// Fail marks the stage as failed with the given error
func (s *StageState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusFailed
	s.Error = err
}

// Skip marks the stage as skipped with the given reason
func (s *StageState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StageStatusSkipped
	s.Message = reason
}

// GetStatus returns the current status
func (s *StageState) GetStatus() StageStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration returns the duration of the stage execution
func (s *StageState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// RunFunc is the body of a FuncStage.
type RunFunc func(ctx context.Context, state *RunState) (int, error)

// FuncStage adapts a function to the Stage interface.
type FuncStage struct {
	id           string
	name         string
	dependencies []string
	fn           RunFunc
}

// NewStage creates a stage from a function.
func NewStage(id, name string, dependencies []string, fn RunFunc) *FuncStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return &FuncStage{id: id, name: name, dependencies: dependencies, fn: fn}
}

func (s *FuncStage) ID() string             { return s.id }
func (s *FuncStage) Name() string           { return s.name }
func (s *FuncStage) Dependencies() []string { return s.dependencies }

func (s *FuncStage) Run(ctx context.Context, state *RunState) (int, error) {
	return s.fn(ctx, state)
}
