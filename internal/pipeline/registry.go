package pipeline

import (
	"fmt"
	"sync"
)

// Registry manages registered stages
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string // Maintains registration order
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
		order:  make([]string, 0),
	}
}

// Register adds a stage to the registry
func (r *Registry) Register(stage Stage) error {
	if stage == nil {
		return fmt.Errorf("cannot register nil stage")
	}

	id := stage.ID()
	if id == "" {
		return fmt.Errorf("stage ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[id]; exists {
		return fmt.Errorf("stage with ID %s already registered", id)
	}

	r.stages[id] = stage
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a stage by ID
func (r *Registry) Get(id string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stage, exists := r.stages[id]
	if !exists {
		return nil, fmt.Errorf("stage with ID %s not found", id)
	}
	return stage, nil
}

// Has checks if a stage is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.stages[id]
	return exists
}

// ListIDs returns all registered stage IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered stages
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.stages)
}

// DependencyOrder returns all stages ordered by dependencies
func (r *Registry) DependencyOrder() ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortStages(r.order)
}

// Plan returns the stages needed to produce targets, their transitive
// dependencies included, in dependency order. No targets means every
// stage.
func (r *Registry) Plan(targets ...string) ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(targets) == 0 {
		return r.sortStages(r.order)
	}

	needed := make(map[string]bool)
	var visit func(id string) error
	visit = func(id string) error {
		if needed[id] {
			return nil
		}
		stage, ok := r.stages[id]
		if !ok {
			return fmt.Errorf("stage with ID %s not found", id)
		}
		needed[id] = true
		for _, dep := range stage.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range targets {
		if err := visit(t); err != nil {
			return nil, err
		}
	}

	ids := make([]string, 0, len(needed))
	for _, id := range r.order {
		if needed[id] {
			ids = append(ids, id)
		}
	}
	return r.sortStages(ids)
}

// sortStages sorts ids with Kahn's algorithm, breaking ties by registration
// order. Callers hold the read lock.
func (r *Registry) sortStages(ids []string) ([]Stage, error) {
	inSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSet[id] = true
	}

	graph := make(map[string][]string)
	inDegree := make(map[string]int)
	for _, id := range ids {
		inDegree[id] = 0
	}
	for _, id := range ids {
		for _, dep := range r.stages[id].Dependencies() {
			if _, exists := r.stages[dep]; !exists {
				return nil, fmt.Errorf("stage %s depends on non-existent stage %s", id, dep)
			}
			if !inSet[dep] {
				continue
			}
			graph[dep] = append(graph[dep], id)
			inDegree[id]++
		}
	}

	queue := make([]string, 0)
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	ordered := make([]Stage, 0, len(ids))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, r.stages[current])

		available := make(map[string]bool)
		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				available[dependent] = true
			}
		}
		// Sort newly available by registration order
		for _, id := range ids {
			if available[id] {
				queue = append(queue, id)
			}
		}
	}

	if len(ordered) != len(ids) {
		return nil, fmt.Errorf("dependency cycle detected")
	}
	return ordered, nil
}
