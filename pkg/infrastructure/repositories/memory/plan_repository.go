package memory

import (
	"fmt"
	"sync"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/domain/repositories"
)

// PlanRepository keeps the most recent plan results by run id
type PlanRepository struct {
	mu       sync.RWMutex
	results  map[string]*dto.PlanResult
	order    []string
	capacity int
}

// NewPlanRepository creates a repository holding at most capacity results;
// the oldest result is evicted first.
func NewPlanRepository(capacity int) *PlanRepository {
	if capacity <= 0 {
		capacity = 100
	}
	return &PlanRepository{
		results:  make(map[string]*dto.PlanResult, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// SavePlan stores a result under its run id
func (r *PlanRepository) SavePlan(result *dto.PlanResult) error {
	if result == nil || result.RunID == "" {
		return fmt.Errorf("plan result has no run id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.results[result.RunID]; !exists {
		r.order = append(r.order, result.RunID)
	}
	r.results[result.RunID] = result
	for len(r.order) > r.capacity {
		delete(r.results, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// GetPlan returns the result with the given run id
func (r *PlanRepository) GetPlan(runID string) (*dto.PlanResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, exists := r.results[runID]
	if !exists {
		return nil, fmt.Errorf("plan %s: %w", runID, repositories.ErrNotFound)
	}
	return result, nil
}

// ListPlans returns stored results, newest first
func (r *PlanRepository) ListPlans() []*dto.PlanResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*dto.PlanResult, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.results[r.order[i]])
	}
	return out
}
