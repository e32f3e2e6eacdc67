package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/domain/repositories"
)

// DatasetRepository provides in-memory dataset storage
type DatasetRepository struct {
	mu       sync.RWMutex
	datasets map[string]*entities.Dataset
}

// NewDatasetRepository creates a new in-memory dataset repository
func NewDatasetRepository() *DatasetRepository {
	return &DatasetRepository{
		datasets: make(map[string]*entities.Dataset),
	}
}

// Verify interface compliance
var _ repositories.DatasetRepository = (*DatasetRepository)(nil)

// SaveDataset stores a dataset under name, replacing any previous one
func (r *DatasetRepository) SaveDataset(name string, ds *entities.Dataset) error {
	if name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if ds == nil {
		return fmt.Errorf("dataset %s is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[name] = ds
	return nil
}

// GetDataset returns the dataset stored under name
func (r *DatasetRepository) GetDataset(name string) (*entities.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, exists := r.datasets[name]
	if !exists {
		return nil, fmt.Errorf("dataset %s: %w", name, repositories.ErrNotFound)
	}
	return ds, nil
}

// ListDatasets returns all dataset names in order
func (r *DatasetRepository) ListDatasets() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDataset removes the dataset stored under name
func (r *DatasetRepository) DeleteDataset(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.datasets[name]; !exists {
		return fmt.Errorf("dataset %s: %w", name, repositories.ErrNotFound)
	}
	delete(r.datasets, name)
	return nil
}
