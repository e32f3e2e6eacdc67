package repositories

import (
	"errors"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// ErrNotFound is returned when a named record does not exist
var ErrNotFound = errors.New("not found")

// DatasetRepository stores named planning datasets
type DatasetRepository interface {
	SaveDataset(name string, ds *entities.Dataset) error
	GetDataset(name string) (*entities.Dataset, error)
	ListDatasets() ([]string, error)
	DeleteDataset(name string) error
}
