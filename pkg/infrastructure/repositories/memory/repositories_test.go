package memory

import (
	"errors"
	"testing"

	"github.com/vsinha/procurement/pkg/application/dto"
	testinghelpers "github.com/vsinha/procurement/pkg/application/services/testing"
	"github.com/vsinha/procurement/pkg/domain/repositories"
)

func TestDatasetRepository_SaveAndGet(t *testing.T) {
	repo := NewDatasetRepository()

	if err := repo.SaveDataset("dominance", testinghelpers.BuildDominanceDataset()); err != nil {
		t.Fatalf("Failed to save dataset: %v", err)
	}
	if err := repo.SaveDataset("discount", testinghelpers.BuildDiscountDataset()); err != nil {
		t.Fatalf("Failed to save dataset: %v", err)
	}

	ds, err := repo.GetDataset("dominance")
	if err != nil {
		t.Fatalf("Failed to get dataset: %v", err)
	}
	if ds.Horizon.Periods != 2 {
		t.Errorf("Expected 2 periods, got %d", ds.Horizon.Periods)
	}

	names, _ := repo.ListDatasets()
	if len(names) != 2 || names[0] != "discount" || names[1] != "dominance" {
		t.Errorf("Expected sorted names [discount dominance], got %v", names)
	}

	if err := repo.DeleteDataset("discount"); err != nil {
		t.Fatalf("Failed to delete dataset: %v", err)
	}
	if _, err := repo.GetDataset("discount"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}

func TestDatasetRepository_Invalid(t *testing.T) {
	repo := NewDatasetRepository()

	if err := repo.SaveDataset("", testinghelpers.BuildDominanceDataset()); err == nil {
		t.Error("Expected an error for an empty name")
	}
	if err := repo.SaveDataset("empty", nil); err == nil {
		t.Error("Expected an error for a nil dataset")
	}
	if err := repo.DeleteDataset("missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestPlanRepository_EvictsOldest(t *testing.T) {
	repo := NewPlanRepository(2)

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if err := repo.SavePlan(&dto.PlanResult{RunID: id}); err != nil {
			t.Fatalf("Failed to save plan %s: %v", id, err)
		}
	}

	if _, err := repo.GetPlan("run-1"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected run-1 to be evicted, got %v", err)
	}
	plans := repo.ListPlans()
	if len(plans) != 2 || plans[0].RunID != "run-3" || plans[1].RunID != "run-2" {
		t.Errorf("Expected [run-3 run-2], got %d plans", len(plans))
	}
	if err := repo.SavePlan(&dto.PlanResult{}); err == nil {
		t.Error("Expected an error for a result without run id")
	}
}
