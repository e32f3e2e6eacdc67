package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/application/services/formulation"
	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/application/services/normalize"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/domain/services"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// PlannerConfig holds the settings shared by every run of a planner
type PlannerConfig struct {
	ArrivalPolicy      entities.ArrivalPolicy
	Limits             solver.Limits
	SafetyStockPenalty float64
	BigM               float64
}

// RunObserver is told about every finished run, e.g. to export metrics
type RunObserver interface {
	ObserveRun(strategy, status string, elapsed time.Duration, totalCost float64)
	ObserveFailure(strategy string, kind string)
}

type observers []RunObserver

// Observers fans every notification out to each non-nil observer
func Observers(list ...RunObserver) RunObserver {
	var out observers
	for _, o := range list {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (o observers) ObserveRun(strategy, status string, elapsed time.Duration, totalCost float64) {
	for _, observer := range o {
		observer.ObserveRun(strategy, status, elapsed, totalCost)
	}
}

func (o observers) ObserveFailure(strategy string, kind string) {
	for _, observer := range o {
		observer.ObserveFailure(strategy, kind)
	}
}

// Planner coordinates validation, lookups, formulation and normalisation
type Planner struct {
	config    PlannerConfig
	validator *services.DatasetValidator
	backend   solver.Backend
	nonlinear solver.NonlinearBackend
	logger    logrus.FieldLogger
	observer  RunObserver
}

// NewPlanner creates a planner on the built-in branch-and-bound backends
func NewPlanner(config PlannerConfig, logger logrus.FieldLogger) *Planner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	backend := solver.NewBranchAndBound(logger)
	return NewPlannerWithBackends(config, backend, solver.NewSuccessiveLinearization(backend, logger), logger)
}

// NewPlannerWithBackends creates a planner on custom solver backends
func NewPlannerWithBackends(
	config PlannerConfig,
	backend solver.Backend,
	nonlinear solver.NonlinearBackend,
	logger logrus.FieldLogger,
) *Planner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Planner{
		config:    config,
		validator: services.NewDatasetValidator(),
		backend:   backend,
		nonlinear: nonlinear,
		logger:    logger,
	}
}

// WithObserver attaches a run observer
func (p *Planner) WithObserver(observer RunObserver) *Planner {
	p.observer = observer
	return p
}

// Config returns the planner settings
func (p *Planner) Config() PlannerConfig {
	return p.config
}

// Prepare validates a dataset and builds its lookups
func (p *Planner) Prepare(ds *entities.Dataset) (*lookup.Lookups, error) {
	if validation := p.validator.ValidateDataset(ds); !validation.Valid() {
		return nil, validation.Err()
	}
	lookups, err := lookup.Build(ds, p.config.ArrivalPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookups: %w", err)
	}
	return lookups, nil
}

// Plan runs one strategy end to end. Fatal failures are returned as errors;
// best-effort outcomes come back as a result whose Err reports the status.
func (p *Planner) Plan(ctx context.Context, ds *entities.Dataset, strategy entities.Strategy) (*dto.PlanResult, error) {
	lookups, err := p.Prepare(ds)
	if err != nil {
		p.observeFailure(strategy, err)
		return nil, err
	}
	return p.PlanWithLookups(ctx, lookups, strategy)
}

// PlanWithLookups runs one strategy on lookups that were already built
func (p *Planner) PlanWithLookups(ctx context.Context, lookups *lookup.Lookups, strategy entities.Strategy) (*dto.PlanResult, error) {
	start := time.Now()
	logger := p.logger.WithField("strategy", strategy.String())

	formulator, err := formulation.New(strategy, p.backend, p.nonlinear)
	if err != nil {
		return nil, fmt.Errorf("failed to create formulator: %w", err)
	}

	// Step 1: formulate and solve
	raw, err := formulator.Formulate(ctx, lookups, formulation.Options{
		Limits:             p.config.Limits,
		SafetyStockPenalty: p.config.SafetyStockPenalty,
		BigM:               p.config.BigM,
	})
	if err != nil {
		p.observeFailure(strategy, err)
		logger.WithError(err).Error("formulation failed")
		return nil, fmt.Errorf("failed to formulate %s plan: %w", strategy, err)
	}

	// Step 2: project, recompute and check the plan
	result, err := normalize.Normalize(raw, lookups, normalize.Options{
		SafetyStockPenalty: p.config.SafetyStockPenalty,
		Tolerance:          p.config.Limits.Tolerance,
	})
	if err != nil {
		p.observeFailure(strategy, err)
		logger.WithError(err).Error("plan failed normalisation")
		return nil, err
	}
	result.Elapsed = time.Since(start)

	fields := logrus.Fields{
		"run_id":    result.RunID,
		"status":    result.Status.String(),
		"objective": result.Objective,
		"elapsed":   result.Elapsed,
	}
	if result.Status.Successful() {
		logger.WithFields(fields).Info("plan completed")
	} else {
		logger.WithFields(fields).Warn("plan completed without a proven plan")
	}
	if p.observer != nil {
		p.observer.ObserveRun(strategy.String(), result.Status.String(), result.Elapsed, result.Costs.Total.InexactFloat64())
	}

	return result, nil
}

// Compare runs every strategy in parallel on one set of lookups
func (p *Planner) Compare(ctx context.Context, ds *entities.Dataset) (*dto.ComparisonResult, error) {
	lookups, err := p.Prepare(ds)
	if err != nil {
		return nil, err
	}

	strategies := entities.AllStrategies()
	comparison := &dto.ComparisonResult{Results: make([]*dto.PlanResult, len(strategies))}

	g, gctx := errgroup.WithContext(ctx)
	for i, strategy := range strategies {
		g.Go(func() error {
			result, err := p.PlanWithLookups(gctx, lookups, strategy)
			if err != nil {
				return err
			}
			comparison.Results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("strategy comparison failed: %w", err)
	}

	return comparison, nil
}

func (p *Planner) observeFailure(strategy entities.Strategy, err error) {
	if p.observer == nil {
		return
	}
	kind := "internal"
	var planErr *entities.PlanError
	if errors.As(err, &planErr) {
		kind = planErr.Kind.String()
	}
	p.observer.ObserveFailure(strategy.String(), kind)
}

// Summary returns a one-line description of a plan result
func Summary(result *dto.PlanResult) string {
	summary := fmt.Sprintf("%s: %s", result.Strategy, result.Status)
	if !result.HasPlan() {
		return summary
	}
	summary += fmt.Sprintf(", %d orders, total cost %s", result.KPIs.OrderCount, result.Costs.Total.StringFixed(2))
	summary += fmt.Sprintf(", service level %.1f%%", result.KPIs.ServiceLevel*100)
	return summary
}
