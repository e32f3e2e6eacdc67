package events

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	PlanCompletedEvent = "plan.completed"
	PlanFailedEvent    = "plan.failed"
)

// PlanCompleted records a run that produced a result, successful or not
type PlanCompleted struct {
	Strategy  string        `json:"strategy"`
	Status    string        `json:"status"`
	Elapsed   time.Duration `json:"elapsed"`
	TotalCost float64       `json:"total_cost"`
}

// PlanFailed records a run aborted with an error
type PlanFailed struct {
	Strategy string `json:"strategy"`
	Kind     string `json:"kind"`
}

// RunLog appends one event per planning run to a store, one stream per
// strategy. It satisfies orchestration.RunObserver, which has no error
// return, so append failures are logged.
type RunLog struct {
	store  Store
	logger logrus.FieldLogger
}

func NewRunLog(store Store, logger logrus.FieldLogger) *RunLog {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RunLog{store: store, logger: logger}
}

func (l *RunLog) ObserveRun(strategy, status string, elapsed time.Duration, totalCost float64) {
	l.append(strategy, newEvent(PlanCompletedEvent, strategy, PlanCompleted{
		Strategy:  strategy,
		Status:    status,
		Elapsed:   elapsed,
		TotalCost: totalCost,
	}))
}

func (l *RunLog) ObserveFailure(strategy, kind string) {
	l.append(strategy, newEvent(PlanFailedEvent, strategy, PlanFailed{
		Strategy: strategy,
		Kind:     kind,
	}))
}

func (l *RunLog) append(strategy string, event Event) {
	if err := l.store.Append(strategy, event); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"strategy": strategy,
			"event":    event.Type,
		}).Error("Failed to record planning run")
	}
}

// Recent returns up to limit of the latest events, oldest first
func (l *RunLog) Recent(limit int) ([]Event, error) {
	all, err := l.store.ReadAll(0)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// FailureLogger warns about every failed plan it is subscribed to
type FailureLogger struct {
	logger logrus.FieldLogger
}

func NewFailureLogger(logger logrus.FieldLogger) *FailureLogger {
	return &FailureLogger{logger: logger}
}

func (f *FailureLogger) Handle(event Event) error {
	failed, ok := event.Data.(PlanFailed)
	if !ok {
		return nil
	}
	f.logger.WithFields(logrus.Fields{
		"strategy": failed.Strategy,
		"kind":     failed.Kind,
		"version":  event.Version,
	}).Warn("Plan failed")
	return nil
}
