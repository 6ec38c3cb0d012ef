package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
)

// Outcome is how a goal finished.
type Outcome int

// Goal outcomes.
const (
	OutcomeSucceeded Outcome = iota
	OutcomeSuperseded
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the final state of a goal.
type Result struct {
	GoalID  uuid.UUID `json:"goal_id"`
	Outcome Outcome   `json:"outcome"`
	IsDone  bool      `json:"is_done"`
}

// Goal is an admitted intent. It finishes once Execute returns.
type Goal struct {
	ID     uuid.UUID
	Intent planning.RobotIntent

	cancelOnce    sync.Once
	canceled      chan struct{}
	supersedeOnce sync.Once
	superseded    chan struct{}
	done          chan struct{}
	result        Result
}

func newGoal(intent planning.RobotIntent) *Goal {
	return &Goal{
		ID:         uuid.New(),
		Intent:     intent,
		canceled:   make(chan struct{}),
		superseded: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Cancel requests the goal to stop. It is safe to call any number of times.
func (g *Goal) Cancel() {
	g.cancelOnce.Do(func() { close(g.canceled) })
}

func (g *Goal) supersede() {
	g.supersedeOnce.Do(func() { close(g.superseded) })
}

// Done is closed when the goal finished.
func (g *Goal) Done() <-chan struct{} {
	return g.done
}

// Wait blocks until the goal finished or ctx is done.
func (g *Goal) Wait(ctx context.Context) (Result, error) {
	select {
	case <-g.done:
		return g.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Executor runs planning cycles for one robot.
type Executor interface {
	BeginGoal()
	ExecuteIntent(ctx context.Context, intent planning.RobotIntent)
	IsDone() bool
}

// Admission admits goals for one robot so that at most one goal loop runs at any time. A newly
// submitted goal supersedes the executing one.
type Admission struct {
	robotID  int
	executor Executor
	clock    clock.Clock
	period   time.Duration
	logger   logging.Logger
	metrics  *Metrics

	mu             sync.Mutex
	executing      bool
	newTaskWaiting bool
	current        *Goal

	activeWorkers sync.WaitGroup
}

// NewAdmission returns an Admission running goals of `robotID` on `executor` once per control
// period.
func NewAdmission(robotID int, conf Config, executor Executor, logger logging.Logger) *Admission {
	conf = conf.withDefaults()
	return &Admission{
		robotID:  robotID,
		executor: executor,
		clock:    conf.Clock,
		period:   conf.ControlPeriod(),
		logger:   logger,
		metrics:  conf.Metrics,
	}
}

// Submit admits `intent`. When a goal is executing it is told to stop and Submit waits for its
// loop to exit. Every call to Submit that returns a goal must be followed by Execute or Start.
func (a *Admission) Submit(ctx context.Context, intent planning.RobotIntent) (*Goal, error) {
	for {
		a.mu.Lock()
		if !a.executing {
			a.executing = true
			a.newTaskWaiting = false
			goal := newGoal(intent)
			a.current = goal
			a.mu.Unlock()
			a.logger.CDebugw(ctx, "goal admitted", "goal_id", goal.ID, "command", intent.Command.Name)
			return goal, nil
		}
		a.newTaskWaiting = true
		inFlight := a.current
		a.mu.Unlock()
		inFlight.supersede()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-inFlight.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Execute runs the loop of an admitted goal until it succeeds, is superseded or is canceled.
// Cancellation through `ctx` or Goal.Cancel takes precedence over supersession.
func (a *Admission) Execute(ctx context.Context, goal *Goal) Result {
	result := Result{GoalID: goal.ID}
	defer func() {
		a.finish(goal, result)
	}()

	a.executor.BeginGoal()
	ticker := a.clock.Ticker(a.period)
	defer ticker.Stop()

	for {
		if outcome, stop := a.interrupted(ctx, goal); stop {
			result.Outcome = outcome
			return result
		}
		a.executor.ExecuteIntent(ctx, goal.Intent)
		if a.executor.IsDone() {
			result.Outcome = OutcomeSucceeded
			result.IsDone = true
			return result
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
		case <-goal.canceled:
		case <-goal.superseded:
		}
	}
}

func (a *Admission) interrupted(ctx context.Context, goal *Goal) (Outcome, bool) {
	a.mu.Lock()
	superseded := a.newTaskWaiting
	a.mu.Unlock()

	select {
	case <-goal.canceled:
		return OutcomeCanceled, true
	case <-ctx.Done():
		return OutcomeCanceled, true
	default:
	}
	if superseded {
		return OutcomeSuperseded, true
	}
	return 0, false
}

func (a *Admission) finish(goal *Goal, result Result) {
	a.mu.Lock()
	a.executing = false
	if a.current == goal {
		a.current = nil
	}
	a.mu.Unlock()

	goal.result = result
	close(goal.done)
	a.metrics.finished(a.robotID, result.Outcome)
	a.logger.Debugw("goal finished", "goal_id", goal.ID, "outcome", result.Outcome.String())
}

// Start executes `goal` on its own goroutine.
func (a *Admission) Start(ctx context.Context, goal *Goal) {
	a.activeWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer a.activeWorkers.Done()
		a.Execute(ctx, goal)
	})
}

// Run submits `intent`, executes it and waits for the result. When ctx is done while waiting
// for admission an error is returned; once admitted, ctx ending cancels the goal.
func (a *Admission) Run(ctx context.Context, intent planning.RobotIntent) (Result, error) {
	goal, err := a.Submit(ctx, intent)
	if err != nil {
		return Result{}, err
	}
	a.Start(ctx, goal)
	<-goal.Done()
	return goal.result, nil
}

// Cancel cancels the executing goal, if any.
func (a *Admission) Cancel() {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()
	if current != nil {
		current.Cancel()
	}
}

// TaskState reports whether a goal is executing and whether a newer one is waiting for it.
func (a *Admission) TaskState() (executing, newTaskWaiting bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executing, a.newTaskWaiting
}

// Wait blocks until every goal started with Start has finished.
func (a *Admission) Wait() {
	a.activeWorkers.Wait()
}
