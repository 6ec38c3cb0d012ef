// Package planning defines the planning request lifecycle types and the Planner capability
// consumed by the scheduler.
package planning

import (
	"slices"

	"github.com/samber/lo"

	"github.com/sslcore/planner/trajectory"
)

// Planner turns a PlanRequest into a Trajectory for one motion command type. An empty trajectory
// signals failure. Planners keep progress state between calls so each robot owns its own
// instances.
type Planner interface {
	// Name is the motion command name this planner serves.
	Name() string
	Plan(req PlanRequest) trajectory.Trajectory
	// Reset clears internal progress state.
	Reset()
	// IsDone reports whether the last planned motion has completed.
	IsDone() bool
}

// Registry maps motion command names to the planner instances of one robot.
type Registry struct {
	planners map[string]Planner
}

// NewRegistry keys `planners` by their names. A later planner with a duplicate name replaces an
// earlier one.
func NewRegistry(planners ...Planner) *Registry {
	return &Registry{planners: lo.SliceToMap(planners, func(p Planner) (string, Planner) {
		return p.Name(), p
	})}
}

// Lookup returns the planner serving `name`.
func (r *Registry) Lookup(name string) (Planner, bool) {
	p, ok := r.planners[name]
	return p, ok
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	names := lo.Keys(r.planners)
	slices.Sort(names)
	return names
}

// Has reports whether a planner serves `name`.
func (r *Registry) Has(name string) bool {
	_, ok := r.planners[name]
	return ok
}
