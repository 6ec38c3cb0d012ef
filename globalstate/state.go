// Package globalstate provides race-free snapshots of the shared perception and coach state the
// planner reads every cycle.
package globalstate

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/sslcore/planner/geometry"
)

// Snapshot is an immutable view of the global state. Callers must not mutate a snapshot
// returned by State; use State.Update instead.
type Snapshot struct {
	World            *WorldState
	GoalieID         int
	PlayState        PlayState
	Overrides        GlobalOverride
	GlobalObstacles  geometry.ShapeSet
	DefAreaObstacles geometry.ShapeSet
	// Version increases with every update.
	Version uint64
}

// State publishes snapshots. Writers are serialized among themselves; readers never block and
// always observe a complete snapshot.
type State struct {
	clock clock.Clock

	writeMu  sync.Mutex
	current  atomic.Pointer[Snapshot]
	received atomic.Time
}

// NewState returns a State holding an empty world of `numRobots` invisible robots, no goalie
// and unlimited overrides.
func NewState(clk clock.Clock, numRobots int) *State {
	if clk == nil {
		clk = clock.New()
	}
	s := &State{clock: clk}
	s.current.Store(&Snapshot{
		World:     &WorldState{OurRobots: make([]RobotState, numRobots)},
		GoalieID:  -1,
		PlayState: PlayStateHalt,
		Overrides: DefaultOverride(),
	})
	return s
}

// Snapshot returns the latest published snapshot.
func (s *State) Snapshot() *Snapshot {
	return s.current.Load()
}

// Update publishes a new snapshot produced by applying `mutate` to a copy of the current one.
func (s *State) Update(mutate func(next *Snapshot)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := *s.current.Load()
	mutate(&next)
	next.Version++
	s.current.Store(&next)
}

// SetWorld publishes a new perception update. `world` is owned by the State afterwards.
func (s *State) SetWorld(world *WorldState) {
	s.Update(func(next *Snapshot) { next.World = world })
	s.received.Store(s.clock.Now())
}

// SetGoalie assigns the goalie; -1 means no goalie.
func (s *State) SetGoalie(robotID int) {
	s.Update(func(next *Snapshot) { next.GoalieID = robotID })
}

// SetPlayState updates the play state.
func (s *State) SetPlayState(playState PlayState) {
	s.Update(func(next *Snapshot) { next.PlayState = playState })
}

// SetOverrides replaces the coach overrides.
func (s *State) SetOverrides(overrides GlobalOverride) {
	s.Update(func(next *Snapshot) { next.Overrides = overrides })
}

// SetObstacles replaces the permanent field obstacles and the defense-area obstacles.
func (s *State) SetObstacles(global, defArea geometry.ShapeSet) {
	s.Update(func(next *Snapshot) {
		next.GlobalObstacles = global.Clone()
		next.DefAreaObstacles = defArea.Clone()
	})
}

// LastWorldReceived is the local time the last perception update arrived, zero if none did.
func (s *State) LastWorldReceived() time.Time {
	return s.received.Load()
}

// Clock is the clock the State stamps updates with.
func (s *State) Clock() clock.Clock {
	return s.clock
}
