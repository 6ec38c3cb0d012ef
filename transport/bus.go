package transport

import (
	"context"
	"sync"

	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/trajectory"
)

const defaultSubscriptionBuffer = 8

// Bus is an in-process publish/subscribe bus that latches the last value of every topic. A new
// subscriber receives the latched value first. Slow subscribers lose their oldest values.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	latched any
	hasLast bool
	subs    map[*Subscription]struct{}
}

// Subscription receives the values published to one topic.
type Subscription struct {
	C <-chan any

	ch    chan any
	bus   *Bus
	topic string
	once  sync.Once
}

var _ scheduler.Publisher = (*Bus)(nil)

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{topics: map[string]*topic{}}
}

func (b *Bus) topicLocked(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = &topic{subs: map[*Subscription]struct{}{}}
		b.topics[name] = t
	}
	return t
}

// Publish latches `value` on `topicName` and delivers it to every subscriber without blocking.
func (b *Bus) Publish(topicName string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topicLocked(topicName)
	t.latched = value
	t.hasLast = true
	for sub := range t.subs {
		sub.deliver(value)
	}
}

// Latest returns the latched value of `topicName`.
func (b *Bus) Latest(topicName string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[topicName]
	if !ok || !t.hasLast {
		return nil, false
	}
	return t.latched, true
}

// Subscribe returns a subscription to `topicName` buffering up to `buffer` values.
func (b *Bus) Subscribe(topicName string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = defaultSubscriptionBuffer
	}
	ch := make(chan any, buffer)
	sub := &Subscription{C: ch, ch: ch, bus: b, topic: topicName}

	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topicLocked(topicName)
	t.subs[sub] = struct{}{}
	if t.hasLast {
		sub.deliver(t.latched)
	}
	return sub
}

// deliver is called with the bus lock held, so it is the only sender on the channel.
func (sub *Subscription) deliver(value any) {
	for {
		select {
		case sub.ch <- value:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

// Close unsubscribes and closes C.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.bus.mu.Lock()
		defer sub.bus.mu.Unlock()
		if t, ok := sub.bus.topics[sub.topic]; ok {
			delete(t.subs, sub)
		}
		close(sub.ch)
	})
}

// PublishTrajectory latches the wire form of `traj` on TrajectoryTopic.
func (b *Bus) PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error {
	msg, err := traj.Message(robotID)
	if err != nil {
		return err
	}
	b.Publish(TrajectoryTopic(robotID), msg)
	return nil
}

// PublishSetpoint latches `setpoint` on SetpointTopic.
func (b *Bus) PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error {
	b.Publish(SetpointTopic(setpoint.RobotID), setpoint)
	return nil
}

// LatestTrajectory returns the last trajectory published for `robotID`.
func (b *Bus) LatestTrajectory(robotID int) (trajectory.Msg, bool) {
	value, ok := b.Latest(TrajectoryTopic(robotID))
	if !ok {
		return trajectory.Msg{}, false
	}
	msg, ok := value.(trajectory.Msg)
	return msg, ok
}

// LatestSetpoint returns the last setpoint published for `robotID`.
func (b *Bus) LatestSetpoint(robotID int) (planning.ManipulatorSetpoint, bool) {
	value, ok := b.Latest(SetpointTopic(robotID))
	if !ok {
		return planning.ManipulatorSetpoint{}, false
	}
	setpoint, ok := value.(planning.ManipulatorSetpoint)
	return setpoint, ok
}
