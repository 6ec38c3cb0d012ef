package transport

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/logging"
)

// Topics feeding the global state.
const (
	WorldStateTopic      = "perception.world_state"
	GameSettingsTopic    = "referee.game_settings"
	RobotStatusTopicRoot = "radio.robot_status"
)

// GameSettings is the referee-derived part of the global state.
type GameSettings struct {
	GoalieID  *int                  `json:"goalie_id,omitempty"`
	PlayState globalstate.PlayState `json:"play_state,omitempty"`
}

// RobotStatus is the part of a robot's radio status the planner consumes.
type RobotStatus struct {
	HasBall bool `json:"has_ball"`
}

// BallSenseSink receives break-beam readings.
type BallSenseSink interface {
	SetBallSense(robotID int, hasBall bool) error
}

// StateFeed copies world, referee and robot status messages into a globalstate.State.
type StateFeed struct {
	state  *globalstate.State
	sink   BallSenseSink
	logger logging.Logger
	subs   []*nats.Subscription
}

// FeedState subscribes `state` and `sink` to their NATS topics.
func FeedState(conn *nats.Conn, state *globalstate.State, sink BallSenseSink, logger logging.Logger) (*StateFeed, error) {
	feed := &StateFeed{state: state, sink: sink, logger: logger}
	for topic, handler := range map[string]nats.MsgHandler{
		WorldStateTopic:             feed.handleWorld,
		GameSettingsTopic:           feed.handleGameSettings,
		RobotStatusTopicRoot + ".*": feed.handleRobotStatus,
	} {
		sub, err := conn.Subscribe(topic, handler)
		if err != nil {
			return nil, multierr.Combine(errors.Wrapf(err, "failed to subscribe to %s", topic), feed.Close())
		}
		feed.subs = append(feed.subs, sub)
	}
	return feed, nil
}

func (feed *StateFeed) handleWorld(msg *nats.Msg) {
	var world globalstate.WorldState
	if err := json.Unmarshal(msg.Data, &world); err != nil {
		feed.logger.Warnw("dropping malformed world state", "error", err)
		return
	}
	feed.state.SetWorld(&world)
}

func (feed *StateFeed) handleGameSettings(msg *nats.Msg) {
	var settings GameSettings
	if err := json.Unmarshal(msg.Data, &settings); err != nil {
		feed.logger.Warnw("dropping malformed game settings", "error", err)
		return
	}
	feed.applyGameSettings(settings)
}

func (feed *StateFeed) applyGameSettings(settings GameSettings) {
	feed.state.Update(func(next *globalstate.Snapshot) {
		if settings.GoalieID != nil {
			next.GoalieID = *settings.GoalieID
		}
		if settings.PlayState != "" {
			next.PlayState = settings.PlayState
		}
	})
}

func (feed *StateFeed) handleRobotStatus(msg *nats.Msg) {
	robotID, err := robotIDFromTopic(RobotStatusTopicRoot, msg.Subject)
	if err != nil {
		feed.logger.Warnw("dropping robot status", "error", err)
		return
	}
	var status RobotStatus
	if err := json.Unmarshal(msg.Data, &status); err != nil {
		feed.logger.Warnw("dropping malformed robot status", "robot", robotID, "error", err)
		return
	}
	if err := feed.sink.SetBallSense(robotID, status.HasBall); err != nil {
		feed.logger.Debugw("dropping robot status", "robot", robotID, "error", err)
	}
}

// Close unsubscribes from every topic.
func (feed *StateFeed) Close() error {
	var errs error
	for _, sub := range feed.subs {
		errs = multierr.Append(errs, sub.Unsubscribe())
	}
	return errs
}
