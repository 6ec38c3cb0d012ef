package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/trajectory"
)

// TrajectoryKey is the redis key and pub/sub channel of the trajectories of `robotID`.
func TrajectoryKey(robotID int) string {
	return fmt.Sprintf("planning:trajectory:%d", robotID)
}

// SetpointChannel is the redis pub/sub channel of the setpoints of `robotID`.
func SetpointChannel(robotID int) string {
	return fmt.Sprintf("control:manipulator_setpoint:%d", robotID)
}

// RedisLatch stores the last trajectory of every robot in redis and announces each one on a
// pub/sub channel of the same name, so late readers can always fetch the current trajectory.
type RedisLatch struct {
	client *redis.Client
}

var _ scheduler.Publisher = (*RedisLatch)(nil)

// NewRedisLatch returns a latch writing through `client`.
func NewRedisLatch(client *redis.Client) *RedisLatch {
	return &RedisLatch{client: client}
}

// DialRedis returns a client for the redis server at `addr` after checking it is reachable.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(multierr.Combine(err, client.Close()), "failed to connect to redis at %s", addr)
	}
	return client, nil
}

// PublishTrajectory implements scheduler.Publisher.
func (rl *RedisLatch) PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error {
	data, err := encodeTrajectory(robotID, traj)
	if err != nil {
		return err
	}
	key := TrajectoryKey(robotID)
	_, err = rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.Publish(ctx, key, data)
		return nil
	})
	return errors.Wrapf(err, "failed to latch trajectory of robot %d", robotID)
}

// PublishSetpoint implements scheduler.Publisher. Setpoints are only announced, not stored.
func (rl *RedisLatch) PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error {
	data, err := json.Marshal(setpoint)
	if err != nil {
		return err
	}
	return rl.client.Publish(ctx, SetpointChannel(setpoint.RobotID), data).Err()
}

// LatestTrajectory fetches the trajectory last stored for `robotID`.
func (rl *RedisLatch) LatestTrajectory(ctx context.Context, robotID int) (trajectory.Msg, bool, error) {
	data, err := rl.client.Get(ctx, TrajectoryKey(robotID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return trajectory.Msg{}, false, nil
	}
	if err != nil {
		return trajectory.Msg{}, false, err
	}
	var msg trajectory.Msg
	if err := json.Unmarshal(data, &msg); err != nil {
		return trajectory.Msg{}, false, errors.Wrapf(err, "corrupt trajectory stored for robot %d", robotID)
	}
	return msg, true, nil
}

// SubscribeTrajectories subscribes to the trajectory announcements of `robotIDs`.
func (rl *RedisLatch) SubscribeTrajectories(ctx context.Context, robotIDs ...int) *redis.PubSub {
	channels := make([]string, 0, len(robotIDs))
	for _, id := range robotIDs {
		channels = append(channels, TrajectoryKey(id))
	}
	return rl.client.Subscribe(ctx, channels...)
}
