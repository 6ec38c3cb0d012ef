package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/trajectory"
)

// DialNATS connects to the NATS server at `url`, reconnecting forever.
func DialNATS(url, name string, logger logging.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnw("disconnected from nats", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infow("reconnected to nats", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to nats at %s", url)
	}
	return conn, nil
}

// NATSPublisher publishes trajectories and setpoints as JSON on their robot topics.
type NATSPublisher struct {
	conn *nats.Conn
}

var _ scheduler.Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher returns a publisher writing to `conn`.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishTrajectory implements scheduler.Publisher.
func (np *NATSPublisher) PublishTrajectory(ctx context.Context, robotID int, traj trajectory.Trajectory) error {
	data, err := encodeTrajectory(robotID, traj)
	if err != nil {
		return err
	}
	return np.conn.Publish(TrajectoryTopic(robotID), data)
}

// PublishSetpoint implements scheduler.Publisher.
func (np *NATSPublisher) PublishSetpoint(ctx context.Context, setpoint planning.ManipulatorSetpoint) error {
	data, err := json.Marshal(setpoint)
	if err != nil {
		return err
	}
	return np.conn.Publish(SetpointTopic(setpoint.RobotID), data)
}

func encodeTrajectory(robotID int, traj trajectory.Trajectory) ([]byte, error) {
	msg, err := traj.Message(robotID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// IntentHandler executes intents received by an IntentService.
type IntentHandler interface {
	SubmitIntent(ctx context.Context, intent planning.RobotIntent) (scheduler.Result, error)
	Cancel(robotID int) error
}

// MoveReply is the reply to a move or cancel request. Result is nil for cancel replies and on
// error.
type MoveReply struct {
	*scheduler.Result
	Error string `json:"error,omitempty"`
}

// IntentService answers move requests on RobotMoveTopic and cancel requests on
// RobotCancelTopic. Each move request is handled on its own goroutine and answered once its goal
// finishes.
type IntentService struct {
	handler IntentHandler
	logger  logging.Logger
	subs    []*nats.Subscription

	cancelCtx     context.Context
	cancelFunc    context.CancelFunc
	activeWorkers sync.WaitGroup
}

// ServeIntents subscribes `handler` to the move and cancel topics of every robot.
func ServeIntents(conn *nats.Conn, handler IntentHandler, logger logging.Logger) (*IntentService, error) {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	svc := &IntentService{
		handler:    handler,
		logger:     logger,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
	}

	moveSub, err := conn.Subscribe(RobotMoveTopicRoot+".*", svc.handleMove)
	if err != nil {
		cancelFunc()
		return nil, errors.Wrap(err, "failed to subscribe to move requests")
	}
	svc.subs = append(svc.subs, moveSub)

	cancelSub, err := conn.Subscribe(RobotMoveTopicRoot+".*."+cancelSuffix, svc.handleCancel)
	if err != nil {
		return nil, multierr.Combine(errors.Wrap(err, "failed to subscribe to cancel requests"), svc.Close())
	}
	svc.subs = append(svc.subs, cancelSub)
	return svc, nil
}

func (svc *IntentService) handleMove(msg *nats.Msg) {
	svc.activeWorkers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer svc.activeWorkers.Done()
		reply := svc.move(svc.cancelCtx, msg.Subject, msg.Data)
		svc.respond(msg, reply)
	})
}

func (svc *IntentService) move(ctx context.Context, subject string, data []byte) MoveReply {
	robotID, err := robotIDFromTopic(RobotMoveTopicRoot, subject)
	if err != nil {
		return MoveReply{Error: err.Error()}
	}
	var intent planning.RobotIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return MoveReply{Error: errors.Wrap(err, "invalid intent").Error()}
	}
	intent.RobotID = robotID
	if err := intent.Validate(); err != nil {
		return MoveReply{Error: err.Error()}
	}

	result, err := svc.handler.SubmitIntent(ctx, intent)
	if err != nil {
		return MoveReply{Error: err.Error()}
	}
	return MoveReply{Result: &result}
}

func (svc *IntentService) handleCancel(msg *nats.Msg) {
	reply := MoveReply{}
	robotID, err := robotIDFromTopic(RobotMoveTopicRoot, msg.Subject)
	if err == nil {
		err = svc.handler.Cancel(robotID)
	}
	if err != nil {
		reply.Error = err.Error()
	}
	svc.respond(msg, reply)
}

func (svc *IntentService) respond(msg *nats.Msg, reply MoveReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		svc.logger.Errorw("failed to encode reply", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		svc.logger.Warnw("failed to reply", "subject", msg.Subject, "error", err)
	}
}

// Close unsubscribes, cancels the goals of requests in flight and waits for their replies.
func (svc *IntentService) Close() error {
	var errs error
	for _, sub := range svc.subs {
		errs = multierr.Append(errs, sub.Unsubscribe())
	}
	svc.cancelFunc()
	svc.activeWorkers.Wait()
	return errs
}
