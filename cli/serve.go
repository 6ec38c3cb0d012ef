package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sslcore/planner/config"
	"github.com/sslcore/planner/globalstate"
	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/scheduler"
	"github.com/sslcore/planner/transport"
	"github.com/sslcore/planner/web"
)

// ServeAction runs the planner described by the config until interrupted.
func ServeAction(c *cli.Context) error {
	path, err := configPath(c)
	if err != nil {
		return err
	}
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, c.Bool(debugFlag))
}

// newLogger builds the root logger with the appenders requested by `cfg`. The returned closer
// releases the log file.
func newLogger(cfg *config.Config, debugMode bool) (logging.Logger, func() error) {
	logger := logging.NewLogger("plannerd")
	if debugMode || cfg.Debug {
		logging.GlobalLogLevel.SetLevel(zap.DebugLevel)
		logger.SetLevel(logging.DEBUG)
	}
	closer := func() error { return nil }
	if cfg.LogFile != nil {
		fileAppender := logging.NewFileAppender(cfg.LogFile.Path, cfg.LogFile.MaxSizeMB, cfg.LogFile.MaxBackups)
		logger.AddAppender(fileAppender)
		closer = fileAppender.Close
	}
	return logger, closer
}

// Serve wires the scheduler to its inputs and outputs and runs until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, debugMode bool) (err error) {
	logger, closeLog := newLogger(cfg, debugMode)
	logging.ReplaceGlobal(logger)
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		err = multierr.Combine(err, logger.Sync(), closeLog())
	}()

	logRegistry := logging.NewRegistry()
	logRegistry.UpdateConfig(cfg.LogConfig, logger.GetLevel(), logger)

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	state := globalstate.NewState(clock.New(), cfg.NumRobots)
	state.SetObstacles(cfg.FieldObstacles, cfg.DefenseAreas)

	bus := transport.NewBus()
	publishers := transport.Publishers{bus}

	var natsConn *nats.Conn
	if cfg.NATS != nil {
		name := cfg.NATS.Name
		if name == "" {
			name = "plannerd"
		}
		natsConn, err = transport.DialNATS(cfg.NATS.URL, name, logger.Sublogger("nats"))
		if err != nil {
			return err
		}
		closers = append(closers, func() error {
			natsConn.Close()
			return nil
		})
		publishers = append(publishers, transport.NewNATSPublisher(natsConn))
	}
	if cfg.Redis != nil {
		client, err := transport.DialRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)
		publishers = append(publishers, transport.NewRedisLatch(client))
	}

	schedConf := cfg.SchedulerConfig()
	schedConf.Metrics = scheduler.NewMetrics(metricsRegistry)
	schedConf.LogRegistry = logRegistry
	node, err := scheduler.NewNode(schedConf, state, publishers, logRegistry.Sublogger(logger, "scheduler"))
	if err != nil {
		return err
	}
	closers = append(closers, node.Close)

	if cfg.OverridesFile != "" {
		watcher, err := globalstate.WatchOverrides(ctx, cfg.OverridesFile, state, logger.Sublogger("overrides"))
		if err != nil {
			return err
		}
		closers = append(closers, watcher.Close)
	}

	if natsConn != nil {
		feed, err := transport.FeedState(natsConn, state, node, logger.Sublogger("feed"))
		if err != nil {
			return err
		}
		closers = append(closers, feed.Close)
		svc, err := transport.ServeIntents(natsConn, node, logger.Sublogger("intents"))
		if err != nil {
			return err
		}
		closers = append(closers, svc.Close)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if !cfg.HTTP.Disabled {
		server := web.NewServer(node, metricsRegistry, logger.Sublogger("http"))
		group.Go(func() error {
			return server.ListenAndServe(groupCtx, cfg.HTTP.ListenAddress)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})
	logger.Infow("plannerd running", "config", cfg.ConfigFilePath, "robots", cfg.NumRobots)
	return group.Wait()
}
