// Command gateway is the composition root: it wires the journaled queue,
// dispatcher, connector, resender, distributor, and exporters described by
// the loaded config and runs until an interrupt. DI bootstrapping beyond
// this is explicitly out of scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beeeon/gateway/adapters/beewi"
	"github.com/beeeon/gateway/connector"
	"github.com/beeeon/gateway/dispatch"
	"github.com/beeeon/gateway/distributor"
	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/exporter"
	"github.com/beeeon/gateway/internal/config"
	"github.com/beeeon/gateway/internal/log"
	"github.com/beeeon/gateway/model"
	"github.com/beeeon/gateway/queue"
	"github.com/beeeon/gateway/resender"
	"github.com/beeeon/gateway/status"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "/etc/gateway/config.yaml", "path to the gateway config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "gateway: "+err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.New(log.Config{
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
		Console:  cfg.Log.Console,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := executor.NewPool(cfg.Executor.PoolSize)
	defer exec.Close()

	dispatcher := dispatch.New(exec, logger)

	beeWiClim := beewi.New(model.NewDeviceID(model.PrefixBluetooth, 1))
	if err := dispatcher.RegisterHandler(beeWiClim); err != nil {
		return fmt.Errorf("register beewi adapter: %w", err)
	}

	transport, err := connector.DialGRPC(ctx, cfg.Connector.ServerAddr)
	if err != nil {
		return fmt.Errorf("dial gateway server: %w", err)
	}
	defer transport.Close()

	conn := connector.New(transport, exec, logger)

	rs := resender.New(conn, logger, resender.WithResendTimeout(cfg.Resender.Timeout))
	conn.RegisterListener(rs)
	go rs.Run()
	defer rs.Stop()

	strategy, err := queue.NewRecoverable(cfg.Queue.RootDir, nil)
	if err != nil {
		return fmt.Errorf("open export queue: %w", err)
	}

	queuingExporter := exporter.New(strategy, conn, logger,
		exporter.WithAcquireTimeout(cfg.Exporter.AcquireTimeout),
		exporter.WithSendFailedDelay(cfg.Exporter.SendFailedDelay),
		exporter.WithBatchSize(cfg.Exporter.BatchSize))
	conn.RegisterListener(onOtherListener{inner: queuingExporter})
	go queuingExporter.Run()
	defer queuingExporter.Stop()

	dist := distributor.New(logger,
		distributor.WithDeadTimeout(cfg.Distributor.DeadTimeout),
		distributor.WithIdleTimeout(cfg.Distributor.IdleTimeout),
		distributor.WithCapacity(cfg.Distributor.Capacity),
		distributor.WithBatchSize(cfg.Distributor.BatchSize),
		distributor.WithThreshold(cfg.Distributor.Threshold))
	dist.RegisterExporter(queuingShipper{queuingExporter})
	go dist.Run()
	defer dist.Stop()

	fetcher := status.New(dispatcher, logger)
	fetcher.RegisterHandler(statusHandler{beeWiClim})
	go fetcher.Run()
	defer fetcher.Stop()

	go conn.RunRecv(ctx)
	go conn.RunSend(ctx)

	logger.Info("gateway started", zap.String("server", cfg.Connector.ServerAddr))
	<-ctx.Done()
	logger.Info("gateway shutting down")
	return nil
}

// queuingShipper adapts exporter.Queuing's error-returning Ship to the
// distributor.Exporter contract's (bool, error) shape: a successful push
// onto the persistent strategy counts as shipped regardless of whether the
// network send behind it has completed yet, since Queuing itself owns
// retrying unconfirmed sends.
type queuingShipper struct {
	q *exporter.Queuing
}

func (s queuingShipper) Ship(data model.SensorData) (bool, error) {
	if err := s.q.Ship(data); err != nil {
		return false, err
	}
	return true, nil
}

// onOtherListener adapts a component that only cares about OnOther (such
// as exporter.Queuing) to the full connector.Listener contract.
type onOtherListener struct {
	connector.NopListener
	inner interface{ OnOther(model.GWMessage) }
}

func (l onOtherListener) OnOther(msg model.GWMessage) { l.inner.OnOther(msg) }

// statusHandler reports a prefix's paired-device set to the matching
// adapter; BeeWi SmartClim currently has nothing extra to do with it
// beyond knowing it is still paired, since it is purely a scan listener.
type statusHandler struct {
	adapter *beewi.SmartClim
}

func (h statusHandler) Prefix() model.DevicePrefix { return h.adapter.Prefix() }

func (h statusHandler) HandleRemoteStatus(prefix model.DevicePrefix, paired []model.DeviceID) {}
