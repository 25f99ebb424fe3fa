package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"sqs-event-poller/configs"
	"sqs-event-poller/internal/catalog"
	"sqs-event-poller/internal/http"
	"sqs-event-poller/internal/invoker"
	"sqs-event-poller/internal/logger"
	"sqs-event-poller/internal/metrics"
	"sqs-event-poller/internal/scheduler"
	"sqs-event-poller/internal/worker"
)

func main() {
	app := &cli.App{
		Name:  "sqs-poller",
		Usage: "Poll SQS or a local emulator and invoke functions with message batches",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Provision the declared queues and start polling",
				Action: start,
			},
			{
				Name:  "echo",
				Usage: "Serve a consumer that logs every invocation and succeeds",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":3002",
						EnvVars: []string{"ECHO_ADDR"},
					},
				},
				Action: echo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func start(c *cli.Context) error {
	cfg, err := configs.Parse()
	if err != nil {
		return fmt.Errorf("unable to parse config: %w", err)
	}
	if err := setupLogger(cfg.LogLevel, cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups); err != nil {
		return err
	}
	defer logger.Sync()

	metrics.Setup()

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defs, err := cat.Definitions(cfg.Region, cfg.AccountID)
	if err != nil {
		return err
	}

	transport, lookup, err := worker.NewTransport(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to create queue transport: %w", err)
	}

	sched := scheduler.New()
	inv := invoker.NewHTTP(cfg.InvokeEndpoint, cfg.InvokeTimeoutDuration, cfg.InvokeMaxRetries)
	es := worker.New(cfg, transport, lookup, cat, inv, sched)

	http.StartHTTPServer(ctx, cfg.HTTPAddr, func() bool { return !sched.Paused() })

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	logger.Info("Starting event sources",
		zap.Int("definitions", len(defs)), zap.String("endpoint", cfg.Endpoint), zap.Bool("emulator", cfg.IsEmulator()))
	es.Start()
	go func() {
		if err := es.Create(ctx, defs); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Failed to create event sources", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping pollers")
	es.Stop()
	<-done
	logger.Info("All cycles finished")
	return nil
}

func echo(c *cli.Context) error {
	if err := setupLogger("info", "", 0, 0); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &nethttp.Server{
		Addr:              c.String("addr"),
		Handler:           http.NewEchoConsumer(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Echo consumer listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

func setupLogger(level, file string, maxSizeMB, maxBackups int) error {
	if err := logger.Setup(logger.Options{
		Level:      level,
		FilePath:   file,
		MaxSizeMB:  maxSizeMB,
		MaxBackups: maxBackups,
	}); err != nil {
		return fmt.Errorf("unable to set up logger: %w", err)
	}
	return nil
}
