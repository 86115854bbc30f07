package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	auth "github.com/goliatone/go-auth-bearer"
	"github.com/goliatone/go-auth-bearer/metrics"
	"github.com/goliatone/go-auth-bearer/repository"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("AUTH_CONFIG"), "path to the YAML settings file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logrus.WithError(err).Fatal("authd stopped")
	}
}

func run(configPath string) error {
	settings, err := auth.LoadSettings(configPath)
	if err != nil {
		return err
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.Debugf("settings: %s", print.MaybePrettyJSON(settings.Redacted()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(settings.DatabaseDSN)
	if err != nil {
		return err
	}

	mngr := repository.NewManager(db)
	mngr.MustValidate()
	defer mngr.Close()

	if err := mngr.Migrate(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := NewServer(settings, mngr.Users(), ServerOptions{
		Logger:  logger,
		Metrics: metrics.NewCollector(registry),
		Debug:   level >= logrus.DebugLevel,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", settings.ListenAddr).Info("authd listening")
		return app.Listen(settings.ListenAddr)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("authd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
