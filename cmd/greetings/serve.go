package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/omni/festival-greetings/config"
	"github.com/omni/festival-greetings/db"
	"github.com/omni/festival-greetings/monitor"
	"github.com/omni/festival-greetings/presenter"
	"github.com/omni/festival-greetings/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the sender contract monitor and the metrics endpoint",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if a.cfg.DBConfig == nil {
		return fmt.Errorf("postgres: %w", config.ErrMissingSection)
	}
	sender, err := a.newSenderContract()
	if err != nil {
		return err
	}

	dbConn, err := db.ConnectToDBAndMigrate(a.cfg.DBConfig)
	if err != nil {
		return fmt.Errorf("can't connect to database and apply migrations: %w", err)
	}
	defer dbConn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go serveMetrics(ctx, a)

	repo := repository.NewRepo(dbConn)
	svc := a.newRelay(sender, repo.Greetings)
	if err = svc.Restore(ctx); err != nil {
		a.logger.WithError(err).Warn("can't restore recent greetings, starting with an empty list")
	}
	if link, err := sender.LinkToken(ctx); err != nil {
		a.logger.WithError(err).Warn("can't read sender fee token")
	} else {
		a.logger.WithField("link_token", link).Info("sender contract fee token")
	}
	svc.Start(ctx)

	m, err := monitor.NewMonitor(ctx, a.logger.WithField("service", "monitor"), dbConn, repo, a.cfg, a.senderClient, svc)
	if err != nil {
		return fmt.Errorf("can't initialize sender contract monitor: %w", err)
	}
	m.Start(ctx)

	if a.cfg.Presenter != nil {
		pr := presenter.NewPresenter(a.logger.WithField("service", "presenter"), a.cfg, svc, m.IsSynced)
		go func() {
			if err2 := pr.Serve(ctx, a.cfg.Presenter.Host); err2 != nil {
				a.logger.WithError(err2).Error("can't serve presenter")
				stop()
			}
		}()
	}

	<-ctx.Done()
	a.logger.Warn("caught termination signal, gracefully terminating")
	return nil
}

func serveMetrics(ctx context.Context, a *app) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.WithError(err).Error("can't start listener for prometheus metrics")
	}
}
