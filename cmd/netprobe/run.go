package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/api"
	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/service"
	"github.com/CZERTAINLY/netprobe/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHttpServerGracefulPeriod = 5 * time.Second
	defaultServerPort               = 8000
	inMemoryDB                      = ":memory:"
)

func doRun(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unsupported arguments: %s", strings.Join(args, ", "))
	}
	config, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd, "run")

	supervisor, err := service.NewSupervisor(ctx, config, newEngines(config).service())
	if err != nil {
		return err
	}

	sinks := []service.Sink{service.NewWriteSink(nil)}
	if config.Service.Server != nil && config.Service.Server.StateFile != "" {
		db, err := store.InitDB(ctx, config.Service.Server.StateFile)
		if err != nil {
			return err
		}
		defer closeDB(ctx, db)
		sinks = append(sinks, service.NewStoreSink(db))
	}
	supervisor = supervisor.WithSinks(sinks...)

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		errChan <- supervisor.Do(ctx)
	}()
	n := addJobs(ctx, supervisor, config.Service.Jobs)
	slog.DebugContext(ctx, "jobs registered", "count", n)

	if config.Service.Mode == model.ServiceModeManual {
		supervisor.Start("**")
	}

	return <-errChan
}

// doServe runs the HTTP API next to the supervisor until the process is
// interrupted. Configured jobs run once on startup in manual mode and by
// the schedule in timer mode; either way they can be started over the API.
func doServe(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unsupported arguments: %s", strings.Join(args, ", "))
	}
	config, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd, "serve")

	srvConfig := serverConfig(config.Service.Server)
	dbPath := srvConfig.StateFile
	if dbPath == "" {
		dbPath = inMemoryDB
	}
	db, err := store.InitDB(ctx, dbPath)
	if err != nil {
		return err
	}
	defer closeDB(ctx, db)

	eng := newEngines(config)
	supervisor, err := service.NewSupervisor(ctx, config, eng.service())
	if err != nil {
		return err
	}
	supervisor = supervisor.
		WithSinks(service.NewWriteSink(nil), service.NewStoreSink(db)).
		KeepRunning()

	apiSrv := api.New(srvConfig, eng.scanner, eng.whois, supervisor, db)
	httpSrv := &http.Server{
		Addr:              srvConfig.Addr.String(),
		Handler:           apiSrv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Do(gctx)
	})
	g.Go(func() error {
		slog.InfoContext(gctx, "Starting http server.", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultHttpServerGracefulPeriod)
		defer shutdownCancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.InfoContext(ctx, "Http server shutdown error.", slog.String("error", err.Error()))
		} else {
			slog.InfoContext(ctx, "Http server shutdown gracefully.")
		}
		return nil
	})

	addJobs(gctx, supervisor, config.Service.Jobs)
	if config.Service.Mode == model.ServiceModeManual {
		supervisor.Start("**")
	}

	return g.Wait()
}

func serverConfig(cfg *model.Server) model.Server {
	var ret model.Server
	if cfg != nil {
		ret = *cfg
	}
	if ret.Addr.TCPAddr == nil {
		ret.Addr = model.TCPAddr{TCPAddr: &net.TCPAddr{
			IP:   net.IPv4(127, 0, 0, 1),
			Port: defaultServerPort,
		}}
	}
	return ret
}

func closeDB(ctx context.Context, db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.ErrorContext(ctx, "closing database failed", "error", err)
	}
}
