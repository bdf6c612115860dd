package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/joeycumines/go-udpflood/flood"
	"github.com/joeycumines/go-udpflood/loop"
	"github.com/joeycumines/go-udpflood/report"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

// run floods until interrupted, by SIGINT or SIGTERM, or ctx.
func run(ctx context.Context, s *settings, cmd *cobra.Command) (err error) {
	logger, closeLog, err := newLogger(s, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if e := closeLog(); err == nil {
			err = e
		}
	}()

	undoMaxProcs := tuneRuntime(logger)
	defer undoMaxProcs()

	cfg, err := s.floodConfig(runtime.GOMAXPROCS(0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, logger, cfg, s)
}

// tuneRuntime sets GOMAXPROCS and GOMEMLIMIT from any container limits.
func tuneRuntime(logger *logiface.Logger[logiface.Event]) func() {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Log(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logger.Warning().Err(err).Log(`failed to set GOMAXPROCS`)
		undo = func() {}
	}

	limit, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.9),
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	)
	if err != nil {
		logger.Debug().Err(err).Log(`GOMEMLIMIT not set`)
	} else {
		logger.Debug().Int64(`limit`, limit).Log(`GOMEMLIMIT set`)
	}

	return undo
}

// serve runs the primary loop, hosting the reporter and worker 1, until ctx
// is canceled, then tears everything down. Worker 1 is drained by the
// loop's close.
func serve(ctx context.Context, logger *logiface.Logger[logiface.Event], cfg flood.Config, s *settings) error {
	stats := new(flood.Stats)

	manager, err := flood.NewManager(
		cfg,
		stats,
		flood.WithLogger(logger),
		flood.WithSendBuffer(s.SendBuffer),
		flood.WithCPUAffinity(s.CPUAffinity),
	)
	if err != nil {
		return err
	}

	l, err := loop.New(loop.WithLogger(logger), loop.WithName(`main`))
	if err != nil {
		return err
	}

	reporter, err := report.New(stats, report.WithLogger(logger), report.WithRaw(s.RawStats))
	if err != nil {
		return errors.Join(err, l.Close())
	}
	if err := reporter.Start(l); err != nil {
		return errors.Join(err, l.Close())
	}

	logger.Info().
		Str(`address`, cfg.Address).
		Int(`port_min`, cfg.PortMin).
		Int(`port_max`, cfg.PortMax).
		Int(`size_min`, cfg.SizeMin).
		Int(`size_max`, cfg.SizeMax).
		Dur(`timeout`, cfg.Timeout).
		Int(`workers`, cfg.Workers).
		Log(`starting`)

	workers, err := manager.Start(l)
	if err != nil {
		reporter.Close()
		logger.Err().Err(err).Log(`failed to start workers`)
		return errors.Join(err, l.Close())
	}

	err = l.Run(ctx)
	if ctx.Err() != nil {
		logger.Notice().Log(`interrupted`)
		err = nil
	}

	reporter.Close()
	manager.Stop(workers)
	if e := l.Close(); e != nil {
		err = errors.Join(err, e)
	}
	reporter.Log(reporter.Sample())

	return err
}
