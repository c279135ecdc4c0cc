package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/hifiberry"
	"github.com/gen2brain/hifiberry/internal/config"
	"github.com/gen2brain/hifiberry/internal/events"
	"github.com/gen2brain/hifiberry/internal/logging"
	"github.com/gen2brain/hifiberry/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// stream is a board configured for one stream and kept running by serve.
type stream interface {
	// restart stops the stream, applies the options and starts it again.
	restart(ctx context.Context, o *config.Options) error
	stop(ctx context.Context) error
}

// dacplusStream keeps a DAC+ running.
type dacplusStream struct {
	mu    sync.Mutex
	board *hifiberry.DACPlus
	s     hifiberry.StreamFormat
}

func (d *dacplusStream) start(ctx context.Context) error {
	c, err := d.board.Startup(hifiberry.PcmFormatToBits(d.s.Format) * d.s.Channels)
	if err != nil {
		return err
	}

	if !c.Allows(d.s.Rate) {
		return fmt.Errorf("rate %d: %w", d.s.Rate, hifiberry.ErrUnsatisfiable)
	}

	codec := d.board.Codec()
	if err := codec.SetBiasLevel(hifiberry.BiasStandby); err != nil {
		return err
	}

	if _, err := d.board.HwParams(d.s.Rate, d.s.Format, d.s.Channels); err != nil {
		return err
	}

	for _, level := range []hifiberry.BiasLevel{hifiberry.BiasPrepare, hifiberry.BiasOn} {
		if err := codec.SetBiasLevel(level); err != nil {
			return err
		}
	}

	return codec.MuteStream(ctx, false)
}

func (d *dacplusStream) restart(ctx context.Context, o *config.Options) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	codec := d.board.Codec()
	if codec.Overclock() == o.Overclock() {
		return nil
	}

	if err := codec.MuteStream(ctx, true); err != nil {
		return err
	}

	if err := codec.SetBiasLevel(hifiberry.BiasStandby); err != nil {
		return err
	}

	if err := codec.SetOverclock(o.Overclock()); err != nil {
		return err
	}

	return d.start(ctx)
}

func (d *dacplusStream) stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	codec := d.board.Codec()

	return errors.Join(
		codec.MuteStream(ctx, true),
		codec.SetBiasLevel(hifiberry.BiasOff),
		d.board.Shutdown(),
		codec.Remove(),
	)
}

// dac2hdStream keeps a DAC2 HD running. It has no runtime tunables.
type dac2hdStream struct {
	board *hifiberry.DAC2HD
}

func (d *dac2hdStream) restart(context.Context, *config.Options) error {
	return nil
}

func (d *dac2hdStream) stop(context.Context) error {
	return d.board.Codec().MuteStream(true)
}

var serveStream streamFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Program the board for a stream, export its clock state and follow config changes",
	Long: `serve opens the configured board, starts it for the given stream and keeps it running.
Clock plans, rates and codec power states are exported as Prometheus metrics. When a config
file is used, changes to the overclock percentages restart the stream with the new values
and logging levels follow the file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	logger := logging.GetLogger("serve")

	s, err := serveStream.stream()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := events.New()
	obs := hifiberry.MultiObserver{metrics.New(reg), bus}

	defer bus.Subscribe(func(e events.DividersAppliedEvent) {
		logger.Info("Clock plan applied", "device", e.Device, "sample_rate", e.Plan.SampleRate, "sck", e.Plan.SCKRate, "dividers", e.Plan.Dividers.String())
	})()
	defer bus.Subscribe(func(e events.RateChangedEvent) {
		logger.Info("Clock rate changed", "device", e.Device, "rate", hifiberry.FormatRate(e.Rate))
	})()
	defer bus.Subscribe(func(e events.MuteTimeoutEvent) {
		logger.Warn("Mute state did not settle", "device", e.Device)
	})()
	defer bus.Subscribe(func(e events.ConfigReloadedEvent) {
		if e.Err != nil {
			logger.Warn("Config not applied", "path", e.Path, "error", e.Err)
		}
	})()

	var cl closers
	defer cl.Close()

	var st stream

	kind, _ := hifiberry.ParseBoardKind(opts.Board)
	switch kind {
	case hifiberry.BoardDAC2HD:
		board, err := openDAC2HD(obs, &cl)
		if err != nil {
			return err
		}

		if err := board.HwParams(s.Rate, s.Format); err != nil {
			return err
		}

		if err := board.Codec().MuteStream(false); err != nil {
			return err
		}

		st = &dac2hdStream{board: board}

	default:
		board, err := openDACPlus(obs, &cl)
		if err != nil {
			return err
		}

		dp := &dacplusStream{board: board, s: s}
		if err := dp.start(ctx); err != nil {
			return err
		}

		st = dp
	}

	logger.Info("Stream started", "board", kind, "stream", s.String())

	if opts.Config != "" {
		w := config.NewWatcher(opts.Config, config.Load, logging.GetLogger("config"),
			config.WithErrorHandler[*config.Options](func(err error) {
				bus.Publish(events.ConfigReloadedEvent{Path: opts.Config, Err: err, Timestamp: time.Now()})
			}),
		)

		w.OnReload(func(o *config.Options) {
			logging.Initialize(o.Logging())

			err := st.restart(ctx, o)
			bus.Publish(events.ConfigReloadedEvent{Path: opts.Config, Err: err, Timestamp: time.Now()})
		})

		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer w.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              opts.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Metrics endpoint listening", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(sctx)
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("sd_notify failed", "error", err)
	} else if ok {
		logger.Debug("Notified systemd")
	}

	err = g.Wait()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := st.stop(sctx); serr != nil {
		logger.Warn("Failed to stop stream", "error", serr)
	}

	logger.Info("Stopped", "error", err)

	return err
}

func init() {
	serveStream.register(serveCmd.Flags())
}
