// Command headless flies a fleet of episodes without rendering and stores the
// results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/smentu/AI-guided-rockets/internal/config"
	"github.com/smentu/AI-guided-rockets/internal/influx"
	"github.com/smentu/AI-guided-rockets/internal/logging"
	"github.com/smentu/AI-guided-rockets/internal/model"
	rocketotel "github.com/smentu/AI-guided-rockets/internal/otel"
	"github.com/smentu/AI-guided-rockets/internal/plot"
	"github.com/smentu/AI-guided-rockets/internal/sim"
	"github.com/smentu/AI-guided-rockets/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("headless", pflag.ContinueOnError)
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)
	duration := fs.Duration("duration", 0, "wall-clock limit for the run, 0 for none")
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fileErr := config.Load(*configDir)
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	logCfg := config.GetLogConfig()
	log, err := logging.Setup(logCfg, os.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()
	if fileErr != nil {
		log.Warn().Err(fileErr).Msg("No config file, using defaults")
	}

	runCfg := config.GetRunConfig()
	vehicle, err := vehicleConfig(runCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	ctx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)

	fleet, err := buildFleet(vehicle, runCfg, log.Logger)
	if err != nil {
		return err
	}

	// storage
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, log.Logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("storage init: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing storage")
		}
	}()
	recorder := storage.NewRecorder(backend, storageCfg.SampleEvery, runCfg.Autopilot, log.Logger)

	// influx
	influxMgr := influx.NewManager(log.Logger, config.GetInfluxConfig())
	influxOn := true
	if err := influxMgr.Connect(ctx); err != nil {
		influxOn = false
		if !errors.Is(err, influx.ErrDisabled) {
			log.Warn().Err(err).Msg("InfluxDB unavailable")
		}
	}
	defer influxMgr.Close()

	// metrics
	metrics, provider, metricsFile, err := setupMetrics(logCfg.Dir, vehicle.Name)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down metrics")
		}
		if metricsFile != nil {
			metricsFile.Close()
		}
	}()

	trace := plot.NewTrace(0)
	dt := 1.0 / float64(runCfg.UPS)

	log.Info().
		Str("vehicle", vehicle.Name).
		Int("episodes", fleet.Len()).
		Int("ups", runCfg.UPS).
		Bool("autopilot", runCfg.Autopilot).
		Str("storage", storageCfg.Type).
		Msg("Starting run")

	start := time.Now()
	performed, runErr := fleet.Run(ctx, runCfg.Steps, dt, func(results []sim.StepResult) {
		episodes := fleet.Episodes()
		if err := recorder.Observe(episodes, results); err != nil {
			cancelRun(err)
			return
		}
		if influxOn {
			writeInflux(influxMgr, log.Logger, vehicle.Name, storageCfg.SampleEvery, episodes, results)
		}
		metrics.RecordTick(ctx, episodes, results)
		trace.Observe(results)
	})
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("recording failed: %w", cause)
	}
	if runErr != nil {
		log.Warn().Err(runErr).Msg("Run stopped early")
	}
	if err := recorder.Finish(fleet.Episodes()); err != nil {
		return err
	}

	st := fleet.Stats()
	reasons := zerolog.Dict()
	for reason, n := range st.Reasons {
		reasons.Int(string(reason), n)
	}
	log.Info().
		Int("ticks", performed).
		Dur("elapsed", time.Since(start)).
		Int("finished", st.Episodes).
		Float64("meanReward", st.MeanReward).
		Float64("bestReward", st.BestReward).
		Dict("reasons", reasons).
		Msg("Run complete")

	if runCfg.PlotDir != "" {
		files, err := trace.Save(runCfg.PlotDir)
		if err != nil {
			log.Error().Err(err).Msg("Error writing plots")
		} else {
			log.Info().Strs("files", files).Msg("Plots written")
		}
	}

	// Print simple telemetry of the leader
	leader := fleet.Episodes()[0]
	snap := leader.Body().Snapshot()
	fmt.Printf("Completed %d steps. Leader pos=(%.2f, %.2f, %.2f) fuel=%.1f reward=%.2f\n",
		performed, snap.Position.X(), snap.Position.Y(), snap.Position.Z(),
		leader.Rocket().Propulsion().Fuel(), leader.Shaper().Cumulative())
	return nil
}

func vehicleConfig(runCfg config.RunConfig) (sim.VehicleConfig, error) {
	var (
		cfg sim.VehicleConfig
		err error
	)
	if runCfg.Profile != "" {
		cfg, err = config.LoadProfile(runCfg.Profile, runCfg.Vehicle)
	} else {
		cfg, err = sim.Preset(runCfg.Vehicle)
	}
	if err != nil {
		return cfg, err
	}
	if runCfg.MaxSteps > 0 {
		cfg.Reward.MaxSteps = runCfg.MaxSteps
	}
	return cfg, nil
}

func buildFleet(vehicle sim.VehicleConfig, runCfg config.RunConfig, log zerolog.Logger) (*sim.Fleet, error) {
	arena := strings.ToLower(runCfg.Vehicle)
	episodes := make([]*sim.Episode, 0, runCfg.Episodes)
	for i := 0; i < runCfg.Episodes; i++ {
		ep, err := sim.NewEpisode(vehicle, sim.ArenaFor(arena, runCfg.Seed+uint64(i)),
			sim.WithEpisodeLogger(log.With().Int("slot", i).Logger()))
		if err != nil {
			return nil, err
		}
		if runCfg.Autopilot {
			ep.Rocket().Autopilot().Enable()
		}
		episodes = append(episodes, ep)
	}
	return sim.NewFleet(episodes, nil), nil
}

// setupMetrics builds the metric instruments. When metrics are enabled they
// are exported to a file in the logs directory, which the caller closes.
func setupMetrics(logDir, vehicle string) (*rocketotel.Metrics, *rocketotel.Provider, *os.File, error) {
	cfg := config.GetOTelConfig()
	otelCfg := rocketotel.Config{
		Enabled:        cfg.Enabled,
		ServiceName:    cfg.ServiceName,
		ExportInterval: cfg.ExportInterval,
	}
	var file *os.File
	if cfg.Enabled {
		if logDir == "" {
			logDir = "."
		}
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(logDir, "rocketsim_metrics.json"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open metrics file: %w", err)
		}
		file = f
		otelCfg.Writer = f
	}
	provider, err := rocketotel.New(otelCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	metrics, err := rocketotel.NewMetrics(provider.Meter(rocketotel.MeterName), vehicle)
	if err != nil {
		return nil, nil, nil, err
	}
	return metrics, provider, file, nil
}

func writeInflux(m *influx.Manager, log zerolog.Logger, vehicle string, sampleEvery int, episodes []*sim.Episode, results []sim.StepResult) {
	now := time.Now()
	for i, res := range results {
		if res.Step == 0 {
			continue
		}
		if res.Step%sampleEvery == 0 || res.Terminal != nil {
			if err := m.WriteStep(vehicle, model.StepFromResult(res), now); err != nil {
				log.Error().Err(err).Msg("Error writing step to InfluxDB")
			}
		}
		if res.Terminal != nil {
			fuel := episodes[i].Rocket().Propulsion().Fuel()
			if err := m.WriteSummary(vehicle, model.SummaryFromResult(res, fuel, now)); err != nil {
				log.Error().Err(err).Msg("Error writing summary to InfluxDB")
			}
		}
	}
}
