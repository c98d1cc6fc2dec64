package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "idmap-stress: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Optional TOML config file; flags override its values.")
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	capacity := flag.Int("capacity", 1024, "The initial number of slots.")
	seed := flag.Uint64("seed", 1, "Seed for the random workload.")
	replicate := flag.Bool("replicate", true, "Mirror every change into a replica table.")
	scriptPath := flag.String("script", "", "Replay a YAML event script into a fresh replica table.")
	recordPath := flag.String("record", "", "Write the first -record-limit events as a YAML script.")
	recordLimit := flag.Int("record-limit", 1000, "Maximum number of events written by -record.")
	format := flag.String("format", "markdown", "Report format: markdown or yaml.")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	ui := flag.Bool("ui", false, "Open a debug window and run one tick per frame.")
	flag.Parse()

	cfg := defaults()
	if *configPath != "" {
		loaded, err := Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Workload.Duration = *duration
		case "capacity":
			cfg.Workload.Capacity = *capacity
		case "seed":
			cfg.Workload.Seed = *seed
		case "replicate":
			cfg.Replica.Enabled = *replicate
		case "format":
			cfg.Report.Format = *format
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "gc-pause-metrics":
			cfg.Report.GCPauseMetrics = *gcPauseMetrics
		}
	})
	if err := cfg.validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	report := &Report{
		Duration:       cfg.Workload.Duration,
		Seed:           cfg.Workload.Seed,
		Capacity:       cfg.Workload.Capacity,
		OpsPerTick:     cfg.Workload.OpsPerTick,
		Replicated:     cfg.Replica.Enabled,
		Script:         *scriptPath,
		GCPauseMetrics: cfg.Report.GCPauseMetrics,
	}

	if *scriptPath != "" {
		log.Info("replaying script", zap.String("path", *scriptPath))
		replay, err := replayScript(*scriptPath, cfg.Replica.GrowStep, log)
		if err != nil {
			return err
		}
		report.Replay = replay
	}

	limit := 0
	if *recordPath != "" {
		limit = *recordLimit
	}
	workload := NewWorkload(cfg, log, limit)

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running workload",
		zap.Duration("duration", cfg.Workload.Duration),
		zap.Int("capacity", cfg.Workload.Capacity),
		zap.Uint64("seed", cfg.Workload.Seed),
		zap.Bool("replicate", cfg.Replica.Enabled),
	)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Workload.Duration)
	defer cancel()

	startTime := time.Now()
	tick := func() error {
		tickStart := time.Now()
		if err := workload.Tick(); err != nil {
			return fmt.Errorf("tick %d: %w", workload.Result().Ticks, err)
		}
		report.TickTime.Samples = append(report.TickTime.Samples, time.Since(tickStart))
		return nil
	}

	if *ui {
		if err := runUI(ctx, workload, tick); err != nil {
			return err
		}
	} else {
	Loop:
		for {
			select {
			case <-ctx.Done():
				break Loop
			default:
				if err := tick(); err != nil {
					return err
				}
			}
		}
	}

	if err := workload.Check(); err != nil {
		return fmt.Errorf("final check: %w", err)
	}

	report.TotalTime = time.Since(startTime)
	report.Result = workload.Result()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.Finalize()

	log.Info("workload finished",
		zap.Uint64("ticks", report.Result.Ticks),
		zap.Int("live", report.Result.Authority.Live),
		zap.Int("divergent", report.Result.Divergent),
	)

	if *recordPath != "" {
		if err := writeScript(*recordPath, fmt.Sprintf("seed-%d", cfg.Workload.Seed), workload.Recorded()); err != nil {
			return err
		}
		log.Info("recorded script", zap.String("path", *recordPath), zap.Int("events", len(workload.Recorded())))
	}

	return report.Write(os.Stdout, cfg.Report.Format)
}

func newLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}

	return zapCfg.Build()
}
