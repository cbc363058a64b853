package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/pos/internal/application/pos"
	"github.com/erp/pos/internal/infrastructure/config"
	"github.com/erp/pos/internal/infrastructure/logger"
	"github.com/erp/pos/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	var (
		configPath string
		logLevel   string
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return 2
	}

	// Load configuration
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	// Initialize logger; stdout is reserved for command output
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Start(ctx, telemetry.Settings{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		Environment:       cfg.App.Env,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		Profiling: telemetry.ProfilerConfig{
			Enabled:       cfg.Profiling.Enabled,
			ServerAddress: cfg.Profiling.ServerAddress,
			Tags:          map[string]string{"env": cfg.App.Env},
		},
	}, logger.Named(log, "telemetry"))
	if err != nil {
		log.Error("Failed to initialize telemetry", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	app, err := pos.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open point of sale", zap.Error(err))
		return 1
	}
	defer func() {
		_ = app.Close()
	}()

	if err := run(ctx, app, args, os.Stdout); err != nil {
		log.Debug("Command failed", zap.Strings("args", args), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: pos [flags] <command> [subcommand] [options]

Commands:
  user add -username NAME -password PW [-manager]
  user list
  user passwd -username NAME -password PW
  login -username NAME -password PW

  item add -name NAME -price P -quantity N [-category C] [-supplier S] [-purchase-price P]
  item restock -name NAME -amount N -price P
  item remove -name NAME
  item list [-q QUERY]
  item report -name NAME
  item low-stock [-threshold N]

  customer add -name NAME [-surname S] [-phone P] [-points N]
  customer list
  customer history -id ID

  sale -cashier NAME -password PW -items "Milk:4,Bread:1" [-buyer ID] [-redeem] [-total T]

  report daily [-date YYYY-MM-DD]
  report monthly -year Y -month M
  report yearly -year Y

Flags:
`)
	flag.PrintDefaults()
}
