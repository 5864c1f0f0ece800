package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"chaoscert/internal/cluster"
	"chaoscert/internal/config"
	"chaoscert/internal/driver"
	"chaoscert/internal/health"
	"chaoscert/internal/journal"
	"chaoscert/internal/logging"
	"chaoscert/internal/orchestrator"
	"chaoscert/internal/runtime"
)

func main() {
	var (
		configPath string
		mode       string
		count      uint64
		payload    int
		host       string
		showRuns   bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&mode, "mode", "failover", "Run mode: failover or smoke")
	flag.Uint64Var(&count, "count", 0, "Override amount of records to process")
	flag.IntVar(&payload, "payload", 0, "Override payload size in bytes")
	flag.StringVar(&host, "node", "", "Override target node address")
	flag.BoolVar(&showRuns, "show-runs", false, "Print recorded runs from the journal and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(fmt.Errorf("failed to load configuration: %w", err))
	}
	if count > 0 {
		cfg.Driver.Count = count
	}
	if payload > 0 {
		cfg.Driver.Payload = payload
	}
	if host != "" {
		cfg.Cluster.Host = host
	}

	logger := logging.NewLogger(&cfg.Logging)

	if showRuns {
		if err := printRuns(cfg); err != nil {
			fatal(err)
		}
		return
	}

	if err := run(cfg, logger, mode); err != nil {
		fatal(err)
	}
	logger.Info("Certification run passed", "mode", mode)
}

func run(cfg *config.Config, logger *logging.Logger, mode string) error {
	topo, err := cluster.NewTopology(cfg.Cluster.Host, cfg.Cluster.NodesAmount,
		cfg.Cluster.TransportMinPort, cfg.Cluster.RestMinPort)
	if err != nil {
		return err
	}

	controller, err := runtime.NewController(logger)
	if err != nil {
		return err
	}

	policy := health.Policy{
		Tries:      cfg.Health.Tries,
		Delay:      cfg.Health.Delay,
		Multiplier: cfg.Health.Multiplier,
		MaxDelay:   cfg.Health.MaxDelay,
	}
	monitor := health.NewMonitor(policy, cfg.Health.Timeout, logger)
	runner := driver.NewRunner(cfg.Driver.Binary, logger)

	orch := orchestrator.New(cfg, topo, controller, runner, monitor, logger)

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.WithError(err).Warn("Journal unavailable, continuing without it")
		} else {
			defer j.Close()
			orch.WithRecorder(j)
		}
	}

	ctx := context.Background()
	switch mode {
	case "failover":
		return orch.Run(ctx)
	case "smoke":
		return orch.RunSmoke(ctx)
	default:
		return fmt.Errorf("unknown run mode: %s", mode)
	}
}

func printRuns(cfg *config.Config) error {
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("run %s (%d events)\n", run.RunID, len(run.Events))
		for _, event := range run.Events {
			fmt.Printf("  %s  %-15s %s\n",
				event.Time.Format("15:04:05"), event.Phase, event.Message)
		}
	}
	return nil
}

// fatal prints a single diagnostic line and exits non-zero, the process
// exit contract of the harness
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "chaoscert: %v\n", err)
	os.Exit(1)
}
