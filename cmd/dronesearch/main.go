package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dronesearch/internal/config"
	"dronesearch/internal/evolution"
	"dronesearch/internal/logging"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/default.yaml", "path to config file (empty for defaults)")
	generations := flag.Int("generations", 0, "override stop.max_generations")
	workers := flag.Int("workers", 0, "override eval.workers")
	noMap := flag.Bool("no-map", false, "do not print the coverage map of the best plan")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *generations > 0 {
		cfg.Stop.MaxGenerations = *generations
	}
	if *workers > 0 {
		cfg.Eval.Workers = *workers
	}

	logger := logging.NewSlog(os.Stderr, cfg.Logging.Level)

	fmt.Printf("Drone search - %dx%d grid, %d drones, start %v\n",
		cfg.Grid.Size, cfg.Grid.Size, cfg.Drones.Count, cfg.Start())
	fmt.Printf("Config: %s\n", *configPath)
	fmt.Printf("Population: %d, Selection: %s (%d), Crossover: %s, Mutations: %d\n",
		cfg.GA.Population, cfg.GA.Selection, cfg.GA.SelectCount, cfg.GA.Crossover, cfg.GA.MutationCount)
	fmt.Println("---")

	// Create run log
	runLog, err := logging.NewLogger(cfg.Logging.CSVPath, cfg.Logging.JSONPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	runLog.SetSummary(cfg.Logging.EveryGenSummary)
	if err := runLog.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer runLog.Close()

	opts := []evolution.Option{
		evolution.WithLogger(logger),
		evolution.WithObserver(runLog),
	}

	// Optional Prometheus endpoint
	if cfg.Metrics.Addr != "" {
		metrics := logging.NewMetrics()
		opts = append(opts, evolution.WithObserver(metrics))

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	loop := evolution.New(cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	runErr := loop.Run(ctx)
	elapsed := time.Since(startTime)

	last := loop.Last()
	fmt.Println("---")
	switch {
	case runErr == nil:
		fmt.Printf("Search complete! %d generations in %v\n", last.Generation, elapsed)
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, evolution.ErrStopped):
		fmt.Printf("Search interrupted after %v\n", elapsed)
	default:
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", runErr)
		runLog.Close()
		os.Exit(1)
	}

	if last.Generation == 0 {
		return
	}
	logging.WriteSummary(os.Stdout, last)
	if !*noMap {
		logging.RenderMap(os.Stdout, last.BestOfAll, cfg.Start())
	}
}
