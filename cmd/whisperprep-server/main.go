// ABOUTME: Entry point for the whisperprep job server
// ABOUTME: Wires config, logging, metrics, the job service and the HTTP server
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Resonate-Protocol/whisperprep/internal/config"
	"github.com/Resonate-Protocol/whisperprep/internal/logging"
	"github.com/Resonate-Protocol/whisperprep/internal/metrics"
	"github.com/Resonate-Protocol/whisperprep/internal/server"
	"github.com/Resonate-Protocol/whisperprep/internal/version"
	"github.com/Resonate-Protocol/whisperprep/pkg/pipeline"
	"github.com/Resonate-Protocol/whisperprep/pkg/transcribe"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	port       = flag.Int("port", 0, "HTTP port (overrides config)")
	name       = flag.String("name", "", "Server friendly name (overrides config)")
	logFile    = flag.String("log-file", "", "Log file path (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI     = flag.Bool("tui", false, "Show the job queue TUI instead of console logs")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *name != "" {
		cfg.Server.Name = *name
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if *noMDNS {
		cfg.Server.MDNS = false
	}

	// TUI mode logs only to file
	closer := logging.Setup(cfg.Logging, !*useTUI)
	defer closer.Close()

	log.Printf("Starting %s on port %d", version.UserAgent(), cfg.Server.Port)
	if cfg.Logging.Debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", cfg.Logging.File)
	log.Printf("Inference endpoint: %s", cfg.Engine.Endpoint)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	processor := pipeline.New(pipeline.Config{
		SlotTimeout: cfg.Audio.SlotTimeout,
		FFmpegPath:  cfg.Audio.FFmpegPath,
		FFprobePath: cfg.Audio.FFprobePath,
		Debug:       cfg.Logging.Debug,
		Observer:    m,
	})

	engine, err := transcribe.NewHTTPEngine(transcribe.HTTPConfig{
		Endpoint:     cfg.Engine.Endpoint,
		Timeout:      cfg.Engine.Timeout,
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: cfg.Engine.RetryBackoff,
		Language:     cfg.Engine.Language,
		Temperature:  cfg.Engine.Temperature,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	service, err := transcribe.NewService(transcribe.ServiceConfig{
		Processor: processor,
		Engine:    engine,
		WorkDir:   cfg.Server.WorkDir,
		KeepWAV:   cfg.Audio.KeepWAV,
		QueueSize: cfg.Server.MaxQueue,
	})
	if err != nil {
		log.Fatalf("Failed to create job service: %v", err)
	}

	srv := server.New(server.Config{
		Port:       cfg.Server.Port,
		Name:       cfg.Server.Name,
		EnableMDNS: cfg.Server.MDNS,
		InputDir:   cfg.Server.InputDir,
		Debug:      cfg.Logging.Debug,
		UseTUI:     *useTUI,
	}, service, m, reg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	serveErr := srv.Start()

	if err := service.Close(); err != nil {
		log.Printf("Error closing job service: %v", err)
	}
	if serveErr != nil {
		log.Fatalf("Server error: %v", serveErr)
	}
}
