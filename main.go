// ABOUTME: Entry point for the whisperprep command line tool
// ABOUTME: Parses global flags and dispatches to the subcommands
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/whisperprep/internal/config"
	"github.com/Resonate-Protocol/whisperprep/internal/logging"
	"github.com/Resonate-Protocol/whisperprep/internal/version"
	"github.com/Resonate-Protocol/whisperprep/pkg/pipeline"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	logFile    = flag.String("log-file", "", "Log file path (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	verbose    = flag.Bool("v", false, "Also print logs to stderr")
)

type command struct {
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = map[string]command{
	"convert":    {"convert [-out file.wav | -dir outdir] [-tui] <input>...", runConvert},
	"samples":    {"samples [-n count] <file.wav>", runSamples},
	"inspect":    {"inspect <file.wav>", runInspect},
	"play":       {"play [-volume 0-100] <file.wav>", runPlay},
	"transcribe": {"transcribe [-endpoint url] [-language code] [-keep] <input>", runTranscribe},
	"discover":   {"discover [-timeout 3s]", runDiscover},
	"version":    {"version", runVersion},
}

// app carries what every subcommand needs
type app struct {
	config    *config.Config
	processor *pipeline.Processor
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [flags] [args]\n\nCommands:\n", version.Product)
	for _, name := range []string{"convert", "samples", "inspect", "play", "transcribe", "discover", "version"} {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "\nGlobal flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if *debug {
		cfg.Logging.Debug = true
	}

	closer := logging.Setup(cfg.Logging, *verbose || cfg.Logging.Debug)
	defer closer.Close()

	log.Printf("%s %s: %v", version.Product, version.Version, flag.Args())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		config: cfg,
		processor: pipeline.New(pipeline.Config{
			SlotTimeout: cfg.Audio.SlotTimeout,
			FFmpegPath:  cfg.Audio.FFmpegPath,
			FFprobePath: cfg.Audio.FFprobePath,
			Debug:       cfg.Logging.Debug,
		}),
	}

	if err := cmd.run(ctx, a, flag.Args()[1:]); err != nil {
		log.Printf("%s failed: %v", flag.Arg(0), err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}
