// ABOUTME: whisperprep subcommand implementations
// ABOUTME: Conversion, WAV inspection, playback, transcription and discovery
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/whisperprep/internal/discovery"
	"github.com/Resonate-Protocol/whisperprep/internal/ui"
	"github.com/Resonate-Protocol/whisperprep/internal/version"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/output"
	"github.com/Resonate-Protocol/whisperprep/pkg/audio/wav"
	"github.com/Resonate-Protocol/whisperprep/pkg/pipeline"
	"github.com/Resonate-Protocol/whisperprep/pkg/transcribe"
)

func runConvert(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	out := fs.String("out", "", "Output WAV path (single input only)")
	dir := fs.String("dir", "", "Output directory (default: next to each input)")
	useTUI := fs.Bool("tui", false, "Show batch progress")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("no input files")
	}
	if *out != "" && len(inputs) > 1 {
		return errors.New("-out needs exactly one input, use -dir for batches")
	}

	outputFor := func(in string) string {
		if *out != "" {
			return *out
		}
		name := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".wav"
		if *dir != "" {
			return filepath.Join(*dir, name)
		}
		return filepath.Join(filepath.Dir(in), name)
	}

	if *dir != "" {
		if err := os.MkdirAll(*dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", *dir, err)
		}
	}

	if !*useTUI {
		var failed int
		for _, in := range inputs {
			result, err := a.processor.ProcessToWAV(ctx, in, outputFor(in))
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s: %v\n", in, err)
				continue
			}
			printConversion(result)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d conversions failed", failed, len(inputs))
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := ui.Run(inputs, cancel)
	go func() {
		for i, in := range inputs {
			if ctx.Err() != nil {
				break
			}
			prog.Send(ui.FileStartedMsg{Index: i})
			result, err := a.processor.ProcessToWAV(ctx, in, outputFor(in))
			msg := ui.FileDoneMsg{Index: i, Err: err}
			if err == nil {
				msg.Codec = result.Codec
				msg.Duration = result.Duration
			}
			prog.Send(msg)
		}
		prog.Send(ui.BatchDoneMsg{})
	}()

	final, err := prog.Run()
	if err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	if m, ok := final.(ui.Model); ok {
		if done, failed := m.Counts(); failed > 0 || done < len(inputs) {
			return fmt.Errorf("%d of %d conversions did not complete", len(inputs)-done, len(inputs))
		}
	}
	return nil
}

func printConversion(r *pipeline.Result) {
	fmt.Printf("%s -> %s (%s, %d Hz x%d, %d samples, %v)\n",
		r.Input, r.Output, r.Codec, r.SourceRate, r.SourceChannels, r.Samples, r.Duration.Round(time.Millisecond))
}

func runSamples(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	n := fs.Int("n", 8, "Number of leading samples to print")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one WAV file")
	}

	samples, err := pipeline.LoadSamples(fs.Arg(0))
	if err != nil {
		return err
	}

	stats := summarize(samples)
	fmt.Printf("samples:  %d\n", len(samples))
	fmt.Printf("duration: %v\n", time.Duration(len(samples))*time.Second/16000)
	fmt.Printf("peak:     %.5f\n", stats.peak)
	fmt.Printf("rms:      %.5f\n", stats.rms)
	fmt.Printf("first:    %v\n", samples[:max(0, min(*n, len(samples)))])
	return nil
}

type sampleStats struct {
	peak float64
	rms  float64
}

func summarize(samples []float32) sampleStats {
	var s sampleStats
	if len(samples) == 0 {
		return s
	}
	var sum float64
	for _, v := range samples {
		f := float64(v)
		s.peak = math.Max(s.peak, math.Abs(f))
		sum += f * f
	}
	s.rms = math.Sqrt(sum / float64(len(samples)))
	return s
}

func runInspect(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("expected one WAV file")
	}

	info, err := wav.Inspect(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("format:    %d (PCM=1)\n", info.AudioFormat)
	fmt.Printf("rate:      %d Hz\n", info.SampleRate)
	fmt.Printf("channels:  %d\n", info.Channels)
	fmt.Printf("bit depth: %d\n", info.BitDepth)
	fmt.Printf("pcm bytes: %d of %d\n", info.PCMBytes, info.FileSize)
	fmt.Printf("duration:  %v\n", info.Duration)
	fmt.Printf("canonical: %v\n", info.Canonical())
	return nil
}

func runPlay(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	volume := fs.Int("volume", 100, "Playback volume 0-100")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one WAV file")
	}

	info, err := wav.Inspect(fs.Arg(0))
	if err != nil {
		return err
	}
	if info.BitDepth != 16 || info.FileSize-info.PCMBytes != wav.HeaderSize {
		return fmt.Errorf("%s is not a 16-bit WAV with a plain header, convert it first", fs.Arg(0))
	}

	pcm, err := wav.ReadPCMFile(fs.Arg(0))
	if err != nil {
		return err
	}

	out := output.NewOto()
	defer out.Close()
	out.SetVolume(*volume)

	fmt.Printf("Playing %s (%v)\n", fs.Arg(0), info.Duration)
	return output.Play(ctx, out, pcm, info.SampleRate, info.Channels)
}

func runTranscribe(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	endpoint := fs.String("endpoint", a.config.Engine.Endpoint, "whisper.cpp server URL")
	language := fs.String("language", a.config.Engine.Language, "Spoken language code (empty: auto)")
	keep := fs.Bool("keep", a.config.Audio.KeepWAV, "Keep the intermediate WAV")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one input file")
	}

	engine, err := transcribe.NewHTTPEngine(transcribe.HTTPConfig{
		Endpoint:     *endpoint,
		Timeout:      a.config.Engine.Timeout,
		MaxRetries:   a.config.Engine.MaxRetries,
		RetryBackoff: a.config.Engine.RetryBackoff,
		Language:     *language,
		Temperature:  a.config.Engine.Temperature,
	})
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "whisperprep-")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	if !*keep {
		defer os.RemoveAll(workDir)
	}

	service, err := transcribe.NewService(transcribe.ServiceConfig{
		Processor: a.processor,
		Engine:    engine,
		WorkDir:   workDir,
		KeepWAV:   *keep,
		QueueSize: 1,
	})
	if err != nil {
		return err
	}
	defer service.Close()

	events, unsubscribe := service.Subscribe()
	defer unsubscribe()

	id, err := service.Submit(fs.Arg(0))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errors.New("transcription service closed")
			}
			if ev.Job.ID != id {
				continue
			}
			switch ev.Job.State {
			case transcribe.JobFailed:
				return errors.New(ev.Job.Error)
			case transcribe.JobDone:
				if *keep {
					fmt.Fprintf(os.Stderr, "WAV kept in %s\n", workDir)
				}
				fmt.Println(ev.Job.Result.Text)
				return nil
			default:
				fmt.Fprintf(os.Stderr, "%s...\n", ev.Job.State)
			}
		}
	}
}

func runDiscover(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 3*time.Second, "How long to wait for answers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	servers, err := discovery.Browse(*timeout)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Println("No whisperprep servers found")
		return nil
	}
	for _, s := range servers {
		fmt.Printf("%s\t%s\t%s\n", s.Name, s.URL(), s.Version)
	}
	return nil
}

func runVersion(ctx context.Context, a *app, args []string) error {
	fmt.Println(version.UserAgent())
	return nil
}
