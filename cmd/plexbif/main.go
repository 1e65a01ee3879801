// Package main provides the CLI entry point for plexbif.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/plexbif/plexbif"
	"github.com/plexbif/plexbif/internal/config"
	"github.com/plexbif/plexbif/internal/discovery"
	"github.com/plexbif/plexbif/internal/gpudetect"
	"github.com/plexbif/plexbif/internal/library"
	"github.com/plexbif/plexbif/internal/logging"
	"github.com/plexbif/plexbif/internal/plexclient"
	"github.com/plexbif/plexbif/internal/reporter"
)

const (
	appName    = "plexbif"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		if err := runGenerate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Plex BIF preview-thumbnail generator

Usage:
  %s <command> [options]

Commands:
  generate  Generate BIF previews for a Plex library
  version   Print version information
  help      Show this help message

Run '%s generate --help' for generate command options.
`, appName, appName, appName)
}

// generateArgs holds the parsed arguments for the generate command.
type generateArgs struct {
	library       string // JSON library sidecar (plexclient.FileClient) or media directory (discovery.DirClient)
	sections      string // comma-separated section names, empty = all
	plexConfig    string
	workingTmp    string
	gpuWorkers    int
	cpuWorkers    int
	gpuSelection  string
	frameInterval int
	quality       int
	regenerate    bool
	ffmpegPath    string
	plexPrefix    string
	localPrefix   string
	logDir        string
	noLog         bool
	verbose       bool
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Generate BIF previews for a Plex library.

Usage:
  %s generate [options]

Required:
  -i, --library <PATH>      JSON library sidecar describing items to process,
                            or a media directory to scan for video files
  -o, --plex-config <PATH>  Plex config root (bundle directories live under here)

Options:
  --tmp <PATH>               Working temp directory (default: plexbif under the system temp dir)
  --sections <NAMES>         Comma-separated library section names (default: all)
  --gpu-workers <N>          Number of GPU-lane workers. Default: 0
  --cpu-workers <N>          Number of CPU-lane workers. Default: 1
  --gpu <SPEC>                GPU selection: "all" or comma-separated indices. Default: all
  --interval <SECONDS>        Seconds between preview thumbnails. Default: %d
  --quality <1-10>            FFmpeg -q:v for downscaled JPEGs. Default: %d
  --regenerate                Rebuild BIFs that already exist
  --ffmpeg-path <PATH>        ffmpeg binary to invoke. Default: ffmpeg (on PATH)
  --plex-prefix <PREFIX>      Path prefix Plex reports for source files
  --local-prefix <PREFIX>     Path prefix this host sees those files under
  -l, --log-dir <PATH>        Log directory (defaults to ~/.local/state/plexbif/logs)
  --no-log                    Disable log file creation
  -v, --verbose                Enable verbose output
`, appName, config.DefaultFrameIntervalSeconds, config.DefaultThumbnailQuality)
	}

	var ga generateArgs
	fs.StringVar(&ga.library, "i", "", "JSON library sidecar or media directory")
	fs.StringVar(&ga.library, "library", "", "JSON library sidecar or media directory")
	fs.StringVar(&ga.plexConfig, "o", "", "Plex config root")
	fs.StringVar(&ga.plexConfig, "plex-config", "", "Plex config root")
	fs.StringVar(&ga.workingTmp, "tmp", "", "Working temp directory")
	fs.StringVar(&ga.sections, "sections", "", "Comma-separated library section names")
	fs.IntVar(&ga.gpuWorkers, "gpu-workers", 0, "Number of GPU-lane workers")
	fs.IntVar(&ga.cpuWorkers, "cpu-workers", 1, "Number of CPU-lane workers")
	fs.StringVar(&ga.gpuSelection, "gpu", "all", `GPU selection: "all" or comma-separated indices`)
	fs.IntVar(&ga.frameInterval, "interval", config.DefaultFrameIntervalSeconds, "Seconds between preview thumbnails")
	fs.IntVar(&ga.quality, "quality", config.DefaultThumbnailQuality, "FFmpeg -q:v for downscaled JPEGs")
	fs.BoolVar(&ga.regenerate, "regenerate", false, "Rebuild BIFs that already exist")
	fs.StringVar(&ga.ffmpegPath, "ffmpeg-path", config.DefaultFFmpegPath, "ffmpeg binary to invoke")
	fs.StringVar(&ga.plexPrefix, "plex-prefix", "", "Path prefix Plex reports for source files")
	fs.StringVar(&ga.localPrefix, "local-prefix", "", "Path prefix this host sees those files under")
	fs.StringVar(&ga.logDir, "l", "", "Log directory")
	fs.StringVar(&ga.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&ga.noLog, "no-log", false, "Disable log file creation")
	fs.BoolVar(&ga.verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&ga.verbose, "verbose", false, "Enable verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if ga.library == "" {
		return fmt.Errorf("library path is required (-i/--library)")
	}
	if ga.plexConfig == "" {
		return fmt.Errorf("plex config root is required (-o/--plex-config)")
	}
	if ga.workingTmp == "" {
		ga.workingTmp = filepath.Join(os.TempDir(), "plexbif")
	}

	return executeGenerate(ga)
}

func executeGenerate(ga generateArgs) error {
	plexConfig, err := filepath.Abs(ga.plexConfig)
	if err != nil {
		return fmt.Errorf("invalid plex config path: %w", err)
	}
	workingTmp, err := filepath.Abs(ga.workingTmp)
	if err != nil {
		return fmt.Errorf("invalid tmp path: %w", err)
	}

	logDir := ga.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, ga.verbose, ga.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	var selectedGPUs []config.GPUSelection
	if ga.gpuWorkers > 0 {
		detected := make([]config.GPUSelection, 0)
		for _, a := range gpudetect.Detect(context.Background()) {
			detected = append(detected, config.GPUSelection{Vendor: a.Vendor, DevicePath: a.DevicePath})
		}
		selectedGPUs, err = config.ParseGPUSelection(ga.gpuSelection, detected)
		if err != nil {
			return fmt.Errorf("invalid gpu selection: %w", err)
		}
	}

	opts := []plexbif.Option{
		plexbif.WithPlexConfig(plexConfig),
		plexbif.WithWorkingTmp(workingTmp),
		plexbif.WithFrameInterval(ga.frameInterval),
		plexbif.WithThumbnailQuality(ga.quality),
		plexbif.WithCPUWorkers(ga.cpuWorkers),
		plexbif.WithGPUWorkers(ga.gpuWorkers, selectedGPUs),
		plexbif.WithFFmpegPath(ga.ffmpegPath),
		plexbif.WithPathMap(ga.plexPrefix, ga.localPrefix),
		plexbif.WithLogDir(logDir),
	}
	if ga.regenerate {
		opts = append(opts, plexbif.WithRegenerate())
	}
	if ga.verbose {
		opts = append(opts, plexbif.WithVerbose())
	}

	proc, err := plexbif.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	termRep := reporter.NewTerminalReporterVerbose(ga.verbose)
	var rep plexbif.Reporter = termRep
	if logger != nil {
		logRep := reporter.NewLogReporter(logger.Writer())
		rep = reporter.NewCompositeReporter(termRep, logRep)
	}

	ctx, cancel := setupSignalContext()
	defer cancel()

	var sectionNames []string
	if ga.sections != "" {
		for _, s := range strings.Split(ga.sections, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sectionNames = append(sectionNames, s)
			}
		}
	}

	client, err := resolveClient(ga.library)
	if err != nil {
		return err
	}

	summary, err := proc.Run(ctx, client, sectionNames, rep)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

// resolveClient picks the library collaborator based on what --library
// points at: a directory is scanned directly with discovery.DirClient (no
// Plex server involved), a file is read as a plexclient.FileClient JSON
// sidecar.
func resolveClient(libraryPath string) (library.PlexClient, error) {
	info, err := os.Stat(libraryPath)
	if err != nil {
		return nil, fmt.Errorf("library path %s: %w", libraryPath, err)
	}
	if info.IsDir() {
		return discovery.NewDirClient(libraryPath), nil
	}
	return plexclient.NewFileClient(libraryPath), nil
}

func setupSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}
