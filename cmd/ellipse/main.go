// Command ellipse is an interactive ellipse explorer for the terminal.
//
// Five sliders set the semi-major axis a, the semi-minor axis b, the rotation
// and the center; the plot shows the ellipse with its two foci and the
// eccentricity is printed below. a never drops below b: a slider that would
// break that snaps back to the boundary.
//
// Run it:
//
//	go run ./cmd/ellipse
//	go run ./cmd/ellipse -config ellipse.toml -snapshots /tmp/ellipses
//
// Print the effective configuration:
//
//	go run ./cmd/ellipse -dump-config > ellipse.toml
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/teranos/ellipse/config"
	"github.com/teranos/ellipse/console"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ellipse: %v\n", err)
		os.Exit(1)
	}
}

// options are the command line overrides of the configuration file.
type options struct {
	configPath string
	resolution int
	snapshots  string
	logFile    string
	dump       bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("ellipse", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "ellipse.toml", "path to the TOML configuration")
	fs.IntVar(&opts.resolution, "resolution", 0, "boundary samples per render (overrides the configuration)")
	fs.StringVar(&opts.snapshots, "snapshots", "", "directory for PNG snapshots (overrides the configuration)")
	fs.StringVar(&opts.logFile, "log", "", "log file (overrides the configuration)")
	fs.BoolVar(&opts.dump, "dump-config", false, "print the effective configuration as TOML and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// loadConfig reads the configuration file and applies the flag overrides.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	if opts.resolution != 0 {
		cfg.Resolution = opts.resolution
	}
	if opts.snapshots != "" {
		cfg.Snapshot.Dir = opts.snapshots
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.dump {
		data, err := config.Encode(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	}

	logger, closeLog, err := openLog(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting",
		"config", opts.configPath,
		"resolution", cfg.Resolution,
		"snapshots", cfg.Snapshot.Dir)

	app := console.New(cfg).WithLogger(logger)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("stopped")
	return nil
}

// openLog returns a logger writing to the configured file. The terminal
// belongs to the UI, so without a file logs are discarded.
func openLog(cfg config.Log) (*slog.Logger, func(), error) {
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := tea.LogToFile(cfg.File, "ellipse")
	if err != nil {
		return nil, nil, fmt.Errorf("open log %s: %w", cfg.File, err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler), func() { f.Close() }, nil
}
