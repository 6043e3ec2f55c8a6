package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fwessels/vpp"
	"github.com/fwessels/vpp/internal/config"
	"github.com/fwessels/vpp/internal/diagnostics"
	"github.com/fwessels/vpp/internal/logs"
	"github.com/fwessels/vpp/internal/source"
)

var errReported = errors.New("errors reported")

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vpp"
	app.Usage = "Preprocess Verilog source files"
	app.ArgsUsage = "<file.v>..."
	app.DisableSliceFlagSeparator = true
	app.Flags = []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"I"},
			Usage:   "Add a directory to the include search path",
		},
		&cli.StringSliceFlag{
			Name:    "define",
			Aliases: []string{"D"},
			Usage:   "Predefine a macro as NAME or NAME=VALUE",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Read include dirs and defines from a YAML file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "One of debug, info, warn, error (default: info)",
		},
		&cli.StringFlag{
			Name:  "log-json",
			Usage: "Also write log records as JSON to this file",
		},
		&cli.BoolFlag{
			Name:  "locations",
			Usage: "Track token locations and show source context in diagnostics",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "text",
			Usage: "Output format: text, tokens or deps",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "Number of files processed in parallel (default: number of CPUs)",
		},
	}
	app.Action = run
	return app
}

type settings struct {
	includeDirs []string
	defines     []string
	level       slog.Level
	locations   bool
	jobs        int
	format      string
}

func loadSettings(c *cli.Context) (*settings, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(source.OS(), path); err != nil {
			return nil, err
		}
	}

	s := &settings{
		includeDirs: append(cfg.IncludeDirs, c.StringSlice("include")...),
		defines:     append(cfg.DefineList(), c.StringSlice("define")...),
		locations:   cfg.Locations || c.Bool("locations"),
		jobs:        cfg.Jobs,
		format:      c.String("format"),
	}

	levelName := cfg.LogLevel
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	var err error
	if s.level, err = logs.ParseLevel(levelName); err != nil {
		return nil, err
	}

	if c.IsSet("jobs") {
		s.jobs = c.Int("jobs")
	}
	if s.jobs <= 0 {
		s.jobs = runtime.NumCPU()
	}

	switch s.format {
	case "text", "tokens", "deps":
	default:
		return nil, fmt.Errorf("unknown format %q", s.format)
	}
	return s, nil
}

func run(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("no input files")
	}
	s, err := loadSettings(c)
	if err != nil {
		return err
	}

	var jsonOut io.Writer
	if path := c.String("log-json"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		jsonOut = f
	}
	level := new(slog.LevelVar)
	level.Set(s.level)
	logger := logs.New(c.App.ErrWriter, jsonOut, level)

	p, err := vpp.New(vpp.Options{
		IncludeDirs: s.includeDirs,
		Defines:     s.defines,
		Logger:      logger,
		Locations:   s.locations,
	})
	if err != nil {
		return err
	}

	results := make([]*vpp.Result, len(files))
	var g errgroup.Group
	g.SetLimit(s.jobs)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			logger.Debug("preprocessing", "file", file)
			res, err := p.ProcessFile(file)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, res := range results {
		if err := write(c.App.Writer, s.format, files[i], res); err != nil {
			return err
		}
		for _, d := range res.Diagnostics {
			if d.Severity == diagnostics.Error {
				failed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d", errReported, failed)
	}
	return nil
}

func write(w io.Writer, format, file string, res *vpp.Result) (err error) {
	switch format {
	case "tokens":
		for _, tok := range res.Tokens {
			if tok.Location != nil {
				_, err = fmt.Fprintf(w, "%s %s\n", tok.Location, tok)
			} else {
				_, err = fmt.Fprintln(w, tok)
			}
			if err != nil {
				return
			}
		}
	case "deps":
		_, err = fmt.Fprintf(w, "%s: %s\n", file, strings.Join(res.IncludedFiles, " "))
	default:
		_, err = io.WriteString(w, res.Text())
	}
	return
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "vpp:", err)
		os.Exit(1)
	}
}
