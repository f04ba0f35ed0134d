package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pokkz/metadata-stripper/core"
	"github.com/pokkz/metadata-stripper/core/inspect"
	"github.com/pokkz/metadata-stripper/core/strip"
)

const defaultWorkers = 4

// errReported marks a failure that has already been printed per file.
var errReported = errors.New("one or more files failed")

// app is the state shared by every subcommand.
type app struct {
	opts options

	log       *logrus.Entry
	printer   *core.Printer
	inspector *inspect.Inspector
	stripper  *strip.Stripper
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "surgery",
		Short: "Inspect and strip image metadata",
		Long: `surgery shows the metadata embedded in images (EXIF, XMP, ICC, text
chunks, comments) and writes metadata-free copies next to them.

Examples:
  surgery view photo.jpg
  surgery check *.png
  surgery strip photo.jpg scan.tiff   # writes photo_NOMETADATA.jpg, scan_NOMETADATA.tiff`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&a.opts.logJSON, "log-json", false, "Output logs in JSON format")
	flags.BoolVar(&a.opts.json, "json", false, "Print results as JSON")
	flags.IntVarP(&a.opts.workers, "workers", "w", defaultWorkers, "Files inspected in parallel")
	flags.StringVar(&a.opts.configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(
		newViewCmd(a),
		newCheckCmd(a),
		newStripCmd(a),
		newListCmd(a),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.opts.configPath)
	if err != nil {
		return err
	}
	a.opts.merge(cfg, cmd.Flags())

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(logrus.InfoLevel)
	if a.opts.logLevel != "" {
		lvl, err := logrus.ParseLevel(a.opts.logLevel)
		if err != nil {
			return errors.Wrap(err, "config log_level")
		}
		logger.SetLevel(lvl)
	}
	if a.opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if a.opts.logJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Check SURGERY_LOG_LEVEL environment variable
	if level := os.Getenv("SURGERY_LOG_LEVEL"); level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(lvl)
		}
	}

	a.log = logger.WithField("component", "surgery")
	a.printer = core.NewPrinter(a.opts.json, a.opts.verbose)
	a.printer.Writer, a.printer.Errors = cmd.OutOrStdout(), cmd.ErrOrStderr()
	a.inspector = inspect.New(inspect.WithLogger(a.log))
	a.stripper = strip.New(strip.WithLogger(a.log))
	return nil
}

// imagePaths drops arguments without an image extension, warning about each.
func (a *app) imagePaths(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, p := range args {
		if !core.IsImageExt(p) {
			a.log.WithField("path", p).Warn("skipping file without an image extension")
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return nil, errors.New("no image files given")
	}
	return paths, nil
}
