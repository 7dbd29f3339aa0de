package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/adapter/factory"
	"github.com/Ning0612/Dropzone/internal/adapter/local"
	"github.com/Ning0612/Dropzone/internal/config"
	"github.com/Ning0612/Dropzone/internal/core/resolve"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
	"github.com/Ning0612/Dropzone/internal/metrics"
	"github.com/Ning0612/Dropzone/internal/progress"
	"github.com/Ning0612/Dropzone/internal/report"
	"github.com/Ning0612/Dropzone/internal/service"
)

// app holds the state shared by every subcommand
type app struct {
	cfg    *config.Config
	log    logger.Logger
	format report.Format

	configPath string
	logLevel   string
	output     string
	source     string
	progress   bool

	accept            string
	maxFileSize       string
	multiple          bool
	expandDirectories bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "dropzone",
		Short:        "Resolve and classify dropped files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default: search ./config.yaml, ~/.config/dropzone)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&a.output, "output", "o", "text", "event format: text, json, yaml")
	pf.StringVarP(&a.source, "source", "s", "", "configured source to resolve from (default: current directory)")
	pf.BoolVar(&a.progress, "progress", false, "print traversal progress to stderr")

	pf.StringVar(&a.accept, "accept", "", "accepted types, e.g. \"image/*,.pdf\"")
	pf.StringVar(&a.maxFileSize, "max-file-size", "", "size ceiling, e.g. 10MB (0 disables)")
	pf.BoolVar(&a.multiple, "multiple", true, "allow more than one file per interaction")
	pf.BoolVar(&a.expandDirectories, "expand-directories", false, "extract files from dropped directories")

	root.AddCommand(
		newDropCmd(a),
		newSelectCmd(a),
		newWatchCmd(a),
		newPollCmd(a),
		newAuthCmd(a),
	)
	return root
}

// setup loads the config, applies flag overrides and starts the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if errors.Is(err, domain.ErrConfigNotFound) && a.configPath == "" {
		cfg, err = config.Default()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("accept") {
		cfg.Dropzone.Accept = a.accept
	}
	if flags.Changed("max-file-size") {
		size, err := humanize.ParseBytes(a.maxFileSize)
		if err != nil {
			return fmt.Errorf("%w: --max-file-size: %v", domain.ErrConfigInvalid, err)
		}
		cfg.Dropzone.MaxFileSize = int64(size)
	}
	if flags.Changed("multiple") {
		cfg.Dropzone.Multiple = a.multiple
	}
	if flags.Changed("expand-directories") {
		cfg.Dropzone.ExpandDirectories = a.expandDirectories
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	format, err := report.ParseFormat(a.output)
	if err != nil {
		return err
	}

	// Init only fails when a logger is already running; keep that one
	if err := logger.Init(cfg.Logging.Config()); err != nil {
		logger.Get().Debug("logger already initialized", "error", err)
	}

	a.cfg = cfg
	a.format = format
	a.log = logger.Get().With("command", cmd.Name())
	return nil
}

// openSource opens the named source, or the current directory when none is named
func (a *app) openSource(ctx context.Context) (adapter.Source, error) {
	if a.source == "" {
		src, err := local.New(".")
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	src, err := a.cfg.GetSource(a.source)
	if err != nil {
		return nil, err
	}
	return factory.New().Create(ctx, *src)
}

// newService wires resolver, metrics and the event printer into a drop service
func (a *app) newService(cmd *cobra.Command, rec *metrics.Recorder) (*service.DropService, error) {
	var reporter progress.Reporter = progress.NullReporter{}
	if a.progress {
		reporter = progress.NewWriterReporter(cmd.ErrOrStderr())
	}

	resolver := resolve.NewDefaultResolver(
		resolve.WithLogger(a.log),
		resolve.WithReporter(reporter),
		resolve.WithMetrics(rec),
	)

	out := cmd.OutOrStdout()
	emit := func(event domain.ChangeEvent) {
		if err := report.Render(out, event, a.format); err != nil {
			a.log.Error("failed to print event", "error", err)
		}
	}

	return service.NewDropService(a.cfg.Dropzone, resolver, emit,
		service.WithLogger(a.log),
		service.WithMetrics(rec),
	)
}
