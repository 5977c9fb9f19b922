package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nodestore-go/internal/cli/output"
	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/infra/buildinfo"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
	"github.com/yndnr/nodestore-go/internal/telemetry/metric"
	"github.com/yndnr/nodestore-go/pkg/nodestore"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "nodestore-cli",
		Usage:   "Read, write and load-test a node store",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SetCommand(),
			GetCommand(),
			MGetCommand(),
			DeleteCommand(),
			PingCommand(),
			ConfigCommand(),
			BenchCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"NODESTORE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "Storage backend: mongo, redis, badger, memory",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Backend    string
	Output     string
	LogLevel   string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Backend:    c.String("backend"),
		Output:     c.String("output"),
		LogLevel:   c.String("log-level"),
	}
}

// overrides maps set global flags onto configuration keys.
func (f *GlobalFlags) overrides() map[string]any {
	o := make(map[string]any)
	if f.Backend != "" {
		o["store.backend"] = f.Backend
	}
	if f.LogLevel != "" {
		o["log.level"] = f.LogLevel
	}
	return o
}

// loadConfig builds the effective configuration for c.
func loadConfig(c *cli.Context) (*config.Config, error) {
	flags := ParseGlobalFlags(c)
	return config.Load(flags.ConfigFile, flags.overrides())
}

// newLogger builds the process logger. CLI logs go to stderr so they
// never mix with command output.
func newLogger(c *cli.Context, cfg *config.Config) (*slog.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
}

// session is an opened store with the configuration it came from.
type session struct {
	cfg    *config.Config
	store  *nodestore.Store
	logger *slog.Logger
}

// openSession loads the configuration and opens the store. reg may be nil.
func openSession(c *cli.Context, reg *metric.Registry) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return nil, err
	}

	opts := []nodestore.Option{nodestore.WithLogger(log)}
	if reg != nil {
		opts = append(opts, nodestore.WithMetrics(reg))
	}

	store, err := nodestore.Open(ctxOf(c), cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	return &session{cfg: cfg, store: store, logger: log}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close store", "error", err)
	}
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

func ctxOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
