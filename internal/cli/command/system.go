package command

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nodestore-go/internal/cli/output"
	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/infra/buildinfo"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check connectivity with the configured backend",
		Action: systemPing,
	}
}

type pingResult struct {
	Backend string        `json:"backend"`
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
}

func systemPing(c *cli.Context) error {
	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	if err := s.store.Ping(ctxOf(c)); err != nil {
		return err
	}

	return render(c, pingResult{
		Backend: s.cfg.Store.Backend,
		Status:  "ok",
		Latency: time.Since(start).Round(time.Microsecond),
	})
}

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration inspection",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Load and validate the configuration without connecting",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	// Nested sections read best as YAML; table is the default format.
	format := output.Format(c.String("output"))
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format).Format(c.App.Writer, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return render(c, &output.Table{
		Headers: []string{"BACKEND", "STATUS"},
		Rows:    [][]string{{cfg.Store.Backend, "valid"}},
	})
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}
