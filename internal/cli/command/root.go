package command

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/cli/repl"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "respkv-cli",
		Usage:     "command-line client for respkv",
		UsageText: "respkv-cli [options] [command [arg...]]",
		Version:   buildinfo.Get().Version,
		Flags:     globalFlags(),
		Action:    run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "server host",
			EnvVars: []string{"RESPKV_HOST"},
			Value:   "127.0.0.1",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"RESPKV_PORT"},
			Value:   6379,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: plain, raw, json",
			Value:   string(output.FormatPlain),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and per-command timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:  "history",
			Usage: "REPL history file; empty disables it",
			Value: repl.DefaultHistoryPath(),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Host    string
	Port    int
	Output  output.Format
	Timeout time.Duration
	History string
}

// Addr returns host:port.
func (f *GlobalFlags) Addr() string {
	return net.JoinHostPort(f.Host, strconv.Itoa(f.Port))
}

// ParseGlobalFlags extracts and validates global flags.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Host:    c.String("host"),
		Port:    c.Int("port"),
		Output:  format,
		Timeout: c.Duration("timeout"),
		History: c.String("history"),
	}, nil
}

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := connection.Dial(ctx, flags.Addr(), flags.Timeout)
	if err != nil {
		return fmt.Errorf("could not connect to respkv at %s: %w", flags.Addr(), err)
	}
	defer client.Close()

	formatter := output.NewFormatter(flags.Output)

	if c.NArg() == 0 {
		r := repl.New(client, formatter,
			repl.WithIO(c.App.Reader, c.App.Writer),
			repl.WithPrompt(flags.Addr()+"> "),
			repl.WithHistory(repl.NewHistory(flags.History)),
		)
		return r.Run(ctx)
	}

	reply, err := client.Do(ctx, c.Args().Slice()...)
	if err != nil {
		return err
	}
	return formatter.Format(c.App.Writer, reply)
}
