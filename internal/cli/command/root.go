// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/config"
	"github.com/yndnr/onelogin/internal/cli/connection"
	"github.com/yndnr/onelogin/internal/cli/output"
	"github.com/yndnr/onelogin/internal/infra/buildinfo"
)

const metaConnMgr = "connMgr"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "onelogin-cli",
		Usage:   "onelogin session registry command-line tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			LoginCommand(),
			TokenCommand(),
			ConnectCommand(),
			DisconnectCommand(),
			UseCommand(),
			ConfigCommand(),
			SystemCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
		Before:   before,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI profile file",
			EnvVars: []string{"ONELOGIN_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:        "server",
			Aliases:     []string{"s"},
			Usage:       "onelogin server address",
			EnvVars:     []string{"ONELOGIN_CLI_SERVER"},
			DefaultText: config.DefaultServer,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"K"},
			Usage:   "API key for authentication",
			EnvVars: []string{"ONELOGIN_CLI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "PEM file with extra CA certificates to trust",
			EnvVars: []string{"ONELOGIN_CLI_CA_FILE"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output format: table, json, yaml",
			DefaultText: "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show full verifiers in tables",
		},
	}
}

func before(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.App.Metadata[metaConnMgr] = connection.NewManager(cfg, path)

	if c.IsSet("output") {
		if _, err := output.ParseFormat(c.String("output")); err != nil {
			return err
		}
	}
	return nil
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Output  output.Format
	Wide    bool
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context. Unset flags fall
// back to the CLI profile file.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	flags := &GlobalFlags{
		Output:  output.FormatTable,
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
	}

	format := c.String("output")
	if !c.IsSet("output") {
		if mgr := GetConnectionManager(c); mgr != nil {
			format = mgr.Config().DefaultOutput
		}
	}
	if f, err := output.ParseFormat(format); err == nil {
		flags.Output = f
	}
	return flags
}

// GetConnectionManager retrieves the connection manager from context.
func GetConnectionManager(c *cli.Context) *connection.Manager {
	if mgr, ok := c.App.Metadata[metaConnMgr].(*connection.Manager); ok {
		return mgr
	}
	return nil
}

// ResolveConnection merges the active profile with flags. Flags win.
func ResolveConnection(c *cli.Context) *connection.Connection {
	conn := &connection.Connection{Server: config.DefaultServer}

	if mgr := GetConnectionManager(c); mgr != nil {
		if cur := mgr.Current(); cur != nil {
			conn = cur
		} else if s := mgr.Config().DefaultServer; s != "" {
			conn.Server = s
		}
	}

	if c.IsSet("server") {
		conn.Server = c.String("server")
	}
	if c.IsSet("api-key") {
		conn.APIKey = c.String("api-key")
	}
	if c.IsSet("ca-file") {
		conn.CAFile = c.String("ca-file")
	}
	if c.IsSet("insecure") {
		conn.Insecure = c.Bool("insecure")
	}
	conn.Timeout = c.Duration("timeout")
	return conn
}

// EnsureConnected resolves the connection and returns its HTTP client.
func EnsureConnected(c *cli.Context) (*connection.HTTPClient, error) {
	return ResolveConnection(c).Client()
}

// Print writes data in the selected output format.
func Print(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func reader(c *cli.Context) io.Reader {
	if c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// requireArgs returns the first n positional arguments.
func requireArgs(c *cli.Context, names ...string) ([]string, error) {
	if c.NArg() < len(names) {
		return nil, fmt.Errorf("%s required", strings.Join(names[c.NArg():], " and "))
	}
	return c.Args().Slice()[:len(names)], nil
}

// truncateID truncates long verifiers for display.
func truncateID(id string, wide bool) string {
	if wide || len(id) <= 16 {
		return id
	}
	return id[:13] + "..."
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04:05")
}
