// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/config"
	"github.com/yndnr/onelogin/internal/infra/confloader"
	serverconfig "github.com/yndnr/onelogin/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "cli",
				Usage: "CLI profile file",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show the CLI profiles with secrets masked",
						Action: configCLIShow,
					},
					{
						Name:      "validate",
						Usage:     "Validate a CLI profile file",
						ArgsUsage: "[FILE]",
						Action:    configCLIValidate,
					},
				},
			},
			{
				Name:  "server",
				Usage: "Server configuration file",
				Subcommands: []*cli.Command{
					{
						Name:   "defaults",
						Usage:  "Print the built-in server configuration",
						Action: configServerDefaults,
					},
					{
						Name:      "validate",
						Aliases:   []string{"test"},
						Usage:     "Validate a server configuration file locally",
						ArgsUsage: "FILE",
						Action:    configServerValidate,
					},
				},
			},
		},
	}
}

func configCLIShow(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	cfg := *mgr.Config()
	cfg.Connections = make(map[string]config.ConnectionConfig, len(mgr.Config().Connections))
	for name, conn := range mgr.Config().Connections {
		if conn.APIKey != "" {
			conn.APIKey = "******"
		}
		cfg.Connections[name] = conn
	}
	return Print(c, cfg)
}

func configCLIValidate(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("config")
	}
	if _, err := config.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(writer(c), "%s: valid\n", path)
	return nil
}

func configServerDefaults(c *cli.Context) error {
	return Print(c, serverconfig.Default())
}

func configServerValidate(c *cli.Context) error {
	args, err := requireArgs(c, "FILE")
	if err != nil {
		return err
	}

	loader := confloader.NewLoader(
		confloader.WithConfigFile(args[0]),
		confloader.WithDefaults(serverconfig.DefaultMap()),
	)
	cfg := &serverconfig.ServerConfig{}
	if err := loader.Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return err
	}

	fmt.Fprintf(writer(c), "%s: valid\n", args[0])
	return Print(c, serverconfig.Sanitize(cfg))
}
