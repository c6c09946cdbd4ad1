// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/connection"
	"github.com/yndnr/onelogin/internal/cli/output"
	"github.com/yndnr/onelogin/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the server is alive",
				Action: probe("/health"),
			},
			{
				Name:   "ready",
				Usage:  "Check that the server can reach its session store",
				Action: probe("/ready"),
			},
		},
	}
}

func probe(path string) cli.ActionFunc {
	return func(c *cli.Context) error {
		client, err := EnsureConnected(c)
		if err != nil {
			return err
		}

		resp, err := client.Get(c.Context, path)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		var result map[string]string
		if err := connection.ParseResponse(resp, &result); err != nil {
			return err
		}
		if result == nil {
			result = make(map[string]string)
		}
		result["server"] = client.BaseURL()
		return Print(c, result)
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return Print(c, versionInfo(buildinfo.Get()))
		},
	}
}

type versionInfo buildinfo.Info

// Table renders the build information.
func (v versionInfo) Table() *output.Table {
	return output.KeyValue(map[string]string{
		"version":    v.Version,
		"commit":     v.Commit,
		"build_time": v.BuildTime,
		"go_version": v.GoVersion,
	})
}
