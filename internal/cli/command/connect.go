// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/connection"
)

// ConnectCommand returns the connect command. It checks the server is
// reachable and saves the connection as the current profile.
func ConnectCommand() *cli.Command {
	return &cli.Command{
		Name:      "connect",
		Usage:     "Save a server connection profile and make it current",
		ArgsUsage: "[SERVER]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Connection name",
				Value:   "default",
			},
			&cli.BoolFlag{
				Name:  "no-check",
				Usage: "Save without contacting the server",
			},
		},
		Action: connectAction,
	}
}

func connectAction(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	conn := ResolveConnection(c)
	if server := c.Args().First(); server != "" {
		conn.Server = server
	}
	conn.Name = c.String("name")

	if !c.Bool("no-check") {
		client, err := conn.Client()
		if err != nil {
			return err
		}
		resp, err := client.Get(c.Context, "/health")
		if err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		if err := connection.ParseResponse(resp, nil); err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
	}

	if err := mgr.Connect(conn); err != nil {
		return fmt.Errorf("save connection: %w", err)
	}

	fmt.Fprintf(writer(c), "Connected to %s as %q\n", conn.Server, conn.Name)
	return nil
}

// DisconnectCommand returns the disconnect command.
func DisconnectCommand() *cli.Command {
	return &cli.Command{
		Name:   "disconnect",
		Usage:  "Clear the current connection profile",
		Action: disconnectAction,
	}
}

func disconnectAction(c *cli.Context) error {
	mgr := GetConnectionManager(c)
	if mgr == nil {
		return fmt.Errorf("connection manager not initialized")
	}

	if !mgr.IsConnected() {
		fmt.Fprintln(writer(c), "Not connected to any server")
		return nil
	}

	if err := mgr.Disconnect(); err != nil {
		return err
	}
	fmt.Fprintln(writer(c), "Disconnected")
	return nil
}

// UseCommand returns the use command for switching connections.
func UseCommand() *cli.Command {
	return &cli.Command{
		Name:      "use",
		Usage:     "Switch to a saved connection profile",
		ArgsUsage: "CONNECTION_NAME",
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return fmt.Errorf("connection name required")
			}
			mgr := GetConnectionManager(c)
			if mgr == nil {
				return fmt.Errorf("connection manager not initialized")
			}
			if err := mgr.Use(name); err != nil {
				return err
			}
			fmt.Fprintf(writer(c), "Switched to connection %q\n", name)
			return nil
		},
	}
}
