// Package main provides the entry point for onelogin-cli.
package main

import (
	"os"

	"github.com/yndnr/onelogin/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError("%v", err)
		os.Exit(1)
	}
}
