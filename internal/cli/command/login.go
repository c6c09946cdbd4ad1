// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/connection"
	"github.com/yndnr/onelogin/internal/cli/output"
)

// LoginCommand returns the login command, which applies the
// single-session policy for a user and token.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "Apply the single-session policy after a login",
		ArgsUsage: "USER_ID",
		Description: "Keeps the session of --token and removes every other session of the user.\n" +
			"With --establish the session is recorded first. If the token has no valid\n" +
			"session, all of the user's sessions are removed.",
		Flags: append([]cli.Flag{
			tokenFlag(true),
			&cli.BoolFlag{
				Name:  "establish",
				Usage: "Record the session for --token before applying the policy",
			},
		}, sessionSpecFlags()...),
		Action: loginAction,
	}
}

type loginResult struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Outcome  string `json:"outcome" yaml:"outcome"`
	Verifier string `json:"verifier" yaml:"verifier"`
}

// Table renders the login outcome.
func (r loginResult) Table() *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("user_id", r.UserID)
	t.AddRow("outcome", r.Outcome)
	t.AddRow("verifier", r.Verifier)
	return t
}

func loginAction(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID")
	if err != nil {
		return err
	}

	body := struct {
		Token     string       `json:"token"`
		Establish *sessionSpec `json:"establish,omitempty"`
	}{Token: c.String("token")}

	if c.Bool("establish") {
		spec, err := parseSessionSpec(c)
		if err != nil {
			return err
		}
		body.Establish = &spec
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Post(c.Context, "/v1/users/"+pathEscape(args[0])+"/logins", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result loginResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return Print(c, result)
}
