// Package command provides CLI command definitions for onelogin-cli.
package command

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/onelogin/internal/cli/connection"
	"github.com/yndnr/onelogin/internal/cli/output"
	"github.com/yndnr/onelogin/pkg/token"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage the sessions of a user",
		Subcommands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List the valid sessions of a user",
				ArgsUsage: "USER_ID",
				Action:    sessionList,
			},
			{
				Name:      "get",
				Usage:     "Show one session",
				ArgsUsage: "USER_ID VERIFIER",
				Action:    sessionGet,
			},
			{
				Name:      "establish",
				Aliases:   []string{"create"},
				Usage:     "Record a session for a raw token",
				ArgsUsage: "USER_ID",
				Flags:     append([]cli.Flag{tokenFlag(false), generateFlag()}, sessionSpecFlags()...),
				Action:    sessionEstablish,
			},
			{
				Name:      "revoke",
				Usage:     "Remove the session of a raw token",
				ArgsUsage: "USER_ID",
				Flags:     []cli.Flag{tokenFlag(true)},
				Action:    sessionRevoke,
			},
			{
				Name:      "keep",
				Usage:     "Remove every session except one",
				ArgsUsage: "USER_ID VERIFIER",
				Action:    sessionKeep,
			},
			{
				Name:      "clear",
				Aliases:   []string{"revoke-all"},
				Usage:     "Remove all sessions of a user",
				ArgsUsage: "USER_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: sessionClear,
			},
		},
	}
}

func tokenFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "token",
		Aliases:  []string{"t"},
		Usage:    "Raw session token",
		EnvVars:  []string{"ONELOGIN_CLI_TOKEN"},
		Required: required,
	}
}

func generateFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "generate",
		Usage: "Generate a new random token",
	}
}

func sessionSpecFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "Session lifetime (e.g., 12h); the server default applies when unset",
		},
		&cli.Int64Flag{
			Name:  "expiration",
			Usage: "Absolute expiration as a Unix timestamp, overrides --ttl",
		},
		&cli.StringSliceFlag{
			Name:    "meta",
			Aliases: []string{"m"},
			Usage:   "Session metadata as KEY=VALUE pairs; JSON values are kept typed",
		},
	}
}

// sessionSpec is the wire form of a session to establish.
type sessionSpec struct {
	Expiration int64          `json:"expiration,omitempty"`
	TTLSeconds int64          `json:"ttl_seconds,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func parseSessionSpec(c *cli.Context) (sessionSpec, error) {
	spec := sessionSpec{
		Expiration: c.Int64("expiration"),
		TTLSeconds: int64(c.Duration("ttl") / time.Second),
	}
	if spec.Expiration < 0 || spec.TTLSeconds < 0 {
		return spec, fmt.Errorf("--expiration and --ttl must not be negative")
	}
	meta, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return spec, err
	}
	spec.Metadata = meta
	return spec, nil
}

// parseMeta parses KEY=VALUE pairs. Values that are valid JSON (numbers,
// booleans, objects) keep their type; anything else is a string.
func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q, want KEY=VALUE", p)
		}
		var typed any
		if err := json.Unmarshal([]byte(v), &typed); err == nil {
			meta[k] = typed
		} else {
			meta[k] = v
		}
	}
	return meta, nil
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}

func userPath(userID string) string {
	return "/v1/users/" + pathEscape(userID) + "/sessions"
}

// sessionView is one session as returned by the server.
type sessionView struct {
	Verifier   string                     `json:"verifier" yaml:"verifier"`
	Expiration int64                      `json:"expiration" yaml:"expiration"`
	ExpiresAt  time.Time                  `json:"expires_at" yaml:"expires_at"`
	Metadata   map[string]json.RawMessage `json:"metadata,omitempty" yaml:"-"`
}

// sessionMeta converts metadata to plain values so YAML output stays
// readable.
func (s sessionView) sessionMeta() map[string]any {
	if len(s.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.Metadata))
	for k, raw := range s.Metadata {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		out[k] = v
	}
	return out
}

// MarshalYAML renders metadata as plain values.
func (s sessionView) MarshalYAML() (any, error) {
	return struct {
		Verifier   string         `yaml:"verifier"`
		Expiration int64          `yaml:"expiration"`
		ExpiresAt  time.Time      `yaml:"expires_at"`
		Metadata   map[string]any `yaml:"metadata,omitempty"`
	}{s.Verifier, s.Expiration, s.ExpiresAt, s.sessionMeta()}, nil
}

func (s sessionView) metaSummary() string {
	if len(s.Metadata) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(s.Metadata))
	for k := range s.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Trim(string(s.Metadata[k]), `"`))
	}
	return strings.Join(parts, " ")
}

// Table renders a single session as field/value rows.
func (s sessionView) Table() *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("verifier", s.Verifier)
	t.AddRow("expiration", strconv.FormatInt(s.Expiration, 10))
	t.AddRow("expires_at", formatUnix(s.Expiration))
	t.AddRow("metadata", s.metaSummary())
	return t
}

type sessionListing struct {
	UserID   string        `json:"user_id" yaml:"user_id"`
	Count    int           `json:"count" yaml:"count"`
	Sessions []sessionView `json:"sessions" yaml:"sessions"`

	wide bool
}

// Table renders the sessions one per row.
func (l sessionListing) Table() *output.Table {
	t := &output.Table{Headers: []string{"VERIFIER", "EXPIRES", "METADATA"}}
	for _, s := range l.Sessions {
		t.AddRow(truncateID(s.Verifier, l.wide), formatUnix(s.Expiration), s.metaSummary())
	}
	t.Footer = fmt.Sprintf("Total: %d sessions for user %s", l.Count, l.UserID)
	return t
}

func sessionList(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID")
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Get(c.Context, userPath(args[0]))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result sessionListing
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	result.wide = ParseGlobalFlags(c).Wide
	return Print(c, result)
}

func sessionGet(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID", "VERIFIER")
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Get(c.Context, userPath(args[0])+"/"+url.PathEscape(args[1]))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result sessionView
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return Print(c, result)
}

type establishResult struct {
	UserID     string `json:"user_id" yaml:"user_id"`
	Verifier   string `json:"verifier" yaml:"verifier"`
	Expiration int64  `json:"expiration" yaml:"expiration"`
	Token      string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Table renders the established session.
func (r establishResult) Table() *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("user_id", r.UserID)
	t.AddRow("verifier", r.Verifier)
	t.AddRow("expires_at", formatUnix(r.Expiration))
	if r.Token != "" {
		t.AddRow("token", r.Token)
		t.Footer = "Save this token - it cannot be retrieved later."
	}
	return t
}

func sessionEstablish(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID")
	if err != nil {
		return err
	}

	raw := c.String("token")
	generated := false
	switch {
	case raw != "" && c.Bool("generate"):
		return fmt.Errorf("--token and --generate are mutually exclusive")
	case c.Bool("generate"):
		if raw, err = token.Generate(); err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		generated = true
	case raw == "":
		return fmt.Errorf("--token or --generate required")
	}

	spec, err := parseSessionSpec(c)
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	body := struct {
		Token string `json:"token"`
		sessionSpec
	}{raw, spec}

	resp, err := client.Post(c.Context, userPath(args[0]), body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result establishResult
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	if generated {
		result.Token = raw
	}
	return Print(c, result)
}

type revokeResult struct {
	UserID  string `json:"user_id" yaml:"user_id"`
	Removed bool   `json:"removed" yaml:"removed"`
}

func (r revokeResult) Table() *output.Table {
	t := &output.Table{}
	if r.Removed {
		t.AddRow(fmt.Sprintf("Session revoked for user %s.", r.UserID))
	} else {
		t.AddRow(fmt.Sprintf("No session of user %s matched the token.", r.UserID))
	}
	return t
}

func sessionRevoke(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID")
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Post(c.Context, userPath(args[0])+"/revoke", map[string]string{"token": c.String("token")})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	result := revokeResult{UserID: args[0]}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return Print(c, result)
}

func sessionKeep(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID", "VERIFIER")
	if err != nil {
		return err
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Post(c.Context, userPath(args[0])+"/"+url.PathEscape(args[1])+"/keep", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result map[string]string
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return Print(c, result)
}

func sessionClear(c *cli.Context) error {
	args, err := requireArgs(c, "USER_ID")
	if err != nil {
		return err
	}
	userID := args[0]

	if !c.Bool("force") {
		fmt.Fprintf(writer(c), "This will remove all sessions of user '%s'. Type '%s' to confirm: ", userID, userID)
		confirm, _ := bufio.NewReader(reader(c)).ReadString('\n')
		if strings.TrimSpace(confirm) != userID {
			fmt.Fprintln(writer(c), "Cancelled.")
			return nil
		}
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	resp, err := client.Delete(c.Context, userPath(userID))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result map[string]string
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return Print(c, result)
}
