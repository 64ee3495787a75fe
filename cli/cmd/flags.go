// Package cmd provides CLI commands for the strata binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// ConfigFlag points at a strata.yaml config file. CLI flags override
	// config values.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to strata.yaml config file",
	}

	// URLFlag overrides the service URL.
	URLFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "Raster service URL",
	}

	// TokenEnvFlag names the environment variable holding the auth token.
	TokenEnvFlag = &cli.StringFlag{
		Name:  "token-env",
		Usage: "Environment variable holding the auth token",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode",
	}
)

// CommonFlags returns the flags shared by every command that contacts the
// service.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		URLFlag,
		TokenEnvFlag,
		FormatFlag,
		TUIFlag,
	}
}
