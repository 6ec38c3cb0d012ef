// Package cli contains the plannerd command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	configFlag = "config"
	debugFlag  = "debug"
)

var app = &cli.App{
	Name:            "plannerd",
	Usage:           "schedule motion planning for a team of robots",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
			EnvVars: []string{"PLANNERD_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the planner until interrupted",
			Action: ServeAction,
		},
		{
			Name:      "validate",
			Usage:     "check a config file and print the effective settings",
			ArgsUsage: "[FILE]",
			Action:    ValidateAction,
		},
		{
			Name:   "planners",
			Usage:  "list the registered motion commands",
			Action: PlannersAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
