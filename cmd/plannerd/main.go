// Package main is the entrypoint of plannerd.
package main

import (
	"os"

	"github.com/sslcore/planner/cli"
	"github.com/sslcore/planner/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Errorw("exiting", "error", err)
		os.Exit(1)
	}
}
