package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/config"
	"github.com/sslcore/planner/planning/planners"
)

// Version is replaced by LD flags.
var Version = ""

func printf(w io.Writer, format string, a ...interface{}) {
	_, err := fmt.Fprintf(w, format+"\n", a...)
	goutils.UncheckedError(err)
}

func configPath(c *cli.Context) (string, error) {
	path := c.String(configFlag)
	if path == "" {
		path = c.Args().First()
	}
	if path == "" {
		return "", errors.Errorf("a config file is required, pass --%s", configFlag)
	}
	return path, nil
}

// ValidateAction reads the config and prints it with defaults applied.
func ValidateAction(c *cli.Context) error {
	path, err := configPath(c)
	if err != nil {
		return err
	}
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s is valid: %s", path, cfg)
	printf(c.App.Writer, "%s", out)
	return nil
}

// PlannersAction lists the motion commands every robot can execute.
func PlannersAction(c *cli.Context) error {
	printf(c.App.Writer, "%s", strings.Join(planners.NewDefaultRegistry(clock.New()).Names(), "\n"))
	return nil
}

// VersionAction prints the version of the binary.
func VersionAction(c *cli.Context) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("error reading build info")
	}
	if c.Bool(debugFlag) {
		printf(c.App.Writer, "%s", info.String())
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := "?"
	if rev, ok := settings["vcs.revision"]; ok && len(rev) >= 8 {
		revision = rev[:8]
		if settings["vcs.modified"] == "true" {
			revision += "+"
		}
	}
	version := Version
	if version == "" {
		version = "(dev)"
	}
	printf(c.App.Writer, "Version %s Git=%s", version, revision)
	return nil
}
