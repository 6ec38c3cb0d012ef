package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/sslcore/planner/config"
)

func TestValidateAction(t *testing.T) {
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)

	err := app.Run([]string{"plannerd", "validate", "testdata/minimal.json"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "testdata/minimal.json is valid")
	test.That(t, out.String(), test.ShouldContainSubstring, `"num_robots": 2`)

	out.Reset()
	err = app.Run([]string{"plannerd", "--config", "testdata/minimal.json", "validate"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "is valid")
}

func TestValidateActionErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)

	err := app.Run([]string{"plannerd", "validate"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "config file is required")

	err = app.Run([]string{"plannerd", "validate", "testdata/missing.json"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlannersAction(t *testing.T) {
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)

	test.That(t, app.Run([]string{"plannerd", "planners"}), test.ShouldBeNil)
	names := strings.Fields(out.String())
	test.That(t, names, test.ShouldContain, "idle")
	test.That(t, names, test.ShouldContain, "path_target")
	test.That(t, names, test.ShouldContain, "goalie_idle")
	test.That(t, names, test.ShouldContain, "escape_obstacles")
}

func TestServeStopsWithContext(t *testing.T) {
	cfg, err := config.FromReader("inline", strings.NewReader(`{"num_robots": 2, "http": {"listen_address": "localhost:0"}}`))
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	test.That(t, Serve(ctx, cfg, false), test.ShouldBeNil)
}
