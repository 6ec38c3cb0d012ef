package planning

import (
	"encoding/json"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/sslcore/planner/geometry"
)

// Motion command names. Each one selects the planner registered under the same name.
const (
	IdleCommand            = "idle"
	PathTargetCommand      = "path_target"
	GoalieIdleCommand      = "goalie_idle"
	EscapeObstaclesCommand = "escape_obstacles"
)

// MotionCommand is a tagged variant: Name selects the planner, Params carries its parameters.
// Params is nil for commands without parameters.
type MotionCommand struct {
	Name   string
	Params any
}

// EmptyCommand returns the idle command. A robot given the idle command holds position.
func EmptyCommand() MotionCommand {
	return MotionCommand{Name: IdleCommand}
}

// PathTargetParams moves the robot along a path to Target.
type PathTargetParams struct {
	Target geometry.Pose `json:"target"`
	// TargetSpeed caps the cruise speed below the robot constraint when positive.
	TargetSpeed float64 `json:"target_speed,omitempty"`
}

// PathTarget builds a path_target command.
func PathTarget(target geometry.Pose) MotionCommand {
	return MotionCommand{Name: PathTargetCommand, Params: PathTargetParams{Target: target}}
}

var paramDecoders = map[string]func(map[string]any) (any, error){
	PathTargetCommand: decodeParams[PathTargetParams],
}

func decodeParams[T any](raw map[string]any) (any, error) {
	var params T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &params,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return params, nil
}

// DecodeMotionCommand builds a MotionCommand from generic, e.g. JSON decoded, parameters.
// Commands whose name has no typed parameters keep `raw` as is so the scheduler can still
// report the name.
func DecodeMotionCommand(name string, raw map[string]any) (MotionCommand, error) {
	decode, ok := paramDecoders[name]
	if !ok {
		if len(raw) == 0 {
			return MotionCommand{Name: name}, nil
		}
		return MotionCommand{Name: name, Params: raw}, nil
	}
	params, err := decode(raw)
	if err != nil {
		return MotionCommand{}, errors.Wrapf(err, "decoding parameters of %q", name)
	}
	return MotionCommand{Name: name, Params: params}, nil
}

type motionCommandJSON struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// MarshalJSON encodes the command as {"name": ..., "params": {...}}.
func (mc MotionCommand) MarshalJSON() ([]byte, error) {
	out := struct {
		Name   string `json:"name"`
		Params any    `json:"params,omitempty"`
	}{mc.Name, mc.Params}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the output of MarshalJSON.
func (mc *MotionCommand) UnmarshalJSON(data []byte) error {
	var raw motionCommandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return errors.New("motion command has no name")
	}
	decoded, err := DecodeMotionCommand(raw.Name, raw.Params)
	if err != nil {
		return err
	}
	*mc = decoded
	return nil
}
