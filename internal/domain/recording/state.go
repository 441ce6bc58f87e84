package recording

// State is the controller's lifecycle position.
type State int

const (
	Idle State = iota
	Recording
	AwaitingSave
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case AwaitingSave:
		return "awaiting_save"
	default:
		return "unknown"
	}
}

// MarshalText lets State travel as its name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Control is an operator action surfaced by a front end.
type Control string

const (
	ControlRecord  Control = "record"
	ControlStop    Control = "stop"
	ControlSave    Control = "save"
	ControlName    Control = "name"
	ControlDiscard Control = "discard"
)

// Controls lists what a front end shows in state s: Idle offers Record,
// Recording offers Stop, AwaitingSave offers the name field, Save and Discard.
func Controls(s State) []Control {
	switch s {
	case Idle:
		return []Control{ControlRecord}
	case Recording:
		return []Control{ControlStop}
	case AwaitingSave:
		return []Control{ControlName, ControlSave, ControlDiscard}
	default:
		return nil
	}
}
