package flow

// State is a step of a single invocation. Every invocation starts Idle and
// ends Validated or Failed
type State int

const (
	Idle State = iota
	Validating
	Rendering
	Calling
	ParsingResponse
	Validated
	Failed
)

var stateNames = [...]string{
	Idle:            "Idle",
	Validating:      "Validating",
	Rendering:       "Rendering",
	Calling:         "Calling",
	ParsingResponse: "ParsingResponse",
	Validated:       "Validated",
	Failed:          "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == Validated || s == Failed
}

// MarshalText renders the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var transitions = map[State][]State{
	Idle:            {Validating},
	Validating:      {Rendering, Failed},
	Rendering:       {Calling, Failed},
	Calling:         {ParsingResponse, Failed},
	ParsingResponse: {Validated, Failed},
}

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
