package driver

import "fmt"

// State is the lifecycle stage of a Session.
type State int32

const (
	StateCreated      State = iota // constructed, worker not started
	StateInitializing              // handshake and node enumeration
	StateReady                     // accepting commands
	StateBusy                      // an exclusive controller command is outstanding
	StateFailed                    // the transport or the handshake failed
	StateStopped                   // released
)

var stateNames = [...]string{"created", "initializing", "ready", "busy", "failed", "stopped"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Accepting reports whether commands are accepted in this state.
func (s State) Accepting() bool {
	return s == StateReady || s == StateBusy
}

// ControllerCommand is an exclusive command occupying the controller.
type ControllerCommand uint8

const (
	ControllerCommandNone ControllerCommand = iota
	ControllerCommandAddDevice
	ControllerCommandRemoveDevice
	ControllerCommandHasNodeFailed
)

var controllerCommandNames = [...]string{"none", "add_device", "remove_device", "has_node_failed"}

func (c ControllerCommand) String() string {
	if int(c) < len(controllerCommandNames) {
		return controllerCommandNames[c]
	}
	return fmt.Sprintf("controller_command(%d)", uint8(c))
}

// ParseControllerCommand maps a command name to its value.
func ParseControllerCommand(s string) (ControllerCommand, error) {
	for i, name := range controllerCommandNames {
		if i > 0 && name == s {
			return ControllerCommand(i), nil
		}
	}
	return ControllerCommandNone, fmt.Errorf("unknown controller command %q", s)
}
