package driver

import (
	"context"
	"fmt"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// controllerCommand is the exclusive command in progress.
type controllerCommand struct {
	kind       ControllerCommand
	callbackID uint8
	node       zwave.NodeID
}

// BeginControllerCommand starts an exclusive controller command. Progress
// is reported with ControllerCommand notifications; the session stays Busy
// until the command reaches a terminal state. node is only used by
// HasNodeFailed.
func (s *Session) BeginControllerCommand(cmd ControllerCommand, node zwave.NodeID) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}

	var run func(ctx context.Context) error
	switch cmd {
	case ControllerCommandAddDevice:
		run = s.addDevice
	case ControllerCommandRemoveDevice:
		run = s.removeDevice
	case ControllerCommandHasNodeFailed:
		if _, err := reg.Node(node); err != nil {
			return err
		}
		run = func(ctx context.Context) error { return s.hasNodeFailed(ctx, reg, node) }
	default:
		return fmt.Errorf("%w: controller command %s", zwave.ErrUnsupported, cmd)
	}

	if !s.state.CompareAndSwap(int32(StateReady), int32(StateBusy)) {
		s.count(func(d *zwave.DriverData) { d.NotIdle++ })
		return fmt.Errorf("%w: %s", zwave.ErrBusy, s.State())
	}
	if err := s.submit(job{name: cmd.String(), controller: true, run: run}); err != nil {
		s.state.CompareAndSwap(int32(StateBusy), int32(StateReady))
		return err
	}
	s.log.Info().Str("command", cmd.String()).Msg("Controller command queued")
	return nil
}

// CancelControllerCommand aborts the exclusive command in progress. With
// nothing in progress it succeeds without notifying anybody.
func (s *Session) CancelControllerCommand() error {
	if _, err := s.ready(); err != nil {
		return err
	}
	if s.State() != StateBusy {
		return nil
	}
	return s.submit(job{name: "cancel", controller: true, run: s.cancelCommand})
}

func (s *Session) addDevice(ctx context.Context) error {
	return s.beginInclusion(ctx, ControllerCommandAddDevice, func(cb uint8) serialapi.Frame {
		return serialapi.AddNodeRequest(serialapi.AddNodeAny, cb)
	})
}

func (s *Session) removeDevice(ctx context.Context) error {
	return s.beginInclusion(ctx, ControllerCommandRemoveDevice, func(cb uint8) serialapi.Frame {
		return serialapi.RemoveNodeRequest(serialapi.RemoveNodeAny, cb)
	})
}

// beginInclusion puts the controller into add or remove mode. The rest of
// the command is driven by the node status callbacks.
func (s *Session) beginInclusion(ctx context.Context, kind ControllerCommand, frame func(cb uint8) serialapi.Frame) error {
	cb := s.nextCallbackID()
	s.command = &controllerCommand{kind: kind, callbackID: cb}
	s.notifyController(zwave.ControllerStateStarting)

	if _, err := s.transact(ctx, request{frame: frame(cb)}); err != nil {
		s.finishCommand(zwave.ControllerStateFailed)
		return err
	}
	return nil
}

func (s *Session) hasNodeFailed(ctx context.Context, reg *zwave.NodeRegistry, node zwave.NodeID) error {
	s.command = &controllerCommand{kind: ControllerCommandHasNodeFailed, node: node}
	s.notifyController(zwave.ControllerStateStarting)

	res, err := s.transact(ctx, request{frame: serialapi.IsFailedNodeRequest(node), response: true})
	if err != nil {
		s.finishCommand(zwave.ControllerStateFailed)
		return err
	}
	if len(res.response.Payload) > 0 && res.response.Payload[0] != 0 {
		reg.SetNodeDead(node, true)
		s.finishCommand(zwave.ControllerStateNodeFailed)
		return nil
	}
	s.finishCommand(zwave.ControllerStateNodeOK)
	return nil
}

func (s *Session) cancelCommand(ctx context.Context) error {
	cmd := s.command
	if cmd == nil {
		return nil
	}
	switch cmd.kind {
	case ControllerCommandAddDevice:
		s.stopInclusion(ctx, serialapi.AddNodeRequest(serialapi.AddNodeStop, 0))
	case ControllerCommandRemoveDevice:
		s.stopInclusion(ctx, serialapi.RemoveNodeRequest(serialapi.RemoveNodeStop, 0))
	}
	s.finishCommand(zwave.ControllerStateCancel)
	return nil
}

func (s *Session) stopInclusion(ctx context.Context, f serialapi.Frame) {
	if _, err := s.transact(ctx, request{frame: f}); err != nil {
		s.log.Warn().Err(err).Msg("Stopping inclusion mode")
	}
}

// finishCommand ends the command in progress with a terminal state and
// returns the session to Ready.
func (s *Session) finishCommand(st zwave.ControllerState) {
	kind := ControllerCommandNone
	if s.command != nil {
		kind = s.command.kind
	}
	s.command = nil
	s.state.CompareAndSwap(int32(StateBusy), int32(StateReady))
	s.notifyController(st)
	s.log.Info().Str("command", kind.String()).Str("state", st.String()).Msg("Controller command finished")
}

// abandonControllerCommand reports the command in progress as failed.
func (s *Session) abandonControllerCommand() {
	if s.command == nil {
		return
	}
	s.command = nil
	s.notifyController(zwave.ControllerStateFailed)
}

// activeCommand returns the command a node status callback belongs to, or
// nil for a stale callback.
func (s *Session) activeCommand(kind ControllerCommand, cb uint8) *controllerCommand {
	if s.command == nil || s.command.kind != kind || s.command.callbackID != cb || cb == 0 {
		s.count(func(d *zwave.DriverData) { d.Callbacks++ })
		return nil
	}
	return s.command
}

func (s *Session) onAddNodeStatus(p []byte) {
	u, err := serialapi.ParseNodeStatusCallback(p)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed add node callback")
		return
	}
	cmd := s.activeCommand(ControllerCommandAddDevice, u.CallbackID)
	if cmd == nil {
		return
	}

	switch u.Status {
	case serialapi.NodeStatusLearnReady:
		s.notifyController(zwave.ControllerStateWaiting)
	case serialapi.NodeStatusNodeFound:
		s.notifyController(zwave.ControllerStateInProgress)
	case serialapi.NodeStatusAddingSlave, serialapi.NodeStatusAddingController:
		cmd.node = u.Node
	case serialapi.NodeStatusProtocolDone:
		stop := serialapi.AddNodeRequest(serialapi.AddNodeStop, cmd.callbackID)
		s.enqueue(job{name: "add_node_stop", run: func(ctx context.Context) error {
			_, err := s.transact(ctx, request{frame: stop})
			return err
		}})
	case serialapi.NodeStatusDone:
		node := u.Node
		if node == 0 {
			node = cmd.node
		}
		s.finishCommand(zwave.ControllerStateCompleted)
		if node.Valid() {
			s.enqueue(job{name: "interview", node: node, run: func(ctx context.Context) error {
				return s.includeNode(ctx, node)
			}})
		}
	case serialapi.NodeStatusFailed:
		s.enqueue(job{name: "add_node_stop", run: func(ctx context.Context) error {
			s.stopInclusion(ctx, serialapi.AddNodeRequest(serialapi.AddNodeStop, 0))
			return nil
		}})
		s.finishCommand(zwave.ControllerStateFailed)
	}
}

// includeNode adds a freshly included node, replacing a stale entry with
// the same id.
func (s *Session) includeNode(ctx context.Context, node zwave.NodeID) error {
	reg := s.registry.Load()
	if reg == nil {
		return zwave.ErrNotReady
	}
	if _, err := reg.Node(node); err == nil {
		s.forgetNode(reg, node)
	}
	return s.interview(ctx, reg, node, true)
}

func (s *Session) onRemoveNodeStatus(p []byte) {
	u, err := serialapi.ParseNodeStatusCallback(p)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed remove node callback")
		return
	}
	cmd := s.activeCommand(ControllerCommandRemoveDevice, u.CallbackID)
	if cmd == nil {
		return
	}

	switch u.Status {
	case serialapi.NodeStatusLearnReady:
		s.notifyController(zwave.ControllerStateWaiting)
	case serialapi.NodeStatusNodeFound:
		s.notifyController(zwave.ControllerStateInProgress)
	case serialapi.NodeStatusAddingSlave, serialapi.NodeStatusAddingController:
		cmd.node = u.Node
	case serialapi.NodeStatusDone:
		node := u.Node
		if node == 0 {
			node = cmd.node
		}
		if reg := s.registry.Load(); reg != nil && node.Valid() {
			s.forgetNode(reg, node)
		}
		s.enqueue(job{name: "remove_node_stop", run: func(ctx context.Context) error {
			s.stopInclusion(ctx, serialapi.RemoveNodeRequest(serialapi.RemoveNodeStop, 0))
			return nil
		}})
		s.finishCommand(zwave.ControllerStateCompleted)
	case serialapi.NodeStatusFailed:
		s.enqueue(job{name: "remove_node_stop", run: func(ctx context.Context) error {
			s.stopInclusion(ctx, serialapi.RemoveNodeRequest(serialapi.RemoveNodeStop, 0))
			return nil
		}})
		s.finishCommand(zwave.ControllerStateFailed)
	}
}

// forgetNode removes a node and any reading held for validation.
func (s *Session) forgetNode(reg *zwave.NodeRegistry, node zwave.NodeID) {
	for vid := range s.pending {
		if vid.NodeID == node {
			delete(s.pending, vid)
		}
	}
	if err := reg.RemoveNode(node); err != nil {
		s.log.Debug().Err(err).Uint8("node", uint8(node)).Msg("Removing node")
	}
}
