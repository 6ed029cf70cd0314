package driver

import (
	"context"
	"fmt"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Commands validate synchronously and return once the work is queued.
// Outcomes are reported through notifications.

// SetValue requests a new reading for a value. The stored reading only
// changes when the node's report confirms it.
func (s *Session) SetValue(vid zwave.ValueID, data any) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	v, canonical, err := reg.Validate(vid, data)
	if err != nil {
		return err
	}
	cmd, err := setCommand(v, canonical)
	if err != nil {
		return err
	}
	return s.submit(job{name: "set_value", node: vid.NodeID, run: func(ctx context.Context) error {
		if err := s.sendCommand(ctx, vid.NodeID, cmd, nil); err != nil {
			return err
		}
		return s.refresh(ctx, vid)
	}})
}

// SetValueFromString parses s for the value's type and sets it.
func (s *Session) SetValueFromString(vid zwave.ValueID, str string) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	v, err := reg.Value(vid)
	if err != nil {
		return err
	}
	data, err := zwave.ParseValue(&v, str)
	if err != nil {
		return err
	}
	return s.SetValue(vid, data)
}

// RefreshValue reads a value from its node again.
func (s *Session) RefreshValue(vid zwave.ValueID) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	v, err := reg.Value(vid)
	if err != nil {
		return err
	}
	if v.WriteOnly {
		return fmt.Errorf("%w: %s", zwave.ErrWriteOnly, v.Label)
	}
	return s.submit(job{name: "refresh_value", node: vid.NodeID, run: func(ctx context.Context) error {
		return s.refresh(ctx, vid)
	}})
}

// EnablePoll polls a value every intensity-th poll pass. The change is
// applied by the worker.
func (s *Session) EnablePoll(vid zwave.ValueID, intensity uint8) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	v, err := reg.Value(vid)
	if err != nil {
		return err
	}
	if v.WriteOnly {
		return fmt.Errorf("%w: %s", zwave.ErrWriteOnly, v.Label)
	}
	if _, _, ok := getRequest(vid); !ok {
		return fmt.Errorf("%w: polling %s", zwave.ErrUnsupported, v.Label)
	}
	return s.setPollIntensity(reg, "enable_poll", vid, max(intensity, 1))
}

// DisablePoll stops polling a value.
func (s *Session) DisablePoll(vid zwave.ValueID) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	if _, err := reg.Value(vid); err != nil {
		return err
	}
	return s.setPollIntensity(reg, "disable_poll", vid, 0)
}

func (s *Session) setPollIntensity(reg *zwave.NodeRegistry, name string, vid zwave.ValueID, intensity uint8) error {
	return s.submit(job{name: name, node: vid.NodeID, run: func(context.Context) error {
		return reg.SetPollIntensity(vid, intensity)
	}})
}

// IsPolled reports whether a value is polled.
func (s *Session) IsPolled(vid zwave.ValueID) (bool, error) {
	reg, err := s.ready()
	if err != nil {
		return false, err
	}
	v, err := reg.Value(vid)
	if err != nil {
		return false, err
	}
	return v.PollIntensity > 0, nil
}

// SetNodeOn turns a node on with BASIC_SET and reads its switch back.
func (s *Session) SetNodeOn(node zwave.NodeID) error {
	return s.setNodeLevel(node, 0xFF)
}

// SetNodeOff turns a node off with BASIC_SET and reads its switch back.
func (s *Session) SetNodeOff(node zwave.NodeID) error {
	return s.setNodeLevel(node, 0x00)
}

func (s *Session) setNodeLevel(node zwave.NodeID, level uint8) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	n, err := reg.Node(node)
	if err != nil {
		return err
	}
	cmd := []byte{zwave.CCBasic, serialapi.CmdSet, level}
	return s.submit(job{name: "basic_set", node: node, run: func(ctx context.Context) error {
		if err := s.sendCommand(ctx, node, cmd, nil); err != nil {
			return err
		}
		if vid, ok := switchValue(&n, reg.HomeID()); ok {
			return s.refresh(ctx, vid)
		}
		return nil
	}})
}

// SwitchAllOn broadcasts SWITCH_ALL ON.
func (s *Session) SwitchAllOn() error {
	return s.switchAll(serialapi.CmdSwitchAllOn)
}

// SwitchAllOff broadcasts SWITCH_ALL OFF.
func (s *Session) SwitchAllOff() error {
	return s.switchAll(serialapi.CmdSwitchAllOff)
}

func (s *Session) switchAll(op uint8) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	return s.submit(job{name: "switch_all", node: zwave.BroadcastNodeID, run: func(ctx context.Context) error {
		if err := s.sendCommand(ctx, zwave.BroadcastNodeID, []byte{zwave.CCSwitchAll, op}, nil); err != nil {
			return err
		}
		for _, n := range reg.Nodes() {
			if n.Dead || !n.Supports(zwave.CCSwitchAll) {
				continue
			}
			if vid, ok := switchValue(&n, reg.HomeID()); ok {
				s.enqueue(job{name: "refresh_value", run: func(ctx context.Context) error {
					return s.refresh(ctx, vid)
				}})
			}
		}
		return nil
	}})
}

// RefreshNodeInfo queries a node again from scratch.
func (s *Session) RefreshNodeInfo(node zwave.NodeID) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	if _, err := reg.Node(node); err != nil {
		return err
	}
	return s.submit(job{name: "refresh_node_info", node: node, run: func(ctx context.Context) error {
		return s.interview(ctx, reg, node, false)
	}})
}

// SetNodeName names a node. Nodes with Node Naming store the name
// themselves; for the rest it is only kept by the driver and the name
// store.
func (s *Session) SetNodeName(node zwave.NodeID, name string) error {
	return s.setNaming(node, name, false)
}

// SetNodeLocation sets the location of a node, like SetNodeName.
func (s *Session) SetNodeLocation(node zwave.NodeID, location string) error {
	return s.setNaming(node, location, true)
}

func (s *Session) setNaming(node zwave.NodeID, text string, location bool) error {
	reg, err := s.ready()
	if err != nil {
		return err
	}
	n, err := reg.Node(node)
	if err != nil {
		return err
	}
	text = truncateName(text)

	setOp, getOp, reportOp := serialapi.CmdNodeNamingSet, serialapi.CmdNodeNamingGet, serialapi.CmdNodeNamingReport
	name := "set_node_name"
	if location {
		setOp, getOp, reportOp = serialapi.CmdNodeNamingLocationSet, serialapi.CmdNodeNamingLocationGet, serialapi.CmdNodeNamingLocationReport
		name = "set_node_location"
	}

	return s.submit(job{name: name, node: node, run: func(ctx context.Context) error {
		defer s.saveName(ctx, reg, node)

		if !n.Supports(zwave.CCNodeNaming) {
			return reg.UpdateNode(node, zwave.NotificationNodeNaming, func(n *zwave.Node) {
				if location {
					n.Location = text
				} else {
					n.Name = text
				}
			})
		}
		if err := s.sendCommand(ctx, node, nameCommand(setOp, text), nil); err != nil {
			return err
		}
		return s.sendCommand(ctx, node, []byte{zwave.CCNodeNaming, getOp}, reportFrom(node, zwave.CCNodeNaming, reportOp))
	}})
}
