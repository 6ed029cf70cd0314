package driver

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// validateTries bounds how often a disputed reading is re-queried before
// the latest report is accepted.
const validateTries = 2

// pendingChange is a reading held back until a second report confirms it.
type pendingChange struct {
	data  any
	tries int
}

// handleFrame processes an inbound request frame from the controller.
func (s *Session) handleFrame(f serialapi.Frame) {
	if f.IsResponse() {
		s.log.Debug().Str("frame", f.String()).Msg("Dropping unexpected response")
		return
	}

	reg := s.registry.Load()
	switch f.Func {
	case serialapi.FuncApplicationCommandHandler:
		ac, err := serialapi.ParseApplicationCommand(f.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("Malformed application command")
			return
		}
		if ac.Status&serialapi.ReceiveStatusRoutedBusy != 0 {
			s.count(func(d *zwave.DriverData) { d.RoutedBusy++ })
		}
		if ac.Broadcast() {
			s.count(func(d *zwave.DriverData) { d.BroadcastReadCnt++ })
		}
		if reg != nil {
			s.handleCommand(reg, ac)
		}

	case serialapi.FuncApplicationUpdate:
		u, err := serialapi.ParseApplicationUpdate(f.Payload)
		if err != nil {
			s.log.Warn().Err(err).Msg("Malformed application update")
			return
		}
		if u.Status == serialapi.UpdateStateNodeInfoReceived && reg != nil {
			s.applyNIF(reg, u)
		}

	case serialapi.FuncSendData:
		s.count(func(d *zwave.DriverData) { d.Callbacks++ })
		s.log.Debug().Str("frame", f.String()).Msg("Unexpected transmit callback")

	case serialapi.FuncAddNodeToNetwork:
		s.onAddNodeStatus(f.Payload)

	case serialapi.FuncRemoveNodeFromNetwork:
		s.onRemoveNodeStatus(f.Payload)

	default:
		s.log.Debug().Str("frame", f.String()).Msg("Ignoring unsolicited frame")
	}
}

// handleCommand applies a command class frame received from a node.
func (s *Session) handleCommand(reg *zwave.NodeRegistry, ac serialapi.ApplicationCommand) {
	node, err := reg.Node(ac.Source)
	if err != nil {
		s.log.Debug().Uint8("node", uint8(ac.Source)).Msg("Command from unknown node")
		return
	}
	cmd := ac.Command
	if len(cmd) < 2 {
		return
	}

	switch {
	case cmd[0] == zwave.CCBasic && cmd[1] == serialapi.CmdSet && len(cmd) > 2:
		s.notify(zwave.NotificationNodeEvent, node.ID, cmd[2])

	case cmd[0] == zwave.CCManufacturerSpecific && cmd[1] == serialapi.CmdManufacturerSpecificReport:
		s.onManufacturerSpecific(reg, node.ID, cmd[2:])

	case cmd[0] == zwave.CCNodeNaming && cmd[1] == serialapi.CmdNodeNamingReport:
		s.onNaming(reg, node.ID, cmd[2:], false)

	case cmd[0] == zwave.CCNodeNaming && cmd[1] == serialapi.CmdNodeNamingLocationReport:
		s.onNaming(reg, node.ID, cmd[2:], true)

	default:
		r, ok := decodeReading(&node, cmd)
		if !ok {
			s.log.Debug().Uint8("node", uint8(node.ID)).Hex("command", cmd).Msg("Unhandled command")
			return
		}
		r.id.HomeID = reg.HomeID()
		s.applyReading(reg, r)
	}
}

// applyReading stores a reported reading. With ValidateValueChanges a
// reading that differs from the stored one is held and the value is read
// again; the change is committed once a second report agrees.
func (s *Session) applyReading(reg *zwave.NodeRegistry, r reading) {
	cur, err := reg.Value(r.id)
	if err != nil {
		s.log.Debug().Err(err).Msg("Report for a value the node does not expose")
		return
	}

	if !s.cfg.ValidateValueChanges || !cur.IsSet {
		s.commit(reg, r)
		return
	}

	p, held := s.pending[r.id]
	switch {
	case !held && zwave.Equal(cur.Data, r.data):
		s.commit(reg, r)
	case !held:
		s.pending[r.id] = &pendingChange{data: r.data, tries: 1}
		s.requery(r.id)
	case zwave.Equal(p.data, r.data):
		delete(s.pending, r.id)
		s.commit(reg, r)
	case zwave.Equal(cur.Data, r.data):
		// the change was transient
		delete(s.pending, r.id)
		s.commit(reg, r)
	case p.tries >= validateTries:
		delete(s.pending, r.id)
		s.commit(reg, r)
	default:
		p.data = r.data
		p.tries++
		s.requery(r.id)
	}
}

func (s *Session) commit(reg *zwave.NodeRegistry, r reading) {
	if _, err := reg.SetValueData(r.id, r.data); err != nil {
		s.log.Warn().Err(err).Str("value_id", r.id.String()).Msg("Storing reading")
	}
}

func (s *Session) requery(vid zwave.ValueID) {
	s.enqueue(job{name: "validate", run: func(ctx context.Context) error {
		return s.refresh(ctx, vid)
	}})
}

// applyNIF records the command classes of a node information frame and
// creates the values they expose.
func (s *Session) applyNIF(reg *zwave.NodeRegistry, u serialapi.NodeUpdate) {
	err := reg.UpdateNode(u.Node, zwave.NotificationNodeProtocolInfo, func(n *zwave.Node) {
		n.Basic, n.Generic, n.Specific = u.Basic, u.Generic, u.Specific
		n.CommandClasses = slices.Clone(u.CommandClasses)
	})
	if err != nil {
		s.log.Debug().Err(err).Msg("Node information for unknown node")
		return
	}
	s.createValues(reg, u.Node)
}

// createValues adds every value the node's command classes and product
// expose that the registry does not hold yet.
func (s *Session) createValues(reg *zwave.NodeRegistry, id zwave.NodeID) {
	node, err := reg.Node(id)
	if err != nil {
		return
	}

	var values []zwave.Value
	for _, cc := range node.CommandClasses {
		values = append(values, valuesFor(id, cc)...)
	}
	if node.Supports(zwave.CCConfiguration) {
		if product, ok := zwave.LookupProduct(node.ManufacturerID, node.ProductType, node.ProductID); ok {
			values = append(values, configValues(id, product)...)
		}
	}

	for _, v := range values {
		v.ID.HomeID = reg.HomeID()
		if _, err := reg.Value(v.ID); err == nil {
			continue
		}
		if err := reg.AddValue(v); err != nil {
			s.log.Warn().Err(err).Msg("Adding value")
		}
	}
}

func (s *Session) onManufacturerSpecific(reg *zwave.NodeRegistry, id zwave.NodeID, p []byte) {
	if len(p) < 6 {
		return
	}
	mfr := binary.BigEndian.Uint16(p[0:2])
	ptype := binary.BigEndian.Uint16(p[2:4])
	pid := binary.BigEndian.Uint16(p[4:6])

	mfrName, ok := zwave.ManufacturerName(mfr)
	if !ok {
		mfrName = fmt.Sprintf("Unknown: id=%04x", mfr)
	}
	prodName := fmt.Sprintf("Unknown: type=%04x, id=%04x", ptype, pid)
	if product, ok := zwave.LookupProduct(mfr, ptype, pid); ok {
		prodName = product.Name
	}

	err := reg.UpdateNode(id, zwave.NotificationNodeNaming, func(n *zwave.Node) {
		n.ManufacturerID, n.ProductType, n.ProductID = mfr, ptype, pid
		n.ManufacturerName, n.ProductName = mfrName, prodName
	})
	if err != nil {
		return
	}
	s.createValues(reg, id)
}

// onNaming applies a Node Naming report. An empty report keeps the name
// already known, such as one restored from the name store.
func (s *Session) onNaming(reg *zwave.NodeRegistry, id zwave.NodeID, p []byte, location bool) {
	if len(p) < 1 {
		return
	}
	text := strings.TrimRight(string(p[1:]), "\x00")
	_ = reg.UpdateNode(id, zwave.NotificationNodeNaming, func(n *zwave.Node) {
		if text == "" {
			return
		}
		if location {
			n.Location = text
		} else {
			n.Name = text
		}
	})
}
