package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// errNodeUnreachable marks a node whose information request failed.
var errNodeUnreachable = errors.New("node did not answer the information request")

// initialize runs the handshake and queries every node. A shutdown
// requested meanwhile aborts it.
func (s *Session) initialize() error {
	ctx, cancel := context.WithCancel(s.runCtx)
	defer cancel()
	go func() {
		select {
		case <-s.stopReq:
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := s.transact(ctx, request{frame: serialapi.GetVersionRequest(), response: true})
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}
	version, err := serialapi.ParseVersion(res.response.Payload)
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	res, err = s.transact(ctx, request{frame: serialapi.MemoryGetIDRequest(), response: true})
	if err != nil {
		return fmt.Errorf("memory get id: %w", err)
	}
	home, controller, err := serialapi.ParseMemoryGetID(res.response.Payload)
	if err != nil {
		return fmt.Errorf("memory get id: %w", err)
	}
	if s.cfg.Homes != nil {
		if !s.cfg.Homes.ClaimHome(home, s) {
			return fmt.Errorf("%w: home %s is driven by another endpoint", zwave.ErrDriverExists, home)
		}
		s.claimed = true
	}
	s.home.Store(uint32(home))
	s.controllerID.Store(uint32(controller))

	s.log.Info().
		Str("home_id", home.String()).
		Uint8("controller", uint8(controller)).
		Str("library", version.Library).
		Msg("Controller identified")

	reg := zwave.NewNodeRegistry(home, s.emit)
	s.registry.Store(reg)

	res, err = s.transact(ctx, request{frame: serialapi.GetInitDataRequest(), response: true})
	if err != nil {
		return fmt.Errorf("get init data: %w", err)
	}
	initData, err := serialapi.ParseInitData(res.response.Payload)
	if err != nil {
		return fmt.Errorf("get init data: %w", err)
	}

	for _, id := range initData.Nodes {
		if err := s.interview(ctx, reg, id, false); err != nil {
			if ctx.Err() != nil || errors.Is(err, zwave.ErrTransport) {
				return err
			}
			s.log.Warn().Err(err).Uint8("node", uint8(id)).Msg("Node query incomplete")
		}
	}

	s.accepting.Store(true)
	s.setState(StateReady)
	s.notify(zwave.NotificationDriverReady, controller, 0)

	dead := 0
	for _, n := range reg.Nodes() {
		if n.Dead {
			dead++
		}
	}
	if dead > 0 {
		s.notify(zwave.NotificationAllNodesQueriedSomeDead, controller, 0)
	} else {
		s.notify(zwave.NotificationAllNodesQueried, controller, 0)
	}

	s.log.Info().
		Str("home_id", home.String()).
		Int("nodes", reg.Len()).
		Int("dead", dead).
		Msg("Driver ready")
	return nil
}

// interview queries one node: protocol info, node information frame,
// manufacturer, names and the current reading of every value. Nodes new to
// the registry are added first; included marks nodes that just joined.
func (s *Session) interview(ctx context.Context, reg *zwave.NodeRegistry, id zwave.NodeID, included bool) error {
	res, err := s.transact(ctx, request{frame: serialapi.NodeProtocolInfoRequest(id), response: true})
	if err != nil {
		return fmt.Errorf("protocol info: %w", err)
	}
	pi, err := serialapi.ParseProtocolInfo(res.response.Payload)
	if err != nil {
		return err
	}
	if pi.Generic == 0 {
		return fmt.Errorf("%w: controller has no protocol info for %d", zwave.ErrUnknownNode, id)
	}

	if _, err := reg.Node(id); err != nil {
		name, location, known := s.lookupName(ctx, reg.HomeID(), id)
		n := zwave.Node{
			ID:        id,
			Name:      name,
			Location:  location,
			Basic:     pi.Basic,
			Generic:   pi.Generic,
			Specific:  pi.Specific,
			Listening: pi.Listening,
		}
		if err := reg.AddNode(n, included || !known); err != nil {
			return err
		}
	}

	if id == s.ControllerNodeID() {
		_ = reg.UpdateNode(id, zwave.NotificationNodeProtocolInfo, func(n *zwave.Node) {
			n.Listening, n.Basic, n.Generic, n.Specific = pi.Listening, pi.Basic, pi.Generic, pi.Specific
		})
		s.notify(zwave.NotificationEssentialNodeQueriesComplete, id, 0)
		return reg.UpdateNode(id, zwave.NotificationNodeQueriesComplete, func(n *zwave.Node) {
			n.QueriesComplete = true
		})
	}

	res, err = s.transact(ctx, request{
		frame:    serialapi.RequestNodeInfoRequest(id),
		node:     id,
		response: true,
		accept:   retValOK,
		reply:    nodeInfoFrom(id),
	})
	if err != nil {
		return fmt.Errorf("node info: %w", err)
	}
	if u, err := serialapi.ParseApplicationUpdate(res.reply.Payload); err != nil || u.Status != serialapi.UpdateStateNodeInfoReceived {
		reg.SetNodeDead(id, true)
		return errNodeUnreachable
	}

	node, err := reg.Node(id)
	if err != nil {
		return err
	}
	if node.Supports(zwave.CCManufacturerSpecific) {
		if err := s.sendCommand(ctx, id,
			[]byte{zwave.CCManufacturerSpecific, serialapi.CmdManufacturerSpecificGet},
			reportFrom(id, zwave.CCManufacturerSpecific, serialapi.CmdManufacturerSpecificReport)); err != nil {
			return fmt.Errorf("manufacturer specific: %w", err)
		}
	}
	s.notify(zwave.NotificationEssentialNodeQueriesComplete, id, 0)

	if node.Supports(zwave.CCNodeNaming) {
		if err := s.queryNames(ctx, id); err != nil {
			return err
		}
	}

	values, err := reg.Values(id)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v.WriteOnly {
			continue
		}
		if err := s.refresh(ctx, v.ID); err != nil {
			return fmt.Errorf("read %s: %w", v.Label, err)
		}
	}

	return reg.UpdateNode(id, zwave.NotificationNodeQueriesComplete, func(n *zwave.Node) {
		n.QueriesComplete = true
	})
}

func (s *Session) queryNames(ctx context.Context, id zwave.NodeID) error {
	if err := s.sendCommand(ctx, id,
		[]byte{zwave.CCNodeNaming, serialapi.CmdNodeNamingGet},
		reportFrom(id, zwave.CCNodeNaming, serialapi.CmdNodeNamingReport)); err != nil {
		return fmt.Errorf("node name: %w", err)
	}
	if err := s.sendCommand(ctx, id,
		[]byte{zwave.CCNodeNaming, serialapi.CmdNodeNamingLocationGet},
		reportFrom(id, zwave.CCNodeNaming, serialapi.CmdNodeNamingLocationReport)); err != nil {
		return fmt.Errorf("node location: %w", err)
	}
	return nil
}

// refresh reads a value from its node. The report is applied by the frame
// handler.
func (s *Session) refresh(ctx context.Context, vid zwave.ValueID) error {
	get, report, ok := getRequest(vid)
	if !ok {
		return fmt.Errorf("%w: reading %s", zwave.ErrUnsupported, vid)
	}
	return s.sendCommand(ctx, vid.NodeID, get, reportFrom(vid.NodeID, report...))
}

// lookupName restores a cached name. known reports whether the node was
// seen before.
func (s *Session) lookupName(ctx context.Context, home zwave.HomeID, id zwave.NodeID) (name, location string, known bool) {
	if s.cfg.Names == nil {
		return "", "", false
	}
	name, location, known, err := s.cfg.Names.LookupNode(ctx, home, id)
	if err != nil {
		s.log.Warn().Err(err).Uint8("node", uint8(id)).Msg("Looking up cached node name")
		return "", "", false
	}
	return name, location, known
}

func (s *Session) saveName(ctx context.Context, reg *zwave.NodeRegistry, id zwave.NodeID) {
	if s.cfg.Names == nil {
		return
	}
	n, err := reg.Node(id)
	if err != nil {
		return
	}
	if err := s.cfg.Names.SaveNode(ctx, reg.HomeID(), id, n.Name, n.Location); err != nil {
		s.log.Warn().Err(err).Uint8("node", uint8(id)).Msg("Saving node name")
	}
}

// nodeInfoFrom matches the APPLICATION_UPDATE answering a node information
// request: the frame itself, or the controller's report that the request
// failed.
func nodeInfoFrom(id zwave.NodeID) func(serialapi.Frame) bool {
	return func(f serialapi.Frame) bool {
		if f.Func != serialapi.FuncApplicationUpdate {
			return false
		}
		u, err := serialapi.ParseApplicationUpdate(f.Payload)
		if err != nil {
			return false
		}
		switch u.Status {
		case serialapi.UpdateStateNodeInfoReceived:
			return u.Node == id
		case serialapi.UpdateStateNodeInfoReqFailed:
			return true
		}
		return false
	}
}
