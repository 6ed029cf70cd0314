package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/schema"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// toolFunc returns the tool's JSON output. A returned error becomes an
// error result for the model, never a protocol error.
type toolFunc func(args arguments) (any, error)

func handle(fn toolFunc) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := fn(arguments(req.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatJSON(out)), nil
	}
}

func (s *Server) getHealth(arguments) (any, error) {
	drivers := s.driverInfos()
	status := "healthy"
	if len(drivers) == 0 {
		status = "degraded"
	}
	for _, d := range drivers {
		if d.State != driver.StateReady.String() && d.State != driver.StateBusy.String() {
			status = "degraded"
		}
	}
	return GetHealthOutput{Status: status, Drivers: drivers, Timestamp: time.Now().UTC().Format(time.RFC3339)}, nil
}

func (s *Server) listDrivers(arguments) (any, error) {
	drivers := s.driverInfos()
	return ListDriversOutput{Drivers: drivers, Count: len(drivers)}, nil
}

func (s *Server) addDriver(args arguments) (any, error) {
	endpoint, err := args.str("endpoint")
	if err != nil {
		return nil, err
	}
	if err := s.network.AddDriver(endpoint); err != nil {
		return nil, fmt.Errorf("failed to add driver: %w", err)
	}
	return DriverChangeOutput{Success: true, Endpoint: endpoint, Message: "Controller attached; nodes are being queried"}, nil
}

func (s *Server) removeDriver(args arguments) (any, error) {
	endpoint, err := args.str("endpoint")
	if err != nil {
		return nil, err
	}
	if err := s.network.RemoveDriver(endpoint); err != nil {
		return nil, fmt.Errorf("failed to remove driver: %w", err)
	}
	return DriverChangeOutput{Success: true, Endpoint: endpoint, Message: "Controller detached"}, nil
}

func (s *Server) getStatistics(args arguments) (any, error) {
	home, err := s.home(args)
	if err != nil {
		return nil, err
	}
	stats, err := s.network.Statistics(home)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return GetStatisticsOutput{HomeID: home.String(), Statistics: stats}, nil
}

func (s *Server) listNodes(args arguments) (any, error) {
	home, err := s.home(args)
	if err != nil {
		return nil, err
	}
	nodes, err := s.network.Nodes(home)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	out := ListNodesOutput{HomeID: home.String(), Nodes: make([]NodeInfo, 0, len(nodes))}
	for i := range nodes {
		out.Nodes = append(out.Nodes, NodeToInfo(&nodes[i]))
	}
	out.Count = len(out.Nodes)
	return out, nil
}

func (s *Server) getNode(args arguments) (any, error) {
	home, n, err := s.node(args)
	if err != nil {
		return nil, err
	}
	info := NodeToInfo(&n)
	// A node removed between the two calls just shows without values.
	if values, err := s.network.Values(home, n.ID); err == nil {
		for i := range values {
			info.Values = append(info.Values, ValueToInfo(&values[i]))
		}
	}
	return GetNodeOutput{Node: info}, nil
}

func (s *Server) renameNode(args arguments) (any, error) {
	home, n, err := s.node(args)
	if err != nil {
		return nil, err
	}
	name, err := args.str("new_name")
	if err != nil {
		return nil, err
	}
	if err := s.network.SetNodeName(home, n.ID, name); err != nil {
		return nil, fmt.Errorf("failed to rename node: %w", err)
	}
	msg := fmt.Sprintf("Node %d renamed to %q", n.ID, name)

	if location := args.optional("location"); location != "" {
		if err := s.network.SetNodeLocation(home, n.ID, location); err != nil {
			return nil, fmt.Errorf("failed to set location: %w", err)
		}
		msg += fmt.Sprintf(" in %q", location)
	}
	return RenameNodeOutput{Success: true, Message: msg}, nil
}

func (s *Server) getValue(args arguments) (any, error) {
	vid, err := args.valueID()
	if err != nil {
		return nil, err
	}
	v, err := s.network.Value(vid)
	if err != nil {
		return nil, fmt.Errorf("value not found: %w", err)
	}
	info := ValueToInfo(&v)
	if !v.ReadOnly {
		if doc, err := s.network.ValueSchema(vid); err == nil {
			info.Schema = doc
		}
	}
	return GetValueOutput{Value: info}, nil
}

func (s *Server) setValue(args arguments) (any, error) {
	vid, err := args.valueID()
	if err != nil {
		return nil, err
	}
	payload, ok := args["payload"].(map[string]any)
	if !ok || len(payload) == 0 {
		return nil, errors.New("payload must be a non-empty object")
	}

	doc, err := s.network.ValueSchema(vid)
	if err != nil {
		return nil, fmt.Errorf("value not found: %w", err)
	}
	if err := s.validator.Validate(doc, payload); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := s.network.SetValueJSON(vid, payload[schema.PayloadKey]); err != nil {
		return nil, fmt.Errorf("failed to set value: %w", err)
	}
	return ValueCommandOutput{Success: true, ValueID: vid.String(), Message: "Write queued"}, nil
}

func (s *Server) refreshValue(args arguments) (any, error) {
	vid, err := args.valueID()
	if err != nil {
		return nil, err
	}
	if err := s.network.RefreshValue(vid); err != nil {
		return nil, fmt.Errorf("failed to refresh value: %w", err)
	}
	return ValueCommandOutput{Success: true, ValueID: vid.String(), Message: "Refresh requested"}, nil
}

func (s *Server) switchNode(on bool) toolFunc {
	word := "off"
	if on {
		word = "on"
	}
	return func(args arguments) (any, error) {
		home, n, err := s.node(args)
		if err != nil {
			return nil, err
		}
		set := s.network.SetNodeOff
		if on {
			set = s.network.SetNodeOn
		}
		if err := set(home, n.ID); err != nil {
			return nil, fmt.Errorf("failed to turn %s node: %w", word, err)
		}
		return SwitchOutput{Success: true, NodeID: uint8(n.ID), Message: fmt.Sprintf("Node %d turned %s", n.ID, word)}, nil
	}
}

func (s *Server) beginCommand(cmd driver.ControllerCommand, msg string) toolFunc {
	return func(args arguments) (any, error) {
		home, err := s.home(args)
		if err != nil {
			return nil, err
		}
		if err := s.network.BeginControllerCommand(home, cmd, 0); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", cmd, err)
		}
		return ControllerCommandOutput{Success: true, Command: cmd.String(), Message: msg}, nil
	}
}

func (s *Server) cancelCommand(args arguments) (any, error) {
	home, err := s.home(args)
	if err != nil {
		return nil, err
	}
	if err := s.network.CancelControllerCommand(home); err != nil {
		return nil, fmt.Errorf("failed to cancel: %w", err)
	}
	return ControllerCommandOutput{Success: true, Message: "Controller command cancelled"}, nil
}

func (s *Server) driverInfos() []DriverInfo {
	drivers := s.network.Drivers()
	infos := make([]DriverInfo, 0, len(drivers))
	for _, d := range drivers {
		infos = append(infos, DriverToInfo(d))
	}
	return infos
}

// home reads the optional home argument. Without it the single attached
// network is used.
func (s *Server) home(args arguments) (zwave.HomeID, error) {
	if raw := args.optional("home"); raw != "" {
		id, err := strconv.ParseUint(raw, 0, 32)
		if err != nil {
			return 0, errors.New(`parameter "home" must be a home id such as 0x00c0ffee`)
		}
		return zwave.HomeID(id), nil
	}
	homes := s.network.Homes()
	switch len(homes) {
	case 0:
		return 0, errors.New("no network is ready")
	case 1:
		return homes[0], nil
	}
	return 0, fmt.Errorf(`parameter "home" is required when %d networks are attached`, len(homes))
}

// node resolves the node argument, a node id or a case-insensitive name.
func (s *Server) node(args arguments) (zwave.HomeID, zwave.Node, error) {
	home, err := s.home(args)
	if err != nil {
		return 0, zwave.Node{}, err
	}
	ref, err := args.str("node")
	if err != nil {
		return 0, zwave.Node{}, err
	}

	if id, perr := strconv.ParseUint(ref, 10, 8); perr == nil {
		n, err := s.network.Node(home, zwave.NodeID(id))
		if err != nil {
			return 0, zwave.Node{}, fmt.Errorf("node not found: %w", err)
		}
		return home, n, nil
	}

	nodes, err := s.network.Nodes(home)
	if err != nil {
		return 0, zwave.Node{}, fmt.Errorf("failed to list nodes: %w", err)
	}
	for _, n := range nodes {
		if strings.EqualFold(n.Name, ref) {
			return home, n, nil
		}
	}
	return 0, zwave.Node{}, fmt.Errorf("no node named %q", ref)
}

// arguments are the decoded tool call arguments.
type arguments map[string]any

func (a arguments) str(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func (a arguments) optional(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a arguments) valueID() (zwave.ValueID, error) {
	raw, err := a.str("value_id")
	if err != nil {
		return zwave.ValueID{}, err
	}
	vid, err := zwave.ParseValueID(raw)
	if err != nil {
		return zwave.ValueID{}, fmt.Errorf(`parameter "value_id": %w`, err)
	}
	return vid, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
