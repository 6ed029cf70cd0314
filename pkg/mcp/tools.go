package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/zwcore/pkg/driver"
)

// Shared arguments.
var (
	homeArg  = mcp.WithString("home", mcp.Description("Home id, e.g. 0x00c0ffee (optional when a single network is attached)"))
	nodeArg  = mcp.WithString("node", mcp.Required(), mcp.Description("Node id (1-232) or node name"))
	valueArg = mcp.WithString("value_id", mcp.Required(), mcp.Description("Value id in hex as listed by get_node"))
)

func (s *Server) tools() []server.ServerTool {
	tool := func(name, desc string, fn toolFunc, opts ...mcp.ToolOption) server.ServerTool {
		return server.ServerTool{Tool: mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(desc)}, opts...)...), Handler: handle(fn)}
	}
	endpoint := func(desc string) mcp.ToolOption {
		return mcp.WithString("endpoint", mcp.Required(), mcp.Description(desc))
	}

	return []server.ServerTool{
		tool("get_health", "Check whether every attached Z-Wave controller is ready", s.getHealth),

		// Controllers
		tool("list_drivers", "List the attached controllers with their home id and state", s.listDrivers),
		tool("add_driver", "Attach a controller. The network is interviewed in the background.", s.addDriver,
			endpoint("Serial device path (e.g. /dev/ttyACM0, optionally ?baud=N) or sim://name for the simulator")),
		tool("remove_driver", "Detach a controller and drop its network state", s.removeDriver,
			endpoint("Endpoint the controller was attached with")),
		tool("get_statistics", "Get the serial link counters of a controller", s.getStatistics, homeArg),
		tool("start_inclusion", "Put the controller in inclusion mode so a new device can join", s.beginCommand(driver.ControllerCommandAddDevice, "Inclusion started; press the device's inclusion button"), homeArg),
		tool("start_exclusion", "Put the controller in exclusion mode so a device can leave", s.beginCommand(driver.ControllerCommandRemoveDevice, "Exclusion started; press the device's button"), homeArg),
		tool("cancel_controller_command", "Cancel a running inclusion or exclusion", s.cancelCommand, homeArg),

		// Nodes
		tool("list_nodes", "List the nodes of a network", s.listNodes, homeArg),
		tool("get_node", "Get a node with all of its values and their current readings", s.getNode, homeArg, nodeArg),
		tool("rename_node", "Change a node's name and optionally its location", s.renameNode, homeArg, nodeArg,
			mcp.WithString("new_name", mcp.Required(), mcp.Description("New name for the node")),
			mcp.WithString("location", mcp.Description("New location for the node (optional)"))),
		tool("turn_on", "Turn a node on through its Basic command class", s.switchNode(true), homeArg, nodeArg),
		tool("turn_off", "Turn a node off through its Basic command class", s.switchNode(false), homeArg, nodeArg),

		// Values
		tool("get_value", "Get a value with its reading and the JSON Schema accepted by set_value", s.getValue, valueArg),
		tool("set_value", "Write a value. The payload is validated against the value's schema.", s.setValue, valueArg,
			mcp.WithObject("payload", mcp.Required(), mcp.Description(`Write payload, e.g. {"value": 42} or {"value": true}`))),
		tool("refresh_value", "Ask the device to report a value again", s.refreshValue, valueArg),
	}
}
