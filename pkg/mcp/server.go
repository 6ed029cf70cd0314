package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/server"

	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/schema"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Network is the part of the manager the tools drive.
type Network interface {
	Drivers() []manager.DriverInfo
	AddDriver(endpoint string) error
	RemoveDriver(endpoint string) error
	Homes() []zwave.HomeID
	Statistics(home zwave.HomeID) (zwave.DriverData, error)

	Nodes(home zwave.HomeID) ([]zwave.Node, error)
	Node(home zwave.HomeID, node zwave.NodeID) (zwave.Node, error)
	Values(home zwave.HomeID, node zwave.NodeID) ([]zwave.Value, error)
	Value(vid zwave.ValueID) (zwave.Value, error)
	ValueSchema(vid zwave.ValueID) (json.RawMessage, error)

	SetValueJSON(vid zwave.ValueID, raw any) error
	RefreshValue(vid zwave.ValueID) error
	SetNodeOn(home zwave.HomeID, node zwave.NodeID) error
	SetNodeOff(home zwave.HomeID, node zwave.NodeID) error
	SetNodeName(home zwave.HomeID, node zwave.NodeID, name string) error
	SetNodeLocation(home zwave.HomeID, node zwave.NodeID, location string) error
	BeginControllerCommand(home zwave.HomeID, cmd driver.ControllerCommand, node zwave.NodeID) error
	CancelControllerCommand(home zwave.HomeID) error
}

var _ Network = (*manager.Manager)(nil)

// Server wraps the MCP server with Z-Wave network control
type Server struct {
	mcpServer *server.MCPServer
	network   Network
	validator *schema.Validator
}

// NewServer creates a new MCP server for the network
func NewServer(network Network, validator *schema.Validator, version string) *Server {
	s := &Server{
		network:   network,
		validator: validator,
	}

	s.mcpServer = server.NewMCPServer(
		"zwcore",
		version,
		server.WithToolCapabilities(true),
	)

	s.mcpServer.AddTools(s.tools()...)

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
