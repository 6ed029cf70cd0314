package mcp

import (
	"encoding/json"

	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string       `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	Drivers   []DriverInfo `json:"drivers" jsonschema:"description=Attached controllers and their state"`
	Timestamp string       `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// DriverInfo describes one attached controller
type DriverInfo struct {
	Endpoint     string `json:"endpoint" jsonschema:"description=Endpoint the controller was attached with"`
	HomeID       string `json:"home_id,omitempty" jsonschema:"description=Network home id, empty until the controller reported it"`
	ControllerID uint8  `json:"controller_id,omitempty" jsonschema:"description=Node id of the controller"`
	State        string `json:"state" jsonschema:"description=Driver state (initializing/ready/busy/failed)"`
}

// --- Driver Tools ---

// ListDriversOutput is the output for the list_drivers tool
type ListDriversOutput struct {
	Drivers []DriverInfo `json:"drivers" jsonschema:"description=Attached controllers"`
	Count   int          `json:"count" jsonschema:"description=Number of controllers"`
}

// DriverChangeOutput is the output for the add_driver and remove_driver tools
type DriverChangeOutput struct {
	Success  bool   `json:"success" jsonschema:"description=Whether the request was accepted"`
	Endpoint string `json:"endpoint" jsonschema:"description=Controller endpoint"`
	Message  string `json:"message" jsonschema:"description=Status message"`
}

// GetStatisticsOutput is the output for the get_statistics tool
type GetStatisticsOutput struct {
	HomeID     string           `json:"home_id" jsonschema:"description=Network home id"`
	Statistics zwave.DriverData `json:"statistics" jsonschema:"description=Serial link counters"`
}

// --- Node Tools ---

// ListNodesOutput is the output for the list_nodes tool
type ListNodesOutput struct {
	HomeID string     `json:"home_id" jsonschema:"description=Network home id"`
	Nodes  []NodeInfo `json:"nodes" jsonschema:"description=Known nodes"`
	Count  int        `json:"count" jsonschema:"description=Number of nodes"`
}

// NodeInfo represents a node in tool outputs
type NodeInfo struct {
	ID           uint8       `json:"id" jsonschema:"description=Node id (1-232)"`
	Name         string      `json:"name,omitempty" jsonschema:"description=User-assigned name"`
	Location     string      `json:"location,omitempty" jsonschema:"description=User-assigned location"`
	Manufacturer string      `json:"manufacturer,omitempty" jsonschema:"description=Manufacturer name"`
	Product      string      `json:"product,omitempty" jsonschema:"description=Product name"`
	Dead         bool        `json:"dead,omitempty" jsonschema:"description=Node stopped responding"`
	Ready        bool        `json:"ready" jsonschema:"description=Node interview completed"`
	Values       []ValueInfo `json:"values,omitempty" jsonschema:"description=Values exposed by the node"`
}

// GetNodeOutput is the output for the get_node tool
type GetNodeOutput struct {
	Node NodeInfo `json:"node" jsonschema:"description=Node information with its values"`
}

// RenameNodeOutput is the output for the rename_node tool
type RenameNodeOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the rename was accepted"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// SwitchOutput is the output for the turn_on and turn_off tools
type SwitchOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the command was queued"`
	NodeID  uint8  `json:"node_id" jsonschema:"description=Node the command was sent to"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// --- Value Tools ---

// ValueInfo represents a value in tool outputs
type ValueInfo struct {
	ID        string          `json:"id" jsonschema:"description=Value id in hex"`
	Label     string          `json:"label" jsonschema:"description=Human readable label"`
	Units     string          `json:"units,omitempty" jsonschema:"description=Units of the reading"`
	Reading   string          `json:"reading,omitempty" jsonschema:"description=Current reading rendered as text"`
	ReadOnly  bool            `json:"read_only,omitempty" jsonschema:"description=Value cannot be written"`
	Items     []string        `json:"items,omitempty" jsonschema:"description=Choices of a list value"`
	Schema    json.RawMessage `json:"schema,omitempty" jsonschema:"description=JSON Schema for set_value payloads"`
	IsPolled  bool            `json:"is_polled,omitempty" jsonschema:"description=Value is refreshed by the poll loop"`
	Intensity uint8           `json:"poll_intensity,omitempty" jsonschema:"description=Poll every N cycles"`
}

// GetValueOutput is the output for the get_value tool
type GetValueOutput struct {
	Value ValueInfo `json:"value" jsonschema:"description=Value information"`
}

// ValueCommandOutput is the output for the set_value and refresh_value tools
type ValueCommandOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the command was queued"`
	ValueID string `json:"value_id" jsonschema:"description=Value id in hex"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// --- Inclusion Tools ---

// ControllerCommandOutput is the output for the inclusion tools
type ControllerCommandOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the controller accepted the command"`
	Command string `json:"command,omitempty" jsonschema:"description=Controller command started"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// --- Helper conversions ---

// DriverToInfo converts a manager.DriverInfo
func DriverToInfo(d manager.DriverInfo) DriverInfo {
	info := DriverInfo{Endpoint: d.Endpoint, ControllerID: uint8(d.ControllerID), State: d.State}
	if d.HomeID != 0 {
		info.HomeID = d.HomeID.String()
	}
	return info
}

// NodeToInfo converts a zwave.Node
func NodeToInfo(n *zwave.Node) NodeInfo {
	return NodeInfo{
		ID:           uint8(n.ID),
		Name:         n.Name,
		Location:     n.Location,
		Manufacturer: n.ManufacturerName,
		Product:      n.ProductName,
		Dead:         n.Dead,
		Ready:        n.QueriesComplete,
	}
}

// ValueToInfo converts a zwave.Value
func ValueToInfo(v *zwave.Value) ValueInfo {
	info := ValueInfo{
		ID:        v.ID.String(),
		Label:     v.Label,
		Units:     v.Units,
		ReadOnly:  v.ReadOnly,
		IsPolled:  v.PollIntensity > 0,
		Intensity: v.PollIntensity,
	}
	for _, item := range v.Items {
		info.Items = append(info.Items, item.Label)
	}
	if v.IsSet && !v.WriteOnly {
		info.Reading = v.String()
	}
	return info
}
