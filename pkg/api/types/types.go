package types

import (
	"encoding/json"
	"time"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// --- Request DTOs ---

// AddDriverRequest is the request body for POST /drivers
type AddDriverRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// UpdateNodeRequest is the request body for PATCH /homes/:home/nodes/:node
type UpdateNodeRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
}

// SwitchAllRequest is the request body for POST /homes/:home/switch-all
type SwitchAllRequest struct {
	On bool `json:"on"`
}

// ControllerCommandRequest is the request body for POST /homes/:home/controller
type ControllerCommandRequest struct {
	Command string `json:"command" binding:"required"`
	Node    uint8  `json:"node"`
}

// PollRequest is the request body for PUT /values/:id/poll
type PollRequest struct {
	Intensity uint8 `json:"intensity"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string       `json:"status"`
	Ready     int          `json:"ready"`
	Drivers   []DriverInfo `json:"drivers"`
	Timestamp time.Time    `json:"timestamp"`
}

// DriverInfo describes one driver session
type DriverInfo struct {
	Endpoint     string `json:"endpoint"`
	HomeID       string `json:"home_id,omitempty"`
	ControllerID uint8  `json:"controller_id,omitempty"`
	State        string `json:"state"`
}

// ListDriversResponse is returned from GET /drivers
type ListDriversResponse struct {
	Drivers []DriverInfo `json:"drivers"`
	Count   int          `json:"count"`
}

// HomeResponse is returned from GET /homes/:home
type HomeResponse struct {
	HomeID       string `json:"home_id"`
	ControllerID uint8  `json:"controller_id"`
	State        string `json:"state"`
	Nodes        int    `json:"nodes"`
}

// StatisticsResponse is returned from GET /homes/:home/statistics
type StatisticsResponse struct {
	HomeID     string           `json:"home_id"`
	Statistics zwave.DriverData `json:"statistics"`
}

// ListNodesResponse is returned from GET /homes/:home/nodes
type ListNodesResponse struct {
	Nodes []zwave.Node `json:"nodes"`
	Count int          `json:"count"`
}

// NodeResponse is returned from GET /homes/:home/nodes/:node
type NodeResponse struct {
	Node zwave.Node `json:"node"`
}

// ValueView is a value together with its rendered reading
type ValueView struct {
	zwave.Value
	AsString string `json:"as_string"`
}

// ListValuesResponse is returned from GET /homes/:home/nodes/:node/values
type ListValuesResponse struct {
	Values []ValueView `json:"values"`
	Count  int         `json:"count"`
}

// ValueResponse is returned from GET /values/:id
type ValueResponse struct {
	Value ValueView `json:"value"`
}

// SchemaResponse is returned from GET /values/:id/schema
type SchemaResponse struct {
	ValueID string          `json:"value_id"`
	Schema  json.RawMessage `json:"schema"`
}

// AcceptedResponse is returned when a command was queued
type AcceptedResponse struct {
	Status string `json:"status"`
}

// Event is a notification as sent on the event streams
type Event struct {
	Type    string    `json:"type"`
	HomeID  string    `json:"home_id"`
	NodeID  uint8     `json:"node_id"`
	ValueID string    `json:"value_id,omitempty"`
	Code    string    `json:"code,omitempty"`
	State   string    `json:"state,omitempty"`
	Time    time.Time `json:"time"`
}

// NewEvent converts a notification for the event streams.
func NewEvent(n zwave.Notification) Event {
	e := Event{
		Type:   n.Type.String(),
		HomeID: n.HomeID.String(),
		NodeID: uint8(n.NodeID),
		Time:   n.Time,
	}
	if n.HasValueID() {
		e.ValueID = n.ValueID.String()
	}
	if c, ok := n.Code(); ok {
		e.Code = c.String()
	}
	if st, ok := n.ControllerState(); ok {
		e.State = st.String()
	}
	return e
}
