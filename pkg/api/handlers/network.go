package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/zwcore/pkg/api/types"
	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Network is the part of the manager the handlers drive.
type Network interface {
	Drivers() []manager.DriverInfo
	AddDriver(endpoint string) error
	RemoveDriver(endpoint string) error

	DriverState(home zwave.HomeID) (driver.State, error)
	Statistics(home zwave.HomeID) (zwave.DriverData, error)
	ControllerNodeID(home zwave.HomeID) (zwave.NodeID, error)

	Nodes(home zwave.HomeID) ([]zwave.Node, error)
	Node(home zwave.HomeID, node zwave.NodeID) (zwave.Node, error)
	Values(home zwave.HomeID, node zwave.NodeID) ([]zwave.Value, error)
	Value(vid zwave.ValueID) (zwave.Value, error)
	ValueSchema(vid zwave.ValueID) (json.RawMessage, error)

	SetValueJSON(vid zwave.ValueID, raw any) error
	RefreshValue(vid zwave.ValueID) error
	EnablePoll(vid zwave.ValueID, intensity uint8) error
	DisablePoll(vid zwave.ValueID) error

	SetNodeOn(home zwave.HomeID, node zwave.NodeID) error
	SetNodeOff(home zwave.HomeID, node zwave.NodeID) error
	SwitchAllOn(home zwave.HomeID) error
	SwitchAllOff(home zwave.HomeID) error
	RefreshNodeInfo(home zwave.HomeID, node zwave.NodeID) error
	SetNodeName(home zwave.HomeID, node zwave.NodeID, name string) error
	SetNodeLocation(home zwave.HomeID, node zwave.NodeID, location string) error
	BeginControllerCommand(home zwave.HomeID, cmd driver.ControllerCommand, node zwave.NodeID) error
	CancelControllerCommand(home zwave.HomeID) error
}

// EventSubscriber hands out notification streams.
type EventSubscriber interface {
	Subscribe() chan zwave.Notification
	Unsubscribe(ch chan zwave.Notification)
}

var _ Network = (*manager.Manager)(nil)

// respondError maps a manager error onto a status code.
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "controller_error"
	switch {
	case errors.Is(err, zwave.ErrUnknownHome),
		errors.Is(err, zwave.ErrUnknownNode),
		errors.Is(err, zwave.ErrUnknownValue),
		errors.Is(err, zwave.ErrUnknownDriver):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, zwave.ErrInvalidValueID),
		errors.Is(err, zwave.ErrTypeMismatch),
		errors.Is(err, zwave.ErrOutOfRange),
		errors.Is(err, zwave.ErrReadOnly),
		errors.Is(err, zwave.ErrWriteOnly),
		errors.Is(err, zwave.ErrUnsupported):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, zwave.ErrBusy):
		status, code = http.StatusConflict, "busy"
	case errors.Is(err, zwave.ErrDriverExists):
		status, code = http.StatusConflict, "driver_exists"
	case errors.Is(err, zwave.ErrNotReady),
		errors.Is(err, zwave.ErrNotInitialized):
		status, code = http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, zwave.ErrTransport):
		status, code = http.StatusBadGateway, "transport_error"
	}
	c.JSON(status, types.ErrorResponse{Error: code, Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid_request", Message: msg})
}

func accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, types.AcceptedResponse{Status: "accepted"})
}

// homeParam parses :home. Both 0x-prefixed hex and decimal are accepted.
func homeParam(c *gin.Context) (zwave.HomeID, bool) {
	v, err := strconv.ParseUint(c.Param("home"), 0, 32)
	if err != nil {
		badRequest(c, "home must be a 32-bit home id")
		return 0, false
	}
	return zwave.HomeID(v), true
}

func nodeParam(c *gin.Context) (zwave.NodeID, bool) {
	v, err := strconv.ParseUint(c.Param("node"), 10, 8)
	if err != nil || !zwave.NodeID(v).Valid() {
		badRequest(c, "node must be between 1 and 232")
		return 0, false
	}
	return zwave.NodeID(v), true
}

func valueParam(c *gin.Context) (zwave.ValueID, bool) {
	vid, err := zwave.ParseValueID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return zwave.ValueID{}, false
	}
	return vid, true
}

func driverInfo(d manager.DriverInfo) types.DriverInfo {
	info := types.DriverInfo{Endpoint: d.Endpoint, State: d.State}
	if d.HomeID != 0 {
		info.HomeID = d.HomeID.String()
		info.ControllerID = uint8(d.ControllerID)
	}
	return info
}

func valueView(v zwave.Value) types.ValueView {
	return types.ValueView{Value: v, AsString: v.String()}
}
