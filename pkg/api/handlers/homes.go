package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/zwcore/pkg/api/types"
	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// HomesHandler serves networks, their nodes and controller commands
type HomesHandler struct {
	network Network
}

// NewHomesHandler creates a new homes handler
func NewHomesHandler(network Network) *HomesHandler {
	return &HomesHandler{network: network}
}

// GetHome handles GET /homes/:home
// @Summary      Get a network
// @Tags         homes
// @Produce      json
// @Param        home  path      string  true  "Home id, hex (0x...) or decimal"
// @Success      200   {object}  types.HomeResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown home"
// @Router       /homes/{home} [get]
func (h *HomesHandler) GetHome(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	state, err := h.network.DriverState(home)
	if err != nil {
		respondError(c, err)
		return
	}
	ctrl, err := h.network.ControllerNodeID(home)
	if err != nil {
		respondError(c, err)
		return
	}
	nodes, err := h.network.Nodes(home)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.HomeResponse{
		HomeID:       home.String(),
		ControllerID: uint8(ctrl),
		State:        state.String(),
		Nodes:        len(nodes),
	})
}

// Statistics handles GET /homes/:home/statistics
// @Summary      Driver statistics
// @Description  Cumulative frame counters of the session driving the home
// @Tags         homes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Success      200   {object}  types.StatisticsResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown home"
// @Router       /homes/{home}/statistics [get]
func (h *HomesHandler) Statistics(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	stats, err := h.network.Statistics(home)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.StatisticsResponse{HomeID: home.String(), Statistics: stats})
}

// ListNodes handles GET /homes/:home/nodes
// @Summary      List nodes
// @Tags         nodes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Success      200   {object}  types.ListNodesResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown home"
// @Failure      503   {object}  types.ErrorResponse  "Driver not ready"
// @Router       /homes/{home}/nodes [get]
func (h *HomesHandler) ListNodes(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	nodes, err := h.network.Nodes(home)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ListNodesResponse{Nodes: nodes, Count: len(nodes)})
}

// GetNode handles GET /homes/:home/nodes/:node
// @Summary      Get a node
// @Tags         nodes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Param        node  path      int     true  "Node id"
// @Success      200   {object}  types.NodeResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node} [get]
func (h *HomesHandler) GetNode(c *gin.Context) {
	home, node, ok := homeNode(c)
	if !ok {
		return
	}
	n, err := h.network.Node(home, node)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NodeResponse{Node: n})
}

// UpdateNode handles PATCH /homes/:home/nodes/:node
// @Summary      Name a node
// @Description  Sets the name and/or location. The change is applied asynchronously.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Param        home     path      string                   true  "Home id"
// @Param        node     path      int                      true  "Node id"
// @Param        request  body      types.UpdateNodeRequest  true  "Name and location"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      404      {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node} [patch]
func (h *HomesHandler) UpdateNode(c *gin.Context) {
	home, node, ok := homeNode(c)
	if !ok {
		return
	}
	var req types.UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Name == nil && req.Location == nil) {
		badRequest(c, "name or location is required")
		return
	}
	if req.Name != nil {
		if err := h.network.SetNodeName(home, node, *req.Name); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Location != nil {
		if err := h.network.SetNodeLocation(home, node, *req.Location); err != nil {
			respondError(c, err)
			return
		}
	}
	accepted(c)
}

// ListValues handles GET /homes/:home/nodes/:node/values
// @Summary      List a node's values
// @Tags         values
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Param        node  path      int     true  "Node id"
// @Success      200   {object}  types.ListValuesResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node}/values [get]
func (h *HomesHandler) ListValues(c *gin.Context) {
	home, node, ok := homeNode(c)
	if !ok {
		return
	}
	values, err := h.network.Values(home, node)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]types.ValueView, 0, len(values))
	for _, v := range values {
		out = append(out, valueView(v))
	}
	c.JSON(http.StatusOK, types.ListValuesResponse{Values: out, Count: len(out)})
}

// TurnOn handles POST /homes/:home/nodes/:node/on
// @Summary      Turn a node on
// @Tags         nodes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Param        node  path      int     true  "Node id"
// @Success      202   {object}  types.AcceptedResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node}/on [post]
func (h *HomesHandler) TurnOn(c *gin.Context) {
	h.nodeCommand(c, h.network.SetNodeOn)
}

// TurnOff handles POST /homes/:home/nodes/:node/off
// @Summary      Turn a node off
// @Tags         nodes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Param        node  path      int     true  "Node id"
// @Success      202   {object}  types.AcceptedResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node}/off [post]
func (h *HomesHandler) TurnOff(c *gin.Context) {
	h.nodeCommand(c, h.network.SetNodeOff)
}

// RefreshNode handles POST /homes/:home/nodes/:node/refresh
// @Summary      Query a node again
// @Tags         nodes
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Param        node  path      int     true  "Node id"
// @Success      202   {object}  types.AcceptedResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown node"
// @Router       /homes/{home}/nodes/{node}/refresh [post]
func (h *HomesHandler) RefreshNode(c *gin.Context) {
	h.nodeCommand(c, h.network.RefreshNodeInfo)
}

func (h *HomesHandler) nodeCommand(c *gin.Context, run func(zwave.HomeID, zwave.NodeID) error) {
	home, node, ok := homeNode(c)
	if !ok {
		return
	}
	if err := run(home, node); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// SwitchAll handles POST /homes/:home/switch-all
// @Summary      Switch every node on or off
// @Tags         homes
// @Accept       json
// @Produce      json
// @Param        home     path      string                  true  "Home id"
// @Param        request  body      types.SwitchAllRequest  true  "Target state"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      404      {object}  types.ErrorResponse  "Unknown home"
// @Router       /homes/{home}/switch-all [post]
func (h *HomesHandler) SwitchAll(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	var req types.SwitchAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "on is required")
		return
	}
	run := h.network.SwitchAllOff
	if req.On {
		run = h.network.SwitchAllOn
	}
	if err := run(home); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// BeginCommand handles POST /homes/:home/controller
// @Summary      Start a controller command
// @Description  Starts add_device, remove_device or has_node_failed. Progress arrives as controller_command events.
// @Tags         controller
// @Accept       json
// @Produce      json
// @Param        home     path      string                          true  "Home id"
// @Param        request  body      types.ControllerCommandRequest  true  "Command"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Unknown command"
// @Failure      409      {object}  types.ErrorResponse  "Another command is in progress"
// @Router       /homes/{home}/controller [post]
func (h *HomesHandler) BeginCommand(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	var req types.ControllerCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "command is required")
		return
	}
	cmd, err := driver.ParseControllerCommand(req.Command)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.network.BeginControllerCommand(home, cmd, zwave.NodeID(req.Node)); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// CancelCommand handles DELETE /homes/:home/controller
// @Summary      Cancel the controller command
// @Tags         controller
// @Produce      json
// @Param        home  path      string  true  "Home id"
// @Success      202   {object}  types.AcceptedResponse
// @Failure      404   {object}  types.ErrorResponse  "Unknown home"
// @Router       /homes/{home}/controller [delete]
func (h *HomesHandler) CancelCommand(c *gin.Context) {
	home, ok := homeParam(c)
	if !ok {
		return
	}
	if err := h.network.CancelControllerCommand(home); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

func homeNode(c *gin.Context) (zwave.HomeID, zwave.NodeID, bool) {
	home, ok := homeParam(c)
	if !ok {
		return 0, 0, false
	}
	node, ok := nodeParam(c)
	if !ok {
		return 0, 0, false
	}
	return home, node, true
}
