package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/zwcore/pkg/api/types"
)

// DriversHandler attaches and detaches controller endpoints
type DriversHandler struct {
	network Network
}

// NewDriversHandler creates a new drivers handler
func NewDriversHandler(network Network) *DriversHandler {
	return &DriversHandler{network: network}
}

// ListDrivers handles GET /drivers
// @Summary      List drivers
// @Description  Returns every attached endpoint with its home and state
// @Tags         drivers
// @Produce      json
// @Success      200  {object}  types.ListDriversResponse
// @Router       /drivers [get]
func (h *DriversHandler) ListDrivers(c *gin.Context) {
	drivers := h.network.Drivers()
	out := make([]types.DriverInfo, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, driverInfo(d))
	}
	c.JSON(http.StatusOK, types.ListDriversResponse{Drivers: out, Count: len(out)})
}

// AddDriver handles POST /drivers
// @Summary      Attach a driver
// @Description  Opens the endpoint and starts initializing it. Progress is reported on the event streams.
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Param        request  body      types.AddDriverRequest  true  "Endpoint to open"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      409      {object}  types.ErrorResponse  "Endpoint already attached"
// @Failure      502      {object}  types.ErrorResponse  "Endpoint could not be opened"
// @Router       /drivers [post]
func (h *DriversHandler) AddDriver(c *gin.Context) {
	var req types.AddDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "endpoint is required")
		return
	}
	if err := h.network.AddDriver(req.Endpoint); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// RemoveDriver handles DELETE /drivers?endpoint=
// @Summary      Detach a driver
// @Description  Stops the session for the endpoint and drops its home
// @Tags         drivers
// @Produce      json
// @Param        endpoint  query  string  true  "Endpoint to detach"
// @Success      204
// @Failure      400  {object}  types.ErrorResponse  "Missing endpoint"
// @Failure      404  {object}  types.ErrorResponse  "Unknown endpoint"
// @Router       /drivers [delete]
func (h *DriversHandler) RemoveDriver(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		badRequest(c, "endpoint is required")
		return
	}
	if err := h.network.RemoveDriver(endpoint); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
