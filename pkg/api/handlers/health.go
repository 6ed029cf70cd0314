package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/zwcore/pkg/api/types"
	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/manager"
)

// HealthHandler reports whether the attached controllers can take commands.
type HealthHandler struct {
	network Network
}

func NewHealthHandler(network Network) *HealthHandler {
	return &HealthHandler{network: network}
}

// Health handles GET /health
// @Summary      Controller health
// @Description  Healthy when at least one driver is attached and every driver accepts commands
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Every driver is ready or busy"
// @Failure      503  {object}  types.HealthResponse  "No driver, or a driver is initializing or failed"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	res := assess(h.network.Drivers())
	res.Timestamp = time.Now()

	code := http.StatusOK
	if res.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}

func assess(drivers []manager.DriverInfo) types.HealthResponse {
	res := types.HealthResponse{Drivers: make([]types.DriverInfo, 0, len(drivers))}
	for _, d := range drivers {
		if accepting(d.State) {
			res.Ready++
		}
		res.Drivers = append(res.Drivers, driverInfo(d))
	}
	res.Status = "degraded"
	if len(drivers) > 0 && res.Ready == len(drivers) {
		res.Status = "healthy"
	}
	return res
}

func accepting(state string) bool {
	return state == driver.StateReady.String() || state == driver.StateBusy.String()
}
