package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/zwcore/pkg/api/types"
	"github.com/urmzd/zwcore/pkg/schema"
)

// ValuesHandler reads and writes single values
type ValuesHandler struct {
	network   Network
	validator *schema.Validator
}

// NewValuesHandler creates a new values handler
func NewValuesHandler(network Network, validator *schema.Validator) *ValuesHandler {
	return &ValuesHandler{network: network, validator: validator}
}

// GetValue handles GET /values/:id
// @Summary      Get a value
// @Description  Returns the value description and its current reading
// @Tags         values
// @Produce      json
// @Param        id   path      string  true  "Value id (hex)"
// @Success      200  {object}  types.ValueResponse
// @Failure      400  {object}  types.ErrorResponse  "Malformed value id"
// @Failure      404  {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id} [get]
func (h *ValuesHandler) GetValue(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}
	v, err := h.network.Value(vid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.ValueResponse{Value: valueView(v)})
}

// SetValue handles PUT /values/:id
// @Summary      Set a value
// @Description  Body is {"value": ...}, validated against the value's schema. The reading changes once the node confirms it.
// @Tags         values
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Value id (hex)"
// @Param        request  body      object  true  "New reading"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request"
// @Failure      404      {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id} [put]
func (h *ValuesHandler) SetValue(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}

	var req map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	doc, err := h.network.ValueSchema(vid)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.validator.Validate(doc, req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if err := h.network.SetValueJSON(vid, req[schema.PayloadKey]); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// RefreshValue handles POST /values/:id/refresh
// @Summary      Read a value again
// @Tags         values
// @Produce      json
// @Param        id   path      string  true  "Value id (hex)"
// @Success      202  {object}  types.AcceptedResponse
// @Failure      404  {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id}/refresh [post]
func (h *ValuesHandler) RefreshValue(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}
	if err := h.network.RefreshValue(vid); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// EnablePoll handles PUT /values/:id/poll
// @Summary      Poll a value
// @Description  Polls the value every intensity-th pass; an intensity of 0 is treated as 1
// @Tags         values
// @Accept       json
// @Produce      json
// @Param        id       path      string             true   "Value id (hex)"
// @Param        request  body      types.PollRequest  false  "Intensity"
// @Success      202      {object}  types.AcceptedResponse
// @Failure      400      {object}  types.ErrorResponse  "Value cannot be polled"
// @Failure      404      {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id}/poll [put]
func (h *ValuesHandler) EnablePoll(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}
	var req types.PollRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "intensity must be between 0 and 255")
			return
		}
	}
	if err := h.network.EnablePoll(vid, req.Intensity); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// DisablePoll handles DELETE /values/:id/poll
// @Summary      Stop polling a value
// @Tags         values
// @Produce      json
// @Param        id   path      string  true  "Value id (hex)"
// @Success      202  {object}  types.AcceptedResponse
// @Failure      404  {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id}/poll [delete]
func (h *ValuesHandler) DisablePoll(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}
	if err := h.network.DisablePoll(vid); err != nil {
		respondError(c, err)
		return
	}
	accepted(c)
}

// GetSchema handles GET /values/:id/schema
// @Summary      Value schema
// @Description  JSON Schema accepted by PUT /values/{id}
// @Tags         values
// @Produce      json
// @Param        id   path      string  true  "Value id (hex)"
// @Success      200  {object}  types.SchemaResponse
// @Failure      404  {object}  types.ErrorResponse  "Unknown value"
// @Router       /values/{id}/schema [get]
func (h *ValuesHandler) GetSchema(c *gin.Context) {
	vid, ok := valueParam(c)
	if !ok {
		return
	}
	doc, err := h.network.ValueSchema(vid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.SchemaResponse{ValueID: vid.String(), Schema: doc})
}
