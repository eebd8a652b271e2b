package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"meypark-backend/internal/apperr"
	"meypark-backend/internal/model"
	"meypark-backend/internal/protocol"
)

// Write endpoints run the same message handling as the realtime channel, so
// changes are broadcast to every connection. The dispatcher's result is
// returned as is, with 200 even when success is false.

type updateRequest struct {
	ID      string          `json:"id"`
	Updates json.RawMessage `json:"updates"`
}

type assignRequest struct {
	MeterID    string `json:"meterId"`
	CompanyID  string `json:"companyId"`
	OperatorID string `json:"operatorId"`
}

type statusRequest struct {
	MeterID        string            `json:"meterId"`
	Status         model.MeterStatus `json:"status"`
	HardwareStatus json.RawMessage   `json:"hardwareStatus"`
}

type screenRequest struct {
	MeterID string `json:"meterId"`
	Screen  string `json:"screen"`
}

type commandRequest struct {
	MeterID string          `json:"meterId"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func (h *Handler) execute(c *gin.Context, msg protocol.Message) {
	out := h.dispatcher.Execute(c.Request.Context(), msg)
	c.JSON(http.StatusOK, out.Reply)
}

// PutCompany handles PUT /api/companies.
func (h *Handler) PutCompany(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.UpdateCompany{CompanyID: req.ID, Updates: req.Updates})
}

// PutZone handles PUT /api/zones.
func (h *Handler) PutZone(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.UpdateZone{ZoneID: req.ID, Updates: req.Updates})
}

// DeleteZone handles DELETE /api/zones?id=.
func (h *Handler) DeleteZone(c *gin.Context) {
	h.execute(c, &protocol.DeleteZone{ZoneID: c.Query("id")})
}

// PutMeter handles PUT /api/parking-meters.
func (h *Handler) PutMeter(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.UpdateParkingMeter{MeterID: req.ID, Updates: req.Updates})
}

// AssignCompany handles POST /api/parking-meters/assign-company.
func (h *Handler) AssignCompany(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.AssignCompanyToMeter{MeterID: req.MeterID, CompanyID: req.CompanyID, OperatorID: req.OperatorID})
}

// PutMeterStatus handles PUT /api/parking-meters/status.
func (h *Handler) PutMeterStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.UpdateMeterStatus{MeterID: req.MeterID, Status: req.Status, HardwareStatus: req.HardwareStatus})
}

// PutMeterScreen handles PUT /api/parking-meters/screen.
func (h *Handler) PutMeterScreen(c *gin.Context) {
	var req screenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.execute(c, &protocol.UpdateMeterScreen{MeterID: req.MeterID, Screen: req.Screen})
}

// PostCommand handles POST /api/commands. Unlike the other write endpoints it
// answers 400 and 404 for missing fields and unknown meters.
func (h *Handler) PostCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out := h.dispatcher.Execute(c.Request.Context(), &protocol.SendCommand{
		MeterID: req.MeterID,
		Command: req.Command,
		Data:    req.Data,
	})
	r, ok := out.Reply.(protocol.Result)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": apperr.PublicMessage(nil)})
		return
	}
	if !r.Success {
		status := http.StatusBadRequest
		if r.Kind == apperr.KindNotFound {
			status = http.StatusNotFound
		} else if r.Kind == apperr.KindInternal {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"success": false, "error": r.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   r.Fields["message"],
		"delivered": r.Fields["delivered"],
	})
}
