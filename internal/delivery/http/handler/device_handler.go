package handler

import (
	"context"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/internal/usecase/device"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DeviceService interface {
	Register(ctx context.Context, a actor.Actor, req *device.RegisterDeviceRequest) (*device.DeviceResponse, error)
	CheckStatus(ctx context.Context, a actor.Actor, deviceID string) (*device.StatusResponse, error)
	Lock(ctx context.Context, a actor.Actor, deviceID string, req *device.LockDeviceRequest) (*device.DeviceResponse, error)
	Unlock(ctx context.Context, a actor.Actor, deviceID string) (*device.DeviceResponse, error)
	Get(ctx context.Context, a actor.Actor, deviceID string) (*device.DeviceResponse, error)
	List(ctx context.Context, a actor.Actor, filter *device.DeviceFilterRequest) (*device.DeviceListResponse, error)
}

type DeviceHandler struct {
	service DeviceService
}

func NewDeviceHandler(service DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// RegisterDeviceRoutes mounts the endpoints devices call themselves.
func (h *DeviceHandler) RegisterDeviceRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.POST("/register", h.RegisterDevice)
		devices.GET("/:deviceId/status", h.CheckStatus)
	}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:deviceId", h.GetDevice)
		devices.POST("/:deviceId/lock", h.LockDevice)
		devices.POST("/:deviceId/unlock", h.UnlockDevice)
	}
}

func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var req device.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	req.DeviceID = utils.NormalizeIdentifier(req.DeviceID)
	registered, err := h.service.Register(c.Request.Context(), actor.Device(req.DeviceID), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device registered successfully", registered)
}

func (h *DeviceHandler) CheckStatus(c *gin.Context) {
	deviceID := c.Param("deviceId")

	status, err := h.service.CheckStatus(c.Request.Context(), actor.Device(deviceID), deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device status retrieved", status)
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var filter device.DeviceFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	devices, err := h.service.List(c.Request.Context(), a, &filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", devices)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	d, err := h.service.Get(c.Request.Context(), a, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", d)
}

func (h *DeviceHandler) LockDevice(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	var req device.LockDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c)
		return
	}

	d, err := h.service.Lock(c.Request.Context(), a, c.Param("deviceId"), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device locked", d)
}

func (h *DeviceHandler) UnlockDevice(c *gin.Context) {
	a, ok := mustActor(c)
	if !ok {
		return
	}

	d, err := h.service.Unlock(c.Request.Context(), a, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unlocked", d)
}
