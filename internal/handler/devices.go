package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/laptoptracker/laptop-tracker/internal/handler/dto"
	"github.com/laptoptracker/laptop-tracker/internal/mdm/intune"
	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/service"
)

// DeviceHandler serves the per-vendor aggregation endpoints.
type DeviceHandler struct {
	svc    *service.InventoryService
	logger *slog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(svc *service.InventoryService, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		svc:    svc,
		logger: logger,
	}
}

// MacDevices handles GET /api/devices.
func (h *DeviceHandler) MacDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.MacDevices(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.ErrKandjiFetch,
			Message: causeMessage(err),
		})
		return
	}

	h.logger.Info("devices_served", "platform", model.PlatformMac, "count", len(devices))
	writeJSON(w, http.StatusOK, model.DeviceList{Devices: nonNil(devices)})
}

// WindowsDevices handles GET /api/windows-devices.
func (h *DeviceHandler) WindowsDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.WindowsDevices(r.Context())
	if err != nil {
		h.writeIntuneError(w, err)
		return
	}

	h.logger.Info("devices_served", "platform", model.PlatformWindows, "count", len(devices))
	writeJSON(w, http.StatusOK, model.DeviceList{Devices: nonNil(devices)})
}

func (h *DeviceHandler) writeIntuneError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrIntuneDisabled) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: dto.ErrIntuneDisabled})
		return
	}

	var gerr *intune.GraphError
	if errors.As(err, &gerr) {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.ErrIntuneFetch,
			Code:    gerr.Code,
			Message: gerr.Message,
			Raw:     gerr.Raw,
			Hint:    gerr.Hint,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
		Error:   dto.ErrIntuneFetch,
		Message: causeMessage(err),
		Hint:    intune.HintGeneric,
	})
}

// causeMessage strips the service wrapper so callers see the vendor message.
func causeMessage(err error) string {
	var ferr *service.FetchError
	if errors.As(err, &ferr) {
		return ferr.Err.Error()
	}
	return err.Error()
}

func nonNil(devices []model.Device) []model.Device {
	if devices == nil {
		return []model.Device{}
	}
	return devices
}
