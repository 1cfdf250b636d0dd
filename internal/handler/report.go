package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/laptoptracker/laptop-tracker/internal/handler/dto"
	"github.com/laptoptracker/laptop-tracker/internal/report"
	"github.com/laptoptracker/laptop-tracker/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the spreadsheet export.
type ReportHandler struct {
	svc    *service.InventoryService
	logger *slog.Logger
	now    func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc *service.InventoryService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		svc:    svc,
		logger: logger,
		now:    time.Now,
	}
}

// Download handles GET /api/report.xlsx.
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.AllDevices(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.ErrReportBuild,
			Message: causeMessage(err),
		})
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, report.Build(devices, now)); err != nil {
		h.logger.Error("report_write_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Error:   dto.ErrReportBuild,
			Message: err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("laptops-%s.xlsx", now.UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	h.logger.Info("report_served", "devices", len(devices))
}
