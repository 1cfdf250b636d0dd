package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/laptoptracker/laptop-tracker/internal/normalize"
	"github.com/laptoptracker/laptop-tracker/internal/report"
	"github.com/laptoptracker/laptop-tracker/internal/service"
)

func TestReportHandler_Download(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	kandji := &fakeSource{name: normalize.VendorKandji, records: []map[string]any{
		{"device_name": "New", "serial_number": "N1", "first_enrollment": "2025-03-01T00:00:00Z"},
		{"device_name": "Old", "serial_number": "O1", "first_enrollment": "2020-03-01T00:00:00Z"},
	}}
	svc := service.NewInventoryService(service.Options{Kandji: kandji, Logger: discardLogger()})
	h := NewReportHandler(svc, discardLogger())
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/report.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="laptops-2026-03-01.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[report.SheetName]
	require.True(t, ok)

	row, err := sheet.Row(1)
	require.NoError(t, err)
	assert.Equal(t, "Old", row.GetCell(1).String())
}

func TestReportHandler_FetchFailure(t *testing.T) {
	kandji := &fakeSource{name: normalize.VendorKandji, err: errors.New("timeout")}
	svc := service.NewInventoryService(service.Options{Kandji: kandji, Logger: discardLogger()})
	h := NewReportHandler(svc, discardLogger())

	rec := httptest.NewRecorder()
	h.Download(rec, httptest.NewRequest(http.MethodGet, "/api/report.xlsx", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Failed to build device report", body.Error)
	assert.Equal(t, "timeout", body.Message)
}
