package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/laptoptracker/laptop-tracker/internal/age"
	"github.com/laptoptracker/laptop-tracker/internal/model"
	"github.com/laptoptracker/laptop-tracker/internal/testutil"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func dev(serial, enrolled string) model.Device {
	return model.Device{
		DeviceName:      "Laptop " + serial,
		User:            model.User{Name: "User " + serial, Email: serial + "@example.com"},
		SerialNumber:    serial,
		FirstEnrollment: enrolled,
		Platform:        "Mac",
	}
}

func TestBuild_SortsOldestFirst(t *testing.T) {
	rows := Build([]model.Device{
		dev("NEW", "2024-06-01T00:00:00Z"),
		dev("BAD", "someday"),
		dev("OLD", "2019-06-01T00:00:00Z"),
		dev("MID", "2021-09-01T00:00:00Z"),
	}, now)

	require.Len(t, rows, 4)
	assert.Equal(t, "OLD", rows[0].Device.SerialNumber)
	assert.Equal(t, age.Danger, rows[0].Category)
	assert.Equal(t, "MID", rows[1].Device.SerialNumber)
	assert.Equal(t, age.Warning, rows[1].Category)
	assert.Equal(t, "NEW", rows[2].Device.SerialNumber)
	assert.Equal(t, "BAD", rows[3].Device.SerialNumber)
	assert.True(t, math.IsNaN(rows[3].Years))
}

func TestBuild_Categories(t *testing.T) {
	rows := Build([]model.Device{
		testutil.NewTestDevice(t, "G", 0.5, now),
		testutil.NewTestDevice(t, "W", 3.5, now),
		testutil.NewTestDevice(t, "D", 4.5, now),
	}, now)

	got := map[string]age.Category{}
	for _, r := range rows {
		got[r.Device.SerialNumber] = r.Category
	}
	assert.Equal(t, map[string]age.Category{"G": age.Good, "W": age.Warning, "D": age.Danger}, got)
	assert.InDelta(t, 4.5, rows[0].Years, 0.001)
}

func TestWriteXLSX(t *testing.T) {
	rows := Build([]model.Device{
		dev("NEW", "2024-06-01T00:00:00Z"),
		dev("OLD", "2019-06-01T00:00:00Z"),
		dev("BAD", "someday"),
	}, now)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, SheetName, sheet.Name)

	header, err := sheet.Row(0)
	require.NoError(t, err)
	for i, col := range Columns {
		assert.Equal(t, col, header.GetCell(i).String())
	}

	first, err := sheet.Row(1)
	require.NoError(t, err)
	assert.Equal(t, "Mac", first.GetCell(0).String())
	assert.Equal(t, "OLD", first.GetCell(6).String())
	assert.Equal(t, "REPLACE NOW", first.GetCell(10).String())

	years, err := first.GetCell(9).Float()
	require.NoError(t, err)
	assert.InDelta(t, 6.0, years, 0.01)

	last, err := sheet.Row(3)
	require.NoError(t, err)
	assert.Equal(t, "BAD", last.GetCell(6).String())
	assert.Equal(t, "UNKNOWN", last.GetCell(10).String())
}
