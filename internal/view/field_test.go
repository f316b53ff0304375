package view

import (
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValue(t *testing.T) {
	inst := fleet.Instance{
		ID:              "a1",
		Labels:          map[string]string{fleet.ServiceLabel: "api", "region": "eu", "blank": ""},
		Hostname:        "h1",
		ExternalAddress: "1.2.3.4",
		Status:          fleet.StatusError,
		CreatedAt:       time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}

	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{FieldID, "a1", true},
		{FieldService, "api", true},
		{FieldStatus, "error", true},
		{FieldHostname, "h1", true},
		{FieldExternalAddress, "1.2.3.4", true},
		{FieldInternalAddress, "", false},
		{FieldCreatedAt, "2024-05-06T07:08:09Z", true},
		{FieldUpdatedAt, "", false},
		{"region", "eu", true},
		{"blank", "", false},
		{"absent", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := FieldValue(inst, tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		input   string
		want    SortSpec
		wantErr bool
	}{
		{"id", SortSpec{Field: "id"}, false},
		{"status asc", SortSpec{Field: "status"}, false},
		{"createdAt DESC", SortSpec{Field: "createdAt", Desc: true}, false},
		{"-region", SortSpec{Field: "region", Desc: true}, false},
		{"", SortSpec{}, true},
		{"id sideways", SortSpec{}, true},
		{"a b c", SortSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSort(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortSpecString(t *testing.T) {
	assert.Equal(t, "createdAt asc", DefaultSort.String())
	assert.Equal(t, "id desc", SortSpec{Field: "id", Desc: true}.String())
}

func TestModeNext(t *testing.T) {
	assert.Equal(t, ModeList, ModeTable.Next())
	assert.Equal(t, ModeGrid, ModeList.Next())
	assert.Equal(t, ModeCard, ModeGrid.Next())
	assert.Equal(t, ModeTable, ModeCard.Next())
	assert.Equal(t, ModeTable, Mode("bogus").Next())
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("kanban")
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	cols := Columns([]string{"service", "id", " ", "id", "zone"})
	require.Len(t, cols, 3)
	assert.Equal(t, "SERVICE", cols[0].Title)
	assert.Equal(t, "zone", cols[2].Name)
	assert.Equal(t, "ZONE", cols[2].Title)

	assert.Len(t, Columns(DefaultColumns), len(DefaultColumns))
}

func TestCellValue(t *testing.T) {
	inst := fleet.Instance{
		ID:     "a1",
		Labels: map[string]string{fleet.ServiceLabel: "api"},
		Ports:  map[string]int{"http": 80, "admin": 81},
	}
	assert.Equal(t, "admin:81,http:80", CellValue(inst, "ports"))
	assert.Equal(t, "-", CellValue(inst, FieldCreatedAt))
	assert.Equal(t, "-", CellValue(inst, "region"))
	assert.Equal(t, "a1", CellValue(inst, FieldID))
}
