package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

func TestRenderProducesWorkbookWithEntryRows(t *testing.T) {
	area := 14.5
	plan := domain.Plan{
		TemplateName: "Cleansync Standard",
		TotalAreaM2:  14.5,
		Entries: []domain.PlanEntry{
			{
				RowID:       1,
				RoomName:    "Kontor 101",
				AreaM2:      &area,
				Floor:       "1",
				Description: "Støvsuging og moppevask",
				Frequency:   map[string]bool{"MAN": true, "TIRS": false, "ONS": true, "TORS": false, "FRE": true, "LØR": false, "SØN": false},
			},
			{
				RowID:       2,
				RoomName:    "Gang",
				Description: "Moppevask",
				Frequency:   map[string]bool{"MAN": false, "TIRS": false, "ONS": false, "TORS": false, "FRE": true, "LØR": false, "SØN": false},
			},
		},
	}

	raw, err := New().Render(plan)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	// title + header + 2 entries + total
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d: %v", len(rows), rows)
	}
	if rows[2][1] != "Kontor 101" {
		t.Fatalf("unexpected first entry row: %v", rows[2])
	}

	// MAN is the first weekday column after the five fixed columns.
	if rows[2][5] != "X" {
		t.Fatalf("expected MAN mark on first entry, got %v", rows[2])
	}
	if len(rows[3]) > 5 && rows[3][5] == "X" {
		t.Fatalf("second entry must not be marked for MAN: %v", rows[3])
	}
}

func TestRenderEmptyPlanStillHasHeaderAndTotal(t *testing.T) {
	raw, err := New().Render(domain.Plan{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected title, header and total rows, got %d", len(rows))
	}
	if rows[1][0] != "Nr" {
		t.Fatalf("unexpected header row: %v", rows[1])
	}
}
