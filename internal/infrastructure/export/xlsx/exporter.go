// Package xlsx renders cleaning plans as spreadsheet workbooks for download.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/oyvindhag/cleansync/internal/core/domain"
)

const sheetName = "Renholdsplan"

var headerColumns = []string{"Nr", "Rom", "Areal (m²)", "Etasje", "Beskrivelse"}

type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Render(plan domain.Plan) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, 0, len(headerColumns)+len(domain.Weekdays)+1)
	for _, col := range headerColumns {
		header = append(header, col)
	}
	for _, day := range domain.Weekdays {
		header = append(header, day)
	}
	header = append(header, "Merknader")

	title := plan.TemplateName
	if title == "" {
		title = "Renholdsplan"
	}
	if err := f.SetSheetRow(sheetName, "A1", &[]any{title}); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A2", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 3
	for _, entry := range plan.Entries {
		cells := make([]any, 0, len(header))
		cells = append(cells, entry.RowID, entry.RoomName)
		if entry.AreaM2 != nil {
			cells = append(cells, *entry.AreaM2)
		} else {
			cells = append(cells, "")
		}
		cells = append(cells, entry.Floor, entry.Description)
		for _, day := range domain.Weekdays {
			if entry.Frequency[day] {
				cells = append(cells, "X")
			} else {
				cells = append(cells, "")
			}
		}
		cells = append(cells, entry.Notes)

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("write entry row: %w", err)
		}
		row++
	}

	totalCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheetName, totalCell, &[]any{"Totalt areal", "", plan.TotalAreaM2}); err != nil {
		return nil, fmt.Errorf("write total row: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
