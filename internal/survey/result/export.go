package result

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	overallSheet      = "Overall"
	maxSheetNameRunes = 31
)

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", " ", "*", " ", "?", " ", "/", "-", "\\", "-",
)

// Workbook writes an Overall sheet followed by one sheet per cross tab
func Workbook(title string, result Result) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", overallSheet); err != nil {
		return nil, err
	}

	rows := [][]any{
		{title},
		{"Total responses", result.Total},
		{},
		{"Choice", "Count", "Percentage"},
	}
	for _, row := range result.Overall {
		rows = append(rows, []any{row.Label, row.Count, row.Percentage})
	}
	if err := writeRows(f, overallSheet, rows); err != nil {
		return nil, err
	}

	used := map[string]bool{strings.ToLower(overallSheet): true}
	for _, tab := range result.CrossTabs {
		name := uniqueSheetName(tab.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		header := []any{"Choice"}
		for _, segment := range tab.Segments {
			header = append(header, segment.Label+" (count)", segment.Label+" (%)")
		}

		tabRows := [][]any{{tab.Title}, header}
		for i, choice := range tab.Choices {
			line := []any{choice.Label}
			for _, segment := range tab.Segments {
				line = append(line, segment.Cells[i].Count, segment.Cells[i].Percentage)
			}
			tabRows = append(tabRows, line)
		}

		totals := []any{"Respondents"}
		for _, segment := range tab.Segments {
			totals = append(totals, segment.Total, "")
		}
		tabRows = append(tabRows, totals)

		if err := writeRows(f, name, tabRows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// uniqueSheetName strips characters Excel forbids, truncates to 31 runes and de-duplicates
func uniqueSheetName(title string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(title))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Attribute"
	}
	base = truncateRunes(base, maxSheetNameRunes)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetNameRunes-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
