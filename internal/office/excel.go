package office

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Runs of two or more spaces or a tab separate columns in extracted text.
var columnGap = regexp.MustCompile(`\t|\s{2,}`)

// ToExcel writes one sheet per page and one row per non-blank text line.
func ToExcel(pages []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if len(pages) == 0 {
		pages = []string{""}
	}
	for i, text := range pages {
		sheet := fmt.Sprintf("Page %d", i+1)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}

		row := 1
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			for col, cell := range columnGap.Split(line, -1) {
				name, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sheet, name, cell); err != nil {
					return nil, fmt.Errorf("write %s!%s: %w", sheet, name, err)
				}
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
