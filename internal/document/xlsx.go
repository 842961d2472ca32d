package document

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"ledgerline/internal/models"
)

const xlsxTimestamp = "2006-01-02 15:04:05"

// renderXLSX builds a workbook with one sheet per context dimension so the
// extracted state can be filtered and sorted in a spreadsheet.
func renderXLSX(sess *models.Session) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, "Messages", [][]interface{}{{"Timestamp", "Role", "Persona", "Phase", "Content"}}, func(rows *[][]interface{}) {
		for _, m := range sess.Messages {
			*rows = append(*rows, []interface{}{m.Timestamp.Format(xlsxTimestamp), m.Role, m.Metadata.Persona, m.Metadata.Phase, m.Content})
		}
	}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Requirements", [][]interface{}{{"Kind", "Text"}}, func(rows *[][]interface{}) {
		for _, r := range sess.Context.BusinessRequirements {
			*rows = append(*rows, []interface{}{"business", r})
		}
		for _, t := range sess.Context.TechnicalSpecs {
			*rows = append(*rows, []interface{}{"technical", t})
		}
	}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Decisions", [][]interface{}{{"Timestamp", "Decision", "Message"}}, func(rows *[][]interface{}) {
		for _, d := range sess.Context.Decisions {
			*rows = append(*rows, []interface{}{d.Timestamp.Format(xlsxTimestamp), d.Text, d.MessageID})
		}
	}); err != nil {
		return nil, err
	}

	if err := writeSheet(f, "Issues", [][]interface{}{{"Raised", "Status", "Resolved", "Issue"}}, func(rows *[][]interface{}) {
		for _, issue := range sess.Context.OpenIssues {
			resolved := ""
			if issue.ResolvedAt != nil {
				resolved = issue.ResolvedAt.Format(xlsxTimestamp)
			}
			*rows = append(*rows, []interface{}{issue.Timestamp.Format(xlsxTimestamp), issue.Status, resolved, issue.Text})
		}
	}); err != nil {
		return nil, err
	}

	// The default sheet excelize creates is replaced by Messages
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}, fill func(*[][]interface{})) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	fill(&rows)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("bad cell coordinates: %w", err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}
