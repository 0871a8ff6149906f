package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/cellarium-ai/validate-schema/internal/gencode"
)

// WriteGeneTableXLSX writes a gene table to a spreadsheet with one sheet named after
// the organism, a header row, and one row per gene sorted by gene ID.
func WriteGeneTableXLSX(path, sheet string, genes gencode.GeneTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "genes"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := []interface{}{"gene_id", "gene_label", "gene_length", "gene_type"}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, id := range SortedIDs(genes) {
		g := genes[id]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []interface{}{id, g.Label, g.Length, g.Type}); err != nil {
			return fmt.Errorf("write gene %s: %w", id, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
