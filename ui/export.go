package ui

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"goannotate/domain/feedback"
)

// handleStatsExport writes the active config's agreement snapshot as an
// xlsx workbook: a summary sheet plus, for categorical specs, the confusion
// matrix on its own sheet.
func (a *App) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.session.ActiveConfig(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	stats, err := a.session.RefreshStats(r.Context(), cfg.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Summary"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]any{
		{"Config ID", string(cfg.ID)},
		{"Spec Type", string(cfg.Spec.Kind)},
		{"Total Test Cases", stats.TotalTestCases},
		{"Pending", stats.Pending},
		{"Summarized", stats.Summarized},
		{"AI Annotated", stats.AIAnnotated},
		{"Human Annotated", stats.HumanAnnotated},
		{"Invalid", stats.Invalid},
	}
	if stats.AgreementRate != nil {
		rows = append(rows, []any{"Agreement Rate", *stats.AgreementRate})
	}
	if stats.MeanAbsoluteError != nil {
		rows = append(rows, []any{"Mean Absolute Error", *stats.MeanAbsoluteError})
	}
	if stats.Correlation != nil {
		rows = append(rows, []any{"Correlation", *stats.Correlation})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			a.writeError(w, err)
			return
		}
	}

	if cfg.Spec.Kind == feedback.SpecCategorical && stats.ConfusionMatrix != nil {
		if err := writeConfusionSheet(f, cfg.Spec.Categories, stats.ConfusionMatrix); err != nil {
			a.writeError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=stats_%s.xlsx", cfg.ID))
	if err := f.Write(w); err != nil {
		a.logger.Error("Failed to stream xlsx export: %v", err)
	}
}

func writeConfusionSheet(f *excelize.File, categories []string, matrix map[string]map[string]int) error {
	sheet := "Confusion Matrix"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"AI \\ Human"}
	for _, c := range categories {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, aiCat := range categories {
		row := []any{aiCat}
		for _, humanCat := range categories {
			row = append(row, matrix[aiCat][humanCat])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
