// Package export renders reports as spreadsheet workbooks.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"bilancio/internal/core"
)

// Sheet names of the exported workbook.
const (
	SheetSummary    = "Summary"
	SheetCategories = "Categories"
	SheetSeries     = "Time series"
)

// XLSX renders r as a workbook with a summary, a category breakdown and the
// cumulative time series.
func XLSX(r core.Report) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "bilancio",
		DocSecurity: 2,
	})

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetSeries} {
		if _, err := xlsx.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	writeSummary(xlsx, r)
	writeCategories(xlsx, r)
	writeSeries(xlsx, r)

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName is the suggested download name for r.
func FileName(r core.Report) string {
	return fmt.Sprintf("report_%s_%s.xlsx", r.StartDate, r.EndDate)
}

func writeSummary(xlsx *excelize.File, r core.Report) {
	sheet := SheetSummary
	_ = xlsx.SetColWidth(sheet, "A", "A", 30)
	_ = xlsx.SetColWidth(sheet, "B", "B", 18)

	_ = xlsx.SetCellValue(sheet, cell('A', 1), fmt.Sprintf("%s report", r.Kind.Label()))
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thickBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, cell('A', 1), cell('B', 1), style)

	rows := []struct {
		label string
		value any
	}{
		{"Period start", r.StartDate.String()},
		{"Period end", r.EndDate.String()},
		{"Generated at", r.GeneratedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Total budget", amount(r.TotalBudget)},
		{"Total expenses", amount(r.TotalExpenses)},
		{"Total savings", amount(r.TotalSavings)},
		{"Budget usage %", percent(r.GlobalUsagePercentage)},
		{"Dominant category", r.DominantCategory},
		{"Dominant category amount", amount(r.DominantCategoryAmount)},
		{"Over budget categories", r.OverBudgetCategoriesCount},
		{"Total over budget", amount(r.TotalOverBudgetAmount)},
	}
	label, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold()))
	number, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat()))
	for i, row := range rows {
		n := i + 2
		_ = xlsx.SetCellValue(sheet, cell('A', n), row.label)
		_ = xlsx.SetCellValue(sheet, cell('B', n), row.value)
		_ = xlsx.SetCellStyle(sheet, cell('A', n), cell('A', n), label)
		if _, ok := row.value.(float64); ok {
			_ = xlsx.SetCellStyle(sheet, cell('B', n), cell('B', n), number)
		}
	}
}

func writeCategories(xlsx *excelize.File, r core.Report) {
	sheet := SheetCategories
	_ = xlsx.SetColWidth(sheet, "A", "A", 30)
	_ = xlsx.SetColWidth(sheet, "B", "F", 15)

	headers := []string{"Category", "Budget", "Expenses", "Usage %", "Over budget", "Transactions"}
	writeHeader(xlsx, sheet, headers)

	plain, _ := xlsx.NewStyle(mergeStyles(defaultStyle()))
	number, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat()))
	over, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat(), highlight()))

	row := 2
	for _, c := range r.CategoryDetails {
		_ = xlsx.SetCellValue(sheet, cell('A', row), c.Name)
		_ = xlsx.SetCellValue(sheet, cell('B', row), amount(c.Budget))
		_ = xlsx.SetCellValue(sheet, cell('C', row), amount(c.Expenses))
		_ = xlsx.SetCellValue(sheet, cell('D', row), percent(c.UsagePercentage))
		_ = xlsx.SetCellValue(sheet, cell('E', row), amount(c.OverBudgetAmount))
		_ = xlsx.SetCellInt(sheet, cell('F', row), c.TransactionCount)
		_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('A', row), plain)
		_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('E', row), number)
		if c.IsOverBudget() {
			_ = xlsx.SetCellStyle(sheet, cell('E', row), cell('E', row), over)
		}
		row++
	}

	_ = xlsx.SetCellValue(sheet, cell('A', row), "Total")
	_ = xlsx.SetCellValue(sheet, cell('B', row), amount(r.TotalBudget))
	_ = xlsx.SetCellValue(sheet, cell('C', row), amount(r.TotalExpenses))
	_ = xlsx.SetCellValue(sheet, cell('D', row), percent(r.GlobalUsagePercentage))
	_ = xlsx.SetCellValue(sheet, cell('E', row), amount(r.TotalOverBudgetAmount))
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), moneyFormat(), thickBorder("top")))
	_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('F', row), style)
}

func writeSeries(xlsx *excelize.File, r core.Report) {
	sheet := SheetSeries
	_ = xlsx.SetColWidth(sheet, "A", "A", 14)
	_ = xlsx.SetColWidth(sheet, "B", "E", 15)

	bucket := "Day"
	if r.Kind == core.KindAnnual {
		bucket = "Month"
	}
	writeHeader(xlsx, sheet, []string{"Date", "Expenses", "Budget", bucket + " expenses", bucket + " budget"})

	number, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), moneyFormat()))
	for i, p := range r.TimeSeries {
		row := i + 2
		_ = xlsx.SetCellValue(sheet, cell('A', row), p.Label)
		_ = xlsx.SetCellValue(sheet, cell('B', row), amount(p.CumulativeExpenses))
		_ = xlsx.SetCellValue(sheet, cell('C', row), amount(p.CumulativeBudget))
		_ = xlsx.SetCellValue(sheet, cell('D', row), amount(p.BucketExpenses))
		_ = xlsx.SetCellValue(sheet, cell('E', row), amount(p.BucketBudget))
		_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('E', row), number)
	}
}

func writeHeader(xlsx *excelize.File, sheet string, headers []string) {
	col := 'A'
	for _, h := range headers {
		_ = xlsx.SetCellValue(sheet, cell(col, 1), h)
		col++
	}
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, cell('A', 1), cell(col-1, 1), style)
}

func amount(m core.Money) float64 {
	return m.Decimal().InexactFloat64()
}

// percent leaves the cell empty when usage is undefined.
func percent(p core.Percentage) any {
	if !p.Valid() {
		return ""
	}
	return p.Decimal().InexactFloat64()
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}
